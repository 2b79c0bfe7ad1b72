package repository

import (
	"context"
	"time"

	"gamemarket/internal/model"

	"gorm.io/gorm"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Create 追加一条流水。流水只追加不修改
func (r *LedgerRepository) Create(ctx context.Context, event *model.LedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *LedgerRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.LedgerEvent, int64, error) {
	var events []*model.LedgerEvent
	var total int64

	query := r.db.WithContext(ctx).Model(&model.LedgerEvent{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&events).Error

	return events, total, err
}

// PurgeBefore 删除指定时间之前的流水，按批执行避免大事务
func (r *LedgerRepository) PurgeBefore(ctx context.Context, before time.Time, batchSize int) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Limit(batchSize).
		Delete(&model.LedgerEvent{})
	return result.RowsAffected, result.Error
}
