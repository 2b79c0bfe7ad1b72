package repository

import (
	"context"
	"errors"

	"gamemarket/internal/model"

	"gorm.io/gorm"
)

var ErrCheckinExists = errors.New("今日已签到")

type CheckinRepository struct {
	db *gorm.DB
}

func NewCheckinRepository(db *gorm.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// Create 落库签到记录
// (user_id, checkin_date) 唯一索引，并发重复签到在这里被数据库拒绝
func (r *CheckinRepository) Create(ctx context.Context, record *model.CheckinRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCheckinExists
	}
	return err
}

// Delete 撤销签到记录（加币失败时的补偿动作）
func (r *CheckinRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.CheckinRecord{}, id).Error
}

func (r *CheckinRepository) GetByUserAndDate(ctx context.Context, userID int64, date string) (*model.CheckinRecord, error) {
	var record model.CheckinRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND checkin_date = ?", userID, date).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
