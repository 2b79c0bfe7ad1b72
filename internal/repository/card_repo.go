package repository

import (
	"context"
	"errors"
	"time"

	"gamemarket/internal/model"

	"gorm.io/gorm"
)

var (
	ErrCardOrderNotFound      = errors.New("充值卡订单不存在")
	ErrCardOrderStatusInvalid = errors.New("充值卡订单状态不合法")
)

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) Create(ctx context.Context, order *model.CardOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *CardRepository) GetByRequestID(ctx context.Context, requestID string) (*model.CardOrder, error) {
	var order model.CardOrder
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Settle 回调结算：状态 CAS + 写入渠道实际面值与到账金币
//
// 【关键点】PENDING -> 终态的条件更新是回调幂等的根本保证：
// 渠道重复回调时第二次 RowsAffected 为 0，不会二次加币
func (r *CardRepository) Settle(ctx context.Context, requestID, fromStatus, toStatus string, realValue, creditedCoins int64) error {
	if !model.CardCanTransitionTo(fromStatus, toStatus) {
		return ErrCardOrderStatusInvalid
	}

	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.CardOrder{}).
		Where("request_id = ? AND status = ?", requestID, fromStatus).
		Updates(map[string]interface{}{
			"status":         toStatus,
			"real_value":     realValue,
			"credited_coins": creditedCoins,
			"callback_at":    &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCardOrderStatusInvalid
	}
	return nil
}

func (r *CardRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.CardOrder, int64, error) {
	var orders []*model.CardOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&model.CardOrder{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}
