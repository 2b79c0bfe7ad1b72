package repository

import (
	"context"
	"errors"
	"time"

	"gamemarket/internal/model"

	"gorm.io/gorm"
)

var (
	ErrPurchaseNotFound      = errors.New("购买订单不存在")
	ErrPurchaseStatusInvalid = errors.New("购买订单状态不合法")
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) Create(ctx context.Context, order *model.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *PurchaseRepository) GetByOrderNo(ctx context.Context, orderNo string) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *PurchaseRepository) GetByRequestID(ctx context.Context, requestID string) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// UpdateStatus 订单状态 CAS，非法迁移直接拒绝
func (r *PurchaseRepository) UpdateStatus(ctx context.Context, orderNo, fromStatus, toStatus string) error {
	if !model.PurchaseCanTransitionTo(fromStatus, toStatus) {
		return ErrPurchaseStatusInvalid
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}
	if toStatus == model.PurchaseStatusFulfilled {
		now := time.Now()
		updates["fulfilled_at"] = &now
	}

	result := r.db.WithContext(ctx).
		Model(&model.PurchaseOrder{}).
		Where("order_no = ? AND status = ?", orderNo, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPurchaseStatusInvalid
	}
	return nil
}

func (r *PurchaseRepository) SetListing(ctx context.Context, orderNo string, listingID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.PurchaseOrder{}).
		Where("order_no = ?", orderNo).
		Update("listing_id", listingID).Error
}

// GetStuckDebited 查出扣了款但长时间没发货也没退款的订单，交给对账任务补偿
func (r *PurchaseRepository) GetStuckDebited(ctx context.Context, beforeTime time.Time, limit int) ([]*model.PurchaseOrder, error) {
	var orders []*model.PurchaseOrder
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.PurchaseStatusDebited, beforeTime).
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *PurchaseRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.PurchaseOrder, int64, error) {
	var orders []*model.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&model.PurchaseOrder{}).Where("user_id = ?", userID)

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
