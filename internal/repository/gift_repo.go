package repository

import (
	"context"
	"errors"
	"time"

	"gamemarket/internal/model"

	"gorm.io/gorm"
)

var (
	ErrTokenNotFound   = errors.New("礼品码不存在")
	ErrTokenExhausted  = errors.New("礼品码已被兑完")
	ErrAlreadyRedeemed = errors.New("已兑换过该礼品码")
)

type GiftRepository struct {
	db *gorm.DB
}

func NewGiftRepository(db *gorm.DB) *GiftRepository {
	return &GiftRepository{db: db}
}

func (r *GiftRepository) Create(ctx context.Context, token *model.GiftToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *GiftRepository) GetByCode(ctx context.Context, code string) (*model.GiftToken, error) {
	var token model.GiftToken
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// ConsumeUse 占用一个兑换名额
//
// used_count < max_uses 的判断和自增在同一条 UPDATE 里完成，
// 并发抢最后一个名额时只有一个请求的 RowsAffected 为 1
func (r *GiftRepository) ConsumeUse(ctx context.Context, tokenID int64, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.GiftToken{}).
		Where("id = ? AND is_enabled = ? AND used_count < max_uses AND expires_at > ?",
			tokenID, true, now).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenExhausted
	}
	return nil
}

// ReleaseUse 兑换流程后续步骤失败时归还名额（补偿动作）
func (r *GiftRepository) ReleaseUse(ctx context.Context, tokenID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.GiftToken{}).
		Where("id = ? AND used_count > 0", tokenID).
		UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error
}

// CreateRedemption 落库兑换记录。(token_id, user_id) 唯一索引保证每人一次
func (r *GiftRepository) CreateRedemption(ctx context.Context, redemption *model.GiftRedemption) error {
	err := r.db.WithContext(ctx).Create(redemption).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyRedeemed
	}
	return err
}

// DeleteRedemption 删除兑换记录（加币失败的补偿动作，允许用户重试）
func (r *GiftRepository) DeleteRedemption(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.GiftRedemption{}, id).Error
}

func (r *GiftRepository) GetRedemption(ctx context.Context, tokenID, userID int64) (*model.GiftRedemption, error) {
	var redemption model.GiftRedemption
	err := r.db.WithContext(ctx).
		Where("token_id = ? AND user_id = ?", tokenID, userID).
		First(&redemption).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}
