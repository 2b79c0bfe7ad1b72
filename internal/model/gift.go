package model

import (
	"time"
)

// GiftToken 礼品码
// used_count 只通过条件更新递增（used_count < max_uses），
// 并发兑换竞争最后一个名额时只有一个请求能成功
type GiftToken struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Amount    int64     `gorm:"not null" json:"amount"` // 兑换金币数
	MaxUses   int       `gorm:"not null;default:1" json:"max_uses"`
	UsedCount int       `gorm:"not null;default:0" json:"used_count"`
	IsEnabled bool      `gorm:"not null;default:true" json:"is_enabled"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GiftToken) TableName() string {
	return "gift_token"
}

// GiftRedemption 礼品码兑换记录
// (token_id, user_id) 唯一索引：每个用户对同一个码只能兑换一次
type GiftRedemption struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TokenID   int64     `gorm:"uniqueIndex:uk_token_user;not null" json:"token_id"`
	UserID    int64     `gorm:"uniqueIndex:uk_token_user;not null" json:"user_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (GiftRedemption) TableName() string {
	return "gift_redemption"
}
