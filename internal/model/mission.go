package model

import (
	"time"
)

const (
	AttemptStatusStarted   = "STARTED"
	AttemptStatusCompleted = "COMPLETED"
)

// Mission 任务定义
// 接跳转链任务时 ProviderURL 指向短链服务商，验证码由服务商落地页下发
type Mission struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string    `gorm:"type:varchar(64);not null" json:"name"`
	Description      string    `gorm:"type:varchar(256)" json:"description"`
	Provider         string    `gorm:"type:varchar(32)" json:"provider"`     // 短链服务商标识
	ProviderURL      string    `gorm:"type:varchar(512)" json:"provider_url"`
	Code             string    `gorm:"type:varchar(64)" json:"-"` // 校验码，为空则无需校验
	CoinReward       int64     `gorm:"not null" json:"coin_reward"`
	ExpReward        int64     `gorm:"not null;default:0" json:"exp_reward"`
	SingleUsePerUser bool      `gorm:"not null;default:false" json:"single_use_per_user"` // true: 每用户仅一次；false: 每IP每天一次
	IsEnabled        bool      `gorm:"not null;default:true" json:"is_enabled"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Mission) TableName() string {
	return "mission"
}

// MissionAttempt 任务领取记录（幂等标记）
// ScopeKey 按任务唯一性规则生成：
//   - 每用户一次:   user:<userID>:mission:<missionID>
//   - 每IP每天一次: ip:<ip>:mission:<missionID>:day:<2006-01-02>
//
// ScopeKey 唯一索引使 COMPLETED 成为该范围的终态，并发重复领取在落库时被拒绝
type MissionAttempt struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64      `gorm:"index;not null" json:"user_id"`
	MissionID   int64      `gorm:"index;not null" json:"mission_id"`
	ScopeKey    string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"scope_key"`
	Status      string     `gorm:"type:varchar(16);not null" json:"status"`
	Amount      int64      `gorm:"not null;default:0" json:"amount"` // 实际发放金币
	IP          string     `gorm:"type:varchar(45)" json:"ip"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MissionAttempt) TableName() string {
	return "mission_attempt"
}
