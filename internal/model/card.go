package model

import (
	"time"
)

// ============================================================================
// 充值卡订单
// ============================================================================

const (
	CardStatusPending    = "PENDING"     // 已提交，等待渠道回调
	CardStatusSuccess    = "SUCCESS"     // 面值正确，已按面值折算到账
	CardStatusWrongValue = "WRONG_VALUE" // 面值错误但渠道仍接受，按实际面值折算到账
	CardStatusFailed     = "FAILED"      // 卡无效/渠道拒绝
)

// 渠道回调的 status 字段取值
const (
	CardCallbackExact  = 1 // 面值正确
	CardCallbackWrong  = 2 // 面值错误但接受
	CardCallbackFailed = 3 // 失败
)

var cardStatusTransitions = map[string][]string{
	CardStatusPending: {CardStatusSuccess, CardStatusWrongValue, CardStatusFailed},
}

// CardCanTransitionTo 充值卡订单状态机校验
// PENDING 之后均为终态，重复回调无法再次变更状态
func CardCanTransitionTo(currentStatus, targetStatus string) bool {
	for _, s := range cardStatusTransitions[currentStatus] {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// CardOrder 充值卡订单表
type CardOrder struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CardNo        string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"card_no"`
	RequestID     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"` // 提交方幂等ID，回调按它定位订单
	UserID        int64      `gorm:"index;not null" json:"user_id"`
	Telco         string     `gorm:"type:varchar(32);not null" json:"telco"`
	Code          string     `gorm:"type:varchar(64);not null" json:"-"`
	Serial        string     `gorm:"type:varchar(64);not null" json:"-"`
	DeclaredValue int64      `gorm:"not null" json:"declared_value"`            // 用户申报面值
	RealValue     int64      `gorm:"not null;default:0" json:"real_value"`      // 渠道回调的实际面值
	CreditedCoins int64      `gorm:"not null;default:0" json:"credited_coins"`  // 实际到账金币
	Status        string     `gorm:"type:varchar(20);index;not null" json:"status"`
	CallbackAt    *time.Time `json:"callback_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CardOrder) TableName() string {
	return "card_order"
}
