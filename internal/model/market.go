package model

import (
	"time"
)

// ============================================================================
// 商城购买订单
// ============================================================================
//
// 【为什么购买要建订单？】
//
// 扣款和发货是两次独立的单文档操作，中间可能崩溃。订单状态记录扣款进度：
// 处于 DEBITED 且长时间未发货的订单说明扣款悬空，由对账任务自动退款。
// 没有这张表就无法区分"没扣款"和"扣了款没发货"。

const (
	PurchaseStatusCreated   = "CREATED"   // 订单已建，未扣款
	PurchaseStatusDebited   = "DEBITED"   // 已扣款，待发货
	PurchaseStatusFulfilled = "FULFILLED" // 已发货
	PurchaseStatusRefunded  = "REFUNDED"  // 无货或对账补偿，已退款
)

var purchaseStatusTransitions = map[string][]string{
	PurchaseStatusCreated: {PurchaseStatusDebited},
	PurchaseStatusDebited: {PurchaseStatusFulfilled, PurchaseStatusRefunded},
}

// PurchaseCanTransitionTo 购买订单状态机校验
func PurchaseCanTransitionTo(currentStatus, targetStatus string) bool {
	for _, s := range purchaseStatusTransitions[currentStatus] {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// PurchaseOrder 商城购买订单表
type PurchaseOrder struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	RequestID   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"` // 幂等ID，客户端生成
	UserID      int64      `gorm:"index;not null" json:"user_id"`
	PackageID   int64      `gorm:"not null" json:"package_id"`
	Category    string     `gorm:"type:varchar(32);not null" json:"category"`
	Amount      int64      `gorm:"not null" json:"amount"`
	Status      string     `gorm:"type:varchar(20);index;not null" json:"status"`
	ListingID   int64      `gorm:"not null;default:0" json:"listing_id"` // 发货后关联的账号
	FulfilledAt *time.Time `json:"fulfilled_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_order"
}
