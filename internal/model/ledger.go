package model

import (
	"time"
)

// ============================================================================
// 金币流水类型常量
// ============================================================================

const (
	LedgerCategoryCheckin  = "CHECKIN"   // 每日签到
	LedgerCategoryMission  = "MISSION"   // 任务奖励
	LedgerCategoryGift     = "GIFT"      // 礼品码兑换
	LedgerCategoryCard     = "CARD"      // 充值卡到账
	LedgerCategoryPurchase = "PURCHASE"  // 商城购买（扣款）
	LedgerCategoryRefund   = "REFUND"    // 补偿性退款
	LedgerCategoryGame     = "GAME"      // 小游戏下注/派彩
	LedgerCategoryAuction  = "AUCTION"   // 竞拍出价/退还
	LedgerCategoryAdmin    = "ADMIN"     // 管理员调整
)

// ActorSystem 系统动作（后台任务发起的变动）的 actor 标识
const ActorSystem = "system"

// LedgerEvent 金币流水表
// 记录每一笔余额变动，是对账和审计的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除（到期清理除外）—— 保证审计可追溯
// 2. 每笔流水记录变动后余额 —— 便于校验余额一致性
// 3. 流水写入失败不阻断业务 —— 业务变动已提交，日志尽力而为
type LedgerEvent struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventNo      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"event_no"` // 流水号（全局唯一）
	UserID       int64     `gorm:"index;not null" json:"user_id"`                         // 余额归属用户
	Actor        string    `gorm:"type:varchar(32);not null" json:"actor"`                // 发起者：用户ID、管理员ID 或 system
	Delta        int64     `gorm:"not null" json:"delta"`                                 // 变动金额（正数入账，负数出账）
	Category     string    `gorm:"type:varchar(20);index;not null" json:"category"`       // 流水类型
	Remark       string    `gorm:"type:varchar(256)" json:"remark"`                       // 备注
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`                         // 变动后余额
	RefNo        string    `gorm:"type:varchar(64);index" json:"ref_no"`                  // 关联单号（订单号/卡单号/局号等）
	IP           string    `gorm:"type:varchar(45)" json:"ip"`                            // 请求来源IP
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (LedgerEvent) TableName() string {
	return "ledger_event"
}
