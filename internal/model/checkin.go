package model

import (
	"time"
)

// CheckinRecord 每日签到记录
// (user_id, checkin_date) 唯一索引保证同一天只可能落库一条，
// 并发重复签到由索引冲突裁决，而不是业务层判断
type CheckinRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"uniqueIndex:uk_user_date;not null" json:"user_id"`
	CheckinDate string    `gorm:"type:varchar(10);uniqueIndex:uk_user_date;not null" json:"checkin_date"` // 格式 2006-01-02
	Amount      int64     `gorm:"not null" json:"amount"`  // 实际发放金币（含连签加成）
	Streak      int       `gorm:"not null" json:"streak"`  // 截至当天的连续签到天数
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CheckinRecord) TableName() string {
	return "checkin_record"
}
