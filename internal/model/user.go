package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	UserStatusActive = "ACTIVE"
	UserStatusBanned = "BANNED"
)

// User 用户表
// coins 是整个平台的核心数据，只允许通过 UserRepository.ApplyDelta 的条件更新修改，
// 任何业务层都不得读出余额后再写回
type User struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username   string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"username"`
	Email      string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"type:varchar(128);not null" json:"-"` // bcrypt 哈希，不返回前端
	Role       string    `gorm:"type:varchar(16);not null;default:user" json:"role"`
	Coins      int64     `gorm:"not null;default:0" json:"coins"` // 金币余额，恒 >= 0
	Level      int       `gorm:"not null;default:1" json:"level"`
	Experience int64     `gorm:"not null;default:0" json:"experience"`
	Status     string    `gorm:"type:varchar(16);index;not null;default:ACTIVE" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

// LevelForExperience 经验值对应等级
// 每 500 经验升一级，1 级起步
func LevelForExperience(exp int64) int {
	if exp < 0 {
		return 1
	}
	return int(exp/500) + 1
}
