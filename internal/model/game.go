package model

import (
	"time"
)

const (
	GameChoiceTai = "tai" // 大（三骰和 >= 11）
	GameChoiceXiu = "xiu" // 小
)

// GameRound 骰子游戏对局记录
type GameRound struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoundNo   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"round_no"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Choice    string    `gorm:"type:varchar(8);not null" json:"choice"`
	Dice1     int       `gorm:"not null" json:"dice1"`
	Dice2     int       `gorm:"not null" json:"dice2"`
	Dice3     int       `gorm:"not null" json:"dice3"`
	Total     int       `gorm:"not null" json:"total"`
	Outcome   string    `gorm:"type:varchar(8);not null" json:"outcome"`
	Wager     int64     `gorm:"not null" json:"wager"`
	WinAmount int64     `gorm:"not null;default:0" json:"win_amount"` // 赢时为 2*wager，输为 0
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (GameRound) TableName() string {
	return "game_round"
}
