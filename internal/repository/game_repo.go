package repository

import (
	"context"

	"gamemarket/internal/model"

	"gorm.io/gorm"
)

type GameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) Create(ctx context.Context, round *model.GameRound) error {
	return r.db.WithContext(ctx).Create(round).Error
}

func (r *GameRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.GameRound, int64, error) {
	var rounds []*model.GameRound
	var total int64

	query := r.db.WithContext(ctx).Model(&model.GameRound{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rounds).Error

	return rounds, total, err
}
