package repository

import (
	"context"
	"errors"
	"time"

	"gamemarket/internal/model"

	"gorm.io/gorm"
)

var (
	ErrMissionNotFound   = errors.New("任务不存在")
	ErrAttemptExists     = errors.New("该任务已领取")
	ErrAttemptNotStarted = errors.New("任务尚未开始")
)

type MissionRepository struct {
	db *gorm.DB
}

func NewMissionRepository(db *gorm.DB) *MissionRepository {
	return &MissionRepository{db: db}
}

func (r *MissionRepository) Create(ctx context.Context, mission *model.Mission) error {
	return r.db.WithContext(ctx).Create(mission).Error
}

func (r *MissionRepository) GetByID(ctx context.Context, id int64) (*model.Mission, error) {
	var mission model.Mission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&mission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissionNotFound
		}
		return nil, err
	}
	return &mission, nil
}

func (r *MissionRepository) ListEnabled(ctx context.Context) ([]*model.Mission, error) {
	var missions []*model.Mission
	err := r.db.WithContext(ctx).
		Where("is_enabled = ?", true).
		Order("id ASC").
		Find(&missions).Error
	return missions, err
}

// ============================================================
// 领取记录
// ============================================================

// GetAttemptByScopeKey 按唯一性范围查领取记录
func (r *MissionRepository) GetAttemptByScopeKey(ctx context.Context, scopeKey string) (*model.MissionAttempt, error) {
	var attempt model.MissionAttempt
	err := r.db.WithContext(ctx).Where("scope_key = ?", scopeKey).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

// CreateAttempt 创建 STARTED 领取记录。scope_key 冲突说明该范围已领取
func (r *MissionRepository) CreateAttempt(ctx context.Context, attempt *model.MissionAttempt) error {
	err := r.db.WithContext(ctx).Create(attempt).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAttemptExists
	}
	return err
}

// CompleteAttempt 把 STARTED 记录推进到 COMPLETED（条件更新，终态不可重复进入）
func (r *MissionRepository) CompleteAttempt(ctx context.Context, attemptID int64, amount int64) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.MissionAttempt{}).
		Where("id = ? AND status = ?", attemptID, model.AttemptStatusStarted).
		Updates(map[string]interface{}{
			"status":       model.AttemptStatusCompleted,
			"amount":       amount,
			"completed_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAttemptExists
	}
	return nil
}

// CountCompletedByUserOnDate 用户当天完成的任务数（签到资格依赖它）
func (r *MissionRepository) CountCompletedByUserOnDate(ctx context.Context, userID int64, dayStart, dayEnd time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MissionAttempt{}).
		Where("user_id = ? AND status = ? AND completed_at >= ? AND completed_at < ?",
			userID, model.AttemptStatusCompleted, dayStart, dayEnd).
		Count(&count).Error
	return count, err
}
