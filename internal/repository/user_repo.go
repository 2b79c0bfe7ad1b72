package repository

import (
	"context"
	"errors"

	"gamemarket/internal/model"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("用户不存在")
	ErrInsufficientCoins = errors.New("金币不足")
	ErrDuplicateUser     = errors.New("用户名或邮箱已存在")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateUser
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ApplyDelta 余额原子变更，整个系统唯一的余额写入口
//
// 【关键点】扣款条件 coins >= -delta 和自增在同一条 UPDATE 里求值并生效，
// 两个并发扣款在余额只够一笔时必然一成一败，余额不可能扣成负数。
// RowsAffected == 0 时再查一次用户，区分"用户不存在"和"余额不足"
func (r *UserRepository) ApplyDelta(ctx context.Context, userID int64, delta int64) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID)
	if delta < 0 {
		query = query.Where("coins >= ?", -delta)
	}

	result := query.UpdateColumn("coins", gorm.Expr("coins + ?", delta))
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, userID); err != nil {
			return 0, err
		}
		return 0, ErrInsufficientCoins
	}

	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Coins, nil
}

// AddExperience 增加经验并重算等级
func (r *UserRepository) AddExperience(ctx context.Context, userID int64, exp int64) error {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	newExp := user.Experience + exp
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"experience": newExp,
			"level":      model.LevelForExperience(newExp),
		}).Error
}

func (r *UserRepository) UpdateStatus(ctx context.Context, userID int64, status string) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, page, pageSize int) ([]*model.User, int64, error) {
	var users []*model.User
	var total int64

	query := r.db.WithContext(ctx).Model(&model.User{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error

	return users, total, err
}
