package repository

import (
	"context"
	"errors"
	"time"

	"gamemarket/internal/model"

	"gorm.io/gorm"
)

var (
	ErrUploadJobNotFound      = errors.New("上架任务不存在")
	ErrUploadJobStatusInvalid = errors.New("上架任务状态不合法")
)

type UploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

func (r *UploadRepository) Create(ctx context.Context, job *model.UploadJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *UploadRepository) GetByJobNo(ctx context.Context, jobNo string) (*model.UploadJob, error) {
	var job model.UploadJob
	err := r.db.WithContext(ctx).Where("job_no = ?", jobNo).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// GetQueued 查出待处理任务。状态推进走 CAS，多个 worker 实例抢同一个任务时只有一个会赢
func (r *UploadRepository) GetQueued(ctx context.Context, limit int) ([]*model.UploadJob, error) {
	var jobs []*model.UploadJob
	err := r.db.WithContext(ctx).
		Where("status = ?", model.UploadStatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// UpdateStatus 任务状态 CAS
func (r *UploadRepository) UpdateStatus(ctx context.Context, jobNo, fromStatus, toStatus string) error {
	if !model.UploadCanTransitionTo(fromStatus, toStatus) {
		return ErrUploadJobStatusInvalid
	}

	result := r.db.WithContext(ctx).
		Model(&model.UploadJob{}).
		Where("job_no = ? AND status = ?", jobNo, fromStatus).
		Update("status", toStatus)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUploadJobStatusInvalid
	}
	return nil
}

// Finish 收尾：写计数和错误信息并落终态
func (r *UploadRepository) Finish(ctx context.Context, jobNo, toStatus string, total, imported, skipped int, errMsg string) error {
	if !model.UploadCanTransitionTo(model.UploadStatusProcessing, toStatus) {
		return ErrUploadJobStatusInvalid
	}

	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.UploadJob{}).
		Where("job_no = ? AND status = ?", jobNo, model.UploadStatusProcessing).
		Updates(map[string]interface{}{
			"status":      toStatus,
			"total":       total,
			"imported":    imported,
			"skipped":     skipped,
			"error":       errMsg,
			"finished_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUploadJobStatusInvalid
	}
	return nil
}
