package service

import (
	"context"
	"fmt"
	"strings"

	"gamemarket/internal/config"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"
	"gamemarket/pkg/idgen"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type uploadStore interface {
	Create(ctx context.Context, job *model.UploadJob) error
	GetByJobNo(ctx context.Context, jobNo string) (*model.UploadJob, error)
	GetQueued(ctx context.Context, limit int) ([]*model.UploadJob, error)
	UpdateStatus(ctx context.Context, jobNo, fromStatus, toStatus string) error
	Finish(ctx context.Context, jobNo, toStatus string, total, imported, skipped int, errMsg string) error
}

type listingBatchWriter interface {
	CreateBatch(ctx context.Context, listings []*model.Listing) error
}

// UploadService 批量上架
// 提交请求只落库一条 QUEUED 任务立即返回，解析入库由后台任务驱动，
// 状态在固定检查点推进，崩溃后任务停在哪一步一目了然
type UploadService struct {
	cfg      *config.Config
	jobs     uploadStore
	listings listingBatchWriter
}

func NewUploadService(db *gorm.DB, cfg *config.Config) *UploadService {
	return &UploadService{
		cfg:      cfg,
		jobs:     repository.NewUploadRepository(db),
		listings: repository.NewListingRepository(db),
	}
}

// Submit 提交批量上架任务
func (s *UploadService) Submit(ctx context.Context, operatorID int64, category, payload string) (*model.UploadJob, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("上架内容不能为空")
	}
	job := &model.UploadJob{
		JobNo:      idgen.GenerateJobNo(),
		OperatorID: operatorID,
		Category:   category,
		Payload:    payload,
		Status:     model.UploadStatusQueued,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("创建上架任务失败: %w", err)
	}
	logrus.Infof("[Upload] 上架任务已入队: jobNo=%s, operatorID=%d, category=%s",
		job.JobNo, operatorID, category)
	return job, nil
}

func (s *UploadService) GetJob(ctx context.Context, jobNo string) (*model.UploadJob, error) {
	return s.jobs.GetByJobNo(ctx, jobNo)
}

func (s *UploadService) PullQueued(ctx context.Context, limit int) ([]*model.UploadJob, error) {
	return s.jobs.GetQueued(ctx, limit)
}

// Process 处理一个排队中的任务
//
// QUEUED -> PROCESSING 的 CAS 先行：多个 worker 抢同一任务只会有一个赢，
// 输家静默跳过。解析完成后一次性推进到终态并写回计数
func (s *UploadService) Process(ctx context.Context, job *model.UploadJob) error {
	if err := s.jobs.UpdateStatus(ctx, job.JobNo, model.UploadStatusQueued, model.UploadStatusProcessing); err != nil {
		return err
	}

	lines := strings.Split(job.Payload, "\n")
	var batch []*model.Listing
	total, imported, skipped := 0, 0, 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.listings.CreateBatch(ctx, batch); err != nil {
			return err
		}
		imported += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		total++
		listing := ParseListingLine(line, job.Category)
		if listing == nil {
			skipped++
			continue
		}
		batch = append(batch, listing)
		if len(batch) >= s.cfg.Business.UploadBatchSize {
			if err := flush(); err != nil {
				s.failJob(ctx, job.JobNo, total, imported, skipped, err)
				return err
			}
		}
	}
	if err := flush(); err != nil {
		s.failJob(ctx, job.JobNo, total, imported, skipped, err)
		return err
	}

	if err := s.jobs.Finish(ctx, job.JobNo, model.UploadStatusDone, total, imported, skipped, ""); err != nil {
		logrus.Errorf("[Upload] 任务标记DONE失败: jobNo=%s, err=%v", job.JobNo, err)
		return err
	}
	logrus.Infof("[Upload] 任务完成: jobNo=%s, total=%d, imported=%d, skipped=%d",
		job.JobNo, total, imported, skipped)
	return nil
}

func (s *UploadService) failJob(ctx context.Context, jobNo string, total, imported, skipped int, cause error) {
	logrus.Errorf("[Upload] 任务失败: jobNo=%s, err=%v", jobNo, cause)
	if err := s.jobs.Finish(ctx, jobNo, model.UploadStatusFailed, total, imported, skipped, cause.Error()); err != nil {
		logrus.Errorf("[Upload] 任务标记FAILED失败: jobNo=%s, err=%v", jobNo, err)
	}
}
