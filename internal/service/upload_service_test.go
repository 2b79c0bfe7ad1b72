package service

import (
	"context"
	"errors"
	"testing"

	"gamemarket/internal/config"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func uploadTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Business.UploadBatchSize = 2
	return cfg
}

func newUploadServiceForTest(jobs *MockUploadStore, listings *MockListingBatchWriter) *UploadService {
	return &UploadService{
		cfg:      uploadTestConfig(),
		jobs:     jobs,
		listings: listings,
	}
}

func TestUploadService_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("解析入库并按批写入", func(t *testing.T) {
		jobs := new(MockUploadStore)
		listings := new(MockListingBatchWriter)
		svc := newUploadServiceForTest(jobs, listings)

		job := &model.UploadJob{
			JobNo:    "JOB1",
			Category: "gold",
			Status:   model.UploadStatusQueued,
			Payload:  "a:b | lv=10\nc:d | lv=20\n没有凭据的行\ne:f | lv=30\n",
		}

		jobs.On("UpdateStatus", ctx, "JOB1",
			model.UploadStatusQueued, model.UploadStatusProcessing).Return(nil)
		// 批大小 2：前两条一批，最后一条收尾
		listings.On("CreateBatch", ctx, mock.MatchedBy(func(batch []*model.Listing) bool {
			return len(batch) == 2
		})).Return(nil).Once()
		listings.On("CreateBatch", ctx, mock.MatchedBy(func(batch []*model.Listing) bool {
			return len(batch) == 1
		})).Return(nil).Once()
		jobs.On("Finish", ctx, "JOB1", model.UploadStatusDone, 4, 3, 1, "").Return(nil)

		err := svc.Process(ctx, job)
		require.NoError(t, err)
		jobs.AssertExpectations(t)
		listings.AssertExpectations(t)
	})

	t.Run("抢占失败直接跳过", func(t *testing.T) {
		jobs := new(MockUploadStore)
		listings := new(MockListingBatchWriter)
		svc := newUploadServiceForTest(jobs, listings)

		job := &model.UploadJob{JobNo: "JOB2", Status: model.UploadStatusQueued}
		jobs.On("UpdateStatus", ctx, "JOB2",
			model.UploadStatusQueued, model.UploadStatusProcessing).
			Return(repository.ErrUploadJobStatusInvalid)

		err := svc.Process(ctx, job)
		assert.ErrorIs(t, err, repository.ErrUploadJobStatusInvalid)
		listings.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	})

	t.Run("入库失败任务标FAILED", func(t *testing.T) {
		jobs := new(MockUploadStore)
		listings := new(MockListingBatchWriter)
		svc := newUploadServiceForTest(jobs, listings)

		job := &model.UploadJob{
			JobNo:    "JOB3",
			Category: "gold",
			Status:   model.UploadStatusQueued,
			Payload:  "a:b\nc:d\n",
		}
		jobs.On("UpdateStatus", ctx, "JOB3",
			model.UploadStatusQueued, model.UploadStatusProcessing).Return(nil)
		listings.On("CreateBatch", ctx, mock.Anything).Return(errors.New("db down"))
		jobs.On("Finish", ctx, "JOB3", model.UploadStatusFailed, 2, 0, 0, "db down").Return(nil)

		err := svc.Process(ctx, job)
		require.Error(t, err)
		jobs.AssertExpectations(t)
	})
}

func TestUploadService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("落QUEUED任务返回job_no", func(t *testing.T) {
		jobs := new(MockUploadStore)
		svc := newUploadServiceForTest(jobs, new(MockListingBatchWriter))

		jobs.On("Create", ctx, mock.MatchedBy(func(j *model.UploadJob) bool {
			return j.Status == model.UploadStatusQueued && j.OperatorID == 1 && j.JobNo != ""
		})).Return(nil)

		job, err := svc.Submit(ctx, 1, "gold", "a:b | lv=1")
		require.NoError(t, err)
		assert.Equal(t, model.UploadStatusQueued, job.Status)
	})

	t.Run("空内容拒绝", func(t *testing.T) {
		svc := newUploadServiceForTest(new(MockUploadStore), new(MockListingBatchWriter))
		_, err := svc.Submit(ctx, 1, "gold", "   ")
		assert.Error(t, err)
	})
}
