package job

import (
	"context"
	"time"

	"gamemarket/internal/config"
	"gamemarket/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UploadWorker 批量上架后台处理
// 轮询 QUEUED 任务逐个处理，状态推进由 UploadService 里的 CAS 保证互斥
type UploadWorker struct {
	db        *gorm.DB
	uploads   *service.UploadService
	cfg       *config.Config
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
}

func NewUploadWorker(db *gorm.DB, cfg *config.Config) *UploadWorker {
	return &UploadWorker{
		db:        db,
		uploads:   service.NewUploadService(db, cfg),
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		interval:  3 * time.Second,
		batchSize: 10,
	}
}

func (w *UploadWorker) Start(ctx context.Context) {
	logrus.Infoln("[UploadWorker] 批量上架任务启动")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Infoln("[UploadWorker] 收到停止信号，任务退出")
			return
		case <-w.stopCh:
			logrus.Infoln("[UploadWorker] 任务停止")
			return
		case <-ticker.C:
			w.processQueued(ctx)
		}
	}
}

func (w *UploadWorker) Stop() {
	close(w.stopCh)
}

func (w *UploadWorker) processQueued(ctx context.Context) {
	jobs, err := w.uploads.PullQueued(ctx, w.batchSize)
	if err != nil {
		logrus.Errorf("[UploadWorker] 查询排队任务失败: %v", err)
		return
	}

	for _, j := range jobs {
		if err := w.uploads.Process(ctx, j); err != nil {
			// 抢占失败或解析失败都已在服务层记录
			continue
		}
	}
}
