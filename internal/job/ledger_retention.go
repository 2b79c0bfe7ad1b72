package job

import (
	"context"
	"time"

	"gamemarket/internal/config"
	"gamemarket/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LedgerRetentionJob 流水保留期清理
// 超过保留天数的流水按批删除，避免一条大 DELETE 长时间锁表
type LedgerRetentionJob struct {
	db         *gorm.DB
	ledgerRepo *repository.LedgerRepository
	cfg        *config.Config
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewLedgerRetentionJob(db *gorm.DB, cfg *config.Config) *LedgerRetentionJob {
	return &LedgerRetentionJob{
		db:         db,
		ledgerRepo: repository.NewLedgerRepository(db),
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		interval:   1 * time.Hour,
		batchSize:  1000,
	}
}

func (j *LedgerRetentionJob) Start(ctx context.Context) {
	logrus.Infoln("[LedgerRetentionJob] 流水清理任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Infoln("[LedgerRetentionJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			logrus.Infoln("[LedgerRetentionJob] 任务停止")
			return
		case <-ticker.C:
			j.purgeExpired(ctx)
		}
	}
}

func (j *LedgerRetentionJob) Stop() {
	close(j.stopCh)
}

func (j *LedgerRetentionJob) purgeExpired(ctx context.Context) {
	retentionDays := j.cfg.Business.LedgerRetentionDays
	if retentionDays <= 0 {
		return
	}
	before := time.Now().AddDate(0, 0, -retentionDays)

	var totalPurged int64
	for {
		purged, err := j.ledgerRepo.PurgeBefore(ctx, before, j.batchSize)
		if err != nil {
			logrus.Errorf("[LedgerRetentionJob] 清理流水失败: %v", err)
			return
		}
		totalPurged += purged
		if purged < int64(j.batchSize) {
			break
		}
	}

	if totalPurged > 0 {
		logrus.Infof("[LedgerRetentionJob] 本轮清理 %d 条过期流水, 截止 %s",
			totalPurged, before.Format("2006-01-02"))
	}
}
