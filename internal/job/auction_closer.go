package job

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gamemarket/internal/config"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type auctionBook interface {
	GetExpiredAuctions(ctx context.Context, now time.Time, limit int) ([]*model.Listing, error)
	GetByID(ctx context.Context, id int64) (*model.Listing, error)
	SettleAuction(ctx context.Context, listingID int64, toStatus string, bidderID, bid int64) error
}

type eventOutbox interface {
	Create(ctx context.Context, msg *model.OutboxMessage) error
}

// AuctionCloserJob 竞拍收尾
// 到期且有出价的账号归最高出价者（资金在出价时已扣），无出价则流拍。
// SettleAuction 的 CAS 钉住状态和最高出价，多实例不会重复结算，
// 截止瞬间换手的出价按最新出价者结算
type AuctionCloserJob struct {
	db          *gorm.DB
	listingRepo auctionBook
	outboxRepo  eventOutbox
	cfg         *config.Config
	stopCh      chan struct{}
	interval    time.Duration
	batchSize   int
}

// 结算窗口内允许的换手重试上限
const settleMaxAttempts = 3

func NewAuctionCloserJob(db *gorm.DB, cfg *config.Config) *AuctionCloserJob {
	return &AuctionCloserJob{
		db:          db,
		listingRepo: repository.NewListingRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		cfg:         cfg,
		stopCh:      make(chan struct{}),
		interval:    10 * time.Second,
		batchSize:   50,
	}
}

func (j *AuctionCloserJob) Start(ctx context.Context) {
	logrus.Infoln("[AuctionCloserJob] 竞拍收尾任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Infoln("[AuctionCloserJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			logrus.Infoln("[AuctionCloserJob] 任务停止")
			return
		case <-ticker.C:
			j.closeExpiredAuctions(ctx)
		}
	}
}

func (j *AuctionCloserJob) Stop() {
	close(j.stopCh)
}

func (j *AuctionCloserJob) closeExpiredAuctions(ctx context.Context) {
	listings, err := j.listingRepo.GetExpiredAuctions(ctx, time.Now(), j.batchSize)
	if err != nil {
		logrus.Errorf("[AuctionCloserJob] 查询到期竞拍失败: %v", err)
		return
	}

	if len(listings) == 0 {
		return
	}

	logrus.Infof("[AuctionCloserJob] 发现 %d 个到期竞拍", len(listings))

	for _, listing := range listings {
		j.settleOne(ctx, listing)
	}
}

func (j *AuctionCloserJob) settleOne(ctx context.Context, listing *model.Listing) {
	for attempt := 0; attempt < settleMaxAttempts; attempt++ {
		toStatus := model.ListingStatusExpired
		if listing.CurrentBidderID > 0 {
			toStatus = model.ListingStatusSold
		}

		err := j.listingRepo.SettleAuction(ctx, listing.ID, toStatus, listing.CurrentBidderID, listing.CurrentBid)
		if err == nil {
			if toStatus == model.ListingStatusSold {
				j.emitSoldEvent(ctx, listing)
				logrus.Infof("[AuctionCloserJob] 竞拍成交: listingID=%d, buyerID=%d, bid=%d",
					listing.ID, listing.CurrentBidderID, listing.CurrentBid)
			} else {
				logrus.Infof("[AuctionCloserJob] 竞拍流拍: listingID=%d, minPrice=%d", listing.ID, listing.MinPrice)
			}
			return
		}
		if !errors.Is(err, repository.ErrBidConflict) {
			logrus.Errorf("[AuctionCloserJob] 结算失败: listingID=%d, err=%v", listing.ID, err)
			return
		}

		// 截止瞬间有新出价换手，用最新出价重读重试
		fresh, ferr := j.listingRepo.GetByID(ctx, listing.ID)
		if ferr != nil {
			logrus.Errorf("[AuctionCloserJob] 重读竞拍失败: listingID=%d, err=%v", listing.ID, ferr)
			return
		}
		if fresh.Status != model.ListingStatusAvailable {
			// 其他实例已结算
			return
		}
		listing = fresh
	}
	logrus.Errorf("[AuctionCloserJob] 结算重试次数用尽: listingID=%d", listing.ID)
}

func (j *AuctionCloserJob) emitSoldEvent(ctx context.Context, listing *model.Listing) {
	payload, _ := json.Marshal(map[string]interface{}{
		"listing_id": listing.ID,
		"buyer_id":   listing.CurrentBidderID,
		"bid":        listing.CurrentBid,
		"settled_at": time.Now().Format(time.RFC3339),
	})
	if err := j.outboxRepo.Create(ctx, &model.OutboxMessage{
		MessageKey: listing.Category,
		Topic:      j.cfg.Kafka.Topic.CoinEvent,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}); err != nil {
		logrus.Errorf("[AuctionCloserJob] 写入消息失败: listingID=%d, err=%v", listing.ID, err)
	}
}
