package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gamemarket/internal/config"
	"gamemarket/internal/infrastructure/lock"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"
	"gamemarket/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrPackageDisabled = errors.New("该套餐已下架")
	ErrNotAuction      = errors.New("该商品不是竞拍账号")
	ErrAuctionEnded    = errors.New("竞拍已结束")
	ErrBidTooLow       = errors.New("出价低于当前最低加价要求")
	ErrSelfOutbid      = errors.New("你已是当前最高出价者")
	ErrTooManyRequests = errors.New("操作过于频繁，请稍后再试")
)

type listingStore interface {
	ClaimOneByCategory(ctx context.Context, category string, buyerID int64) (*model.Listing, error)
	ListByCategory(ctx context.Context, category string, page, pageSize int) ([]*model.Listing, int64, error)
	GetByID(ctx context.Context, id int64) (*model.Listing, error)
	SwapTopBid(ctx context.Context, listingID, oldBid, newBid, bidderID int64) error
	GetPackageByID(ctx context.Context, id int64) (*model.AccountPackage, error)
	ListPackages(ctx context.Context) ([]*model.AccountPackage, error)
}

type purchaseStore interface {
	Create(ctx context.Context, order *model.PurchaseOrder) error
	GetByOrderNo(ctx context.Context, orderNo string) (*model.PurchaseOrder, error)
	GetByRequestID(ctx context.Context, requestID string) (*model.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, orderNo, fromStatus, toStatus string) error
	SetListing(ctx context.Context, orderNo string, listingID int64) error
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.PurchaseOrder, int64, error)
}

// mutexLock 分布式锁的最小接口，测试里用本地假锁替换
type mutexLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// MarketService 账号商城：套餐购买 + 竞拍
type MarketService struct {
	cfg       *config.Config
	listings  listingStore
	purchases purchaseStore
	wallet    coinWallet
	outbox    outboxWriter

	// 锁工厂，隔离 redis 依赖方便测试
	purchaseLock func(userID int64, requestID string) mutexLock
	bidLock      func(listingID int64, holder string) mutexLock

	now func() time.Time
}

func NewMarketService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *MarketService {
	return &MarketService{
		cfg:       cfg,
		listings:  repository.NewListingRepository(db),
		purchases: repository.NewPurchaseRepository(db),
		wallet:    NewWalletService(db),
		outbox:    repository.NewOutboxRepository(db),
		purchaseLock: func(userID int64, requestID string) mutexLock {
			return lock.NewPurchaseLock(redisClient, userID, requestID)
		},
		bidLock: func(listingID int64, holder string) mutexLock {
			return lock.NewBidLock(redisClient, listingID, holder)
		},
		now: time.Now,
	}
}

// Purchase 按套餐购买一个账号
//
// 【执行顺序】
// 1. request_id 幂等查重，命中直接返回已有订单
// 2. 用户级分布式锁挡掉同一用户的并发下单
// 3. 建 CREATED 订单 -> 扣款 -> DEBITED -> 认领库存 -> FULFILLED + 写消息
// 4. 无货时反向补偿：退款 + REFUNDED，余额分毫不差
//
// 扣款后每一步失败都把订单留在 DEBITED，由对账任务兜底退款
func (s *MarketService) Purchase(ctx context.Context, userID int64, packageID int64, requestID string) (*model.PurchaseOrder, error) {
	if existing, err := s.purchases.GetByRequestID(ctx, requestID); err == nil && existing != nil {
		return existing, nil
	}

	pkg, err := s.listings.GetPackageByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsEnabled {
		return nil, ErrPackageDisabled
	}

	mu := s.purchaseLock(userID, requestID)
	ok, err := mu.TryLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取购买锁失败: %w", err)
	}
	if !ok {
		return nil, ErrTooManyRequests
	}
	defer func() {
		if err := mu.Unlock(ctx); err != nil {
			logrus.Warnf("[Market] 释放购买锁失败: userID=%d, err=%v", userID, err)
		}
	}()

	// 拿到锁后二次查重，挡掉锁窗口外的重复请求
	if existing, err := s.purchases.GetByRequestID(ctx, requestID); err == nil && existing != nil {
		return existing, nil
	}

	order := &model.PurchaseOrder{
		OrderNo:   idgen.GenerateOrderNo(),
		RequestID: requestID,
		UserID:    userID,
		PackageID: pkg.ID,
		Category:  pkg.Category,
		Amount:    pkg.Price,
		Status:    model.PurchaseStatusCreated,
	}
	if err := s.purchases.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("创建购买订单失败: %w", err)
	}

	if _, err := s.wallet.Debit(ctx, &MutationRequest{
		UserID:   userID,
		Actor:    model.ActorSystem,
		Delta:    pkg.Price,
		Category: model.LedgerCategoryPurchase,
		Remark:   fmt.Sprintf("购买套餐-%s", pkg.Name),
		RefNo:    order.OrderNo,
	}); err != nil {
		// 未扣到款，订单停在 CREATED，不需要补偿
		return nil, err
	}

	if err := s.purchases.UpdateStatus(ctx, order.OrderNo, model.PurchaseStatusCreated, model.PurchaseStatusDebited); err != nil {
		logrus.Errorf("[Market] 订单标记DEBITED失败: orderNo=%s, err=%v", order.OrderNo, err)
		return nil, fmt.Errorf("订单推进失败: %w", err)
	}
	order.Status = model.PurchaseStatusDebited

	listing, err := s.listings.ClaimOneByCategory(ctx, pkg.Category, userID)
	if err != nil {
		if errors.Is(err, repository.ErrOutOfStock) {
			// 无货：原路退款，订单转 REFUNDED
			s.refundPurchase(ctx, order, "库存不足自动退款")
			return nil, repository.ErrOutOfStock
		}
		// 认领失败但扣款已发生，留在 DEBITED 等对账任务
		logrus.Errorf("[Market] 认领库存异常: orderNo=%s, err=%v", order.OrderNo, err)
		return nil, fmt.Errorf("发货失败: %w", err)
	}

	if err := s.purchases.SetListing(ctx, order.OrderNo, listing.ID); err != nil {
		logrus.Errorf("[Market] 关联账号失败: orderNo=%s, listingID=%d, err=%v", order.OrderNo, listing.ID, err)
	}
	if err := s.purchases.UpdateStatus(ctx, order.OrderNo, model.PurchaseStatusDebited, model.PurchaseStatusFulfilled); err != nil {
		logrus.Errorf("[Market] 订单标记FULFILLED失败: orderNo=%s, err=%v", order.OrderNo, err)
		return nil, fmt.Errorf("订单推进失败: %w", err)
	}
	order.Status = model.PurchaseStatusFulfilled
	order.ListingID = listing.ID

	s.emitPurchaseEvent(ctx, order)

	logrus.Infof("[Market] 购买成功: orderNo=%s, userID=%d, category=%s, listingID=%d",
		order.OrderNo, userID, pkg.Category, listing.ID)
	return order, nil
}

// refundPurchase DEBITED 订单的反向补偿
func (s *MarketService) refundPurchase(ctx context.Context, order *model.PurchaseOrder, remark string) {
	if _, err := s.wallet.Credit(ctx, &MutationRequest{
		UserID:   order.UserID,
		Actor:    model.ActorSystem,
		Delta:    order.Amount,
		Category: model.LedgerCategoryRefund,
		Remark:   remark,
		RefNo:    order.OrderNo,
	}); err != nil {
		// 退款失败订单留在 DEBITED，对账任务会再试
		logrus.Errorf("[Market] 退款失败: orderNo=%s, amount=%d, err=%v", order.OrderNo, order.Amount, err)
		return
	}
	if err := s.purchases.UpdateStatus(ctx, order.OrderNo, model.PurchaseStatusDebited, model.PurchaseStatusRefunded); err != nil {
		logrus.Errorf("[Market] 订单标记REFUNDED失败: orderNo=%s, err=%v", order.OrderNo, err)
		return
	}
	order.Status = model.PurchaseStatusRefunded
	logrus.Infof("[Market] 已退款: orderNo=%s, amount=%d, reason=%s", order.OrderNo, order.Amount, remark)
}

// PlaceBid 竞拍出价
//
// 出价方先扣款锁定资金，用 current_bid 的 CAS 抢占榜首；
// 抢占失败原路退回，抢占成功后退回上一位出价者的冻结资金
func (s *MarketService) PlaceBid(ctx context.Context, userID, listingID, amount int64) (*model.Listing, error) {
	mu := s.bidLock(listingID, fmt.Sprintf("%d", userID))
	ok, err := mu.TryLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取竞拍锁失败: %w", err)
	}
	if !ok {
		return nil, ErrTooManyRequests
	}
	defer func() {
		if err := mu.Unlock(ctx); err != nil {
			logrus.Warnf("[Market] 释放竞拍锁失败: listingID=%d, err=%v", listingID, err)
		}
	}()

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SaleType != model.SaleTypeAuction {
		return nil, ErrNotAuction
	}
	if listing.Status != model.ListingStatusAvailable ||
		(listing.EndsAt != nil && !s.now().Before(*listing.EndsAt)) {
		return nil, ErrAuctionEnded
	}
	if listing.CurrentBidderID == userID {
		return nil, ErrSelfOutbid
	}

	minAccept := listing.MinPrice
	if listing.CurrentBid > 0 {
		minAccept = listing.CurrentBid + s.cfg.Business.AuctionMinIncrement
	}
	if amount < minAccept {
		return nil, ErrBidTooLow
	}

	refNo := fmt.Sprintf("BID-%d-%d", listingID, userID)
	if _, err := s.wallet.Debit(ctx, &MutationRequest{
		UserID:   userID,
		Actor:    model.ActorSystem,
		Delta:    amount,
		Category: model.LedgerCategoryAuction,
		Remark:   fmt.Sprintf("竞拍出价-商品%d", listingID),
		RefNo:    refNo,
	}); err != nil {
		return nil, err
	}

	prevBid, prevBidder := listing.CurrentBid, listing.CurrentBidderID
	if err := s.listings.SwapTopBid(ctx, listingID, prevBid, amount, userID); err != nil {
		// 榜首被别人抢走，退回本次冻结
		if _, cerr := s.wallet.Credit(ctx, &MutationRequest{
			UserID:   userID,
			Actor:    model.ActorSystem,
			Delta:    amount,
			Category: model.LedgerCategoryRefund,
			Remark:   fmt.Sprintf("竞拍出价冲突退款-商品%d", listingID),
			RefNo:    refNo,
		}); cerr != nil {
			logrus.Errorf("[Market] 出价冲突退款失败: userID=%d, amount=%d, err=%v", userID, amount, cerr)
		}
		return nil, err
	}

	// 退回上一位出价者的冻结资金
	if prevBidder > 0 && prevBid > 0 {
		if _, err := s.wallet.Credit(ctx, &MutationRequest{
			UserID:   prevBidder,
			Actor:    model.ActorSystem,
			Delta:    prevBid,
			Category: model.LedgerCategoryRefund,
			Remark:   fmt.Sprintf("竞拍被超出退款-商品%d", listingID),
			RefNo:    fmt.Sprintf("BID-%d-%d", listingID, prevBidder),
		}); err != nil {
			logrus.Errorf("[Market] 前任出价者退款失败: userID=%d, amount=%d, err=%v", prevBidder, prevBid, err)
		}
	}

	listing.CurrentBid = amount
	listing.CurrentBidderID = userID
	logrus.Infof("[Market] 出价成功: listingID=%d, userID=%d, bid=%d", listingID, userID, amount)
	return listing, nil
}

func (s *MarketService) emitPurchaseEvent(ctx context.Context, order *model.PurchaseOrder) {
	payload, _ := json.Marshal(map[string]interface{}{
		"order_no":   order.OrderNo,
		"user_id":    order.UserID,
		"category":   order.Category,
		"amount":     order.Amount,
		"listing_id": order.ListingID,
		"settled_at": s.now().Format(time.RFC3339),
	})
	if err := s.outbox.Create(ctx, &model.OutboxMessage{
		MessageKey: order.OrderNo,
		Topic:      s.cfg.Kafka.Topic.CoinEvent,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}); err != nil {
		logrus.Errorf("[Market] 写入消息失败: orderNo=%s, err=%v", order.OrderNo, err)
	}
}

func (s *MarketService) ListPackages(ctx context.Context) ([]*model.AccountPackage, error) {
	return s.listings.ListPackages(ctx)
}

func (s *MarketService) BrowseListings(ctx context.Context, category string, page, pageSize int) ([]*model.Listing, int64, error) {
	return s.listings.ListByCategory(ctx, category, page, pageSize)
}

func (s *MarketService) GetOrder(ctx context.Context, userID int64, orderNo string) (*model.PurchaseOrder, error) {
	order, err := s.purchases.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrPurchaseNotFound
	}
	return order, nil
}

func (s *MarketService) ListOrders(ctx context.Context, userID int64, page, pageSize int) ([]*model.PurchaseOrder, int64, error) {
	return s.purchases.ListByUserID(ctx, userID, page, pageSize)
}
