package service

import (
	"context"
	"testing"
	"time"

	"gamemarket/internal/config"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func marketTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Business.AuctionMinIncrement = 10
	cfg.Kafka.Topic.CoinEvent = "coin-event"
	return cfg
}

func newMarketServiceForTest(listings *MockListingStore, purchases *MockPurchaseStore,
	wallet *MockCoinWallet, outbox *MockOutboxWriter) *MarketService {
	return &MarketService{
		cfg:       marketTestConfig(),
		listings:  listings,
		purchases: purchases,
		wallet:    wallet,
		outbox:    outbox,
		purchaseLock: func(userID int64, requestID string) mutexLock {
			return &fakeLock{acquired: true}
		},
		bidLock: func(listingID int64, holder string) mutexLock {
			return &fakeLock{acquired: true}
		},
		now: fixedClock("2024-03-04"),
	}
}

func testPackage() *model.AccountPackage {
	return &model.AccountPackage{ID: 2, Name: "黄金套餐", Category: "gold", Price: 100, IsEnabled: true}
}

func TestMarketService_Purchase(t *testing.T) {
	ctx := context.Background()

	t.Run("正常购买走完整状态链", func(t *testing.T) {
		listings := new(MockListingStore)
		purchases := new(MockPurchaseStore)
		wallet := new(MockCoinWallet)
		outbox := new(MockOutboxWriter)
		svc := newMarketServiceForTest(listings, purchases, wallet, outbox)

		purchases.On("GetByRequestID", ctx, "req-1").Return(nil, nil)
		listings.On("GetPackageByID", ctx, int64(2)).Return(testPackage(), nil)
		purchases.On("Create", ctx, mock.MatchedBy(func(o *model.PurchaseOrder) bool {
			return o.Status == model.PurchaseStatusCreated && o.Amount == 100 && o.Category == "gold"
		})).Return(nil)
		wallet.On("Debit", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.Delta == 100 && req.Category == model.LedgerCategoryPurchase
		})).Return(int64(400), nil)
		purchases.On("UpdateStatus", ctx, mock.Anything,
			model.PurchaseStatusCreated, model.PurchaseStatusDebited).Return(nil)
		listings.On("ClaimOneByCategory", ctx, "gold", int64(9)).
			Return(&model.Listing{ID: 77, Category: "gold"}, nil)
		purchases.On("SetListing", ctx, mock.Anything, int64(77)).Return(nil)
		purchases.On("UpdateStatus", ctx, mock.Anything,
			model.PurchaseStatusDebited, model.PurchaseStatusFulfilled).Return(nil)
		outbox.On("Create", ctx, mock.Anything).Return(nil)

		order, err := svc.Purchase(ctx, 9, 2, "req-1")
		require.NoError(t, err)
		assert.Equal(t, model.PurchaseStatusFulfilled, order.Status)
		assert.Equal(t, int64(77), order.ListingID)
	})

	t.Run("无货原路退款余额分毫不差", func(t *testing.T) {
		listings := new(MockListingStore)
		purchases := new(MockPurchaseStore)
		wallet := new(MockCoinWallet)
		svc := newMarketServiceForTest(listings, purchases, wallet, new(MockOutboxWriter))

		purchases.On("GetByRequestID", ctx, "req-2").Return(nil, nil)
		listings.On("GetPackageByID", ctx, int64(2)).Return(testPackage(), nil)
		purchases.On("Create", ctx, mock.Anything).Return(nil)
		wallet.On("Debit", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.Delta == 100
		})).Return(int64(400), nil)
		purchases.On("UpdateStatus", ctx, mock.Anything,
			model.PurchaseStatusCreated, model.PurchaseStatusDebited).Return(nil)
		listings.On("ClaimOneByCategory", ctx, "gold", int64(9)).
			Return(nil, repository.ErrOutOfStock)
		// 补偿：退款 + REFUNDED
		wallet.On("Credit", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.Delta == 100 && req.Category == model.LedgerCategoryRefund
		})).Return(int64(500), nil)
		purchases.On("UpdateStatus", ctx, mock.Anything,
			model.PurchaseStatusDebited, model.PurchaseStatusRefunded).Return(nil)

		_, err := svc.Purchase(ctx, 9, 2, "req-2")
		assert.ErrorIs(t, err, repository.ErrOutOfStock)
		wallet.AssertExpectations(t)
		purchases.AssertExpectations(t)
	})

	t.Run("余额不足订单停在CREATED无补偿", func(t *testing.T) {
		listings := new(MockListingStore)
		purchases := new(MockPurchaseStore)
		wallet := new(MockCoinWallet)
		svc := newMarketServiceForTest(listings, purchases, wallet, new(MockOutboxWriter))

		purchases.On("GetByRequestID", ctx, "req-3").Return(nil, nil)
		listings.On("GetPackageByID", ctx, int64(2)).Return(testPackage(), nil)
		purchases.On("Create", ctx, mock.Anything).Return(nil)
		// 余额 50 买不起 100
		wallet.On("Debit", ctx, mock.Anything).
			Return(int64(0), repository.ErrInsufficientCoins)

		_, err := svc.Purchase(ctx, 9, 2, "req-3")
		assert.ErrorIs(t, err, repository.ErrInsufficientCoins)
		wallet.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
		listings.AssertNotCalled(t, "ClaimOneByCategory", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("同一request_id幂等返回已有订单", func(t *testing.T) {
		listings := new(MockListingStore)
		purchases := new(MockPurchaseStore)
		wallet := new(MockCoinWallet)
		svc := newMarketServiceForTest(listings, purchases, wallet, new(MockOutboxWriter))

		existing := &model.PurchaseOrder{OrderNo: "MKT1", RequestID: "req-4", Status: model.PurchaseStatusFulfilled}
		purchases.On("GetByRequestID", ctx, "req-4").Return(existing, nil)

		order, err := svc.Purchase(ctx, 9, 2, "req-4")
		require.NoError(t, err)
		assert.Equal(t, existing, order)
		wallet.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything)
	})

	t.Run("下架套餐拒绝", func(t *testing.T) {
		listings := new(MockListingStore)
		purchases := new(MockPurchaseStore)
		svc := newMarketServiceForTest(listings, purchases, new(MockCoinWallet), new(MockOutboxWriter))

		disabled := testPackage()
		disabled.IsEnabled = false
		purchases.On("GetByRequestID", ctx, "req-5").Return(nil, nil)
		listings.On("GetPackageByID", ctx, int64(2)).Return(disabled, nil)

		_, err := svc.Purchase(ctx, 9, 2, "req-5")
		assert.ErrorIs(t, err, ErrPackageDisabled)
	})
}

func auctionListing() *model.Listing {
	endsAt, _ := time.Parse("2006-01-02", "2024-03-10")
	return &model.Listing{
		ID:              77,
		Category:        "gold",
		SaleType:        model.SaleTypeAuction,
		Status:          model.ListingStatusAvailable,
		MinPrice:        100,
		CurrentBid:      150,
		CurrentBidderID: 3,
		EndsAt:          &endsAt,
	}
}

func TestMarketService_PlaceBid(t *testing.T) {
	ctx := context.Background()

	t.Run("抢榜成功并退回前任出价", func(t *testing.T) {
		listings := new(MockListingStore)
		wallet := new(MockCoinWallet)
		svc := newMarketServiceForTest(listings, new(MockPurchaseStore), wallet, new(MockOutboxWriter))

		listings.On("GetByID", ctx, int64(77)).Return(auctionListing(), nil)
		wallet.On("Debit", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.UserID == 9 && req.Delta == 200 && req.Category == model.LedgerCategoryAuction
		})).Return(int64(300), nil)
		listings.On("SwapTopBid", ctx, int64(77), int64(150), int64(200), int64(9)).Return(nil)
		wallet.On("Credit", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.UserID == 3 && req.Delta == 150 && req.Category == model.LedgerCategoryRefund
		})).Return(int64(150), nil)

		listing, err := svc.PlaceBid(ctx, 9, 77, 200)
		require.NoError(t, err)
		assert.Equal(t, int64(200), listing.CurrentBid)
		assert.Equal(t, int64(9), listing.CurrentBidderID)
		wallet.AssertExpectations(t)
	})

	t.Run("出价低于最低加价拒绝", func(t *testing.T) {
		listings := new(MockListingStore)
		wallet := new(MockCoinWallet)
		svc := newMarketServiceForTest(listings, new(MockPurchaseStore), wallet, new(MockOutboxWriter))

		listings.On("GetByID", ctx, int64(77)).Return(auctionListing(), nil)

		// 当前 150 + 最低加价 10 = 160
		_, err := svc.PlaceBid(ctx, 9, 77, 155)
		assert.ErrorIs(t, err, ErrBidTooLow)
		wallet.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything)
	})

	t.Run("CAS输掉退回本次冻结", func(t *testing.T) {
		listings := new(MockListingStore)
		wallet := new(MockCoinWallet)
		svc := newMarketServiceForTest(listings, new(MockPurchaseStore), wallet, new(MockOutboxWriter))

		listings.On("GetByID", ctx, int64(77)).Return(auctionListing(), nil)
		wallet.On("Debit", ctx, mock.Anything).Return(int64(300), nil)
		listings.On("SwapTopBid", ctx, int64(77), int64(150), int64(200), int64(9)).
			Return(repository.ErrBidConflict)
		wallet.On("Credit", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.UserID == 9 && req.Delta == 200
		})).Return(int64(500), nil)

		_, err := svc.PlaceBid(ctx, 9, 77, 200)
		assert.ErrorIs(t, err, repository.ErrBidConflict)
		wallet.AssertExpectations(t)
	})

	t.Run("已结束的竞拍拒绝", func(t *testing.T) {
		listings := new(MockListingStore)
		svc := newMarketServiceForTest(listings, new(MockPurchaseStore), new(MockCoinWallet), new(MockOutboxWriter))

		ended := auctionListing()
		past, _ := time.Parse("2006-01-02", "2024-03-01")
		ended.EndsAt = &past
		listings.On("GetByID", ctx, int64(77)).Return(ended, nil)

		_, err := svc.PlaceBid(ctx, 9, 77, 200)
		assert.ErrorIs(t, err, ErrAuctionEnded)
	})

	t.Run("榜首自己加价拒绝", func(t *testing.T) {
		listings := new(MockListingStore)
		svc := newMarketServiceForTest(listings, new(MockPurchaseStore), new(MockCoinWallet), new(MockOutboxWriter))

		listings.On("GetByID", ctx, int64(77)).Return(auctionListing(), nil)

		_, err := svc.PlaceBid(ctx, 3, 77, 200)
		assert.ErrorIs(t, err, ErrSelfOutbid)
	})

	t.Run("一口价商品不可竞拍", func(t *testing.T) {
		listings := new(MockListingStore)
		svc := newMarketServiceForTest(listings, new(MockPurchaseStore), new(MockCoinWallet), new(MockOutboxWriter))

		fixed := auctionListing()
		fixed.SaleType = model.SaleTypeFixed
		listings.On("GetByID", ctx, int64(77)).Return(fixed, nil)

		_, err := svc.PlaceBid(ctx, 9, 77, 200)
		assert.ErrorIs(t, err, ErrNotAuction)
	})
}
