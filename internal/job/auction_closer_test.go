package job

import (
	"context"
	"testing"
	"time"

	"gamemarket/internal/config"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/stretchr/testify/mock"
)

type mockAuctionBook struct {
	mock.Mock
}

func (m *mockAuctionBook) GetExpiredAuctions(ctx context.Context, now time.Time, limit int) ([]*model.Listing, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Listing), args.Error(1)
}

func (m *mockAuctionBook) GetByID(ctx context.Context, id int64) (*model.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Listing), args.Error(1)
}

func (m *mockAuctionBook) SettleAuction(ctx context.Context, listingID int64, toStatus string, bidderID, bid int64) error {
	args := m.Called(ctx, listingID, toStatus, bidderID, bid)
	return args.Error(0)
}

type mockEventOutbox struct {
	mock.Mock
}

func (m *mockEventOutbox) Create(ctx context.Context, msg *model.OutboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func newCloserForTest(book *mockAuctionBook, outbox *mockEventOutbox) *AuctionCloserJob {
	return &AuctionCloserJob{
		listingRepo: book,
		outboxRepo:  outbox,
		cfg: &config.Config{
			Kafka: config.KafkaConfig{
				Topic: config.KafkaTopicConfig{CoinEvent: "coin-event"},
			},
		},
	}
}

func expiredAuction(bidderID, bid int64) *model.Listing {
	endsAt := time.Now().Add(-time.Minute)
	return &model.Listing{
		ID:              31,
		Category:        "gold",
		SaleType:        model.SaleTypeAuction,
		Status:          model.ListingStatusAvailable,
		MinPrice:        50,
		CurrentBid:      bid,
		CurrentBidderID: bidderID,
		EndsAt:          &endsAt,
	}
}

func TestAuctionCloser_SettleOne(t *testing.T) {
	ctx := context.Background()

	t.Run("有出价按最高出价者成交", func(t *testing.T) {
		book := new(mockAuctionBook)
		outbox := new(mockEventOutbox)
		j := newCloserForTest(book, outbox)

		book.On("SettleAuction", ctx, int64(31), model.ListingStatusSold, int64(4), int64(100)).Return(nil)
		outbox.On("Create", ctx, mock.Anything).Return(nil)

		j.settleOne(ctx, expiredAuction(4, 100))
		book.AssertExpectations(t)
		outbox.AssertExpectations(t)
	})

	t.Run("无出价流拍", func(t *testing.T) {
		book := new(mockAuctionBook)
		outbox := new(mockEventOutbox)
		j := newCloserForTest(book, outbox)

		book.On("SettleAuction", ctx, int64(31), model.ListingStatusExpired, int64(0), int64(0)).Return(nil)

		j.settleOne(ctx, expiredAuction(0, 0))
		book.AssertExpectations(t)
		outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("截止瞬间换手按新出价者重试成交", func(t *testing.T) {
		book := new(mockAuctionBook)
		outbox := new(mockEventOutbox)
		j := newCloserForTest(book, outbox)

		// 读到的还是旧出价者 4，结算时已被 9 以 120 换手
		book.On("SettleAuction", ctx, int64(31), model.ListingStatusSold, int64(4), int64(100)).
			Return(repository.ErrBidConflict).Once()
		book.On("GetByID", ctx, int64(31)).Return(expiredAuction(9, 120), nil).Once()
		book.On("SettleAuction", ctx, int64(31), model.ListingStatusSold, int64(9), int64(120)).
			Return(nil).Once()
		outbox.On("Create", ctx, mock.MatchedBy(func(msg *model.OutboxMessage) bool {
			return msg.Topic == "coin-event"
		})).Return(nil)

		j.settleOne(ctx, expiredAuction(4, 100))
		book.AssertExpectations(t)
		outbox.AssertExpectations(t)
	})

	t.Run("其他实例已结算则放手", func(t *testing.T) {
		book := new(mockAuctionBook)
		outbox := new(mockEventOutbox)
		j := newCloserForTest(book, outbox)

		settled := expiredAuction(4, 100)
		settled.Status = model.ListingStatusSold
		book.On("SettleAuction", ctx, int64(31), model.ListingStatusSold, int64(4), int64(100)).
			Return(repository.ErrBidConflict).Once()
		book.On("GetByID", ctx, int64(31)).Return(settled, nil).Once()

		j.settleOne(ctx, expiredAuction(4, 100))
		book.AssertNumberOfCalls(t, "SettleAuction", 1)
		outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
