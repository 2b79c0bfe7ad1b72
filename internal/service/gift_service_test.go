package service

import (
	"context"
	"testing"
	"time"

	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newGiftServiceForTest(gifts *MockGiftStore, wallet *MockCoinWallet) *GiftService {
	return &GiftService{
		gifts:  gifts,
		wallet: wallet,
		now:    fixedClock("2024-03-04"),
	}
}

func validToken() *model.GiftToken {
	expires, _ := time.Parse("2006-01-02", "2024-12-31")
	return &model.GiftToken{
		ID:        5,
		Code:      "WELCOME2024",
		Amount:    100,
		MaxUses:   10,
		IsEnabled: true,
		ExpiresAt: expires,
	}
}

func TestGiftService_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("兑换成功", func(t *testing.T) {
		gifts := new(MockGiftStore)
		wallet := new(MockCoinWallet)
		svc := newGiftServiceForTest(gifts, wallet)

		gifts.On("GetByCode", ctx, "WELCOME2024").Return(validToken(), nil)
		gifts.On("GetRedemption", ctx, int64(5), int64(9)).Return(nil, nil)
		gifts.On("ConsumeUse", ctx, int64(5), mock.Anything).Return(nil)
		gifts.On("CreateRedemption", ctx, mock.MatchedBy(func(r *model.GiftRedemption) bool {
			return r.TokenID == 5 && r.UserID == 9 && r.Amount == 100
		})).Return(nil)
		wallet.On("Credit", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.Delta == 100 && req.Category == model.LedgerCategoryGift
		})).Return(int64(100), nil)

		balance, err := svc.Redeem(ctx, 9, "WELCOME2024", "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, int64(100), balance)
	})

	t.Run("已兑换过拒绝", func(t *testing.T) {
		gifts := new(MockGiftStore)
		wallet := new(MockCoinWallet)
		svc := newGiftServiceForTest(gifts, wallet)

		gifts.On("GetByCode", ctx, "WELCOME2024").Return(validToken(), nil)
		gifts.On("GetRedemption", ctx, int64(5), int64(9)).
			Return(&model.GiftRedemption{}, nil)

		_, err := svc.Redeem(ctx, 9, "WELCOME2024", "")
		assert.ErrorIs(t, err, repository.ErrAlreadyRedeemed)
		gifts.AssertNotCalled(t, "ConsumeUse", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("名额耗尽拒绝", func(t *testing.T) {
		gifts := new(MockGiftStore)
		wallet := new(MockCoinWallet)
		svc := newGiftServiceForTest(gifts, wallet)

		gifts.On("GetByCode", ctx, "WELCOME2024").Return(validToken(), nil)
		gifts.On("GetRedemption", ctx, int64(5), int64(9)).Return(nil, nil)
		gifts.On("ConsumeUse", ctx, int64(5), mock.Anything).
			Return(repository.ErrTokenExhausted)

		_, err := svc.Redeem(ctx, 9, "WELCOME2024", "")
		assert.ErrorIs(t, err, repository.ErrTokenExhausted)
		wallet.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
	})

	t.Run("过期礼品码拒绝", func(t *testing.T) {
		gifts := new(MockGiftStore)
		svc := newGiftServiceForTest(gifts, new(MockCoinWallet))

		expired := validToken()
		expired.ExpiresAt, _ = time.Parse("2006-01-02", "2024-01-01")
		gifts.On("GetByCode", ctx, "WELCOME2024").Return(expired, nil)

		_, err := svc.Redeem(ctx, 9, "WELCOME2024", "")
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("停用礼品码拒绝", func(t *testing.T) {
		gifts := new(MockGiftStore)
		svc := newGiftServiceForTest(gifts, new(MockCoinWallet))

		disabled := validToken()
		disabled.IsEnabled = false
		gifts.On("GetByCode", ctx, "WELCOME2024").Return(disabled, nil)

		_, err := svc.Redeem(ctx, 9, "WELCOME2024", "")
		assert.ErrorIs(t, err, ErrTokenDisabled)
	})

	t.Run("兑换记录冲突归还名额", func(t *testing.T) {
		gifts := new(MockGiftStore)
		wallet := new(MockCoinWallet)
		svc := newGiftServiceForTest(gifts, wallet)

		gifts.On("GetByCode", ctx, "WELCOME2024").Return(validToken(), nil)
		gifts.On("GetRedemption", ctx, int64(5), int64(9)).Return(nil, nil)
		gifts.On("ConsumeUse", ctx, int64(5), mock.Anything).Return(nil)
		gifts.On("CreateRedemption", ctx, mock.Anything).
			Return(repository.ErrAlreadyRedeemed)
		gifts.On("ReleaseUse", ctx, int64(5)).Return(nil)

		_, err := svc.Redeem(ctx, 9, "WELCOME2024", "")
		assert.ErrorIs(t, err, repository.ErrAlreadyRedeemed)
		gifts.AssertCalled(t, "ReleaseUse", ctx, int64(5))
		wallet.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
	})

	t.Run("加币失败删除兑换记录并归还名额", func(t *testing.T) {
		gifts := new(MockGiftStore)
		wallet := new(MockCoinWallet)
		svc := newGiftServiceForTest(gifts, wallet)

		gifts.On("GetByCode", ctx, "WELCOME2024").Return(validToken(), nil)
		gifts.On("GetRedemption", ctx, int64(5), int64(9)).Return(nil, nil)
		gifts.On("ConsumeUse", ctx, int64(5), mock.Anything).Return(nil)
		gifts.On("CreateRedemption", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				args.Get(1).(*model.GiftRedemption).ID = 88
			}).Return(nil)
		wallet.On("Credit", ctx, mock.Anything).
			Return(int64(0), assert.AnError)
		gifts.On("DeleteRedemption", ctx, int64(88)).Return(nil)
		gifts.On("ReleaseUse", ctx, int64(5)).Return(nil)

		_, err := svc.Redeem(ctx, 9, "WELCOME2024", "")
		require.Error(t, err)
		gifts.AssertCalled(t, "DeleteRedemption", ctx, int64(88))
		gifts.AssertCalled(t, "ReleaseUse", ctx, int64(5))
	})
}

func TestGiftService_CreateToken(t *testing.T) {
	ctx := context.Background()
	expires := time.Now().Add(24 * time.Hour)

	t.Run("缺省code自动生成", func(t *testing.T) {
		gifts := new(MockGiftStore)
		svc := newGiftServiceForTest(gifts, new(MockCoinWallet))

		gifts.On("Create", ctx, mock.MatchedBy(func(tok *model.GiftToken) bool {
			return len(tok.Code) == 16 && tok.Amount == 50 && tok.MaxUses == 1
		})).Return(nil)

		token, err := svc.CreateToken(ctx, "", 50, 0, expires)
		require.NoError(t, err)
		assert.Len(t, token.Code, 16)
	})

	t.Run("金额非法拒绝", func(t *testing.T) {
		svc := newGiftServiceForTest(new(MockGiftStore), new(MockCoinWallet))
		_, err := svc.CreateToken(ctx, "X", 0, 1, expires)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}
