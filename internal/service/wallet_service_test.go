package service

import (
	"context"
	"errors"
	"testing"

	"gamemarket/internal/model"
	"gamemarket/internal/repository"
	"gamemarket/pkg/idgen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	idgen.Init(1)
}

func TestWalletService_Apply(t *testing.T) {
	ctx := context.Background()

	t.Run("入账成功并写流水", func(t *testing.T) {
		users := new(MockAccountStore)
		ledger := new(MockLedgerSink)
		svc := &WalletService{users: users, ledger: ledger}

		users.On("ApplyDelta", ctx, int64(100), int64(50)).Return(int64(150), nil)
		ledger.On("Create", ctx, mock.MatchedBy(func(e *model.LedgerEvent) bool {
			return e.UserID == 100 && e.Delta == 50 &&
				e.Category == model.LedgerCategoryCheckin && e.BalanceAfter == 150
		})).Return(nil)

		balance, err := svc.Apply(ctx, &MutationRequest{
			UserID:   100,
			Actor:    "100",
			Delta:    50,
			Category: model.LedgerCategoryCheckin,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(150), balance)
		users.AssertExpectations(t)
		ledger.AssertExpectations(t)
	})

	t.Run("余额不足拒绝且不写流水", func(t *testing.T) {
		users := new(MockAccountStore)
		ledger := new(MockLedgerSink)
		svc := &WalletService{users: users, ledger: ledger}

		users.On("ApplyDelta", ctx, int64(100), int64(-200)).
			Return(int64(0), repository.ErrInsufficientCoins)

		_, err := svc.Apply(ctx, &MutationRequest{
			UserID:   100,
			Actor:    "100",
			Delta:    -200,
			Category: model.LedgerCategoryGame,
		})
		assert.ErrorIs(t, err, repository.ErrInsufficientCoins)
		ledger.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("流水写入失败不回滚余额变更", func(t *testing.T) {
		users := new(MockAccountStore)
		ledger := new(MockLedgerSink)
		svc := &WalletService{users: users, ledger: ledger}

		users.On("ApplyDelta", ctx, int64(100), int64(30)).Return(int64(30), nil)
		ledger.On("Create", ctx, mock.Anything).Return(errors.New("db down"))

		balance, err := svc.Apply(ctx, &MutationRequest{
			UserID:   100,
			Actor:    model.ActorSystem,
			Delta:    30,
			Category: model.LedgerCategoryGift,
		})
		// 审计尽力而为，变更本身成功
		require.NoError(t, err)
		assert.Equal(t, int64(30), balance)
	})

	t.Run("零金额直接拒绝", func(t *testing.T) {
		svc := &WalletService{users: new(MockAccountStore), ledger: new(MockLedgerSink)}
		_, err := svc.Apply(ctx, &MutationRequest{UserID: 100, Delta: 0})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestWalletService_Debit(t *testing.T) {
	ctx := context.Background()

	t.Run("出账按负数落库", func(t *testing.T) {
		users := new(MockAccountStore)
		ledger := new(MockLedgerSink)
		svc := &WalletService{users: users, ledger: ledger}

		users.On("ApplyDelta", ctx, int64(7), int64(-80)).Return(int64(20), nil)
		ledger.On("Create", ctx, mock.MatchedBy(func(e *model.LedgerEvent) bool {
			return e.Delta == -80
		})).Return(nil)

		balance, err := svc.Debit(ctx, &MutationRequest{
			UserID:   7,
			Actor:    model.ActorSystem,
			Delta:    80,
			Category: model.LedgerCategoryPurchase,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(20), balance)
	})

	t.Run("非正数出账金额拒绝", func(t *testing.T) {
		svc := &WalletService{users: new(MockAccountStore), ledger: new(MockLedgerSink)}
		_, err := svc.Debit(ctx, &MutationRequest{UserID: 7, Delta: -5})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}
