package service

import (
	"context"
	"testing"

	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdminService_AdjustCoins(t *testing.T) {
	ctx := context.Background()

	t.Run("加币走钱包统一入口并记管理员操作人", func(t *testing.T) {
		wallet := new(MockCoinWallet)
		svc := &AdminService{wallet: wallet}

		wallet.On("Apply", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.UserID == 42 && req.Delta == 500 &&
				req.Actor == "admin01" && req.Category == model.LedgerCategoryAdmin
		})).Return(int64(1500), nil)

		balance, err := svc.AdjustCoins(ctx, "admin01", 42, 500, "活动补偿")
		require.NoError(t, err)
		assert.Equal(t, int64(1500), balance)
		wallet.AssertExpectations(t)
	})

	t.Run("扣币同样受余额下限保护", func(t *testing.T) {
		wallet := new(MockCoinWallet)
		svc := &AdminService{wallet: wallet}

		wallet.On("Apply", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.Delta == -9999
		})).Return(int64(0), repository.ErrInsufficientCoins)

		_, err := svc.AdjustCoins(ctx, "admin01", 42, -9999, "违规回收")
		assert.ErrorIs(t, err, repository.ErrInsufficientCoins)
	})

	t.Run("零金额直接拒绝", func(t *testing.T) {
		wallet := new(MockCoinWallet)
		svc := &AdminService{wallet: wallet}

		_, err := svc.AdjustCoins(ctx, "admin01", 42, 0, "手滑")
		assert.ErrorIs(t, err, ErrZeroAdjust)
		wallet.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
	})
}

func TestAdminService_BanUnban(t *testing.T) {
	ctx := context.Background()

	users := new(MockAdminUserStore)
	svc := &AdminService{users: users}

	users.On("UpdateStatus", ctx, int64(7), model.UserStatusBanned).Return(nil)
	users.On("UpdateStatus", ctx, int64(7), model.UserStatusActive).Return(nil)

	require.NoError(t, svc.BanUser(ctx, "admin01", 7))
	require.NoError(t, svc.UnbanUser(ctx, "admin01", 7))
	users.AssertExpectations(t)
}
