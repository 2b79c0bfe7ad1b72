package service

import (
	"context"
	"testing"

	"gamemarket/internal/config"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func gameTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Business.GameMaxWager = 10000
	return cfg
}

func newGameServiceForTest(rounds *MockGameStore, wallet *MockCoinWallet, dice [3]int) *GameService {
	return &GameService{
		cfg:    gameTestConfig(),
		rounds: rounds,
		wallet: wallet,
		roll:   func() [3]int { return dice },
	}
}

func TestDiceOutcome(t *testing.T) {
	assert.Equal(t, model.GameChoiceXiu, diceOutcome(3))
	assert.Equal(t, model.GameChoiceXiu, diceOutcome(10))
	assert.Equal(t, model.GameChoiceTai, diceOutcome(11))
	assert.Equal(t, model.GameChoiceTai, diceOutcome(18))
}

func TestGameService_Play(t *testing.T) {
	ctx := context.Background()

	t.Run("押中tai赢2倍下注", func(t *testing.T) {
		rounds := new(MockGameStore)
		wallet := new(MockCoinWallet)
		// 4+4+4=12 >= 11 -> tai
		svc := newGameServiceForTest(rounds, wallet, [3]int{4, 4, 4})

		wallet.On("Debit", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.Delta == 1000 && req.Category == model.LedgerCategoryGame
		})).Return(int64(4000), nil)
		wallet.On("Credit", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.Delta == 2000
		})).Return(int64(6000), nil)
		rounds.On("Create", ctx, mock.MatchedBy(func(r *model.GameRound) bool {
			return r.Total == 12 && r.Outcome == model.GameChoiceTai && r.WinAmount == 2000
		})).Return(nil)

		round, err := svc.Play(ctx, 9, model.GameChoiceTai, 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(2000), round.WinAmount)
		// 净变化 = -1000 + 2000 = +1000
		wallet.AssertExpectations(t)
	})

	t.Run("押错只扣下注", func(t *testing.T) {
		rounds := new(MockGameStore)
		wallet := new(MockCoinWallet)
		// 1+2+3=6 -> xiu，押 tai 输
		svc := newGameServiceForTest(rounds, wallet, [3]int{1, 2, 3})

		wallet.On("Debit", ctx, mock.Anything).Return(int64(4000), nil)
		rounds.On("Create", ctx, mock.MatchedBy(func(r *model.GameRound) bool {
			return r.Outcome == model.GameChoiceXiu && r.WinAmount == 0
		})).Return(nil)

		round, err := svc.Play(ctx, 9, model.GameChoiceTai, 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(0), round.WinAmount)
		wallet.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
	})

	t.Run("余额不足不开局", func(t *testing.T) {
		rounds := new(MockGameStore)
		wallet := new(MockCoinWallet)
		svc := newGameServiceForTest(rounds, wallet, [3]int{6, 6, 6})

		wallet.On("Debit", ctx, mock.Anything).
			Return(int64(0), repository.ErrInsufficientCoins)

		_, err := svc.Play(ctx, 9, model.GameChoiceTai, 1000)
		assert.ErrorIs(t, err, repository.ErrInsufficientCoins)
		rounds.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("下注超限拒绝", func(t *testing.T) {
		wallet := new(MockCoinWallet)
		svc := newGameServiceForTest(new(MockGameStore), wallet, [3]int{1, 1, 1})

		_, err := svc.Play(ctx, 9, model.GameChoiceXiu, 99999)
		assert.ErrorIs(t, err, ErrInvalidWager)
		wallet.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything)
	})

	t.Run("押注方向非法拒绝", func(t *testing.T) {
		svc := newGameServiceForTest(new(MockGameStore), new(MockCoinWallet), [3]int{1, 1, 1})
		_, err := svc.Play(ctx, 9, "both", 100)
		assert.ErrorIs(t, err, ErrInvalidChoice)
	})
}
