package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"gamemarket/internal/config"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"
	"gamemarket/pkg/idgen"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvalidChoice = errors.New("押注方向不合法")
	ErrInvalidWager  = errors.New("下注金额不合法")
)

type gameStore interface {
	Create(ctx context.Context, round *model.GameRound) error
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.GameRound, int64, error)
}

// GameService 骰子游戏（tai/xiu）
type GameService struct {
	cfg    *config.Config
	rounds gameStore
	wallet coinWallet

	// 掷骰子。默认 math/rand，测试里可替换成固定点数
	roll func() [3]int
}

func NewGameService(db *gorm.DB, cfg *config.Config) *GameService {
	return &GameService{
		cfg:    cfg,
		rounds: repository.NewGameRepository(db),
		wallet: NewWalletService(db),
		roll: func() [3]int {
			return [3]int{rand.Intn(6) + 1, rand.Intn(6) + 1, rand.Intn(6) + 1}
		},
	}
}

// diceOutcome 三骰和 >= 11 为 tai，否则 xiu
func diceOutcome(total int) string {
	if total >= 11 {
		return model.GameChoiceTai
	}
	return model.GameChoiceXiu
}

// Play 玩一局
//
// 顺序固定：先扣注（余额不足直接失败，不开局），再掷骰；
// 赢了返还 2 倍下注。开局记录失败不影响已结算的资金。
func (s *GameService) Play(ctx context.Context, userID int64, choice string, wager int64) (*model.GameRound, error) {
	if choice != model.GameChoiceTai && choice != model.GameChoiceXiu {
		return nil, ErrInvalidChoice
	}
	if wager <= 0 || wager > s.cfg.Business.GameMaxWager {
		return nil, ErrInvalidWager
	}

	roundNo := idgen.GenerateRoundNo()

	if _, err := s.wallet.Debit(ctx, &MutationRequest{
		UserID:   userID,
		Actor:    model.ActorSystem,
		Delta:    wager,
		Category: model.LedgerCategoryGame,
		Remark:   fmt.Sprintf("骰子下注-%s", choice),
		RefNo:    roundNo,
	}); err != nil {
		return nil, err
	}

	dice := s.roll()
	total := dice[0] + dice[1] + dice[2]
	outcome := diceOutcome(total)

	round := &model.GameRound{
		RoundNo: roundNo,
		UserID:  userID,
		Choice:  choice,
		Dice1:   dice[0],
		Dice2:   dice[1],
		Dice3:   dice[2],
		Total:   total,
		Outcome: outcome,
		Wager:   wager,
	}

	if outcome == choice {
		round.WinAmount = wager * 2
		if _, err := s.wallet.Credit(ctx, &MutationRequest{
			UserID:   userID,
			Actor:    model.ActorSystem,
			Delta:    round.WinAmount,
			Category: model.LedgerCategoryGame,
			Remark:   fmt.Sprintf("骰子赢奖-%d点", total),
			RefNo:    roundNo,
		}); err != nil {
			// 扣了注却没派奖，必须向上报错让调用方重试/人工兜底
			logrus.Errorf("[Game] 派奖失败: roundNo=%s, userID=%d, win=%d, err=%v",
				roundNo, userID, round.WinAmount, err)
			return nil, fmt.Errorf("派奖失败: %w", err)
		}
	}

	if err := s.rounds.Create(ctx, round); err != nil {
		logrus.Errorf("[Game] 对局记录落库失败: roundNo=%s, err=%v", roundNo, err)
	}

	logrus.Infof("[Game] 对局结束: roundNo=%s, userID=%d, choice=%s, total=%d, outcome=%s, win=%d",
		roundNo, userID, choice, total, outcome, round.WinAmount)
	return round, nil
}

func (s *GameService) History(ctx context.Context, userID int64, page, pageSize int) ([]*model.GameRound, int64, error) {
	return s.rounds.ListByUserID(ctx, userID, page, pageSize)
}
