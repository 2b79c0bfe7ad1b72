package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrTokenDisabled = errors.New("礼品码已停用")
	ErrTokenExpired  = errors.New("礼品码已过期")
)

type giftStore interface {
	Create(ctx context.Context, token *model.GiftToken) error
	GetByCode(ctx context.Context, code string) (*model.GiftToken, error)
	ConsumeUse(ctx context.Context, tokenID int64, now time.Time) error
	ReleaseUse(ctx context.Context, tokenID int64) error
	CreateRedemption(ctx context.Context, redemption *model.GiftRedemption) error
	DeleteRedemption(ctx context.Context, id int64) error
	GetRedemption(ctx context.Context, tokenID, userID int64) (*model.GiftRedemption, error)
}

// GiftService 礼品码兑换
type GiftService struct {
	gifts  giftStore
	wallet coinWallet
	now    func() time.Time
}

func NewGiftService(db *gorm.DB) *GiftService {
	return &GiftService{
		gifts:  repository.NewGiftRepository(db),
		wallet: NewWalletService(db),
		now:    time.Now,
	}
}

// Redeem 兑换礼品码
//
// 顺序：占名额（条件更新）-> 落兑换记录（唯一索引）-> 加币。
// 任何一步输掉竞争或失败都把名额还回去，不会出现"名额烧掉但没到账"的终局
func (s *GiftService) Redeem(ctx context.Context, userID int64, code, ip string) (int64, error) {
	token, err := s.gifts.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return 0, err
	}

	now := s.now()
	// 预检给出明确的拒绝原因，竞争窗口由 ConsumeUse 的条件更新兜底
	if !token.IsEnabled {
		return 0, ErrTokenDisabled
	}
	if !now.Before(token.ExpiresAt) {
		return 0, ErrTokenExpired
	}
	if existing, err := s.gifts.GetRedemption(ctx, token.ID, userID); err != nil {
		return 0, fmt.Errorf("查询兑换记录失败: %w", err)
	} else if existing != nil {
		return 0, repository.ErrAlreadyRedeemed
	}

	if err := s.gifts.ConsumeUse(ctx, token.ID, now); err != nil {
		return 0, err
	}

	redemption := &model.GiftRedemption{
		TokenID: token.ID,
		UserID:  userID,
		Amount:  token.Amount,
	}
	if err := s.gifts.CreateRedemption(ctx, redemption); err != nil {
		// 同一用户并发兑换同一个码，输家归还名额
		if relErr := s.gifts.ReleaseUse(ctx, token.ID); relErr != nil {
			logrus.Errorf("[Gift] 归还兑换名额失败: tokenID=%d, err=%v", token.ID, relErr)
		}
		return 0, err
	}

	newBalance, err := s.wallet.Credit(ctx, &MutationRequest{
		UserID:   userID,
		Actor:    fmt.Sprintf("%d", userID),
		Delta:    token.Amount,
		Category: model.LedgerCategoryGift,
		Remark:   fmt.Sprintf("礼品码兑换-%s", token.Code),
		RefNo:    token.Code,
		IP:       ip,
	})
	if err != nil {
		// 加币失败把兑换记录和名额一起还回去，用户可以重试
		logrus.Errorf("[Gift] 兑换加币失败: userID=%d, tokenID=%d, err=%v", userID, token.ID, err)
		if delErr := s.gifts.DeleteRedemption(ctx, redemption.ID); delErr != nil {
			logrus.Errorf("[Gift] 回滚兑换记录失败: redemptionID=%d, err=%v", redemption.ID, delErr)
		} else if relErr := s.gifts.ReleaseUse(ctx, token.ID); relErr != nil {
			logrus.Errorf("[Gift] 归还兑换名额失败: tokenID=%d, err=%v", token.ID, relErr)
		}
		return 0, fmt.Errorf("发放兑换奖励失败: %w", err)
	}

	logrus.Infof("[Gift] 兑换成功: userID=%d, code=%s, amount=%d", userID, token.Code, token.Amount)
	return newBalance, nil
}

// CreateToken 管理端创建礼品码，code 缺省时随机生成
func (s *GiftService) CreateToken(ctx context.Context, code string, amount int64, maxUses int, expiresAt time.Time) (*model.GiftToken, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if maxUses <= 0 {
		maxUses = 1
	}
	if code == "" {
		code = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
	}

	token := &model.GiftToken{
		Code:      code,
		Amount:    amount,
		MaxUses:   maxUses,
		IsEnabled: true,
		ExpiresAt: expiresAt,
	}
	if err := s.gifts.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}
