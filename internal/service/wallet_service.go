package service

import (
	"context"
	"errors"

	"gamemarket/internal/model"
	"gamemarket/internal/repository"
	"gamemarket/pkg/idgen"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 服务层依赖按实际用到的方法声明为私有接口，构造函数注入具体仓储，
// 测试里用 testify mock 按结构替换
type accountStore interface {
	ApplyDelta(ctx context.Context, userID int64, delta int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type ledgerSink interface {
	Create(ctx context.Context, event *model.LedgerEvent) error
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.LedgerEvent, int64, error)
}

var ErrInvalidAmount = errors.New("金额必须大于0")

// WalletService 余额变更的唯一入口
//
// 所有赚取/消费流程都经由 Apply：条件更新改余额，成功后追加流水。
// 流水写入失败只告警不回滚——余额变动已经生效，审计日志尽力而为
type WalletService struct {
	users  accountStore
	ledger ledgerSink
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{
		users:  repository.NewUserRepository(db),
		ledger: repository.NewLedgerRepository(db),
	}
}

// MutationRequest 一次余额变更
type MutationRequest struct {
	UserID   int64
	Actor    string // 发起者：用户ID、管理员ID 或 system
	Delta    int64  // 正数入账，负数出账
	Category string
	Remark   string
	RefNo    string
	IP       string
}

// Apply 执行余额变更，返回变更后余额
// 出账时余额不足返回 repository.ErrInsufficientCoins，余额保持不变
func (s *WalletService) Apply(ctx context.Context, req *MutationRequest) (int64, error) {
	if req.Delta == 0 {
		return 0, ErrInvalidAmount
	}

	newBalance, err := s.users.ApplyDelta(ctx, req.UserID, req.Delta)
	if err != nil {
		return 0, err
	}

	event := &model.LedgerEvent{
		EventNo:      idgen.GenerateEventNo(),
		UserID:       req.UserID,
		Actor:        req.Actor,
		Delta:        req.Delta,
		Category:     req.Category,
		Remark:       req.Remark,
		BalanceAfter: newBalance,
		RefNo:        req.RefNo,
		IP:           req.IP,
	}
	if err := s.ledger.Create(ctx, event); err != nil {
		logrus.Errorf("[Wallet] 流水写入失败: userID=%d, delta=%d, category=%s, err=%v",
			req.UserID, req.Delta, req.Category, err)
	}

	return newBalance, nil
}

// Credit 入账便捷入口
func (s *WalletService) Credit(ctx context.Context, req *MutationRequest) (int64, error) {
	if req.Delta <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.Apply(ctx, req)
}

// Debit 出账便捷入口，Delta 传正数
func (s *WalletService) Debit(ctx context.Context, req *MutationRequest) (int64, error) {
	if req.Delta <= 0 {
		return 0, ErrInvalidAmount
	}
	debit := *req
	debit.Delta = -req.Delta
	return s.Apply(ctx, &debit)
}

func (s *WalletService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Coins, nil
}

func (s *WalletService) ListLedger(ctx context.Context, userID int64, page, pageSize int) ([]*model.LedgerEvent, int64, error) {
	return s.ledger.ListByUserID(ctx, userID, page, pageSize)
}
