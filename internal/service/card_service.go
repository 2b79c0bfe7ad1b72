package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gamemarket/internal/config"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"
	"gamemarket/pkg/idgen"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrInvalidSignature = errors.New("回调签名校验失败")

// CardSign 渠道回调签名
// 渠道方规定的算法：MD5(partnerKey + code + serial)。
// 无盐 MD5 是弱方案，但对接格式由外部渠道强制，仅在此处使用
func CardSign(partnerKey, code, serial string) string {
	sum := md5.Sum([]byte(partnerKey + code + serial))
	return hex.EncodeToString(sum[:])
}

// CardCreditAmount 面值折算到账金币：floor(value * rate / 100)
func CardCreditAmount(value, discountRate int64) int64 {
	if value <= 0 || discountRate <= 0 {
		return 0
	}
	return value * discountRate / 100
}

type cardStore interface {
	Create(ctx context.Context, order *model.CardOrder) error
	GetByRequestID(ctx context.Context, requestID string) (*model.CardOrder, error)
	Settle(ctx context.Context, requestID, fromStatus, toStatus string, realValue, creditedCoins int64) error
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.CardOrder, int64, error)
}

type outboxWriter interface {
	Create(ctx context.Context, msg *model.OutboxMessage) error
}

// CardService 充值卡：提交 -> 渠道异步回调 -> 折算到账
type CardService struct {
	cfg    *config.Config
	cards  cardStore
	wallet coinWallet
	outbox outboxWriter
}

func NewCardService(db *gorm.DB, cfg *config.Config) *CardService {
	return &CardService{
		cfg:    cfg,
		cards:  repository.NewCardRepository(db),
		wallet: NewWalletService(db),
		outbox: repository.NewOutboxRepository(db),
	}
}

// SubmitRequest 充值卡提交
type SubmitRequest struct {
	RequestID     string `json:"request_id" binding:"required"`
	Telco         string `json:"telco" binding:"required"`
	Code          string `json:"code" binding:"required"`
	Serial        string `json:"serial" binding:"required"`
	DeclaredValue int64  `json:"declared_value" binding:"required,gt=0"`
}

// Submit 提交充值卡，等待渠道回调
func (s *CardService) Submit(ctx context.Context, userID int64, req *SubmitRequest) (*model.CardOrder, error) {
	// 幂等：同一 request_id 直接返回已有订单
	existing, err := s.cards.GetByRequestID(ctx, req.RequestID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrCardOrderNotFound) {
		return nil, fmt.Errorf("查询充值卡订单失败: %w", err)
	}

	order := &model.CardOrder{
		CardNo:        idgen.GenerateCardNo(),
		RequestID:     req.RequestID,
		UserID:        userID,
		Telco:         req.Telco,
		Code:          req.Code,
		Serial:        req.Serial,
		DeclaredValue: req.DeclaredValue,
		Status:        model.CardStatusPending,
	}
	if err := s.cards.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("落库充值卡订单失败: %w", err)
	}

	logrus.Infof("[Card] 充值卡已提交: cardNo=%s, userID=%d, telco=%s, declared=%d",
		order.CardNo, userID, req.Telco, req.DeclaredValue)
	return order, nil
}

// CallbackRequest 渠道回调报文
type CallbackRequest struct {
	Status    int    `json:"status" binding:"required"` // 1=面值正确 2=面值错误但接受 3=失败
	RequestID string `json:"request_id" binding:"required"`
	Code      string `json:"code" binding:"required"`
	Serial    string `json:"serial" binding:"required"`
	Value     int64  `json:"value"`         // 渠道识别出的实际面值
	Sign      string `json:"callback_sign"` // MD5(partnerKey + code + serial)
}

// HandleCallback 处理渠道回调
//
// 【关键点】
// 1. 先验签，签名不符直接拒绝，不碰任何状态
// 2. PENDING -> 终态的 CAS 先行，赢了才加币：渠道重复回调不会二次到账
// 3. status=1 按申报面值折算，status=2 按渠道实际面值折算，status=3 只标失败
func (s *CardService) HandleCallback(ctx context.Context, cb *CallbackRequest) error {
	order, err := s.cards.GetByRequestID(ctx, cb.RequestID)
	if err != nil {
		return err
	}

	expected := CardSign(s.cfg.Card.PartnerKey, order.Code, order.Serial)
	if cb.Sign != expected {
		logrus.Warnf("[Card] 回调签名不符: requestID=%s", cb.RequestID)
		return ErrInvalidSignature
	}

	switch cb.Status {
	case model.CardCallbackExact:
		credited := CardCreditAmount(order.DeclaredValue, s.cfg.Card.DiscountRate)
		return s.settleAndCredit(ctx, order, model.CardStatusSuccess, order.DeclaredValue, credited)

	case model.CardCallbackWrong:
		credited := CardCreditAmount(cb.Value, s.cfg.Card.DiscountRate)
		return s.settleAndCredit(ctx, order, model.CardStatusWrongValue, cb.Value, credited)

	case model.CardCallbackFailed:
		if err := s.cards.Settle(ctx, cb.RequestID, model.CardStatusPending, model.CardStatusFailed, cb.Value, 0); err != nil {
			return err
		}
		logrus.Infof("[Card] 充值卡失败: cardNo=%s, requestID=%s", order.CardNo, cb.RequestID)
		return nil

	default:
		return fmt.Errorf("未知的回调状态: %d", cb.Status)
	}
}

func (s *CardService) settleAndCredit(ctx context.Context, order *model.CardOrder, toStatus string, realValue, credited int64) error {
	if err := s.cards.Settle(ctx, order.RequestID, model.CardStatusPending, toStatus, realValue, credited); err != nil {
		// 重复回调或订单已是终态
		return err
	}

	if credited > 0 {
		if _, err := s.wallet.Credit(ctx, &MutationRequest{
			UserID:   order.UserID,
			Actor:    model.ActorSystem,
			Delta:    credited,
			Category: model.LedgerCategoryCard,
			Remark:   fmt.Sprintf("充值卡到账-%s-面值%d", order.Telco, realValue),
			RefNo:    order.CardNo,
		}); err != nil {
			// 终态已占但到账失败：告警等待人工处理，不回滚终态
			logrus.Errorf("[Card] 到账失败: cardNo=%s, credited=%d, err=%v", order.CardNo, credited, err)
			return fmt.Errorf("充值到账失败: %w", err)
		}
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"card_no":    order.CardNo,
		"user_id":    order.UserID,
		"status":     toStatus,
		"real_value": realValue,
		"credited":   credited,
		"settled_at": time.Now().Format(time.RFC3339),
	})
	if err := s.outbox.Create(ctx, &model.OutboxMessage{
		MessageKey: order.CardNo,
		Topic:      s.cfg.Kafka.Topic.CoinEvent,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}); err != nil {
		logrus.Errorf("[Card] 写入消息失败: cardNo=%s, err=%v", order.CardNo, err)
	}

	logrus.Infof("[Card] 充值到账: cardNo=%s, userID=%d, credited=%d", order.CardNo, order.UserID, credited)
	return nil
}

func (s *CardService) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.CardOrder, int64, error) {
	return s.cards.ListByUserID(ctx, userID, page, pageSize)
}
