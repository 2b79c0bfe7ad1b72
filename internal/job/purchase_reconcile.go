package job

import (
	"context"
	"fmt"
	"time"

	"gamemarket/internal/config"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"
	"gamemarket/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PurchaseReconcileJob 购买订单对账
//
// 购买流程里"扣款成功但发货前崩溃"的订单会停在 DEBITED。
// 本任务扫出停留超过配置窗口的 DEBITED 订单，原路退款并转 REFUNDED。
// 退款走钱包正常入账路径，流水可查；REFUNDED 的 CAS 保证同一订单只退一次
type PurchaseReconcileJob struct {
	db           *gorm.DB
	purchaseRepo *repository.PurchaseRepository
	wallet       *service.WalletService
	cfg          *config.Config
	stopCh       chan struct{}
	interval     time.Duration
	batchSize    int
}

func NewPurchaseReconcileJob(db *gorm.DB, cfg *config.Config) *PurchaseReconcileJob {
	return &PurchaseReconcileJob{
		db:           db,
		purchaseRepo: repository.NewPurchaseRepository(db),
		wallet:       service.NewWalletService(db),
		cfg:          cfg,
		stopCh:       make(chan struct{}),
		interval:     30 * time.Second,
		batchSize:    50,
	}
}

func (j *PurchaseReconcileJob) Start(ctx context.Context) {
	logrus.Infoln("[PurchaseReconcileJob] 订单对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Infoln("[PurchaseReconcileJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			logrus.Infoln("[PurchaseReconcileJob] 任务停止")
			return
		case <-ticker.C:
			j.reconcileStuckOrders(ctx)
		}
	}
}

func (j *PurchaseReconcileJob) Stop() {
	close(j.stopCh)
}

func (j *PurchaseReconcileJob) reconcileStuckOrders(ctx context.Context) {
	beforeTime := time.Now().Add(-time.Duration(j.cfg.Business.ReconcileAfterMinutes) * time.Minute)
	orders, err := j.purchaseRepo.GetStuckDebited(ctx, beforeTime, j.batchSize)
	if err != nil {
		logrus.Errorf("[PurchaseReconcileJob] 查询悬空订单失败: %v", err)
		return
	}

	if len(orders) == 0 {
		return
	}

	logrus.Warnf("[PurchaseReconcileJob] 发现 %d 个已扣款未发货的订单", len(orders))

	for _, order := range orders {
		j.refundOrder(ctx, order)
	}
}

func (j *PurchaseReconcileJob) refundOrder(ctx context.Context, order *model.PurchaseOrder) {
	// 先推进状态再退款：CAS 赢了才是本次对账的退款责任方，
	// 避免和购买流程里的即时补偿重复退
	if err := j.purchaseRepo.UpdateStatus(ctx, order.OrderNo, model.PurchaseStatusDebited, model.PurchaseStatusRefunded); err != nil {
		logrus.Infof("[PurchaseReconcileJob] 订单已被其他路径处理，跳过: orderNo=%s", order.OrderNo)
		return
	}

	if _, err := j.wallet.Credit(ctx, &service.MutationRequest{
		UserID:   order.UserID,
		Actor:    model.ActorSystem,
		Delta:    order.Amount,
		Category: model.LedgerCategoryRefund,
		Remark:   fmt.Sprintf("对账自动退款-订单%s", order.OrderNo),
		RefNo:    order.OrderNo,
	}); err != nil {
		// 状态已转 REFUNDED 但钱没退到，必须告警人工介入
		logrus.Errorf("[PurchaseReconcileJob] 退款失败需人工处理: orderNo=%s, userID=%d, amount=%d, err=%v",
			order.OrderNo, order.UserID, order.Amount, err)
		return
	}

	logrus.Infof("[PurchaseReconcileJob] 对账退款成功: orderNo=%s, userID=%d, amount=%d",
		order.OrderNo, order.UserID, order.Amount)
}
