package handler

import (
	"errors"
	"strconv"
	"time"

	"gamemarket/internal/config"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"
	"gamemarket/internal/service"
	"gamemarket/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	authService    *service.AuthService
	walletService  *service.WalletService
	checkinService *service.CheckinService
	missionService *service.MissionService
	giftService    *service.GiftService
	cardService    *service.CardService
	gameService    *service.GameService
	marketService  *service.MarketService
	adminService   *service.AdminService
	uploadService  *service.UploadService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		authService:    service.NewAuthService(db, cfg),
		walletService:  service.NewWalletService(db),
		checkinService: service.NewCheckinService(db),
		missionService: service.NewMissionService(db),
		giftService:    service.NewGiftService(db),
		cardService:    service.NewCardService(db, cfg),
		gameService:    service.NewGameService(db, cfg),
		marketService:  service.NewMarketService(db, rdb, cfg),
		adminService:   service.NewAdminService(db),
		uploadService:  service.NewUploadService(db, cfg),
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxKeyUserID)
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// ============================================================
// 认证相关接口
// ============================================================

// Register 用户注册
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, user)
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongCredentials):
			response.Error(c, response.CodeUnauthorized, err.Error())
		case errors.Is(err, service.ErrUserBanned):
			response.BusinessError(c, response.CodeUserBanned, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{
		"token": token,
		"user":  user,
	})
}

// Me 当前用户信息
// GET /api/v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	user, err := h.authService.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, user)
}

// ============================================================
// 钱包相关接口
// ============================================================

// GetBalance 查询余额
// GET /api/v1/wallet/balance
func (h *Handler) GetBalance(c *gin.Context) {
	balance, err := h.walletService.GetBalance(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"coins": balance})
}

// ListLedger 查询流水
// GET /api/v1/wallet/ledger
func (h *Handler) ListLedger(c *gin.Context) {
	page, pageSize := pageParams(c)
	events, total, err := h.walletService.ListLedger(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"list":  events,
		"total": total,
	})
}

// ============================================================
// 签到相关接口
// ============================================================

// CheckinStatus 签到状态
// GET /api/v1/checkin/status
func (h *Handler) CheckinStatus(c *gin.Context) {
	status, err := h.checkinService.Status(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, status)
}

// Checkin 每日签到
// POST /api/v1/checkin
func (h *Handler) Checkin(c *gin.Context) {
	record, balance, err := h.checkinService.Claim(c.Request.Context(), currentUserID(c), c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyCheckedIn):
			response.BusinessError(c, response.CodeAlreadyClaimed, err.Error())
		case errors.Is(err, service.ErrCheckinNotReady):
			response.BusinessError(c, response.CodeCheckinNotReady, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{
		"amount":  record.Amount,
		"streak":  record.Streak,
		"balance": balance,
	})
}

// ============================================================
// 任务相关接口
// ============================================================

// ListMissions 任务列表
// GET /api/v1/missions
func (h *Handler) ListMissions(c *gin.Context) {
	missions, err := h.missionService.List(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, missions)
}

// MissionRequest 任务开始/验证请求
type MissionRequest struct {
	MissionID int64  `json:"mission_id" binding:"required"`
	Code      string `json:"code"`
}

// StartMission 开始任务
// POST /api/v1/missions/start
func (h *Handler) StartMission(c *gin.Context) {
	var req MissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	attempt, err := h.missionService.Start(c.Request.Context(), currentUserID(c), req.MissionID, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissionClaimed):
			response.BusinessError(c, response.CodeAlreadyClaimed, err.Error())
		case errors.Is(err, service.ErrMissionDisabled), errors.Is(err, repository.ErrMissionNotFound):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}
	response.Success(c, attempt)
}

// VerifyMission 验证并领取任务奖励
// POST /api/v1/missions/verify
func (h *Handler) VerifyMission(c *gin.Context) {
	var req MissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	balance, err := h.missionService.Verify(c.Request.Context(), currentUserID(c), req.MissionID, req.Code, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongCode):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrMissionClaimed), errors.Is(err, repository.ErrAttemptExists):
			response.BusinessError(c, response.CodeAlreadyClaimed, err.Error())
		case errors.Is(err, service.ErrMissionDisabled), errors.Is(err, repository.ErrMissionNotFound),
			errors.Is(err, repository.ErrAttemptNotStarted):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

// ============================================================
// 礼品码相关接口
// ============================================================

// RedeemRequest 礼品码兑换请求
type RedeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// RedeemGift 兑换礼品码
// POST /api/v1/gift/redeem
func (h *Handler) RedeemGift(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	balance, err := h.giftService.Redeem(c.Request.Context(), currentUserID(c), req.Code, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRedeemed):
			response.BusinessError(c, response.CodeAlreadyClaimed, err.Error())
		case errors.Is(err, repository.ErrTokenExhausted):
			response.BusinessError(c, response.CodeTokenExhausted, err.Error())
		case errors.Is(err, repository.ErrTokenNotFound),
			errors.Is(err, service.ErrTokenDisabled), errors.Is(err, service.ErrTokenExpired):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

// ============================================================
// 充值卡相关接口
// ============================================================

// SubmitCard 提交充值卡
// POST /api/v1/card/recharge
func (h *Handler) SubmitCard(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.cardService.Submit(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, order)
}

// CardCallback 渠道回调（公开接口，靠签名鉴权）
// POST /api/v1/card/callback
func (h *Handler) CardCallback(c *gin.Context) {
	var req service.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.cardService.HandleCallback(c.Request.Context(), &req); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			response.BusinessError(c, response.CodeInvalidSignature, err.Error())
		case errors.Is(err, repository.ErrCardOrderNotFound):
			response.Error(c, response.CodeNotFound, err.Error())
		case errors.Is(err, repository.ErrCardOrderStatusInvalid):
			// 重复回调，返回成功让渠道停止重推
			response.Success(c, gin.H{"message": "已处理"})
		default:
			response.ServerError(c, err.Error())
		}
		return
	}
	response.Success(c, gin.H{"message": "处理成功"})
}

// ListCardOrders 充值卡订单列表
// GET /api/v1/card/orders
func (h *Handler) ListCardOrders(c *gin.Context) {
	page, pageSize := pageParams(c)
	orders, total, err := h.cardService.ListByUser(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"list":  orders,
		"total": total,
	})
}

// ============================================================
// 小游戏相关接口
// ============================================================

// PlayRequest 压大小请求
type PlayRequest struct {
	Choice string `json:"choice" binding:"required"`
	Wager  int64  `json:"wager" binding:"required,gt=0"`
}

// PlayTaixiu 压大小
// POST /api/v1/game/taixiu
func (h *Handler) PlayTaixiu(c *gin.Context) {
	var req PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	round, err := h.gameService.Play(c.Request.Context(), currentUserID(c), req.Choice, req.Wager)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientCoins):
			response.BusinessError(c, response.CodeInsufficientCoins, err.Error())
		case errors.Is(err, service.ErrInvalidChoice), errors.Is(err, service.ErrInvalidWager):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}
	response.Success(c, round)
}

// GameHistory 对局历史
// GET /api/v1/game/history
func (h *Handler) GameHistory(c *gin.Context) {
	page, pageSize := pageParams(c)
	rounds, total, err := h.gameService.History(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"list":  rounds,
		"total": total,
	})
}

// ============================================================
// 商城相关接口
// ============================================================

// ListPackages 套餐目录
// GET /api/v1/market/packages
func (h *Handler) ListPackages(c *gin.Context) {
	packages, err := h.marketService.ListPackages(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, packages)
}

// BrowseListings 在售商品
// GET /api/v1/market/listings?category=xxx
func (h *Handler) BrowseListings(c *gin.Context) {
	page, pageSize := pageParams(c)
	listings, total, err := h.marketService.BrowseListings(c.Request.Context(), c.Query("category"), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"list":  listings,
		"total": total,
	})
}

// PurchaseRequest 购买请求
type PurchaseRequest struct {
	PackageID int64  `json:"package_id" binding:"required"`
	RequestID string `json:"request_id" binding:"required"` // 幂等ID
}

// Purchase 购买账号
// POST /api/v1/market/purchase
func (h *Handler) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.marketService.Purchase(c.Request.Context(), currentUserID(c), req.PackageID, req.RequestID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientCoins):
			response.BusinessError(c, response.CodeInsufficientCoins, err.Error())
		case errors.Is(err, repository.ErrOutOfStock):
			response.BusinessError(c, response.CodeOutOfStock, err.Error())
		case errors.Is(err, service.ErrPackageDisabled), errors.Is(err, repository.ErrListingNotFound):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrTooManyRequests):
			response.Error(c, response.CodeTooMany, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}
	response.Success(c, order)
}

// BidRequest 竞拍出价请求
type BidRequest struct {
	ListingID int64 `json:"listing_id" binding:"required"`
	Amount    int64 `json:"amount" binding:"required,gt=0"`
}

// PlaceBid 竞拍出价
// POST /api/v1/market/bid
func (h *Handler) PlaceBid(c *gin.Context) {
	var req BidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	listing, err := h.marketService.PlaceBid(c.Request.Context(), currentUserID(c), req.ListingID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientCoins):
			response.BusinessError(c, response.CodeInsufficientCoins, err.Error())
		case errors.Is(err, service.ErrBidTooLow), errors.Is(err, repository.ErrBidConflict):
			response.BusinessError(c, response.CodeBidTooLow, err.Error())
		case errors.Is(err, service.ErrNotAuction), errors.Is(err, service.ErrAuctionEnded),
			errors.Is(err, service.ErrSelfOutbid), errors.Is(err, repository.ErrListingNotFound):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrTooManyRequests):
			response.Error(c, response.CodeTooMany, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}
	response.Success(c, listing)
}

// GetPurchaseOrder 查询购买订单
// GET /api/v1/market/orders/:orderNo
func (h *Handler) GetPurchaseOrder(c *gin.Context) {
	order, err := h.marketService.GetOrder(c.Request.Context(), currentUserID(c), c.Param("orderNo"))
	if err != nil {
		if errors.Is(err, repository.ErrPurchaseNotFound) {
			response.Error(c, response.CodeNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, order)
}

// ListPurchaseOrders 购买订单列表
// GET /api/v1/market/orders
func (h *Handler) ListPurchaseOrders(c *gin.Context) {
	page, pageSize := pageParams(c)
	orders, total, err := h.marketService.ListOrders(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"list":  orders,
		"total": total,
	})
}

// ============================================================
// 管理后台接口
// ============================================================

// AdjustCoinsRequest 管理员调账请求
type AdjustCoinsRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// AdminAdjustCoins 管理员调账
// POST /api/v1/admin/coins/adjust
func (h *Handler) AdminAdjustCoins(c *gin.Context) {
	var req AdjustCoinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	adminName := strconv.FormatInt(currentUserID(c), 10)
	balance, err := h.adminService.AdjustCoins(c.Request.Context(), adminName, req.UserID, req.Amount, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientCoins):
			response.BusinessError(c, response.CodeInsufficientCoins, err.Error())
		case errors.Is(err, repository.ErrUserNotFound):
			response.Error(c, response.CodeNotFound, err.Error())
		case errors.Is(err, service.ErrZeroAdjust):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

// AdminListUsers 用户列表
// GET /api/v1/admin/users
func (h *Handler) AdminListUsers(c *gin.Context) {
	page, pageSize := pageParams(c)
	users, total, err := h.adminService.ListUsers(c.Request.Context(), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"list":  users,
		"total": total,
	})
}

// AdminBanUser 封禁用户
// POST /api/v1/admin/users/:id/ban
func (h *Handler) AdminBanUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id 参数错误")
		return
	}

	adminName := strconv.FormatInt(currentUserID(c), 10)
	if err := h.adminService.BanUser(c.Request.Context(), adminName, userID); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "已封禁"})
}

// AdminUnbanUser 解封用户
// POST /api/v1/admin/users/:id/unban
func (h *Handler) AdminUnbanUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id 参数错误")
		return
	}

	adminName := strconv.FormatInt(currentUserID(c), 10)
	if err := h.adminService.UnbanUser(c.Request.Context(), adminName, userID); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "已解封"})
}

// AdminCreatePackage 新建账号套餐
// POST /api/v1/admin/packages
func (h *Handler) AdminCreatePackage(c *gin.Context) {
	var req service.CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	pkg, err := h.adminService.CreatePackage(c.Request.Context(), &req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, pkg)
}

// AdminCreateAuction 上架竞拍账号
// POST /api/v1/admin/auctions
func (h *Handler) AdminCreateAuction(c *gin.Context) {
	var req service.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	listing, err := h.adminService.CreateAuction(c.Request.Context(), &req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, listing)
}

// CreateMissionRequest 新建任务请求
type CreateMissionRequest struct {
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	Provider         string `json:"provider"`
	ProviderURL      string `json:"provider_url"`
	Code             string `json:"code"`
	CoinReward       int64  `json:"coin_reward" binding:"required,gt=0"`
	ExpReward        int64  `json:"exp_reward"`
	SingleUsePerUser bool   `json:"single_use_per_user"`
}

// AdminCreateMission 新建任务
// POST /api/v1/admin/missions
func (h *Handler) AdminCreateMission(c *gin.Context) {
	var req CreateMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	mission := &model.Mission{
		Name:             req.Name,
		Description:      req.Description,
		Provider:         req.Provider,
		ProviderURL:      req.ProviderURL,
		Code:             req.Code,
		CoinReward:       req.CoinReward,
		ExpReward:        req.ExpReward,
		SingleUsePerUser: req.SingleUsePerUser,
		IsEnabled:        true,
	}
	if err := h.missionService.CreateMission(c.Request.Context(), mission); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, mission)
}

// CreateTokenRequest 新建礼品码请求
type CreateTokenRequest struct {
	Code        string `json:"code"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	MaxUses     int    `json:"max_uses"`
	ExpireHours int    `json:"expire_hours" binding:"required,gt=0"`
}

// AdminCreateGiftToken 新建礼品码
// POST /api/v1/admin/gift/tokens
func (h *Handler) AdminCreateGiftToken(c *gin.Context) {
	var req CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	expiresAt := time.Now().Add(time.Duration(req.ExpireHours) * time.Hour)
	token, err := h.giftService.CreateToken(c.Request.Context(), req.Code, req.Amount, req.MaxUses, expiresAt)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, token)
}

// UploadListingsRequest 批量上架请求
type UploadListingsRequest struct {
	Category string `json:"category" binding:"required"`
	Payload  string `json:"payload" binding:"required"` // 一行一个账号
}

// AdminUploadListings 批量上架
// POST /api/v1/admin/listings/upload
func (h *Handler) AdminUploadListings(c *gin.Context) {
	var req UploadListingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	job, err := h.uploadService.Submit(c.Request.Context(), currentUserID(c), req.Category, req.Payload)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"job_no": job.JobNo,
		"status": job.Status,
	})
}

// AdminGetUploadJob 查询上架任务
// GET /api/v1/admin/listings/upload/:jobNo
func (h *Handler) AdminGetUploadJob(c *gin.Context) {
	job, err := h.uploadService.GetJob(c.Request.Context(), c.Param("jobNo"))
	if err != nil {
		if errors.Is(err, repository.ErrUploadJobNotFound) {
			response.Error(c, response.CodeNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, job)
}
