package handler

import (
	"gamemarket/internal/config"
	"gamemarket/internal/infrastructure/ratelimit"
	"gamemarket/internal/security"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)
	tokens := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	limiter := ratelimit.NewRedisStore(rdb)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 认证相关（无需登录）
		auth := api.Group("/auth")
		auth.Use(RateLimitMiddleware(limiter, cfg.Business.RateLimitPerMinute))
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
		}
		api.GET("/auth/me", JWTAuthMiddleware(tokens), h.Me)

		// 渠道回调（公开接口，靠签名鉴权）
		api.POST("/card/callback", h.CardCallback)

		// 以下全部需要登录
		authed := api.Group("")
		authed.Use(JWTAuthMiddleware(tokens))
		authed.Use(RateLimitMiddleware(limiter, cfg.Business.RateLimitPerMinute))
		{
			// 钱包相关
			wallet := authed.Group("/wallet")
			{
				wallet.GET("/balance", h.GetBalance)
				wallet.GET("/ledger", h.ListLedger)
			}

			// 签到相关
			authed.GET("/checkin/status", h.CheckinStatus)
			authed.POST("/checkin", h.Checkin)

			// 任务相关
			missions := authed.Group("/missions")
			{
				missions.GET("", h.ListMissions)
				missions.POST("/start", h.StartMission)
				missions.POST("/verify", h.VerifyMission)
			}

			// 礼品码相关
			authed.POST("/gift/redeem", h.RedeemGift)

			// 充值卡相关
			card := authed.Group("/card")
			{
				card.POST("/recharge", h.SubmitCard)
				card.GET("/orders", h.ListCardOrders)
			}

			// 商城相关
			market := authed.Group("/market")
			{
				market.GET("/packages", h.ListPackages)
				market.GET("/listings", h.BrowseListings)
				market.POST("/purchase", h.Purchase)
				market.POST("/bid", h.PlaceBid)
				market.GET("/orders", h.ListPurchaseOrders)
				market.GET("/orders/:orderNo", h.GetPurchaseOrder)
			}
		}

		// 小游戏单独限流
		game := api.Group("/game")
		game.Use(JWTAuthMiddleware(tokens))
		game.Use(RateLimitMiddleware(limiter, cfg.Business.GameRateLimitPerMinute))
		{
			game.POST("/taixiu", h.PlayTaixiu)
			game.GET("/history", h.GameHistory)
		}

		// 管理后台
		admin := api.Group("/admin")
		admin.Use(JWTAuthMiddleware(tokens))
		admin.Use(AdminOnlyMiddleware())
		{
			admin.POST("/coins/adjust", h.AdminAdjustCoins)
			admin.GET("/users", h.AdminListUsers)
			admin.POST("/users/:id/ban", h.AdminBanUser)
			admin.POST("/users/:id/unban", h.AdminUnbanUser)
			admin.POST("/packages", h.AdminCreatePackage)
			admin.POST("/auctions", h.AdminCreateAuction)
			admin.POST("/missions", h.AdminCreateMission)
			admin.POST("/gift/tokens", h.AdminCreateGiftToken)
			admin.POST("/listings/upload", h.AdminUploadListings)
			admin.GET("/listings/upload/:jobNo", h.AdminGetUploadJob)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
