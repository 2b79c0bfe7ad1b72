package handler

import (
	"fmt"
	"strings"
	"time"

	"gamemarket/internal/infrastructure/ratelimit"
	"gamemarket/internal/model"
	"gamemarket/internal/security"
	"gamemarket/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ctxKeyUserID = "userID"
	ctxKeyRole   = "role"
)

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		logrus.Infof("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logrus.Errorf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// JWTAuthMiddleware 解析 Bearer token，把 userID 和 role 放进上下文
func JWTAuthMiddleware(tokens *security.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenStr == "" {
			response.Error(c, response.CodeUnauthorized, "未登录")
			c.Abort()
			return
		}

		userID, role, err := tokens.Validate(tokenStr)
		if err != nil {
			response.Error(c, response.CodeUnauthorized, "登录已失效")
			c.Abort()
			return
		}

		c.Set(ctxKeyUserID, userID)
		c.Set(ctxKeyRole, role)
		c.Next()
	}
}

// AdminOnlyMiddleware 仅放行管理员，必须挂在 JWTAuthMiddleware 之后
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxKeyRole) != model.RoleAdmin {
			response.Error(c, response.CodeForbidden, "无权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware 按客户端维度限流，每分钟 limit 次
// 已登录按 userID 计数，未登录按 IP 计数
func RateLimitMiddleware(store ratelimit.Store, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var key string
		if userID := c.GetInt64(ctxKeyUserID); userID > 0 {
			key = fmt.Sprintf("ratelimit:user:%d:%s", userID, c.FullPath())
		} else {
			key = fmt.Sprintf("ratelimit:ip:%s:%s", c.ClientIP(), c.FullPath())
		}

		count, err := store.Incr(c.Request.Context(), key, time.Minute)
		if err != nil {
			// 限流器故障时放行，不让 redis 故障放大成全站不可用
			logrus.Warnf("[RateLimit] 计数失败: key=%s, err=%v", key, err)
			c.Next()
			return
		}
		if count > int64(limit) {
			response.Error(c, response.CodeTooMany, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}
