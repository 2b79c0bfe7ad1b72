package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("令牌无效或已过期")

// TokenManager 签发和校验访问令牌
type TokenManager struct {
	secret []byte
	expire time.Duration
}

func NewTokenManager(secret string, expireHours int) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		expire: time.Duration(expireHours) * time.Hour,
	}
}

// Generate 签发访问令牌，sub 为用户ID，role 用于管理端鉴权
func (m *TokenManager) Generate(userID int64, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", userID),
		"role": role,
		"exp":  time.Now().Add(m.expire).Unix(),
		"iat":  time.Now().Unix(),
	})
	return token.SignedString(m.secret)
}

// Validate 校验令牌，返回用户ID和角色
func (m *TokenManager) Validate(tokenStr string) (int64, string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, "", ErrInvalidToken
	}

	var userID int64
	if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil || userID <= 0 {
		return 0, "", ErrInvalidToken
	}

	role, _ := claims["role"].(string)
	return userID, role, nil
}
