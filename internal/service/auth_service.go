package service

import (
	"context"
	"errors"
	"fmt"

	"gamemarket/internal/config"
	"gamemarket/internal/model"
	"gamemarket/internal/repository"
	"gamemarket/internal/security"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrWrongCredentials = errors.New("用户名或密码错误")
	ErrUserBanned       = errors.New("账号已被封禁")
)

type authUserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// AuthService 注册 / 登录 / 当前用户
type AuthService struct {
	users  authUserStore
	hasher *security.PasswordHasher
	tokens *security.TokenManager
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		users:  repository.NewUserRepository(db),
		hasher: security.NewPasswordHasher(),
		tokens: security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours),
	}
}

// RegisterRequest 注册参数
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=64"`
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
		Role:     model.RoleUser,
		Level:    1,
		Status:   model.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logrus.Infof("[Auth] 新用户注册: userID=%d, username=%s", user.ID, user.Username)
	return user, nil
}

// Login 校验口令并签发 token
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// 不泄露用户是否存在
			return "", nil, ErrWrongCredentials
		}
		return "", nil, err
	}
	if err := s.hasher.Compare(user.Password, password); err != nil {
		return "", nil, ErrWrongCredentials
	}
	if user.Status == model.UserStatusBanned {
		return "", nil, ErrUserBanned
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("签发token失败: %w", err)
	}
	return token, user, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}
