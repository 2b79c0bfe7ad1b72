package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrZeroAdjust = errors.New("调整金额不能为零")

type adminUserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	UpdateStatus(ctx context.Context, userID int64, status string) error
	List(ctx context.Context, page, pageSize int) ([]*model.User, int64, error)
}

type packageStore interface {
	CreatePackage(ctx context.Context, pkg *model.AccountPackage) error
	Create(ctx context.Context, listing *model.Listing) error
}

// AdminService 管理后台：人工调账、封禁、上架目录维护
type AdminService struct {
	users    adminUserStore
	listings packageStore
	wallet   coinWallet
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{
		users:    repository.NewUserRepository(db),
		listings: repository.NewListingRepository(db),
		wallet:   NewWalletService(db),
	}
}

// AdjustCoins 人工调账，正数加币负数扣币
// 扣币同样受余额下限保护，不允许把用户扣成负数
func (s *AdminService) AdjustCoins(ctx context.Context, adminName string, userID, delta int64, reason string) (int64, error) {
	if delta == 0 {
		return 0, ErrZeroAdjust
	}
	balance, err := s.wallet.Apply(ctx, &MutationRequest{
		UserID:   userID,
		Actor:    adminName,
		Delta:    delta,
		Category: model.LedgerCategoryAdmin,
		Remark:   fmt.Sprintf("管理员调账-%s", reason),
	})
	if err != nil {
		return 0, err
	}
	logrus.Infof("[Admin] 调账完成: admin=%s, userID=%d, delta=%d, balance=%d, reason=%s",
		adminName, userID, delta, balance, reason)
	return balance, nil
}

func (s *AdminService) BanUser(ctx context.Context, adminName string, userID int64) error {
	if err := s.users.UpdateStatus(ctx, userID, model.UserStatusBanned); err != nil {
		return err
	}
	logrus.Infof("[Admin] 用户已封禁: admin=%s, userID=%d", adminName, userID)
	return nil
}

func (s *AdminService) UnbanUser(ctx context.Context, adminName string, userID int64) error {
	if err := s.users.UpdateStatus(ctx, userID, model.UserStatusActive); err != nil {
		return err
	}
	logrus.Infof("[Admin] 用户已解封: admin=%s, userID=%d", adminName, userID)
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context, page, pageSize int) ([]*model.User, int64, error) {
	return s.users.List(ctx, page, pageSize)
}

// CreatePackageRequest 新建账号套餐
type CreatePackageRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required"`
	Price    int64  `json:"price" binding:"required,gt=0"`
}

func (s *AdminService) CreatePackage(ctx context.Context, req *CreatePackageRequest) (*model.AccountPackage, error) {
	pkg := &model.AccountPackage{
		Name:      req.Name,
		Category:  req.Category,
		Price:     req.Price,
		IsEnabled: true,
	}
	if err := s.listings.CreatePackage(ctx, pkg); err != nil {
		return nil, fmt.Errorf("创建套餐失败: %w", err)
	}
	return pkg, nil
}

// CreateAuctionRequest 上架单个竞拍账号
type CreateAuctionRequest struct {
	Category      string `json:"category" binding:"required"`
	Username      string `json:"username" binding:"required"`
	Password      string `json:"password" binding:"required"`
	Server        string `json:"server"`
	Level         int    `json:"level"`
	Skins         int    `json:"skins"`
	MinPrice      int64  `json:"min_price" binding:"required,gt=0"`
	DurationHours int    `json:"duration_hours" binding:"required,gt=0"`
}

func (s *AdminService) CreateAuction(ctx context.Context, req *CreateAuctionRequest) (*model.Listing, error) {
	endsAt := time.Now().Add(time.Duration(req.DurationHours) * time.Hour)
	listing := &model.Listing{
		Category: req.Category,
		SaleType: model.SaleTypeAuction,
		Status:   model.ListingStatusAvailable,
		Username: req.Username,
		Password: req.Password,
		Server:   req.Server,
		Level:    req.Level,
		Skins:    req.Skins,
		MinPrice: req.MinPrice,
		EndsAt:   &endsAt,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("上架竞拍账号失败: %w", err)
	}
	logrus.Infof("[Admin] 竞拍账号已上架: listingID=%d, minPrice=%d, endsAt=%s",
		listing.ID, req.MinPrice, endsAt.Format(time.RFC3339))
	return listing, nil
}
