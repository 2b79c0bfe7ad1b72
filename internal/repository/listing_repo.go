package repository

import (
	"context"
	"errors"
	"time"

	"gamemarket/internal/model"

	"gorm.io/gorm"
)

var (
	ErrListingNotFound = errors.New("商品不存在")
	ErrOutOfStock      = errors.New("该类目暂无库存")
	ErrBidConflict     = errors.New("出价冲突，请重试")
)

type ListingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) Create(ctx context.Context, listing *model.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *ListingRepository) CreateBatch(ctx context.Context, listings []*model.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(listings).Error
}

func (r *ListingRepository) GetByID(ctx context.Context, id int64) (*model.Listing, error) {
	var listing model.Listing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// ClaimOneByCategory 从类目库存里原子认领一个账号
//
// 【关键点】没有跨行锁：先挑一个候选，再对该行做 AVAILABLE -> SOLD 的条件更新，
// RowsAffected 为 0 说明被并发买走，换下一个候选重试。
// 连续若干轮都抢不到按无库存处理
func (r *ListingRepository) ClaimOneByCategory(ctx context.Context, category string, buyerID int64) (*model.Listing, error) {
	const maxAttempts = 3

	for i := 0; i < maxAttempts; i++ {
		var candidate model.Listing
		err := r.db.WithContext(ctx).
			Where("category = ? AND sale_type = ? AND status = ?",
				category, model.SaleTypeFixed, model.ListingStatusAvailable).
			Order("id ASC").
			First(&candidate).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrOutOfStock
			}
			return nil, err
		}

		result := r.db.WithContext(ctx).
			Model(&model.Listing{}).
			Where("id = ? AND status = ?", candidate.ID, model.ListingStatusAvailable).
			Updates(map[string]interface{}{
				"status":   model.ListingStatusSold,
				"buyer_id": buyerID,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			candidate.Status = model.ListingStatusSold
			candidate.BuyerID = buyerID
			return &candidate, nil
		}
		// 被并发买走，换下一个候选
	}

	return nil, ErrOutOfStock
}

func (r *ListingRepository) ListByCategory(ctx context.Context, category string, page, pageSize int) ([]*model.Listing, int64, error) {
	var listings []*model.Listing
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("status = ?", model.ListingStatusAvailable)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&listings).Error

	return listings, total, err
}

// ============================================================
// 竞拍
// ============================================================

// SwapTopBid 换手最高出价（CAS）
// 以旧出价为条件，两个并发出价只有一个能成功
func (r *ListingRepository) SwapTopBid(ctx context.Context, listingID, oldBid, newBid, bidderID int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ? AND sale_type = ? AND status = ? AND current_bid = ?",
			listingID, model.SaleTypeAuction, model.ListingStatusAvailable, oldBid).
		Updates(map[string]interface{}{
			"current_bid":       newBid,
			"current_bidder_id": bidderID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBidConflict
	}
	return nil
}

// GetExpiredAuctions 查出已到期待结算的竞拍
func (r *ListingRepository) GetExpiredAuctions(ctx context.Context, now time.Time, limit int) ([]*model.Listing, error) {
	var listings []*model.Listing
	err := r.db.WithContext(ctx).
		Where("sale_type = ? AND status = ? AND ends_at IS NOT NULL AND ends_at < ?",
			model.SaleTypeAuction, model.ListingStatusAvailable, now).
		Limit(limit).
		Find(&listings).Error
	return listings, err
}

// SettleAuction 竞拍结算：AVAILABLE -> SOLD|EXPIRED 的条件更新
// 同时钉住读取时的最高出价，截止瞬间换手的出价不会被按旧人结算
func (r *ListingRepository) SettleAuction(ctx context.Context, listingID int64, toStatus string, bidderID, bid int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ? AND status = ? AND current_bidder_id = ? AND current_bid = ?",
			listingID, model.ListingStatusAvailable, bidderID, bid).
		Updates(map[string]interface{}{
			"status":   toStatus,
			"buyer_id": bidderID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBidConflict
	}
	return nil
}

// ============================================================
// 套餐目录
// ============================================================

func (r *ListingRepository) CreatePackage(ctx context.Context, pkg *model.AccountPackage) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *ListingRepository) GetPackageByID(ctx context.Context, id int64) (*model.AccountPackage, error) {
	var pkg model.AccountPackage
	err := r.db.WithContext(ctx).Where("id = ? AND is_enabled = ?", id, true).First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *ListingRepository) ListPackages(ctx context.Context) ([]*model.AccountPackage, error) {
	var pkgs []*model.AccountPackage
	err := r.db.WithContext(ctx).
		Where("is_enabled = ?", true).
		Order("price ASC").
		Find(&pkgs).Error
	return pkgs, err
}
