package model

import (
	"time"
)

const (
	SaleTypeFixed   = "FIXED"
	SaleTypeAuction = "AUCTION"
)

const (
	ListingStatusAvailable = "AVAILABLE"
	ListingStatusSold      = "SOLD"
	ListingStatusExpired   = "EXPIRED" // 竞拍流拍
)

// Listing 游戏账号商品
// 一口价账号按 Category 归入库存池，由 packageId 购买时原子认领；
// 竞拍账号单独展示，按 current_bid 的 CAS 换手
type Listing struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Category   string    `gorm:"type:varchar(32);index:idx_cat_status;not null" json:"category"`
	SaleType   string    `gorm:"type:varchar(16);not null;default:FIXED" json:"sale_type"`
	Status     string    `gorm:"type:varchar(16);index:idx_cat_status;not null;default:AVAILABLE" json:"status"`
	Username   string    `gorm:"type:varchar(128);not null" json:"-"` // 游戏账号凭据，仅发货后对买家可见
	Password   string    `gorm:"type:varchar(128);not null" json:"-"`
	Server     string    `gorm:"type:varchar(32)" json:"server"`
	Level      int       `gorm:"not null;default:0" json:"level"`
	Skins      int       `gorm:"not null;default:0" json:"skins"`
	Price      int64     `gorm:"not null;default:0" json:"price"` // 一口价
	Extra      string    `gorm:"type:varchar(512)" json:"extra"`  // 批量导入时未识别的描述片段
	BuyerID    int64     `gorm:"not null;default:0" json:"buyer_id"`

	// 竞拍字段
	MinPrice        int64      `gorm:"not null;default:0" json:"min_price"`
	CurrentBid      int64      `gorm:"not null;default:0" json:"current_bid"`
	CurrentBidderID int64      `gorm:"not null;default:0" json:"current_bidder_id"`
	EndsAt          *time.Time `gorm:"index" json:"ends_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Listing) TableName() string {
	return "listing"
}

// AccountPackage 可购买的账号套餐（价格目录）
// 购买请求只带 package_id，价格和库存类目由服务端解析，防止改价
type AccountPackage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(64);not null" json:"name"`
	Category  string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"category"`
	Price     int64     `gorm:"not null" json:"price"`
	IsEnabled bool      `gorm:"not null;default:true" json:"is_enabled"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AccountPackage) TableName() string {
	return "account_package"
}
