package database

import (
	"fmt"
	"time"

	"gamemarket/internal/config"
	"gamemarket/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 连接
func InitMySQL(cfg *config.MySQLConfig) *gorm.DB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// 把驱动的唯一键冲突翻译成 gorm.ErrDuplicatedKey，幂等标记落库依赖它裁决
		TranslateError: true,
	})
	if err != nil {
		logrus.Fatalf("连接 MySQL 失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logrus.Fatalf("获取底层 DB 失败: %v", err)
	}

	// 连接池配置
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	err = db.AutoMigrate(
		&model.User{},
		&model.LedgerEvent{},
		&model.CheckinRecord{},
		&model.Mission{},
		&model.MissionAttempt{},
		&model.GiftToken{},
		&model.GiftRedemption{},
		&model.CardOrder{},
		&model.PurchaseOrder{},
		&model.Listing{},
		&model.AccountPackage{},
		&model.GameRound{},
		&model.OutboxMessage{},
		&model.UploadJob{},
	)
	if err != nil {
		logrus.Fatalf("自动迁移表结构失败: %v", err)
	}

	DB = db
	logrus.Println("MySQL 连接成功")
	return db
}
