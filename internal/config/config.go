package config

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Card     CardConfig     `mapstructure:"card"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	CoinEvent   string `mapstructure:"coin_event"`
	MarketEvent string `mapstructure:"market_event"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// CardConfig 充值卡渠道配置
type CardConfig struct {
	PartnerID    string `mapstructure:"partner_id"`
	PartnerKey   string `mapstructure:"partner_key"`
	DiscountRate int64  `mapstructure:"discount_rate"` // 到账比例（百分数），如 70 表示按面值 70% 折算金币
}

type BusinessConfig struct {
	MaxRetryCount          int   `mapstructure:"max_retry_count"`            // Outbox 消息最大重试次数
	ReconcileAfterMinutes  int   `mapstructure:"reconcile_after_minutes"`    // 已扣款未发货订单多久后自动退款
	LedgerRetentionDays    int   `mapstructure:"ledger_retention_days"`      // 流水保留天数
	RateLimitPerMinute     int   `mapstructure:"rate_limit_per_minute"`      // 普通接口限流
	GameRateLimitPerMinute int   `mapstructure:"game_rate_limit_per_minute"` // 游戏接口限流
	GameMaxWager           int64 `mapstructure:"game_max_wager"`             // 单局最大下注
	AuctionMinIncrement    int64 `mapstructure:"auction_min_increment"`      // 竞拍最小加价
	UploadBatchSize        int   `mapstructure:"upload_batch_size"`          // 批量上架单次入库条数
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		logrus.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		logrus.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
