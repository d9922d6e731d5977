package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: server.port -> PLATEMARKET_SERVER_PORT.
const EnvPrefix = "PLATEMARKET"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
	Assets   AssetsConfig   `mapstructure:"assets"`
}

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	Debug     bool   `mapstructure:"debug"`
	AdminKey  string `mapstructure:"admin_key"`  // bcrypt hash of the admin key
	StaticDir string `mapstructure:"static_dir"` // optional front-end served at /
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // memory | sqlite | mysql | none
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type GameConfig struct {
	StartMoney          int64         `mapstructure:"start_money"`
	LootBoxCost         int64         `mapstructure:"loot_box_cost"`
	LootBoxDelay        time.Duration `mapstructure:"loot_box_delay"`
	FreeBoxDuration     time.Duration `mapstructure:"free_box_duration"`
	BannerDuration      time.Duration `mapstructure:"banner_duration"`
	NewsInterval        time.Duration `mapstructure:"news_interval"`
	// EventChance is the daily market event probability. Nil keeps the
	// default; zero turns events off.
	EventChance         *float64      `mapstructure:"event_chance"`
	ShowcaseCapacity    int           `mapstructure:"showcase_capacity"`
	GarageMinReputation int           `mapstructure:"garage_min_reputation"`
	AuctionPoolSize     int           `mapstructure:"auction_pool_size"`
	SessionTTL          time.Duration `mapstructure:"session_ttl"`
	SessionGCInterval   time.Duration `mapstructure:"session_gc_interval"`
	NotificationHistory int           `mapstructure:"notification_history"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the WebSocket/SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// AdminWhitelist restricts admin routes to these IPs/CIDRs when set.
	AdminWhitelist []string `mapstructure:"admin_whitelist"`
}

type AssetsConfig struct {
	CatalogPath string `mapstructure:"catalog_path"` // empty uses the embedded catalog
}

// Load reads config from the given YAML file path. A missing file is not an
// error: defaults and PLATEMARKET_* environment variables (including those
// from an optional .env file) still apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.admin_key", "")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("database.mode", "memory")
	v.SetDefault("database.sqlite_path", "./data/ledger.db")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("game.start_money", 50000)
	v.SetDefault("game.loot_box_cost", 5000)
	v.SetDefault("game.loot_box_delay", "2s")
	v.SetDefault("game.free_box_duration", "60s")
	v.SetDefault("game.banner_duration", "10s")
	v.SetDefault("game.news_interval", "8s")
	v.SetDefault("game.event_chance", 0.3)
	v.SetDefault("game.showcase_capacity", 6)
	v.SetDefault("game.garage_min_reputation", 10)
	v.SetDefault("game.auction_pool_size", 3)
	v.SetDefault("game.session_ttl", "24h")
	v.SetDefault("game.session_gc_interval", "5m")
	v.SetDefault("game.notification_history", 20)
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_ttl", "24h")
	v.SetDefault("security.rate_limit_rps", 20)
	v.SetDefault("security.rate_limit_burst", 40)
	v.SetDefault("security.allowed_origins", []string{})
	v.SetDefault("security.admin_whitelist", []string{})
	v.SetDefault("assets.catalog_path", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
