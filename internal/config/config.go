package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	CleanupStream string
	CleanupGroup  string
	Consumer      string
	ClaimInterval time.Duration
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type SecurityConfig struct {
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	MaxSessions      int
}

// SlotConfig holds the pipeline parameters for one upload slot. Every slot
// (logo, background, diary, ...) runs the same four-stage pipeline with a
// different preset.
type SlotConfig struct {
	Purpose           string
	MaxUploadBytes    int64
	ShortCircuitBytes int64
	MaxEncodedBytes   int64
	RetentionFraction float64
	MaxEdge           int
	Quality           float64
	Timeout           time.Duration
	CropSize          int
}

type UploadsConfig struct {
	Logo       SlotConfig
	Background SlotConfig
	Carousel   SlotConfig
	Diary      SlotConfig
	Persona    SlotConfig
	LinkIcon   SlotConfig

	OrphanRetention time.Duration
}

type InferenceConfig struct {
	Endpoint  string
	AuthToken string
	Timeout   time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Uploads          UploadsConfig
	Inference        InferenceConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("LINKBIO")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cleanupstream", "assets:cleanup")
	v.SetDefault("redis.cleanupgroup", "cleanup-workers")
	v.SetDefault("redis.consumer", "worker-1")
	v.SetDefault("redis.claiminterval", "1m")

	v.SetDefault("storage.bucket", "linkbio-assets")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "720h") // 30 days
	v.SetDefault("security.maxsessions", 10)

	slotDefaults(v, "uploads.logo", "logos", 10<<20, 800, 0.92, 0)
	slotDefaults(v, "uploads.background", "backgrounds", 10<<20, 1920, 0.90, 0)
	slotDefaults(v, "uploads.carousel", "carousel", 10<<20, 1400, 0.90, 0)
	slotDefaults(v, "uploads.diary", "private_diary", 40<<20, 1400, 0.85, 0)
	slotDefaults(v, "uploads.persona", "person-images", 40<<20, 1400, 0.85, 0)
	slotDefaults(v, "uploads.linkicon", "links", 5<<20, 800, 0.92, 400)
	v.SetDefault("uploads.orphanretention", "24h")

	v.SetDefault("inference.timeout", "60s")
}

func slotDefaults(v *viper.Viper, key, purpose string, maxUpload int64, maxEdge int, quality float64, cropSize int) {
	v.SetDefault(key+".purpose", purpose)
	v.SetDefault(key+".maxuploadbytes", maxUpload)
	v.SetDefault(key+".shortcircuitbytes", 800<<10)
	v.SetDefault(key+".maxencodedbytes", 5<<19) // 2.5 MB
	v.SetDefault(key+".retentionfraction", 0.7)
	v.SetDefault(key+".maxedge", maxEdge)
	v.SetDefault(key+".quality", quality)
	v.SetDefault(key+".timeout", "30s")
	v.SetDefault(key+".cropsize", cropSize)
}
