package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"storefront/internal/domain/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DatabaseURL      string // あれば最優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string
	DBMaxOpenConns   int

	JWTSecret string // JWT署名シークレット（管理者トークン検証用）

	Locations              []model.Location // 物理ロケーション（online以外）
	DefaultRestoreLocation model.Location   // 戻し先が見つからない時に作る場所

	RecalcMaxAttempts  int           // onlineフラグ再計算のリトライ回数
	RecalcRetryBackoff time.Duration // リトライ間隔（回数倍）

	RedisAddr    string   // 空なら在庫フラグのキャッシュなし
	KafkaBrokers []string // 空ならイベント配信なし
	KafkaTopic   string

	LogLevel string
}

// Loadは .env → 環境変数 の順で読む
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", "dev")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "postgres")
	v.SetDefault("POSTGRES_DB", "app")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("STOCK_LOCATIONS", "monastir,tunis,sfax")
	v.SetDefault("RECALC_MAX_ATTEMPTS", 3)
	v.SetDefault("RECALC_RETRY_BACKOFF", "100ms")
	v.SetDefault("KAFKA_TOPIC", "order.status_changed")
	v.SetDefault("LOG_LEVEL", "info")
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:  strings.TrimPrefix(v.GetString("PORT"), ":"),
		GoEnv: v.GetString("GO_ENV"),

		DatabaseURL:      v.GetString("DATABASE_URL"),
		PostgresUser:     v.GetString("POSTGRES_USER"),
		PostgresPassword: v.GetString("POSTGRES_PASSWORD"),
		PostgresDB:       v.GetString("POSTGRES_DB"),
		PostgresHost:     v.GetString("POSTGRES_HOST"),
		PostgresPort:     v.GetInt("POSTGRES_PORT"),
		PostgresSSLMode:  v.GetString("POSTGRES_SSLMODE"),
		DBMaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),

		JWTSecret: v.GetString("JWT_SECRET"),

		RecalcMaxAttempts:  v.GetInt("RECALC_MAX_ATTEMPTS"),
		RecalcRetryBackoff: v.GetDuration("RECALC_RETRY_BACKOFF"),

		RedisAddr:    v.GetString("REDIS_ADDR"),
		KafkaBrokers: splitCSV(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),

		LogLevel: v.GetString("LOG_LEVEL"),
	}

	locations, err := parseLocations(v.GetString("STOCK_LOCATIONS"))
	if err != nil {
		return Config{}, err
	}
	cfg.Locations = locations

	cfg.DefaultRestoreLocation = locations[0]
	if d := strings.TrimSpace(v.GetString("DEFAULT_RESTORE_LOCATION")); d != "" {
		cfg.DefaultRestoreLocation = model.Location(strings.ToLower(d))
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.DatabaseURL == "" && cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("DATABASE_URL or POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.RecalcMaxAttempts < 1 {
		return Config{}, fmt.Errorf("RECALC_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.RecalcRetryBackoff < 0 {
		return Config{}, fmt.Errorf("RECALC_RETRY_BACKOFF must be >= 0")
	}
	if !containsLocation(cfg.Locations, cfg.DefaultRestoreLocation) {
		return Config{}, fmt.Errorf("DEFAULT_RESTORE_LOCATION %q is not in STOCK_LOCATIONS", cfg.DefaultRestoreLocation)
	}

	return cfg, nil
}

// DSN は DATABASE_URL がなければ POSTGRES_* から組み立てる
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func parseLocations(raw string) ([]model.Location, error) {
	parts := splitCSV(raw)
	if len(parts) == 0 {
		return nil, fmt.Errorf("STOCK_LOCATIONS is required")
	}

	seen := make(map[string]bool, len(parts))
	out := make([]model.Location, 0, len(parts))
	for _, p := range parts {
		loc := model.Location(strings.ToLower(p))
		if loc.IsOnline() {
			return nil, fmt.Errorf("STOCK_LOCATIONS must not contain %q", model.LocationOnline)
		}
		if seen[string(loc)] {
			return nil, fmt.Errorf("STOCK_LOCATIONS has duplicate %q", loc)
		}
		seen[string(loc)] = true
		out = append(out, loc)
	}
	return out, nil
}

func containsLocation(locs []model.Location, l model.Location) bool {
	for _, x := range locs {
		if x == l {
			return true
		}
	}
	return false
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
