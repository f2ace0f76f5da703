package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string // サーバーポート（8080）
	LogLevel string // debug/info/warn/error

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	Billplz Billplz

	FrontendSuccessURL string // 決済後の戻り先。/{order_number}?payment=... を付ける
	FrontendErrorURL   string // 注文が見つからない等

	AppURL         string        // 追跡リンクのベースURL
	TrackingSecret string        // 追跡リンクの署名シークレット
	TrackingTTL    time.Duration // 追跡リンクの有効期限（30分）

	KafkaBrokers []string // 空ならイベントは送らない
	KafkaTopic   string

	RedisAddr string // 空ならメモリでthrottle

	N8NOutboundWebhookURL string // AIメッセージの転送先

	Location *time.Location // 注文番号の日付の基準
}

type Billplz struct {
	APIKey        string
	CollectionID  string
	XSignatureKey string // 空なら署名検証しない
	Sandbox       bool
	CallbackURL   string
	RedirectURL   string
	Timeout       time.Duration
}

func (b Billplz) BaseURL() string {
	if b.Sandbox {
		return "https://www.billplz-sandbox.com/api"
	}
	return "https://www.billplz.com/api"
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	sandbox, err := boolDefault("BILLPLZ_SANDBOX", true)
	if err != nil {
		return Config{}, err
	}
	billplzTimeout, err := durationDefault("BILLPLZ_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	trackingTTL, err := durationDefault("TRACKING_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	loc, err := time.LoadLocation(getenv("TIMEZONE", "Asia/Kuala_Lumpur"))
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	cfg := Config{
		Port:     getenv("PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		Billplz: Billplz{
			APIKey:        os.Getenv("BILLPLZ_API_KEY"),
			CollectionID:  os.Getenv("BILLPLZ_COLLECTION_ID"),
			XSignatureKey: os.Getenv("BILLPLZ_X_SIGNATURE_KEY"),
			Sandbox:       sandbox,
			CallbackURL:   os.Getenv("BILLPLZ_CALLBACK_URL"),
			RedirectURL:   os.Getenv("BILLPLZ_REDIRECT_URL"),
			Timeout:       billplzTimeout,
		},

		FrontendSuccessURL: strings.TrimRight(os.Getenv("FRONTEND_SUCCESS_URL"), "/"),
		FrontendErrorURL:   os.Getenv("FRONTEND_ERROR_URL"),

		AppURL:         strings.TrimRight(getenv("APP_URL", "http://localhost:8080"), "/"),
		TrackingSecret: os.Getenv("TRACKING_SECRET"),
		TrackingTTL:    trackingTTL,

		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "shop.orders"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		N8NOutboundWebhookURL: os.Getenv("N8N_OUTBOUND_WEBHOOK_URL"),

		Location: loc,
	}

	//必須チェック
	if cfg.DatabaseURL == "" {
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
		if cfg.PostgresHost == "" {
			return Config{}, fmt.Errorf("POSTGRES_HOST is required")
		}
	}
	if cfg.Billplz.APIKey == "" {
		return Config{}, fmt.Errorf("BILLPLZ_API_KEY is required")
	}
	if cfg.Billplz.CollectionID == "" {
		return Config{}, fmt.Errorf("BILLPLZ_COLLECTION_ID is required")
	}
	if cfg.FrontendSuccessURL == "" {
		return Config{}, fmt.Errorf("FRONTEND_SUCCESS_URL is required")
	}
	if cfg.TrackingSecret == "" {
		return Config{}, fmt.Errorf("TRACKING_SECRET is required")
	}

	//エラーページは未指定なら成功ページと同じ場所の /error
	if cfg.FrontendErrorURL == "" {
		cfg.FrontendErrorURL = cfg.FrontendSuccessURL + "/error"
	}

	return cfg, nil
}

// DATABASE_URLが無ければPOSTGRES_*から組み立てる
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
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func boolDefault(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be bool: %w", key, err)
	}
	return b, nil
}

// 15s / 30m 形式。数字だけなら秒
func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func splitCSV(v string) []string {
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
