package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends for expiring records. Exactly one is used per deployment.
const (
	StoreDynamo = "dynamo"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort       string
	AppEnv        string
	PublicBaseURL string // storefront origin used in confirmation links

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	StoreBackend    string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisKeyPrefix  string
	MemoryStoreSize int

	PendingOrderTTL      time.Duration
	EmailVerificationTTL time.Duration
	VerifiedNoticeTTL    time.Duration
	SweepSchedule        string // cron spec; empty disables the scheduled sweep

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SMTPTLS      bool
	SMTPSSL      bool

	OperatorEmail string
	OperatorPhone string // optional, E.164; enables the SMS notice for confirmed orders
	SNSRegion     string

	Shop           ShopInfo
	ArchiveLinkTTL time.Duration // lifetime of file links in the operator mail

	MailWorkers   int
	MailQueueSize int
	MailTimeout   time.Duration

	JWTPublicKeyPath string // admin bearer tokens
	AllowedOrigins   []string
	MaxUploadBytes   int64

	ShopConfigFallbackPath string
}

// ShopInfo is the business contact block printed in customer mails.
type ShopInfo struct {
	Name           string
	Phone          string
	Web            string
	PrintDataEmail string // where customers send print files they did not upload
	PickupAddress  string
	PickupHours    string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Customers          string
	Jobs               string
	ShipmentAddresses  string
	ShopConfig         string
	PendingOrders      string
	EmailVerifications string
	VerifiedNotices    string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:       getEnv("APP_PORT", "3000"),
		AppEnv:        getEnv("APP_ENV", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),

		AWSRegion:      getEnv("AWS_REGION", "eu-central-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Customers:          getEnv("DYNAMO_TABLE_CUSTOMERS", "customers"),
			Jobs:               getEnv("DYNAMO_TABLE_JOBS", "jobs"),
			ShipmentAddresses:  getEnv("DYNAMO_TABLE_SHIPMENT_ADDRESSES", "shipment_addresses"),
			ShopConfig:         getEnv("DYNAMO_TABLE_SHOP_CONFIG", "shop_config"),
			PendingOrders:      getEnv("DYNAMO_TABLE_PENDING_ORDERS", "pending_orders"),
			EmailVerifications: getEnv("DYNAMO_TABLE_EMAIL_VERIFICATIONS", "email_verifications"),
			VerifiedNotices:    getEnv("DYNAMO_TABLE_VERIFIED_NOTICES", "verified_email_notices"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "print-order-files"),

		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", StoreDynamo)),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix:  getEnv("REDIS_KEY_PREFIX", "printorder:"),
		MemoryStoreSize: getEnvInt("MEMORY_STORE_SIZE", 10000),

		PendingOrderTTL:      getEnvDuration("PENDING_ORDER_TTL", 24*time.Hour),
		EmailVerificationTTL: getEnvDuration("EMAIL_VERIFICATION_TTL", 24*time.Hour),
		VerifiedNoticeTTL:    getEnvDuration("VERIFIED_NOTICE_TTL", 5*time.Minute),
		SweepSchedule:        getEnv("SWEEP_SCHEDULE", "*/15 * * * *"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPTLS:      getEnvBool("SMTP_TLS", false),
		SMTPSSL:      getEnvBool("SMTP_SSL", false),

		OperatorEmail: getEnv("OPERATOR_EMAIL", "orders@example.com"),
		OperatorPhone: getEnv("OPERATOR_PHONE", ""),
		SNSRegion:     getEnv("SNS_REGION", "eu-central-1"),

		Shop: ShopInfo{
			Name:           getEnv("SHOP_NAME", "Offsetdruck"),
			Phone:          getEnv("SHOP_PHONE", ""),
			Web:            getEnv("SHOP_WEB", ""),
			PrintDataEmail: getEnv("PRINT_DATA_EMAIL", getEnv("OPERATOR_EMAIL", "orders@example.com")),
			PickupAddress:  getEnv("PICKUP_ADDRESS", ""),
			PickupHours:    getEnv("PICKUP_HOURS", "Montag bis Donnerstag, 9:00 - 15:00 Uhr oder nach Absprache"),
		},
		ArchiveLinkTTL: getEnvDuration("ARCHIVE_LINK_TTL", 7*24*time.Hour),

		MailWorkers:   getEnvInt("MAIL_WORKERS", 2),
		MailQueueSize: getEnvInt("MAIL_QUEUE_SIZE", 100),
		MailTimeout:   getEnvDuration("MAIL_TIMEOUT", 30*time.Second),

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", 20<<20)),

		ShopConfigFallbackPath: getEnv("SHOP_CONFIG_FALLBACK_PATH", "./config/shop_config.json"),
	}
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
