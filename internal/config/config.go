package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress             string `validate:"required"`
	DatabaseURI            string `validate:"required"`
	BotToken               string `validate:"required"`
	TelegramAPIURL         string `validate:"required,url"`
	CryptoPayToken         string `validate:"required"`
	CryptoPayNetwork       string `validate:"oneof=testnet mainnet"`
	CryptoPayBaseURL       string `validate:"required,url"`
	WebhookSecret          string `validate:"required,min=8"`
	WebhookStrictSignature bool
	AdminIDs               []int64
	OrderTTL               time.Duration
	SweepInterval          time.Duration
	SweepBatchSize         int
	ReconcileInterval      time.Duration
	WorkerPoolSize         int
	DeliveryLease          time.Duration
	MinTopup               decimal.Decimal
	PollTimeout            time.Duration
	ShutdownTimeout        time.Duration
	RedisAddr              string
	DedupTTL               time.Duration
	LogLevel               string `validate:"oneof=debug info warn error"`
}

const (
	defaultRunAddress      = ":8080"
	defaultTelegramAPIURL  = "https://api.telegram.org"
	defaultNetwork         = "testnet"
	defaultOrderTTL        = 15 * time.Minute
	defaultSweepInterval   = 60 * time.Second
	defaultSweepBatchSize  = 100
	defaultWorkerPoolSize  = 4
	defaultDeliveryLease   = 2 * time.Minute
	defaultMinTopup        = "1.00"
	defaultPollTimeout     = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultDedupTTL        = 24 * time.Hour
	defaultLogLevel        = "info"
)

var cryptoPayURLs = map[string]string{
	"testnet": "https://testnet-pay.crypt.bot/api",
	"mainnet": "https://pay.crypt.bot/api",
}

// Load parses configuration from an optional .env file, flags and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:             getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:            getString(lookup, "DATABASE_URI", ""),
		BotToken:               getString(lookup, "BOT_TOKEN", ""),
		TelegramAPIURL:         getString(lookup, "TELEGRAM_API_URL", defaultTelegramAPIURL),
		CryptoPayToken:         getString(lookup, "CRYPTO_PAY_TOKEN", ""),
		CryptoPayNetwork:       getString(lookup, "CRYPTO_PAY_NETWORK", defaultNetwork),
		CryptoPayBaseURL:       getString(lookup, "CRYPTO_PAY_BASE_URL", ""),
		WebhookSecret:          getString(lookup, "WEBHOOK_SECRET", ""),
		WebhookStrictSignature: getBool(lookup, "WEBHOOK_STRICT_SIGNATURE", false),
		OrderTTL:               getDuration(lookup, "ORDER_TTL", defaultOrderTTL),
		SweepInterval:          getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		SweepBatchSize:         getInt(lookup, "SWEEP_BATCH_SIZE", defaultSweepBatchSize),
		ReconcileInterval:      getDuration(lookup, "RECONCILE_INTERVAL", 0),
		WorkerPoolSize:         getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		DeliveryLease:          getDuration(lookup, "DELIVERY_LEASE", defaultDeliveryLease),
		PollTimeout:            getDuration(lookup, "POLL_TIMEOUT", defaultPollTimeout),
		ShutdownTimeout:        getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		RedisAddr:              getString(lookup, "REDIS_ADDR", ""),
		DedupTTL:               getDuration(lookup, "DEDUP_TTL", defaultDedupTTL),
		LogLevel:               getString(lookup, "LOG_LEVEL", defaultLogLevel),
	}

	fs := flag.NewFlagSet("digishop", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		adminsStr            = getString(lookup, "ADMIN_IDS", "")
		minTopupStr          = getString(lookup, "MIN_TOPUP_USD", defaultMinTopup)
		orderTTLStr          = cfg.OrderTTL.String()
		sweepIntervalStr     = cfg.SweepInterval.String()
		reconcileIntervalStr = cfg.ReconcileInterval.String()
		deliveryLeaseStr     = cfg.DeliveryLease.String()
		pollTimeoutStr       = cfg.PollTimeout.String()
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
		dedupTTLStr          = cfg.DedupTTL.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "Webhook HTTP listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.BotToken, "bot-token", cfg.BotToken, "Telegram bot token")
	fs.StringVar(&cfg.TelegramAPIURL, "telegram-url", cfg.TelegramAPIURL, "Telegram Bot API base URL")
	fs.StringVar(&cfg.CryptoPayToken, "crypto-token", cfg.CryptoPayToken, "Crypto Pay API token")
	fs.StringVar(&cfg.CryptoPayNetwork, "crypto-network", cfg.CryptoPayNetwork, "Crypto Pay network: testnet or mainnet")
	fs.StringVar(&cfg.CryptoPayBaseURL, "crypto-url", cfg.CryptoPayBaseURL, "Crypto Pay API base URL override")
	fs.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret, "Secret path segment of the payment webhook")
	fs.BoolVar(&cfg.WebhookStrictSignature, "strict-signature", cfg.WebhookStrictSignature, "Reject webhooks without signature")
	fs.StringVar(&adminsStr, "admins", adminsStr, "Comma separated administrator user ids")
	fs.StringVar(&orderTTLStr, "order-ttl", orderTTLStr, "Lifetime of unpaid orders")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between expiration sweeps")
	fs.IntVar(&cfg.SweepBatchSize, "sweep-batch", cfg.SweepBatchSize, "Maximum orders canceled per sweep")
	fs.StringVar(&reconcileIntervalStr, "reconcile-interval", reconcileIntervalStr, "Interval between invoice reconciliations, 0 disables")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent workers")
	fs.StringVar(&deliveryLeaseStr, "delivery-lease", deliveryLeaseStr, "Time a delivery attempt holds its claim")
	fs.StringVar(&minTopupStr, "min-topup", minTopupStr, "Minimum topup amount in USD")
	fs.StringVar(&pollTimeoutStr, "poll-timeout", pollTimeoutStr, "Long polling timeout for chat updates")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for webhook deduplication")
	fs.StringVar(&dedupTTLStr, "dedup-ttl", dedupTTLStr, "Retention of webhook deduplication keys")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"order ttl", orderTTLStr, &cfg.OrderTTL},
		{"sweep interval", sweepIntervalStr, &cfg.SweepInterval},
		{"reconcile interval", reconcileIntervalStr, &cfg.ReconcileInterval},
		{"delivery lease", deliveryLeaseStr, &cfg.DeliveryLease},
		{"poll timeout", pollTimeoutStr, &cfg.PollTimeout},
		{"shutdown timeout", shutdownTimeoutStr, &cfg.ShutdownTimeout},
		{"dedup ttl", dedupTTLStr, &cfg.DedupTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = v
	}

	minTopup, err := decimal.NewFromString(strings.ReplaceAll(minTopupStr, ",", "."))
	if err != nil {
		return nil, fmt.Errorf("invalid min topup: %w", err)
	}
	cfg.MinTopup = minTopup.Round(2)

	if cfg.AdminIDs, err = parseIDs(adminsStr); err != nil {
		return nil, fmt.Errorf("invalid admin ids: %w", err)
	}

	secrets := []struct {
		env string
		dst *string
	}{
		{"BOT_TOKEN_FILE", &cfg.BotToken},
		{"CRYPTO_PAY_TOKEN_FILE", &cfg.CryptoPayToken},
	}
	for _, s := range secrets {
		if path, ok := lookup(s.env); ok && path != "" {
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", strings.ToLower(s.env), err)
			}
			*s.dst = strings.TrimSpace(string(content))
		}
	}

	normalize(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsAdmin reports whether the user may run administrative commands.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func normalize(cfg *Config) {
	if cfg.CryptoPayBaseURL == "" {
		cfg.CryptoPayBaseURL = cryptoPayURLs[cfg.CryptoPayNetwork]
	}
	cfg.TelegramAPIURL = strings.TrimRight(cfg.TelegramAPIURL, "/")
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = defaultOrderTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaultSweepBatchSize
	}
	if cfg.ReconcileInterval < 0 {
		cfg.ReconcileInterval = 0
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}
	if cfg.DeliveryLease <= 0 {
		cfg.DeliveryLease = defaultDeliveryLease
	}
	if !cfg.MinTopup.IsPositive() {
		cfg.MinTopup = decimal.RequireFromString(defaultMinTopup)
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = defaultDedupTTL
	}
}

var fieldEnv = map[string]string{
	"RunAddress":       "RUN_ADDRESS",
	"DatabaseURI":      "DATABASE_URI",
	"BotToken":         "BOT_TOKEN",
	"TelegramAPIURL":   "TELEGRAM_API_URL",
	"CryptoPayToken":   "CRYPTO_PAY_TOKEN",
	"CryptoPayNetwork": "CRYPTO_PAY_NETWORK",
	"CryptoPayBaseURL": "CRYPTO_PAY_BASE_URL",
	"WebhookSecret":    "WEBHOOK_SECRET",
	"LogLevel":         "LOG_LEVEL",
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}
	first := verrs[0]
	name := fieldEnv[first.StructField()]
	if name == "" {
		name = first.StructField()
	}
	if first.Tag() == "required" {
		return fmt.Errorf("%s must be provided", name)
	}
	return fmt.Errorf("%s is invalid: failed %q check", name, first.Tag())
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
