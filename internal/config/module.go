package config

import (
	"log/slog"

	"go.uber.org/fx"
)

// Module loads configuration for fx graphs and logs the non-secret settings once.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Invoke(logSettings),
)

func logSettings(cfg *Config, logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.String("addr", cfg.RunAddress),
		slog.String("crypto_pay_network", cfg.CryptoPayNetwork),
		slog.Int("admins", len(cfg.AdminIDs)),
		slog.Duration("order_ttl", cfg.OrderTTL),
		slog.Bool("reconciler", cfg.ReconcileInterval > 0),
		slog.Bool("dedup", cfg.RedisAddr != ""),
	)
}
