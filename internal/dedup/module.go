package dedup

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/config"
)

// Module provides the webhook dedup guard. An empty redis address disables it.
var Module = fx.Provide(newGuard)

type guardParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newGuard(p guardParams) Guard {
	if p.Config.RedisAddr == "" {
		p.Logger.Info("webhook dedup disabled")
		return Noop{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         p.Config.RedisAddr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// redis is optional; an unreachable server only disables dedup hits
			if err := client.Ping(ctx).Err(); err != nil {
				p.Logger.Warn("redis unavailable", slog.String("addr", p.Config.RedisAddr), slog.String("error", err.Error()))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewRedisGuard(client, p.Config.DedupTTL)
}
