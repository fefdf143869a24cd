package ratelimit

import (
	"context"

	"github.com/smallbiznis/billingledger/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(provideListLimiter),
)

func provideListLimiter(lc fx.Lifecycle, cfg config.Config) (*ListLimiter, error) {
	limiter, err := NewListLimiter(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return limiter.Close()
		},
	})
	return limiter, nil
}
