package session

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pricesync/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("auth.session",
	fx.Provide(NewStore),
	fx.Provide(NewManager),
)

type StoreParams struct {
	fx.In

	Redis *redis.Client `optional:"true"`
	Clock clock.Clock
	Log   *zap.Logger
}

// NewStore picks Redis when a client is configured.
func NewStore(p StoreParams) Store {
	if p.Redis != nil {
		p.Log.Info("session store: redis")
		return NewRedisStore(p.Redis)
	}
	p.Log.Info("session store: memory")
	return NewMemoryStore(p.Clock.Now)
}
