package connector

import (
	"github.com/smallbiznis/pricesync/internal/clock"
	"github.com/smallbiznis/pricesync/internal/config"
	"github.com/smallbiznis/pricesync/internal/connector/domain"
	"github.com/smallbiznis/pricesync/internal/connector/memory"
	"github.com/smallbiznis/pricesync/internal/connector/shopify"
	"github.com/smallbiznis/pricesync/internal/observability/metrics"
	"github.com/smallbiznis/pricesync/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("connector",
	fx.Provide(ProvideRegistry),
)

type RegistryParams struct {
	fx.In

	Cfg     config.Config
	Clock   clock.Clock
	Log     *zap.Logger
	Metrics *metrics.Metrics  `optional:"true"`
	Limiter *ratelimit.Bucket `optional:"true"`
}

// ProvideRegistry registers the real platform factories, or in-process
// gateways for every target when CONNECTOR_SANDBOX is set.
func ProvideRegistry(p RegistryParams) *Registry {
	log := p.Log.Named("connector")

	var factories []domain.Factory
	if p.Cfg.ConnectorSandbox {
		for _, target := range domain.Targets() {
			factories = append(factories, memory.NewFactory(memory.New(target, p.Clock)))
		}
		log.Warn("connector sandbox enabled, platform calls stay in process")
	} else {
		factories = append(factories, shopify.NewFactory(p.Clock))
	}

	registry := NewRegistry(factories...)
	registry.Use(Instrument(p.Metrics, log))
	if p.Limiter != nil {
		registry.Use(Throttle(p.Limiter, p.Clock, log))
	}
	return registry
}
