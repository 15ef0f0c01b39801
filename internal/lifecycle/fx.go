package lifecycle

import (
	"github.com/smallbiznis/pricesync/internal/compensation"
	"github.com/smallbiznis/pricesync/internal/lifecycle/service"
	"github.com/smallbiznis/pricesync/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lifecycle.service",
	fx.Provide(func(log *zap.Logger, m *metrics.Metrics) *compensation.Coordinator {
		return compensation.NewCoordinator(log, m)
	}),
	fx.Provide(service.New),
)
