package variant

import (
	skuservice "github.com/smallbiznis/pricesync/internal/sku/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("variant.resolver",
	fx.Provide(func(skus *skuservice.Service, log *zap.Logger) *Resolver {
		return NewResolver(skus, log)
	}),
)
