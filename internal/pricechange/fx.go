package pricechange

import (
	"github.com/smallbiznis/pricesync/internal/pricechange/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("pricechange.repository",
	fx.Provide(repository.Provide),
)
