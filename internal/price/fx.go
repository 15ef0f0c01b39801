package price

import (
	"github.com/smallbiznis/pricesync/internal/price/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("price.repository",
	fx.Provide(repository.Provide),
)
