package connector

import (
	"github.com/smallbiznis/pricesync/internal/connector/domain"
)

type Registry struct {
	factories   map[domain.Target]domain.Factory
	middlewares []domain.Middleware
}

func NewRegistry(factories ...domain.Factory) *Registry {
	registry := &Registry{factories: map[domain.Target]domain.Factory{}}
	for _, factory := range factories {
		if factory == nil || factory.Target().IsZero() {
			continue
		}
		registry.factories[factory.Target()] = factory
	}
	return registry
}

// Use appends a decorator. The first registered middleware is outermost.
func (r *Registry) Use(mw ...domain.Middleware) *Registry {
	for _, m := range mw {
		if m != nil {
			r.middlewares = append(r.middlewares, m)
		}
	}
	return r
}

func (r *Registry) Supports(target domain.Target) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[target]
	return ok
}

func (r *Registry) NewGateway(target domain.Target, cfg domain.Config) (domain.Gateway, error) {
	if r == nil {
		return nil, domain.ErrTargetNotSupported
	}
	factory, ok := r.factories[target]
	if !ok {
		return nil, domain.ErrTargetNotSupported
	}
	gw, err := factory.NewGateway(cfg)
	if err != nil {
		return nil, err
	}
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		gw = r.middlewares[i](gw, cfg)
	}
	return gw, nil
}
