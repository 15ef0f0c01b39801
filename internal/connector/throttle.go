package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/pricesync/internal/clock"
	"github.com/smallbiznis/pricesync/internal/connector/domain"
	"github.com/smallbiznis/pricesync/internal/ratelimit"
	"go.uber.org/zap"
)

// Limiter is satisfied by ratelimit.Bucket.
type Limiter interface {
	Take(ctx context.Context, key string, rule ratelimit.Rule) (ratelimit.Decision, error)
}

// Throttle gates calls through a token bucket per (project, target).
// A denied call becomes a retryable failure without reaching the platform.
// Limiter errors let the call through.
func Throttle(limiter Limiter, clk clock.Clock, log *zap.Logger) domain.Middleware {
	return func(next domain.Gateway, cfg domain.Config) domain.Gateway {
		if limiter == nil || cfg.Settings.Rate <= 0 || cfg.Settings.Burst <= 0 {
			return next
		}
		return &throttled{
			next:    next,
			limiter: limiter,
			clock:   clk,
			log:     log,
			key:     fmt.Sprintf("pricesync:connector:%s:%s", next.Target(), cfg.ProjectID),
			rule:    ratelimit.Rule{Rate: cfg.Settings.Rate, Burst: cfg.Settings.Burst},
		}
	}
}

type throttled struct {
	next    domain.Gateway
	limiter Limiter
	clock   clock.Clock
	log     *zap.Logger
	key     string
	rule    ratelimit.Rule
}

func (t *throttled) Target() domain.Target { return t.next.Target() }

func (t *throttled) UpdatePrice(ctx context.Context, req domain.UpdatePriceRequest) (*domain.UpdatePriceResult, error) {
	res, err := t.limiter.Take(ctx, t.key, t.rule)
	if err != nil {
		t.log.Warn("connector throttle unavailable, allowing call",
			zap.String("key", t.key),
			zap.Error(err),
		)
		return t.next.UpdatePrice(ctx, req)
	}
	if !res.Allowed {
		msg := "rate limited"
		if res.RetryAfter > 0 {
			msg = fmt.Sprintf("rate limited, retry after %s", res.RetryAfter.Round(time.Millisecond))
		}
		return domain.Failure(req, msg, true, t.clock.Now()), nil
	}
	return t.next.UpdatePrice(ctx, req)
}
