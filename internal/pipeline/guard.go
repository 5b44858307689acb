package pipeline

import (
	"context"
	"time"

	"github.com/sells-group/roadsafety-cli/internal/resilience"
	"github.com/sells-group/roadsafety-cli/pkg/roadsafety"
)

// Service names used for breakers and retry logs.
const (
	ServiceExtract  = "extract"
	ServiceEstimate = "estimate"
	ServiceChatbot  = "chatbot"
)

type guardedBackend struct {
	next     Backend
	retry    resilience.RetryConfig
	breakers *resilience.Breakers
	timeout  time.Duration
}

// GuardOption configures Guard.
type GuardOption func(*guardedBackend)

// WithCallTimeout bounds each guarded call, retries and backoff included.
// A call that runs out of time fails once as a transport failure.
func WithCallTimeout(d time.Duration) GuardOption {
	return func(g *guardedBackend) {
		g.timeout = d
	}
}

// Guard wraps b so every call is retried on transient failure and passes
// through a per-service circuit breaker. A nil breakers registry disables
// breaking.
func Guard(b Backend, retry resilience.RetryConfig, breakers *resilience.Breakers, opts ...GuardOption) Backend {
	g := &guardedBackend{next: b, retry: retry, breakers: breakers}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *guardedBackend) Extract(ctx context.Context, filename string, pdf []byte) (*roadsafety.ExtractResponse, error) {
	return call(ctx, g, ServiceExtract, func(ctx context.Context) (*roadsafety.ExtractResponse, error) {
		return g.next.Extract(ctx, filename, pdf)
	})
}

func (g *guardedBackend) ProcessAll(ctx context.Context, batch []roadsafety.EstimateRequest) (*roadsafety.EstimateResponse, error) {
	return call(ctx, g, ServiceEstimate, func(ctx context.Context) (*roadsafety.EstimateResponse, error) {
		return g.next.ProcessAll(ctx, batch)
	})
}

func (g *guardedBackend) Ask(ctx context.Context, question string, askContext any) (*roadsafety.AskResponse, error) {
	return call(ctx, g, ServiceChatbot, func(ctx context.Context) (*roadsafety.AskResponse, error) {
		return g.next.Ask(ctx, question, askContext)
	})
}

func call[T any](ctx context.Context, g *guardedBackend, service string, fn func(context.Context) (T, error)) (T, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cfg := g.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(service)
	}
	if g.breakers == nil {
		return resilience.DoVal(ctx, cfg, fn)
	}
	cb := g.breakers.Get(service)
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (T, error) {
		return resilience.ExecuteVal(ctx, cb, fn)
	})
}
