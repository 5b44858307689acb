package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/roadsafety-cli/internal/config"
	"github.com/sells-group/roadsafety-cli/internal/pipeline"
	"github.com/sells-group/roadsafety-cli/internal/resilience"
	"github.com/sells-group/roadsafety-cli/internal/store"
	"github.com/sells-group/roadsafety-cli/pkg/roadsafety"
)

// pipelineEnv holds the backend client, breakers and optional archive needed
// by the run/review/ask/serve commands.
type pipelineEnv struct {
	Backend  pipeline.Backend
	Breakers *resilience.Breakers
	Archive  store.Archive // nil when store.enabled is false
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Archive != nil {
		_ = pe.Archive.Close()
	}
}

// NewCoordinator builds a coordinator wired to the environment.
func (pe *pipelineEnv) NewCoordinator() *pipeline.Coordinator {
	var opts []pipeline.Option
	if pe.Archive != nil {
		opts = append(opts, pipeline.WithArchiver(pe.Archive))
	}
	return pipeline.NewCoordinator(pe.Backend, opts...)
}

// newBackend builds the guarded backend client from configuration.
func newBackend(c *config.Config) (pipeline.Backend, *resilience.Breakers) {
	timeout := time.Duration(c.Backend.TimeoutMs) * time.Millisecond
	opts := []roadsafety.Option{
		roadsafety.WithBaseURL(c.Backend.BaseURL),
		roadsafety.WithTimeout(timeout),
	}
	if c.Backend.ChatRatePerMin > 0 {
		every := time.Minute / time.Duration(c.Backend.ChatRatePerMin)
		opts = append(opts, roadsafety.WithChatLimiter(rate.NewLimiter(rate.Every(every), 1)))
	}

	breakers := resilience.NewBreakers(resilience.BreakerConfig{
		FailureThreshold: c.Backend.Breaker.FailureThreshold,
		ResetTimeout:     time.Duration(c.Backend.Breaker.ResetTimeoutSecs) * time.Second,
	})
	retry := resilience.FromConfig(
		c.Backend.Retry.MaxAttempts,
		c.Backend.Retry.InitialBackoffMs,
		c.Backend.Retry.MaxBackoffMs,
	)
	backend := pipeline.Guard(roadsafety.NewClient(opts...), retry, breakers, pipeline.WithCallTimeout(timeout))
	return backend, breakers
}

// initPipeline validates configuration for mode and sets up the backend and
// archive. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	backend, breakers := newBackend(cfg)
	env := &pipelineEnv{Backend: backend, Breakers: breakers}

	if mode != "client" && cfg.Store.Enabled {
		a, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, eris.Wrap(err, "open report archive")
		}
		env.Archive = a
		zap.L().Info("report archive enabled", zap.String("driver", cfg.Store.Driver))
	}
	return env, nil
}

// uploadFile reads a PDF from disk and runs extraction on it.
func uploadFile(ctx context.Context, c *pipeline.Coordinator, path string) error {
	pdf, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	if err := c.Upload(ctx, filepath.Base(path), pdf); err != nil {
		return userError(err)
	}
	return nil
}

// userError prefixes err with its user-facing notice.
func userError(err error) error {
	return eris.Wrap(err, pipeline.Notice(err))
}
