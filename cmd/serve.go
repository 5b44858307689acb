package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/roadsafety-cli/internal/api"
	"github.com/sells-group/roadsafety-cli/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		sessions := pipeline.NewSessions(env.NewCoordinator)
		handler := api.NewServer(sessions,
			api.WithCORSOrigins(cfg.Server.CORSOrigins),
			api.WithMaxUploadBytes(int64(cfg.Server.MaxUploadMB)<<20),
			api.WithBreakers(env.Breakers),
		).Routes()

		port := resolvePort(servePort, cfg.Server.Port)
		ttl := time.Duration(cfg.Session.TTLMinutes) * time.Minute
		every := time.Duration(cfg.Session.SweepIntervalSecs) * time.Second

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return startServer(gctx, handler, port, time.Duration(cfg.Server.ShutdownSecs)*time.Second)
		})
		g.Go(func() error {
			runSweeper(gctx, sessions, every, ttl)
			return nil
		})
		return g.Wait()
	},
}

// resolvePort prefers the --port flag over the configured port.
func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

// startServer serves handler on port until ctx is done, then shuts down
// within grace.
func startServer(ctx context.Context, handler http.Handler, port int, grace time.Duration) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- eris.Wrap(err, "server listen")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return <-errCh
}

// runSweeper drops idle sessions every interval until ctx is done.
func runSweeper(ctx context.Context, sessions *pipeline.Sessions, every, ttl time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sessions.Sweep(now, ttl)
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
