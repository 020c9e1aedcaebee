package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sportsorca/nba-proxy/internal/config"
	"github.com/sportsorca/nba-proxy/internal/server"
	"github.com/sportsorca/nba-proxy/pkg/client"
	"github.com/sportsorca/nba-proxy/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	logging.Setup(logging.Config{
		Level:   logging.LogLevel(cfg.LogLevel),
		Pretty:  cfg.LogPretty,
		Output:  os.Stderr,
		Service: "nba-proxy",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	srv := newServer(cfg)
	httpServer := newHTTPServer(cfg.Addr(), srv.Handler())

	log.Info().
		Str("addr", httpServer.Addr).
		Str("env", cfg.Env).
		Str("api_url", cfg.BaseURL).
		Msg("Starting NBA proxy server")

	if cfg.APIKey == "" {
		log.Warn().Msg("API_KEY is not set in environment variables; create a .env file from .env.example")
	}

	go srv.CheckTier(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newServer builds the backend from cfg.
func newServer(cfg config.Config) *server.Server {
	clientCfg := client.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.Timeout = cfg.UpstreamTimeout

	return server.New(cfg, client.New(clientCfg), logging.NewLogger("server"))
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Upcoming games may wait on spaced upstream calls and retries.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
}
