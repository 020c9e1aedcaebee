// Command sportsorca reads NBA data through the SportsOrca backend and runs
// upstream diagnostics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sportsorca/nba-proxy/pkg/cache"
	"github.com/sportsorca/nba-proxy/pkg/gateway"
	"github.com/sportsorca/nba-proxy/pkg/logging"
)

// EnvPrefix namespaces the environment variables bound to flags, e.g.
// SPORTSORCA_API_URL for --api-url.
const EnvPrefix = "SPORTSORCA"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          "sportsorca",
		Short:        "NBA games, teams and players from the SportsOrca backend",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Setup(logging.Config{
				Level:   logging.LogLevel(v.GetString("log-level")),
				Pretty:  true,
				Output:  cmd.ErrOrStderr(),
				Service: "sportsorca",
			})
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.String("api-url", gateway.DefaultBaseURL, "backend API root")
	flags.String("redis-url", "", "Redis for the durable response cache (host:port or redis:// URL)")
	flags.String("api-key", "", "upstream API key for health and validate-key (default $API_KEY)")
	flags.String("upstream-url", "", "upstream API root for health and validate-key (default $API_BASE_URL)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.Bool("json", false, "print raw JSON responses")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("bind flags: %v", err))
	}

	root.AddCommand(
		newGamesCmd(v),
		newTeamsCmd(v),
		newPlayersCmd(v),
		newPingCmd(v),
		newHealthCmd(v),
		newValidateKeyCmd(v),
	)
	return root
}

// openGateway builds a gateway for the configured backend. With a Redis URL
// the response cache survives between invocations.
func openGateway(ctx context.Context, v *viper.Viper) (*gateway.Gateway, func(), error) {
	cfg := gateway.DefaultConfig()
	cfg.BaseURL = v.GetString("api-url")

	redisURL := v.GetString("redis-url")
	if redisURL == "" {
		return gateway.New(cfg, nil), func() {}, nil
	}

	rc, err := newRedisClient(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", redisURL, err)
	}
	return gateway.New(cfg, cache.NewRedisStore(rc)), func() { rc.Close() }, nil
}

func newRedisClient(raw string) (*redis.Client, error) {
	if strings.HasPrefix(raw, "redis://") || strings.HasPrefix(raw, "rediss://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, err
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: raw}), nil
}

// withGateway runs fn with an open gateway and closes it afterwards.
func withGateway(cmd *cobra.Command, v *viper.Viper, fn func(ctx context.Context, gw *gateway.Gateway) error) error {
	ctx := cmd.Context()
	gw, closeFn, err := openGateway(ctx, v)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, gw)
}
