package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sportsorca/nba-proxy/pkg/gateway"
	"github.com/sportsorca/nba-proxy/pkg/logging"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

func newGamesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Upcoming, live and historical game data",
	}
	cmd.AddCommand(
		newUpcomingCmd(v),
		newWatchCmd(v),
		newLiveCmd(v),
		newBoxScoresCmd(v),
		newStatsCmd(v),
	)
	return cmd
}

func newUpcomingCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "upcoming",
		Short: "List upcoming games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGateway(cmd, v, func(ctx context.Context, gw *gateway.Gateway) error {
				env, err := gw.UpcomingGames(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if v.GetBool("json") {
					return printJSON(out, env)
				}
				if !env.Success {
					return envelopeError(env.Error, env.Message, env.RetryAfter)
				}
				printFeedHeader(out, env.Message, env.DemoMode, env.Cached)
				return printGames(out, env.Data, time.Now())
			})
		},
	}
}

func newWatchCmd(v *viper.Viper) *cobra.Command {
	cfg := gateway.DefaultWatcherConfig()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll upcoming games, retrying automatically when rate limited",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGateway(cmd, v, func(ctx context.Context, gw *gateway.Gateway) error {
				watcher := gateway.NewWatcher(gw, cfg, logging.NewLogger("watcher"))
				out := cmd.OutOrStdout()

				err := watcher.Run(ctx, func(u gateway.Update) {
					printUpdate(out, v.GetBool("json"), u)
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "polling interval")
	cmd.Flags().IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "automatic retries after a rate-limit response")
	return cmd
}

func printUpdate(w io.Writer, asJSON bool, u gateway.Update) {
	switch u.State {
	case gateway.StateLoading:
		fmt.Fprintln(w, "Loading upcoming games...")
	case gateway.StateRetrying:
		fmt.Fprintf(w, "Rate limited, retrying in %s (attempt %d/%d)\n", u.RetryAfter, u.Attempt, u.MaxAttempts)
	case gateway.StateFailed:
		fmt.Fprintf(w, "Failed to load upcoming games: %v\n", u.Err)
	case gateway.StateReady:
		if asJSON {
			printJSON(w, u.Games)
			return
		}
		fmt.Fprintf(w, "\n%s\n", time.Now().Format(time.Kitchen))
		printFeedHeader(w, u.Message, u.DemoMode, false)
		printGames(w, u.Games, time.Now())
	}
}

func printFeedHeader(w io.Writer, message string, demo, cached bool) {
	switch {
	case demo:
		fmt.Fprintf(w, "DEMO: %s\n", message)
	case message != "":
		fmt.Fprintln(w, message)
	}
	if cached {
		fmt.Fprintln(w, "(served from cache)")
	}
}

func newLiveCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "live",
		Short: "Live box scores (paid tier)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGateway(cmd, v, func(ctx context.Context, gw *gateway.Gateway) error {
				env, err := gw.LiveGames(ctx)
				return printPremium(cmd.OutOrStdout(), env, err)
			})
		},
	}
}

func newBoxScoresCmd(v *viper.Viper) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "box-scores",
		Short: "Box scores for a date (paid tier)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := time.Parse(nba.DateLayout, date); err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			return withGateway(cmd, v, func(ctx context.Context, gw *gateway.Gateway) error {
				env, err := gw.BoxScores(ctx, date)
				return printPremium(cmd.OutOrStdout(), env, err)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", nba.FormatDate(time.Now()), "game date (YYYY-MM-DD)")
	return cmd
}

func newStatsCmd(v *viper.Viper) *cobra.Command {
	var gameIDs, playerIDs []int
	var dates []string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Per-game player stats (paid tier)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query := url.Values{}
			for _, id := range gameIDs {
				query.Add("game_ids[]", strconv.Itoa(id))
			}
			for _, id := range playerIDs {
				query.Add("player_ids[]", strconv.Itoa(id))
			}
			for _, d := range dates {
				query.Add("dates[]", d)
			}
			if len(query) == 0 {
				return errors.New("at least one of --game-id, --player-id or --date is required")
			}
			return withGateway(cmd, v, func(ctx context.Context, gw *gateway.Gateway) error {
				env, err := gw.GameStats(ctx, query)
				return printPremium(cmd.OutOrStdout(), env, err)
			})
		},
	}
	cmd.Flags().IntSliceVar(&gameIDs, "game-id", nil, "game ids")
	cmd.Flags().IntSliceVar(&playerIDs, "player-id", nil, "player ids")
	cmd.Flags().StringSliceVar(&dates, "date", nil, "dates (YYYY-MM-DD)")
	return cmd
}

// printPremium prints a passthrough envelope. A missing subscription is an
// error for the command.
func printPremium(w io.Writer, env nba.RawEnvelope, err error) error {
	if err != nil {
		return err
	}
	if !env.Success {
		return envelopeError(env.Error, env.Message, env.RetryAfter)
	}
	return printJSON(w, env)
}

// envelopeError reports an unsuccessful backend envelope.
func envelopeError(code, message string, retryAfter int) error {
	if retryAfter > 0 {
		return fmt.Errorf("%s: %s (retry after %ds)", code, message, retryAfter)
	}
	return fmt.Errorf("%s: %s", code, message)
}
