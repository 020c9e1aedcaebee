package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sportsorca/nba-proxy/pkg/gateway"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

func newPlayersCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Search and show players",
	}
	cmd.AddCommand(newPlayerSearchCmd(v), newPlayerGetCmd(v), newSeasonAveragesCmd(v))
	return cmd
}

func newPlayerSearchCmd(v *viper.Viper) *cobra.Command {
	var q gateway.PlayerQuery

	cmd := &cobra.Command{
		Use:   "search [name]",
		Short: "Search players by name and team",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.Search = args[0]
			}
			return withGateway(cmd, v, func(ctx context.Context, gw *gateway.Gateway) error {
				env, err := gw.SearchPlayers(ctx, q)
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
				if err := printPlayers(out, env.Data); err != nil {
					return err
				}
				if env.Meta != nil && env.Meta.NextCursor != nil {
					fmt.Fprintf(out, "\nMore results: --cursor %d\n", *env.Meta.NextCursor)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntSliceVar(&q.TeamIDs, "team-id", nil, "restrict to team ids")
	cmd.Flags().IntVar(&q.PerPage, "per-page", 25, "results per page (max 100)")
	cmd.Flags().IntVar(&q.Cursor, "cursor", 0, "pagination cursor from a previous search")
	return cmd
}

func newPlayerGetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid player id %q", args[0])
			}
			return withGateway(cmd, v, func(ctx context.Context, gw *gateway.Gateway) error {
				env, err := gw.Player(ctx, id)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), env)
				}
				return printPlayers(cmd.OutOrStdout(), []nba.Player{env.Data})
			})
		},
	}
}

func newSeasonAveragesCmd(v *viper.Viper) *cobra.Command {
	var season, playerID int

	cmd := &cobra.Command{
		Use:   "averages",
		Short: "Season averages for a player (paid tier)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGateway(cmd, v, func(ctx context.Context, gw *gateway.Gateway) error {
				env, err := gw.SeasonAverages(ctx, season, playerID)
				return printPremium(cmd.OutOrStdout(), env, err)
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "season start year, e.g. 2024")
	cmd.Flags().IntVar(&playerID, "player-id", 0, "player id")
	_ = cmd.MarkFlagRequired("season")
	_ = cmd.MarkFlagRequired("player-id")
	return cmd
}
