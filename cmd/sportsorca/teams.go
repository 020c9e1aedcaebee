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

func newTeamsCmd(v *viper.Viper) *cobra.Command {
	var filter gateway.TeamFilter

	cmd := &cobra.Command{
		Use:   "teams",
		Short: "List teams, optionally by conference or division",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGateway(cmd, v, func(ctx context.Context, gw *gateway.Gateway) error {
				env, err := gw.Teams(ctx, filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if v.GetBool("json") {
					return printJSON(out, env)
				}
				if env.Fallback {
					fmt.Fprintln(out, "Rate limited: showing the built-in team list.")
				}
				return printTeams(out, env.Data)
			})
		},
	}
	cmd.Flags().StringVar(&filter.Conference, "conference", "", "East or West")
	cmd.Flags().StringVar(&filter.Division, "division", "", "division name, e.g. Pacific")

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid team id %q", args[0])
			}
			return withGateway(cmd, v, func(ctx context.Context, gw *gateway.Gateway) error {
				env, err := gw.Team(ctx, id)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), env)
				}
				return printTeams(cmd.OutOrStdout(), []nba.Team{env.Data})
			})
		},
	})
	return cmd
}
