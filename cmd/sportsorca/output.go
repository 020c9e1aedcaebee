package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sportsorca/nba-proxy/pkg/nba"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// printGames writes one line per game, tip-off relative to now.
func printGames(w io.Writer, games []nba.Game, now time.Time) error {
	if len(games) == 0 {
		_, err := fmt.Fprintln(w, "No upcoming games.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTIP-OFF\tMATCHUP\tSTATUS")
	for _, g := range games {
		tipOff := g.Date
		if at := g.Effective(); !at.IsZero() {
			tipOff = fmt.Sprintf("%s (%s)", at.Local().Format("Mon Jan 2 15:04"), humanize.RelTime(at, now, "ago", "from now"))
		}
		status := g.Status
		if g.Demo {
			status += " [demo]"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s @ %s\t%s\n", g.ID, tipOff, g.VisitorTeam.Abbreviation, g.HomeTeam.Abbreviation, status)
	}
	return tw.Flush()
}

func printTeams(w io.Writer, teams []nba.Team) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tABBR\tTEAM\tCONFERENCE\tDIVISION")
	for _, t := range teams {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Abbreviation, t.FullName, t.Conference, t.Division)
	}
	return tw.Flush()
}

func printPlayers(w io.Writer, players []nba.Player) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tPOS\tTEAM\tDRAFT")
	for _, p := range players {
		draft := "undrafted"
		if p.DraftYear != nil {
			draft = strconv.Itoa(*p.DraftYear)
			if p.DraftNumber != nil {
				draft += ", " + humanize.Ordinal(*p.DraftNumber) + " pick"
			}
		}
		fmt.Fprintf(tw, "%d\t%s %s\t%s\t%s\t%s\n", p.ID, p.FirstName, p.LastName, p.Position, p.Team.Abbreviation, draft)
	}
	return tw.Flush()
}

// quotaLine describes the remaining upstream quota.
func quotaLine(limit, remaining int) string {
	if limit <= 0 {
		return "rate limit: unknown"
	}
	pct := float64(remaining) / float64(limit) * 100
	return fmt.Sprintf("rate limit: %s/%s remaining (%s%%)",
		humanize.Comma(int64(remaining)), humanize.Comma(int64(limit)), humanize.FtoaWithDigits(pct, 1))
}
