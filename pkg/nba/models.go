// Package nba defines the game, team and player shapes shared by the upstream
// client, the backend routes and the gateway.
package nba

import (
	"strings"
	"time"
)

// Game statuses that carry meaning for filtering. In-progress games report
// their period ("1st Qtr", "Halftime", ...) as status.
const (
	StatusUpcoming = "Upcoming"
	StatusFinal    = "Final"
)

// Conferences.
const (
	ConferenceEast = "East"
	ConferenceWest = "West"
)

// Team is immutable reference data. Games embed a snapshot of it.
type Team struct {
	ID           int    `json:"id"`
	Abbreviation string `json:"abbreviation"`
	City         string `json:"city"`
	Conference   string `json:"conference"`
	Division     string `json:"division"`
	FullName     string `json:"full_name"`
	Name         string `json:"name"`
}

// Game is a single scheduled, live or finished game.
type Game struct {
	ID               int    `json:"id"`
	Date             string `json:"date"`
	Datetime         string `json:"datetime,omitempty"`
	Season           int    `json:"season,omitempty"`
	Status           string `json:"status"`
	Period           int    `json:"period"`
	Time             string `json:"time"`
	Postseason       bool   `json:"postseason"`
	HomeTeam         Team   `json:"home_team"`
	VisitorTeam      Team   `json:"visitor_team"`
	HomeTeamScore    *int   `json:"home_team_score"`
	VisitorTeamScore *int   `json:"visitor_team_score"`

	// Demo marks records synthesized or date-shifted when no real upcoming
	// games were available. Fallback additionally marks generator output.
	Demo         bool   `json:"demo,omitempty"`
	Fallback     bool   `json:"fallback,omitempty"`
	OriginalDate string `json:"originalDate,omitempty"`
}

// Effective returns the game's start time: Datetime when it parses, otherwise
// Date. The zero time is returned when neither parses.
func (g Game) Effective() time.Time {
	if t, ok := ParseTime(g.Datetime); ok {
		return t
	}
	if t, ok := ParseTime(g.Date); ok {
		return t
	}
	return time.Time{}
}

// ParseTime accepts the formats the upstream uses for date and datetime fields.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateLayout is the YYYY-MM-DD format used in upstream query parameters.
const DateLayout = "2006-01-02"

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Player is an upstream player record.
type Player struct {
	ID           int    `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Position     string `json:"position"`
	Height       string `json:"height,omitempty"`
	Weight       string `json:"weight,omitempty"`
	JerseyNumber string `json:"jersey_number,omitempty"`
	College      string `json:"college,omitempty"`
	Country      string `json:"country,omitempty"`
	DraftYear    *int   `json:"draft_year,omitempty"`
	DraftRound   *int   `json:"draft_round,omitempty"`
	DraftNumber  *int   `json:"draft_number,omitempty"`
	Team         Team   `json:"team"`
}

// Meta is the cursor pagination block of list responses.
type Meta struct {
	NextCursor *int `json:"next_cursor,omitempty"`
	PerPage    int  `json:"per_page,omitempty"`
}

// ListResponse is the upstream envelope for list endpoints.
type ListResponse[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}

// ItemResponse is the upstream envelope for single-resource endpoints.
type ItemResponse[T any] struct {
	Data T `json:"data"`
}
