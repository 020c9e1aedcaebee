package games

import (
	"reflect"
	"testing"
	"time"

	"github.com/sportsorca/nba-proxy/pkg/nba"
)

var fixedNow = time.Date(2025, 10, 10, 15, 0, 0, 0, time.UTC)

func newTestGenerator(seed uint64) *Generator {
	g := NewSeededGenerator(seed)
	g.SetClock(func() time.Time { return fixedNow })
	g.SetLocation(time.UTC)
	return g
}

func TestGenerator_GenerateFive(t *testing.T) {
	games := newTestGenerator(1).Generate(5)

	if len(games) != 5 {
		t.Fatalf("len = %d, want 5", len(games))
	}
	for i, g := range games {
		if g.HomeTeam.ID == g.VisitorTeam.ID {
			t.Errorf("game %d: team plays itself (%s)", i, g.HomeTeam.Abbreviation)
		}
		if !g.Demo || !g.Fallback {
			t.Errorf("game %d: demo=%v fallback=%v, want both true", i, g.Demo, g.Fallback)
		}
		if g.Status != nba.StatusUpcoming || g.Period != 0 {
			t.Errorf("game %d: status=%q period=%d", i, g.Status, g.Period)
		}
		if g.HomeTeamScore != nil || g.VisitorTeamScore != nil {
			t.Errorf("game %d: scores should be null", i)
		}
	}
}

func TestGenerator_DefaultCount(t *testing.T) {
	for _, count := range []int{0, -3} {
		if got := len(newTestGenerator(1).Generate(count)); got != DefaultFallbackCount {
			t.Errorf("Generate(%d) returned %d games, want %d", count, got, DefaultFallbackCount)
		}
	}
}

func TestGenerator_Schedule(t *testing.T) {
	games := newTestGenerator(7).Generate(5)

	for i, g := range games {
		at := g.Effective()
		wantDay := fixedNow.AddDate(0, 0, i+1)
		if at.Year() != wantDay.Year() || at.YearDay() != wantDay.YearDay() {
			t.Errorf("game %d on %s, want %s", i, g.Date, nba.FormatDate(wantDay))
		}
		if h := at.Hour(); h < 19 || h >= 22 {
			t.Errorf("game %d tips off at hour %d, want [19,22)", i, h)
		}
		if g.Season != 2025 {
			t.Errorf("game %d season = %d, want 2025", i, g.Season)
		}
	}
}

func TestGenerator_DeterministicWithSeed(t *testing.T) {
	a := newTestGenerator(42).Generate(5)
	b := newTestGenerator(42).Generate(5)

	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different games")
	}
}

func TestGenerator_Reschedule(t *testing.T) {
	home, visitor := 48, 51
	historical := []nba.Game{{
		ID:               15907925,
		Date:             "2025-03-02",
		Datetime:         "2025-03-02T00:30:00Z",
		Status:           nba.StatusFinal,
		Period:           4,
		HomeTeam:         nba.Roster[1],
		VisitorTeam:      nba.Roster[13],
		HomeTeamScore:    &home,
		VisitorTeamScore: &visitor,
	}}

	out := newTestGenerator(3).Reschedule(historical, 7*24*time.Hour)
	if len(out) != 1 {
		t.Fatalf("len = %d", len(out))
	}
	g := out[0]

	if g.ID != 15907925 || g.HomeTeam.ID != 2 || g.VisitorTeam.ID != 14 {
		t.Errorf("identity changed: %+v", g)
	}
	if !g.Demo || g.Fallback {
		t.Errorf("demo=%v fallback=%v, want demo only", g.Demo, g.Fallback)
	}
	if g.OriginalDate != "2025-03-02" {
		t.Errorf("OriginalDate = %q", g.OriginalDate)
	}
	if g.Status != nba.StatusUpcoming || g.HomeTeamScore != nil || g.VisitorTeamScore != nil || g.Period != 0 {
		t.Errorf("result not reset: %+v", g)
	}
	at := g.Effective()
	if at.Before(fixedNow) || !at.Before(fixedNow.Add(7*24*time.Hour)) {
		t.Errorf("rescheduled to %v, want within a week of %v", at, fixedNow)
	}
	if g.Date != nba.FormatDate(at) {
		t.Errorf("date %q and datetime %q disagree", g.Date, g.Datetime)
	}

	// The input is untouched.
	if historical[0].Status != nba.StatusFinal || historical[0].HomeTeamScore == nil {
		t.Error("Reschedule modified its input")
	}
}

func TestSeasonOf(t *testing.T) {
	tests := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), 2024},
	}
	for _, tt := range tests {
		if got := seasonOf(tt.at); got != tt.want {
			t.Errorf("seasonOf(%v) = %d, want %d", tt.at, got, tt.want)
		}
	}
}
