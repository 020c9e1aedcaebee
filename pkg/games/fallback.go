package games

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sportsorca/nba-proxy/pkg/nba"
)

const (
	// DefaultFallbackCount is the number of games generated when count <= 0.
	DefaultFallbackCount = 5

	// fallbackIDBase keeps synthetic ids clear of real upstream ids.
	fallbackIDBase = 9_000_000

	// Tip-off hours are drawn from [firstTipOff, lastTipOff).
	firstTipOff = 19
	lastTipOff  = 22
)

// Generator produces synthetic upcoming games. It is safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	teams    []nba.Team
	location *time.Location
	now      func() time.Time
}

// NewGenerator creates a generator drawing from the full roster. A nil rng
// gets a time-seeded source.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Generator{
		rng:      rng,
		teams:    nba.Roster,
		location: time.Local,
		now:      time.Now,
	}
}

// NewSeededGenerator returns a generator whose output is fully determined by
// seed and the clock.
func NewSeededGenerator(seed uint64) *Generator {
	return NewGenerator(rand.New(rand.NewPCG(seed, seed)))
}

// SetClock replaces the time source (for testing).
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// SetLocation sets the zone tip-off hours are expressed in.
func (g *Generator) SetLocation(loc *time.Location) {
	if loc != nil {
		g.location = loc
	}
}

// Generate returns count demo games, one per day starting tomorrow, each
// between two distinct teams.
func (g *Generator) Generate(count int) []nba.Game {
	if count <= 0 {
		count = DefaultFallbackCount
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now().In(g.location)
	out := make([]nba.Game, 0, count)

	for i := 0; i < count; i++ {
		home := g.rng.IntN(len(g.teams))
		visitor := g.rng.IntN(len(g.teams))
		for visitor == home {
			visitor = g.rng.IntN(len(g.teams))
		}

		hour := firstTipOff + g.rng.IntN(lastTipOff-firstTipOff)
		day := today.AddDate(0, 0, i+1)
		tipOff := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, g.location)

		out = append(out, nba.Game{
			ID:          fallbackIDBase + i + 1,
			Date:        nba.FormatDate(tipOff),
			Datetime:    tipOff.UTC().Format(time.RFC3339),
			Season:      seasonOf(tipOff),
			Status:      nba.StatusUpcoming,
			HomeTeam:    g.teams[home],
			VisitorTeam: g.teams[visitor],
			Demo:        true,
			Fallback:    true,
		})
	}

	fallbackGenerated.Add(float64(count))
	return out
}

// Reschedule turns finished historical games into demo upcoming games: team
// identities are kept, the schedule is moved to a random point within window
// from now and the result is reset.
func (g *Generator) Reschedule(historical []nba.Game, window time.Duration) []nba.Game {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	out := make([]nba.Game, 0, len(historical))

	for _, game := range historical {
		var offset time.Duration
		if window > 0 {
			offset = time.Duration(g.rng.Int64N(int64(window)))
		}
		at := now.Add(offset)

		game.OriginalDate = game.Date
		game.Date = nba.FormatDate(at)
		game.Datetime = at.UTC().Format(time.RFC3339)
		game.Status = nba.StatusUpcoming
		game.Period = 0
		game.Time = ""
		game.HomeTeamScore = nil
		game.VisitorTeamScore = nil
		game.Demo = true
		out = append(out, game)
	}

	historicalReschedules.Add(float64(len(out)))
	return out
}

// seasonOf returns the season a date belongs to; seasons start in October.
func seasonOf(t time.Time) int {
	if t.Month() >= time.October {
		return t.Year()
	}
	return t.Year() - 1
}
