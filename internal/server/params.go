package server

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sportsorca/nba-proxy/pkg/cache"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

// Upstream page size bounds for player search.
const (
	defaultPlayersPerPage = 25
	maxPerPage            = 100
)

type boxScoresQuery struct {
	Date string `json:"date"`
}

func (q boxScoresQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Date, validation.Required, validation.Date(nba.DateLayout)),
	)
}

type seasonAveragesQuery struct {
	Season   string `json:"season"`
	PlayerID string `json:"player_id"`
}

func (q seasonAveragesQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Season, validation.Required, is.Int),
		validation.Field(&q.PlayerID, validation.Required, is.Int),
	)
}

// statsQuery needs at least one of its filters.
type statsQuery struct {
	GameIDs   []string `json:"game_ids[]"`
	PlayerIDs []string `json:"player_ids[]"`
	Dates     []string `json:"dates[]"`
}

func (q statsQuery) Validate() error {
	none := len(q.GameIDs) == 0 && len(q.PlayerIDs) == 0 && len(q.Dates) == 0
	return validation.ValidateStruct(&q,
		validation.Field(&q.GameIDs, validation.Required.When(none), validation.Each(is.Int)),
		validation.Field(&q.PlayerIDs, validation.Required.When(none), validation.Each(is.Int)),
		validation.Field(&q.Dates, validation.Required.When(none), validation.Each(validation.Date(nba.DateLayout))),
	)
}

type playersQuery struct {
	Search  string   `json:"search"`
	TeamIDs []string `json:"team_ids[]"`
	PerPage string   `json:"per_page"`
	Cursor  string   `json:"cursor"`
}

func (q playersQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.TeamIDs, validation.Each(is.Int)),
		validation.Field(&q.PerPage, is.Int),
		validation.Field(&q.Cursor, is.Int),
	)
}

// parsePlayersQuery reads the player search parameters. "page" is accepted as
// an alias of the upstream cursor.
func parsePlayersQuery(r *http.Request) playersQuery {
	values := r.URL.Query()
	q := playersQuery{
		Search:  strings.TrimSpace(values.Get("search")),
		TeamIDs: values["team_ids[]"],
		PerPage: values.Get("per_page"),
		Cursor:  values.Get("cursor"),
	}
	if q.Cursor == "" {
		q.Cursor = values.Get("page")
	}
	return q
}

// upstream returns the query sent to the upstream /players endpoint.
func (q playersQuery) upstream() url.Values {
	out := url.Values{}
	if q.Search != "" {
		out.Set("search", q.Search)
	}
	if len(q.TeamIDs) > 0 {
		ids := slices.Clone(q.TeamIDs)
		slices.Sort(ids)
		out["team_ids[]"] = ids
	}

	perPage := defaultPlayersPerPage
	if n, err := strconv.Atoi(q.PerPage); err == nil && n > 0 {
		perPage = min(n, maxPerPage)
	}
	out.Set("per_page", strconv.Itoa(perPage))

	if q.Cursor != "" {
		out.Set("cursor", q.Cursor)
	}
	return out
}

// playersKey is the response cache key of a player search.
func playersKey(r *http.Request) string {
	return cache.Key{Name: cache.KeyPlayers, Params: parsePlayersQuery(r).upstream()}.String()
}

// playerKey is the response cache key of a single player.
func playerKey(r *http.Request) string {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return ""
	}
	return cache.ResourceKey("player", id)
}

// validate answers 400 when v is invalid and reports whether the request may
// proceed. Missing parameters are reported as missing_parameter(s); any other
// rule failure as invalid_parameter.
func validate(w http.ResponseWriter, v validation.Validatable) bool {
	err := v.Validate()
	if err == nil {
		return true
	}

	var fields validation.Errors
	if !errors.As(err, &fields) {
		writeJSON(w, http.StatusBadRequest, nba.Envelope[any]{Error: nba.ErrorInvalidParameter, Message: err.Error()})
		return false
	}

	var missing []string
	for name, fieldErr := range fields {
		var ruleErr validation.Error
		if errors.As(fieldErr, &ruleErr) && ruleErr.Code() == validation.ErrRequired.Code() {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)

	env := nba.Envelope[any]{}
	switch len(missing) {
	case 0:
		env.Error = nba.ErrorInvalidParameter
		env.Message = fields.Error()
	case 1:
		env.Error = nba.ErrorMissingParameter
		env.Message = "Missing required parameter: " + missing[0]
	default:
		env.Error = nba.ErrorMissingParameters
		env.Message = "Missing required parameters: " + strings.Join(missing, ", ")
	}
	writeJSON(w, http.StatusBadRequest, env)
	return false
}
