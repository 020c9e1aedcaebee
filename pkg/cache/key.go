package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Fixed cache key names used by the backend.
const (
	KeyTeams         = "teams"
	KeyPlayers       = "players"
	KeyUpcomingGames = "upcomingGames"
)

// Key identifies a cached response: a resource name plus the parameters that
// shaped the request.
type Key struct {
	// Name is the resource (e.g., "teams", "players", "games/live")
	Name string

	// Params are the request parameters (e.g., {"search": "curry"})
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: name:param1=val1,val2:param2=val1
//
// Example:
//
//	players:per_page=25:search=curry
func (k Key) String() string {
	parts := []string{strings.Trim(k.Name, "/")}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := k.Params[name]
			if len(values) == 0 {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}

// ResourceKey is a shorthand for a key without parameters beyond an id.
func ResourceKey(name string, id int) string {
	return fmt.Sprintf("%s:%d", name, id)
}
