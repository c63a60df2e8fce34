package espn

import (
	"sort"
	"strings"
)

// sportPaths maps a sport code to its scoreboard path under the site API.
var sportPaths = map[string]string{
	"MLB":        "baseball/mlb",
	"NBA":        "basketball/nba",
	"NFL":        "football/nfl",
	"NHL":        "hockey/nhl",
	"MLS":        "soccer/usa.1",
	"EPL":        "soccer/eng.1",
	"LALIGA":     "soccer/esp.1",
	"BUNDESLIGA": "soccer/ger.1",
	"SERIE_A":    "soccer/ita.1",
	"LIGUE_1":    "soccer/fra.1",
}

// SportPath resolves a sport code, case-insensitively, to its scoreboard path.
func SportPath(sport string) (string, bool) {
	path, ok := sportPaths[strings.ToUpper(strings.TrimSpace(sport))]
	return path, ok
}

func SupportedSports() []string {
	out := make([]string, 0, len(sportPaths))
	for code := range sportPaths {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
