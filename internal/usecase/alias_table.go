package usecase

import (
	"sort"
	"strings"
)

// AliasTable maps a canonical team nickname to known variants of the full name.
// The zero value matches nothing. Instances are immutable once built.
type AliasTable struct {
	entries []aliasEntry
}

type aliasEntry struct {
	key      string
	variants []string
}

func NewAliasTable(mapping map[string][]string) AliasTable {
	entries := make([]aliasEntry, 0, len(mapping))
	for key, variants := range mapping {
		normalizedKey := NormalizeTeamName(key)
		if normalizedKey == "" {
			continue
		}

		normalizedVariants := make([]string, 0, len(variants))
		for _, variant := range variants {
			if v := NormalizeTeamName(variant); v != "" {
				normalizedVariants = append(normalizedVariants, v)
			}
		}
		entries = append(entries, aliasEntry{key: normalizedKey, variants: normalizedVariants})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	return AliasTable{entries: entries}
}

// DefaultAliasTable returns the NBA nickname table used by the scoreboard sync.
func DefaultAliasTable() AliasTable {
	return NewAliasTable(map[string][]string{
		"lakers":        {"los angeles lakers", "la lakers"},
		"clippers":      {"los angeles clippers", "la clippers"},
		"warriors":      {"golden state warriors", "golden state"},
		"knicks":        {"new york knicks", "new york"},
		"nets":          {"brooklyn nets", "brooklyn"},
		"celtics":       {"boston celtics", "boston"},
		"bulls":         {"chicago bulls", "chicago"},
		"heat":          {"miami heat", "miami"},
		"bucks":         {"milwaukee bucks", "milwaukee"},
		"magic":         {"orlando magic", "orlando"},
		"pistons":       {"detroit pistons", "detroit"},
		"pacers":        {"indiana pacers", "indiana"},
		"hawks":         {"atlanta hawks", "atlanta"},
		"wizards":       {"washington wizards", "washington"},
		"raptors":       {"toronto raptors", "toronto"},
		"hornets":       {"charlotte hornets", "charlotte"},
		"rockets":       {"houston rockets", "houston"},
		"pelicans":      {"new orleans pelicans", "new orleans"},
		"spurs":         {"san antonio spurs", "san antonio"},
		"mavericks":     {"dallas mavericks", "dallas"},
		"nuggets":       {"denver nuggets", "denver"},
		"timberwolves":  {"minnesota timberwolves", "minnesota"},
		"thunder":       {"oklahoma city thunder", "oklahoma city", "okc"},
		"trail blazers": {"portland trail blazers", "portland"},
		"jazz":          {"utah jazz", "utah"},
		"suns":          {"phoenix suns", "phoenix"},
		"kings":         {"sacramento kings", "sacramento"},
		"grizzlies":     {"memphis grizzlies", "memphis"},
		"76ers":         {"philadelphia 76ers", "philadelphia", "philly"},
		"cavaliers":     {"cleveland cavaliers", "cleveland"},
	})
}

func (t AliasTable) Len() int {
	return len(t.entries)
}

// sharesEntry reports whether both normalized names mention the same alias entry.
func (t AliasTable) sharesEntry(left, right string) bool {
	for _, entry := range t.entries {
		if entry.mentionedIn(left) && entry.mentionedIn(right) {
			return true
		}
	}
	return false
}

func (e aliasEntry) mentionedIn(name string) bool {
	if strings.Contains(name, e.key) {
		return true
	}
	for _, variant := range e.variants {
		if strings.Contains(name, variant) {
			return true
		}
	}
	return false
}
