package usecase

import (
	"strings"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
)

// NormalizeTeamName lower-cases a name, drops a leading "the " article and trims it.
func NormalizeTeamName(name string) string {
	value := strings.ToLower(strings.TrimSpace(name))
	value = strings.TrimPrefix(value, "the ")
	return strings.TrimSpace(value)
}

type matchStrength int

const (
	strengthNone matchStrength = iota
	strengthSubstring
	strengthAlias
	strengthExact
)

type MatchKind string

const (
	MatchByExternalID MatchKind = "external_id"
	MatchByName       MatchKind = "name"
)

// GameMatch is a stored game resolved for an external game together with its orientation.
type GameMatch struct {
	Game               game.StoredGame
	HomeIsParticipantA bool
	Kind               MatchKind
}

// Matcher resolves scoreboard events against locally stored games.
type Matcher struct {
	aliases AliasTable
}

func NewMatcher(aliases AliasTable) *Matcher {
	return &Matcher{aliases: aliases}
}

// TeamsMatch reports whether two free-text team names refer to the same team.
func (m *Matcher) TeamsMatch(left, right string) bool {
	return m.strength(left, right) > strengthNone
}

func (m *Matcher) strength(left, right string) matchStrength {
	a := NormalizeTeamName(left)
	b := NormalizeTeamName(right)
	if a == "" || b == "" {
		return strengthNone
	}
	if a == b {
		return strengthExact
	}
	if m.aliases.sharesEntry(a, b) {
		return strengthAlias
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return strengthSubstring
	}
	return strengthNone
}

// Match finds the stored game for ext among candidates. A stored external id wins outright;
// otherwise the candidate whose weaker side matches most strongly is chosen, earliest first.
func (m *Matcher) Match(ext game.ExternalGame, candidates []game.StoredGame) (GameMatch, bool) {
	externalID := strings.TrimSpace(ext.ExternalID)
	if externalID != "" {
		for _, candidate := range candidates {
			if strings.TrimSpace(candidate.ExternalID) == externalID {
				return GameMatch{
					Game:               candidate,
					HomeIsParticipantA: m.homeIsParticipantA(candidate, ext),
					Kind:               MatchByExternalID,
				}, true
			}
		}
	}

	best := GameMatch{}
	bestStrength := strengthNone
	for _, candidate := range candidates {
		if !candidate.HasParticipants() {
			continue
		}

		strength, homeIsA := m.pairStrength(candidate, ext)
		if strength > bestStrength {
			best = GameMatch{Game: candidate, HomeIsParticipantA: homeIsA, Kind: MatchByName}
			bestStrength = strength
			if strength == strengthExact {
				break
			}
		}
	}

	return best, bestStrength > strengthNone
}

// pairStrength scores both orientations of a candidate and keeps the stronger one,
// preferring the stored order on ties.
func (m *Matcher) pairStrength(candidate game.StoredGame, ext game.ExternalGame) (matchStrength, bool) {
	correct := minStrength(
		m.strength(candidate.ParticipantA, ext.Home.DisplayName),
		m.strength(candidate.ParticipantB, ext.Away.DisplayName),
	)
	reversed := minStrength(
		m.strength(candidate.ParticipantA, ext.Away.DisplayName),
		m.strength(candidate.ParticipantB, ext.Home.DisplayName),
	)
	if reversed > correct {
		return reversed, false
	}
	return correct, true
}

func (m *Matcher) homeIsParticipantA(candidate game.StoredGame, ext game.ExternalGame) bool {
	if strength, homeIsA := m.pairStrength(candidate, ext); strength > strengthNone {
		return homeIsA
	}
	return m.TeamsMatch(candidate.ParticipantA, ext.Home.DisplayName)
}

func minStrength(left, right matchStrength) matchStrength {
	if left < right {
		return left
	}
	return right
}
