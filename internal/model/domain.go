package model

import (
	"strings"

	"patrol-service/internal/domain/patrol"
)

type Rank string

const (
	RankConstable Rank = "Constable"
	RankSergeant  Rank = "Sergeant"
	RankInspector Rank = "Inspector"
)

var ranks = []Rank{RankConstable, RankSergeant, RankInspector}

// ParseRank matches a token rank claim against the known ranks, ignoring case.
func ParseRank(s string) (Rank, bool) {
	s = strings.TrimSpace(s)
	for _, r := range ranks {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// Principal is the authenticated officer behind a request.
type Principal struct {
	ForceID   string
	Name      string
	Rank      Rank
	StationID string
}

func (p Principal) IsInspector() bool {
	return strings.EqualFold(string(p.Rank), string(RankInspector))
}

// CanIssueTicket is granted to every sworn rank.
func (p Principal) CanIssueTicket() bool {
	return p.ForceID != ""
}

// CanOverrideImpound lets an officer ticket a RED vehicle instead of
// impounding it. Only inspectors hold it.
func (p Principal) CanOverrideImpound() bool {
	return p.IsInspector()
}

// Officer is the identity snapshot printed on tickets.
func (p Principal) Officer() patrol.Officer {
	return patrol.Officer{
		ForceID:   p.ForceID,
		Name:      p.Name,
		Rank:      string(p.Rank),
		StationID: p.StationID,
	}
}
