package consensus

import (
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/ballot-consensus-backend/internal/domain/attestation"
	"github.com/yungbote/ballot-consensus-backend/internal/domain/ballots"
)

// Counts are the supporting endorsements one version received.
type Counts struct {
	Users  int `json:"users"`
	Juries int `json:"juries"`
}

func (c Counts) Total() int { return c.Users + c.Juries }

// Tally maps version id to its supporting counts.
type Tally map[uuid.UUID]Counts

// NewTally counts support attestations per version. Rejections and attestations that
// reference a version outside the table are ignored.
func NewTally(versions []*ballots.BallotVersion, atts []*attestation.Attestation) Tally {
	known := make(map[uuid.UUID]struct{}, len(versions))
	for _, v := range versions {
		if v != nil {
			known[v.ID] = struct{}{}
		}
	}
	t := Tally{}
	for _, a := range atts {
		if a == nil || a.Stance != attestation.StanceSupport {
			continue
		}
		if _, ok := known[a.VersionID]; !ok {
			continue
		}
		c := t[a.VersionID]
		switch a.Role {
		case attestation.RoleJury:
			c.Juries++
		case attestation.RoleObserver:
			c.Users++
		default:
			continue
		}
		t[a.VersionID] = c
	}
	return t
}

// Supported lists versions with at least one supporting endorsement, in id order.
func (t Tally) Supported() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(t))
	for id, c := range t {
		if c.Total() > 0 {
			out = append(out, id)
		}
	}
	sortIDs(out)
	return out
}

func (t Tally) TotalSupport() int {
	n := 0
	for _, c := range t {
		n += c.Total()
	}
	return n
}

func (t Tally) TotalJuries() int {
	n := 0
	for _, c := range t {
		n += c.Juries
	}
	return n
}

// UserLeaders returns the candidates tied for the highest observer count.
func UserLeaders(t Tally, candidates []uuid.UUID) []uuid.UUID {
	return leaders(candidates, func(id uuid.UUID) int { return t[id].Users })
}

// JuryLeaders returns the candidates tied for the highest jury count.
func JuryLeaders(t Tally, candidates []uuid.UUID) []uuid.UUID {
	return leaders(candidates, func(id uuid.UUID) int { return t[id].Juries })
}

func leaders(candidates []uuid.UUID, score func(uuid.UUID) int) []uuid.UUID {
	if len(candidates) == 0 {
		return nil
	}
	best := score(candidates[0])
	for _, id := range candidates[1:] {
		if s := score(id); s > best {
			best = s
		}
	}
	out := make([]uuid.UUID, 0, 1)
	for _, id := range candidates {
		if score(id) == best {
			out = append(out, id)
		}
	}
	sortIDs(out)
	return out
}

// Summary renders the tally for the case record.
func (t Tally) Summary() map[string]any {
	per := make(map[string]any, len(t))
	for id, c := range t {
		per[id.String()] = map[string]int{"users": c.Users, "juries": c.Juries}
	}
	return map[string]any{
		"per_version":   per,
		"total_support": t.TotalSupport(),
		"total_juries":  t.TotalJuries(),
	}
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
