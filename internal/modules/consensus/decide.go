package consensus

import (
	"github.com/google/uuid"

	"github.com/yungbote/ballot-consensus-backend/internal/domain/attestation"
)

const (
	// A single jury endorsement, or this many observers, freeze a lone candidate.
	UnanimityJuries = 1
	UnanimityUsers  = 3
)

const (
	RationaleNoSupport             = "no support"
	RationaleUnanimity             = "unanimity threshold met"
	RationaleAwaiting              = "below unanimity threshold, awaiting more endorsements"
	RationaleInsufficient          = "insufficient participation"
	RationaleUserMajority          = "user majority reached"
	RationaleUserMajorityAwaiting  = "user majority below unanimity threshold, awaiting more endorsements"
	RationaleNoJuryTie             = "tie or insufficient support, no juries present"
	RationaleJuryTie               = "jury tie"
	RationaleUserTieBrokenByJury   = "user tie broken by jury majority"
	RationaleUserTieJuryElsewhere  = "user tie; juries favor a different version"
	RationaleJuryConflictsWithUser = "jury majority conflicts with user majority"
	RationaleMajority              = "majority reached"
)

// Verdict is the outcome of Decide for one table.
type Verdict struct {
	Status    attestation.CaseStatus
	Winner    *uuid.UUID
	Rationale string
}

func (v Verdict) HasWinner() bool { return v.Winner != nil }

func unresolved(reason string) Verdict {
	return Verdict{Status: attestation.CaseUnresolved, Rationale: reason}
}

func withWinner(status attestation.CaseStatus, id uuid.UUID, reason string) Verdict {
	w := id
	return Verdict{Status: status, Winner: &w, Rationale: reason}
}

// Decide applies the resolution rules to a table's tally.
//
// Juries outrank observers: a jury tie blocks resolution outright, a jury majority is
// authoritative, and a disagreement between the jury and observer majorities is never
// settled in favour of the observers.
func Decide(t Tally) Verdict {
	if t.TotalSupport() == 0 {
		return unresolved(RationaleNoSupport)
	}
	supported := t.Supported()

	if len(supported) <= 1 {
		return decideSingle(t, supported)
	}
	if t.TotalJuries() == 0 {
		return decideWithoutJuries(t, supported)
	}
	return decideWithJuries(t, supported)
}

func decideSingle(t Tally, supported []uuid.UUID) Verdict {
	if len(supported) == 0 {
		return unresolved(RationaleNoSupport)
	}
	id := supported[0]
	c := t[id]
	switch {
	case c.Juries >= UnanimityJuries || c.Users >= UnanimityUsers:
		return withWinner(attestation.CaseFinal, id, RationaleUnanimity)
	case c.Juries == 0 && c.Users >= 1 && c.Users < UnanimityUsers:
		return withWinner(attestation.CasePending, id, RationaleAwaiting)
	default:
		return unresolved(RationaleInsufficient)
	}
}

func decideWithoutJuries(t Tally, supported []uuid.UUID) Verdict {
	userLeaders := UserLeaders(t, supported)
	if len(userLeaders) != 1 {
		return unresolved(RationaleNoJuryTie)
	}
	leader := userLeaders[0]
	users := t[leader].Users
	switch {
	case users >= UnanimityUsers:
		return withWinner(attestation.CaseAgreed, leader, RationaleUserMajority)
	case users >= 1:
		return withWinner(attestation.CasePending, leader, RationaleUserMajorityAwaiting)
	default:
		return unresolved(RationaleNoJuryTie)
	}
}

func decideWithJuries(t Tally, supported []uuid.UUID) Verdict {
	juryLeaders := JuryLeaders(t, supported)
	if len(juryLeaders) > 1 {
		return unresolved(RationaleJuryTie)
	}
	juryWinner := juryLeaders[0]
	userLeaders := UserLeaders(t, supported)

	if len(userLeaders) > 1 {
		if contains(userLeaders, juryWinner) && t[juryWinner].Juries > 0 {
			return withWinner(attestation.CaseAgreed, juryWinner, RationaleUserTieBrokenByJury)
		}
		return unresolved(RationaleUserTieJuryElsewhere)
	}
	if userLeaders[0] != juryWinner {
		return unresolved(RationaleJuryConflictsWithUser)
	}
	return withWinner(attestation.CaseAgreed, juryWinner, RationaleMajority)
}
