package domain

import (
	"github.com/yungbote/ballot-consensus-backend/internal/domain/attestation"
	"github.com/yungbote/ballot-consensus-backend/internal/domain/ballots"
	"github.com/yungbote/ballot-consensus-backend/internal/domain/elections"
	"github.com/yungbote/ballot-consensus-backend/internal/domain/geo"
)

type BallotVersion = ballots.BallotVersion

type Attestation = attestation.Attestation
type AttestationRole = attestation.Role
type AttestationStance = attestation.Stance
type Case = attestation.Case
type CaseStatus = attestation.CaseStatus

type WindowConfig = elections.WindowConfig

type ElectoralTable = geo.ElectoralTable

const (
	RoleJury     = attestation.RoleJury
	RoleObserver = attestation.RoleObserver

	StanceSupport = attestation.StanceSupport
	StanceReject  = attestation.StanceReject

	CaseUnresolved = attestation.CaseUnresolved
	CasePending    = attestation.CasePending
	CaseDisputed   = attestation.CaseDisputed
	CaseAgreed     = attestation.CaseAgreed
	CaseFinal      = attestation.CaseFinal
)
