package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/ballot-consensus-backend/internal/data/repos"
	"github.com/yungbote/ballot-consensus-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
)

func TestCreateBulkReportsEachItem(t *testing.T) {
	e := newEnv(t)
	v1 := testutil.SeedBallotVersion(t, e.ctx, e.db, "T-1", 1)
	submitter := uuid.NewString()

	items := []AttestationItem{
		{VersionID: v1.ID.String(), SubmitterID: submitter, Role: "jury", Stance: "support"},
		{VersionID: v1.ID.String(), SubmitterID: submitter, Role: "jury", Stance: "support"},
		{VersionID: v1.ID.String(), SubmitterID: uuid.NewString(), Role: "auditor", Stance: "support"},
		{VersionID: v1.ID.String(), SubmitterID: uuid.NewString(), Role: "observer", Stance: "maybe"},
		{VersionID: uuid.NewString(), SubmitterID: uuid.NewString(), Role: "observer", Stance: "support"},
		{VersionID: "not-a-uuid", SubmitterID: uuid.NewString(), Role: "observer", Stance: "support"},
		{VersionID: v1.ID.String(), SubmitterID: uuid.NewString(), Role: "Observer", Stance: "REJECT"},
	}
	res, err := e.attestations.CreateBulk(e.dbc(), items)
	if err != nil {
		t.Fatalf("CreateBulk: %v", err)
	}
	if res.Summary.Total != 7 || res.Summary.Successful != 2 || res.Summary.Failed != 5 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}

	want := map[int]string{
		1: ReasonDuplicateAttestation,
		2: ReasonInvalidRole,
		3: ReasonInvalidStance,
		4: ReasonVersionNotFound,
		5: ReasonInvalidItem,
	}
	for _, f := range res.Failed {
		if want[f.Index] != f.Code {
			t.Fatalf("item %d: got code %s want %s", f.Index, f.Code, want[f.Index])
		}
		if f.Item != items[f.Index] {
			t.Fatalf("item %d: failure should echo the submitted item", f.Index)
		}
	}
	if res.Created[1].Role != types.RoleObserver || res.Created[1].Stance != types.StanceReject {
		t.Fatalf("role and stance should be normalized: %+v", res.Created[1])
	}
}

func TestCreateBulkDeduplicatesAcrossBatches(t *testing.T) {
	e := newEnv(t)
	v1 := testutil.SeedBallotVersion(t, e.ctx, e.db, "T-1", 1)
	v2 := testutil.SeedBallotVersion(t, e.ctx, e.db, "T-1", 2)
	submitter := uuid.NewString()

	first, err := e.attestations.CreateBulk(e.dbc(), []AttestationItem{
		{VersionID: v1.ID.String(), SubmitterID: submitter, Role: "observer", Stance: "support"},
	})
	if err != nil || first.Summary.Successful != 1 {
		t.Fatalf("first batch: %+v err=%v", first, err)
	}
	second, err := e.attestations.CreateBulk(e.dbc(), []AttestationItem{
		{VersionID: v1.ID.String(), SubmitterID: submitter, Role: "jury", Stance: "reject"},
		{VersionID: v2.ID.String(), SubmitterID: submitter, Role: "observer", Stance: "support"},
	})
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if second.Summary.Successful != 1 || len(second.Failed) != 1 || second.Failed[0].Code != ReasonDuplicateAttestation {
		t.Fatalf("expected one duplicate and one new attestation: %+v", second)
	}

	stored, err := e.attestations.ListByVersion(e.dbc(), v1.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 || stored[0].Role != types.RoleObserver || stored[0].Stance != types.StanceSupport {
		t.Fatalf("first attestation must win: %+v", stored)
	}
}

func TestCreateBulkRejectsUnusableBatch(t *testing.T) {
	e := newEnv(t)
	if _, err := e.attestations.CreateBulk(e.dbc(), nil); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("empty batch: %v", err)
	}
	tooMany := make([]AttestationItem, MaxBulkItems+1)
	if _, err := e.attestations.CreateBulk(e.dbc(), tooMany); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("oversized batch: %v", err)
	}
}

func TestAttestationQueries(t *testing.T) {
	e := newEnv(t)
	v1 := testutil.SeedBallotVersion(t, e.ctx, e.db, "T-1", 1)
	v2 := testutil.SeedBallotVersion(t, e.ctx, e.db, "T-1", 2)
	testutil.SeedSupport(t, e.ctx, e.db, v1.ID, 2, 0)
	testutil.SeedSupport(t, e.ctx, e.db, v2.ID, 1, 1)
	rej := testutil.SeedAttestation(t, e.ctx, e.db, v1.ID, types.RoleJury, types.StanceReject)

	top, err := e.attestations.MostSupported(e.dbc(), "T-1")
	if err != nil {
		t.Fatalf("most supported: %v", err)
	}
	if top.VersionID != v2.ID || top.Support != 2 || top.Total != 2 {
		t.Fatalf("tie on support should favour the higher version: %+v", top)
	}
	if _, err := e.attestations.MostSupported(e.dbc(), "T-404"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	rows, total, err := e.attestations.List(e.dbc(), repos.AttestationListFilter{Stance: types.StanceReject})
	if err != nil || total != 1 || len(rows) != 1 || rows[0].ID != rej.ID {
		t.Fatalf("stance filter: rows=%d total=%d err=%v", len(rows), total, err)
	}
	rows, total, err = e.attestations.List(e.dbc(), repos.AttestationListFilter{SubmitterID: &rej.SubmitterID})
	if err != nil || total != 1 || len(rows) != 1 || rows[0].ID != rej.ID {
		t.Fatalf("submitter filter: rows=%d total=%d err=%v", len(rows), total, err)
	}
	if _, _, err := e.attestations.List(e.dbc(), repos.AttestationListFilter{Role: "auditor"}); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected invalid role, got %v", err)
	}
	if _, err := e.attestations.ListByVersion(e.dbc(), uuid.New()); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected not found for unknown version, got %v", err)
	}

	if err := e.attestations.Remove(e.dbc(), rej.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := e.attestations.Remove(e.dbc(), rej.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("second remove should be not found, got %v", err)
	}
}
