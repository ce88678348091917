package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/ballot-consensus-backend/internal/data/repos"
	"github.com/yungbote/ballot-consensus-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	"github.com/yungbote/ballot-consensus-backend/internal/modules/consensus"
	"github.com/yungbote/ballot-consensus-backend/internal/observability"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
)

type seededTable struct {
	v1, v2 *types.BallotVersion
}

func (e *env) seedTable(t *testing.T, code string) seededTable {
	t.Helper()
	testutil.SeedElectoralTable(t, e.ctx, e.db, code, "La Paz", "Murillo", "La Paz")
	return seededTable{
		v1: testutil.SeedBallotVersion(t, e.ctx, e.db, code, 1),
		v2: testutil.SeedBallotVersion(t, e.ctx, e.db, code, 2),
	}
}

func (e *env) caseOf(t *testing.T, code string) *types.Case {
	t.Helper()
	c, err := e.cases.Get(e.dbc(), code)
	if err != nil {
		t.Fatalf("case %s: %v", code, err)
	}
	return c
}

func (e *env) flagged(t *testing.T, code string) []uuid.UUID {
	t.Helper()
	var ids []uuid.UUID
	if err := e.db.Model(&types.BallotVersion{}).
		Where("table_code = ? AND counts_toward_totals = ?", code, true).
		Pluck("id", &ids).Error; err != nil {
		t.Fatalf("flags %s: %v", code, err)
	}
	return ids
}

func (e *env) observed(t *testing.T, code string) bool {
	t.Helper()
	var et types.ElectoralTable
	if err := e.db.Where("table_code = ?", code).First(&et).Error; err != nil {
		t.Fatalf("table %s: %v", code, err)
	}
	return et.Observed
}

func TestResolverWaitsForVotingToClose(t *testing.T) {
	e := newEnv(t)
	tbl := e.seedTable(t, "T-1")
	testutil.SeedSupport(t, e.ctx, e.db, tbl.v1.ID, 0, 1)

	report, err := e.resolver.RunOnce(e.ctx)
	if err != nil || report.Outcome != RunSkippedNoWindow {
		t.Fatalf("no window: %+v err=%v", report, err)
	}

	testutil.SeedWindow(t, e.ctx, e.db, e.now.Add(-time.Hour), e.now.Add(time.Hour), e.now.Add(2*time.Hour), true)
	report, err = e.resolver.RunOnce(e.ctx)
	if err != nil || report.Outcome != RunSkippedVotingOpen || report.Tables != 0 {
		t.Fatalf("voting open: %+v err=%v", report, err)
	}
	if _, err := e.cases.Get(e.dbc(), "T-1"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("no case may exist before voting closes, got %v", err)
	}

	e.now = e.now.Add(time.Hour + time.Second)
	report, err = e.resolver.RunOnce(e.ctx)
	if err != nil || report.Outcome != RunCompleted || report.Resolved != 1 {
		t.Fatalf("after close: %+v err=%v", report, err)
	}
}

func TestResolverEndToEnd(t *testing.T) {
	e := newEnv(t)
	e.closedWindow(t)

	final := e.seedTable(t, "T-1")
	testutil.SeedSupport(t, e.ctx, e.db, final.v1.ID, 0, 1)

	tie := e.seedTable(t, "T-2")
	testutil.SeedSupport(t, e.ctx, e.db, tie.v1.ID, 3, 2)
	testutil.SeedSupport(t, e.ctx, e.db, tie.v2.ID, 0, 2)

	pending := e.seedTable(t, "T-3")
	testutil.SeedSupport(t, e.ctx, e.db, pending.v2.ID, 2, 0)

	rejected := e.seedTable(t, "T-4")
	testutil.SeedAttestation(t, e.ctx, e.db, rejected.v1.ID, types.RoleJury, types.StanceReject)

	conflict := e.seedTable(t, "T-5")
	testutil.SeedSupport(t, e.ctx, e.db, conflict.v1.ID, 5, 0)
	testutil.SeedSupport(t, e.ctx, e.db, conflict.v2.ID, 0, 1)

	e.seedTable(t, "T-6")

	report, err := e.resolver.RunOnce(e.ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Outcome != RunCompleted || report.Tables != 5 || report.Resolved != 5 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.ByStatus["FINAL"] != 1 || report.ByStatus["PENDING"] != 1 || report.ByStatus["UNRESOLVED"] != 3 {
		t.Fatalf("unexpected status breakdown: %v", report.ByStatus)
	}

	tests := []struct {
		code      string
		status    types.CaseStatus
		winner    *uuid.UUID
		rationale string
	}{
		{code: "T-1", status: types.CaseFinal, winner: &final.v1.ID, rationale: consensus.RationaleUnanimity},
		{code: "T-2", status: types.CaseUnresolved, rationale: consensus.RationaleJuryTie},
		{code: "T-3", status: types.CasePending, winner: &pending.v2.ID, rationale: consensus.RationaleAwaiting},
		{code: "T-4", status: types.CaseUnresolved, rationale: consensus.RationaleNoSupport},
		{code: "T-5", status: types.CaseUnresolved, rationale: consensus.RationaleJuryConflictsWithUser},
	}
	for _, tc := range tests {
		c := e.caseOf(t, tc.code)
		if c.Status != tc.status || c.Rationale != tc.rationale {
			t.Fatalf("%s: got %s %q want %s %q", tc.code, c.Status, c.Rationale, tc.status, tc.rationale)
		}
		flags := e.flagged(t, tc.code)
		if tc.winner == nil {
			if c.WinningVersionID != nil || len(flags) != 0 {
				t.Fatalf("%s: expected no winner and no flags, got %v %v", tc.code, c.WinningVersionID, flags)
			}
		} else if len(flags) != 1 || flags[0] != *tc.winner || *c.WinningVersionID != *tc.winner {
			t.Fatalf("%s: expected %s flagged, got %v", tc.code, tc.winner, flags)
		}
		if got, want := e.observed(t, tc.code), tc.status == types.CaseUnresolved; got != want {
			t.Fatalf("%s: observed=%v want %v", tc.code, got, want)
		}
	}
	if _, err := e.cases.Get(e.dbc(), "T-6"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("table without attestations must not get a case, got %v", err)
	}
}

func TestResolverIsIdempotent(t *testing.T) {
	e := newEnv(t)
	e.closedWindow(t)
	a := e.seedTable(t, "T-1")
	testutil.SeedSupport(t, e.ctx, e.db, a.v1.ID, 4, 2)
	testutil.SeedSupport(t, e.ctx, e.db, a.v2.ID, 1, 1)
	b := e.seedTable(t, "T-2")
	testutil.SeedSupport(t, e.ctx, e.db, b.v1.ID, 2, 0)
	testutil.SeedSupport(t, e.ctx, e.db, b.v2.ID, 2, 0)

	if _, err := e.resolver.RunOnce(e.ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstA, firstB := e.caseOf(t, "T-1"), e.caseOf(t, "T-2")

	e.now = e.now.Add(5 * time.Minute)
	report, err := e.resolver.RunOnce(e.ctx)
	if err != nil || report.Resolved != 2 {
		t.Fatalf("second run: %+v err=%v", report, err)
	}
	secondA, secondB := e.caseOf(t, "T-1"), e.caseOf(t, "T-2")

	if secondA.ID != firstA.ID || secondA.Status != types.CaseAgreed || *secondA.WinningVersionID != a.v1.ID || secondA.Rationale != firstA.Rationale {
		t.Fatalf("T-1 changed between runs: %+v vs %+v", firstA, secondA)
	}
	if secondB.Status != types.CaseUnresolved || secondB.Rationale != consensus.RationaleNoJuryTie || secondB.ID != firstB.ID {
		t.Fatalf("T-2 changed between runs: %+v vs %+v", firstB, secondB)
	}
	if flags := e.flagged(t, "T-1"); len(flags) != 1 || flags[0] != a.v1.ID {
		t.Fatalf("T-1 flags: %v", flags)
	}
	if !secondA.ResolvedAt.After(firstA.ResolvedAt) {
		t.Fatalf("resolved_at should advance: %s -> %s", firstA.ResolvedAt, secondA.ResolvedAt)
	}
}

func TestResolverNeverRevisitsFinal(t *testing.T) {
	e := newEnv(t)
	e.closedWindow(t)
	tbl := e.seedTable(t, "T-1")
	testutil.SeedSupport(t, e.ctx, e.db, tbl.v1.ID, 3, 0)

	if _, err := e.resolver.RunOnce(e.ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if c := e.caseOf(t, "T-1"); c.Status != types.CaseFinal {
		t.Fatalf("expected FINAL, got %s", c.Status)
	}

	testutil.SeedSupport(t, e.ctx, e.db, tbl.v2.ID, 0, 3)
	report, err := e.resolver.RunOnce(e.ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Tables != 0 {
		t.Fatalf("FINAL table must not be enumerated: %+v", report)
	}
	c := e.caseOf(t, "T-1")
	if c.Status != types.CaseFinal || *c.WinningVersionID != tbl.v1.ID {
		t.Fatalf("FINAL case changed: %+v", c)
	}
	if flags := e.flagged(t, "T-1"); len(flags) != 1 || flags[0] != tbl.v1.ID {
		t.Fatalf("flags moved off the FINAL winner: %v", flags)
	}
}

func TestResolverPromotesPendingCase(t *testing.T) {
	e := newEnv(t)
	e.closedWindow(t)
	tbl := e.seedTable(t, "T-1")
	testutil.SeedSupport(t, e.ctx, e.db, tbl.v2.ID, 2, 0)

	if _, err := e.resolver.RunOnce(e.ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if c := e.caseOf(t, "T-1"); c.Status != types.CasePending {
		t.Fatalf("expected PENDING, got %s", c.Status)
	}

	testutil.SeedSupport(t, e.ctx, e.db, tbl.v2.ID, 1, 0)
	if _, err := e.resolver.RunOnce(e.ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	c := e.caseOf(t, "T-1")
	if c.Status != types.CaseFinal || *c.WinningVersionID != tbl.v2.ID {
		t.Fatalf("expected FINAL for v2, got %+v", c)
	}
}

func TestResolverReflagsWhenWinnerChanges(t *testing.T) {
	e := newEnv(t)
	e.closedWindow(t)
	tbl := e.seedTable(t, "T-1")
	testutil.SeedSupport(t, e.ctx, e.db, tbl.v1.ID, 2, 0)
	testutil.SeedSupport(t, e.ctx, e.db, tbl.v2.ID, 1, 0)

	if _, err := e.resolver.RunOnce(e.ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if flags := e.flagged(t, "T-1"); len(flags) != 1 || flags[0] != tbl.v1.ID {
		t.Fatalf("expected v1 flagged, got %v", flags)
	}

	testutil.SeedSupport(t, e.ctx, e.db, tbl.v2.ID, 2, 0)
	if _, err := e.resolver.RunOnce(e.ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	c := e.caseOf(t, "T-1")
	if c.Status != types.CaseAgreed || *c.WinningVersionID != tbl.v2.ID {
		t.Fatalf("expected AGREED v2, got %+v", c)
	}
	if flags := e.flagged(t, "T-1"); len(flags) != 1 || flags[0] != tbl.v2.ID {
		t.Fatalf("expected only v2 flagged, got %v", flags)
	}
}

type fakeLock struct {
	ok       bool
	err      error
	released int
}

func (l *fakeLock) TryLock(context.Context) (func(context.Context) error, bool, error) {
	if l.err != nil || !l.ok {
		return nil, l.ok, l.err
	}
	return func(context.Context) error {
		l.released++
		return nil
	}, true, nil
}

func withLock(e *env, lock RunLock) ResolverService {
	r := e.resolver.(*resolverService)
	return NewResolverService(e.log, r.cfg, ResolverDeps{
		Windows:      r.windows,
		Attestations: r.attestations,
		Versions:     r.versions,
		Cases:        r.cases,
		Lock:         lock,
		Clock:        e.clock,
	})
}

func TestResolverHonoursDistributedLock(t *testing.T) {
	e := newEnv(t)
	e.closedWindow(t)

	held := &fakeLock{ok: false}
	report, err := withLock(e, held).RunOnce(e.ctx)
	if !errors.Is(err, ErrRunInProgress) || !errors.Is(err, pkgerrors.ErrConflict) || report.Outcome != RunSkippedLocked {
		t.Fatalf("held lock: %+v err=%v", report, err)
	}

	broken := &fakeLock{err: errors.New("redis down")}
	report, err = withLock(e, broken).RunOnce(e.ctx)
	if err == nil || report.Outcome != RunFailed {
		t.Fatalf("lock error: %+v err=%v", report, err)
	}

	free := &fakeLock{ok: true}
	report, err = withLock(e, free).RunOnce(e.ctx)
	if err != nil || report.Outcome != RunCompleted || free.released != 1 {
		t.Fatalf("free lock: %+v err=%v released=%d", report, err, free.released)
	}
}

type blockingLock struct {
	entered chan struct{}
	proceed chan struct{}
}

func (l *blockingLock) TryLock(context.Context) (func(context.Context) error, bool, error) {
	close(l.entered)
	<-l.proceed
	return nil, false, nil
}

func TestResolverSkipsOverlappingRun(t *testing.T) {
	e := newEnv(t)
	e.closedWindow(t)
	lock := &blockingLock{entered: make(chan struct{}), proceed: make(chan struct{})}
	r := withLock(e, lock)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = r.RunOnce(e.ctx)
	}()
	<-lock.entered

	report, err := r.RunOnce(e.ctx)
	close(lock.proceed)
	wg.Wait()
	if !errors.Is(err, ErrRunInProgress) || report.Outcome != RunSkippedLocked {
		t.Fatalf("overlapping run: %+v err=%v", report, err)
	}
}

// cancelOnRead cancels the run as soon as any table's attestations are read.
type cancelOnRead struct {
	repos.AttestationRepo
	cancel context.CancelFunc
}

func (r cancelOnRead) ListByVersionIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Attestation, error) {
	r.cancel()
	if err := dbc.Ctx.Err(); err != nil {
		return nil, err
	}
	return r.AttestationRepo.ListByVersionIDs(dbc, ids)
}

func TestResolverReportsCancellation(t *testing.T) {
	e := newEnv(t)
	e.closedWindow(t)
	for _, code := range []string{"T-1", "T-2", "T-3"} {
		tbl := e.seedTable(t, code)
		testutil.SeedSupport(t, e.ctx, e.db, tbl.v1.ID, 0, 1)
	}

	ctx, cancel := context.WithCancel(e.ctx)
	defer cancel()
	metrics := observability.NewMetrics()
	base := e.resolver.(*resolverService)
	r := NewResolverService(e.log, ResolverConfig{Concurrency: 1, StoreTimeout: 30 * time.Second}, ResolverDeps{
		Windows:      base.windows,
		Attestations: cancelOnRead{AttestationRepo: base.attestations, cancel: cancel},
		Versions:     base.versions,
		Cases:        base.cases,
		Metrics:      metrics,
		Clock:        e.clock,
	})

	report, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Outcome != RunCanceled {
		t.Fatalf("expected canceled outcome, got %+v", report)
	}
	if report.Tables == 0 || report.Failed != report.Tables || report.Resolved != 0 {
		t.Fatalf("every dispatched table should fail: %+v", report)
	}
	for _, res := range report.Results {
		if !res.Retryable {
			t.Fatalf("cancellation should be retryable: %+v", res)
		}
	}
	for _, code := range []string{"T-1", "T-2", "T-3"} {
		if _, err := e.cases.Get(e.dbc(), code); !errors.Is(err, pkgerrors.ErrNotFound) {
			t.Fatalf("%s: no case may be committed after cancellation, got %v", code, err)
		}
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`ballot_resolver_runs_total{outcome="canceled"} 1`,
		fmt.Sprintf(`ballot_resolver_tables_total{result="error_retryable"} %d`, report.Failed),
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}
