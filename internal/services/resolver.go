package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/ballot-consensus-backend/internal/data/aggregates"
	"github.com/yungbote/ballot-consensus-backend/internal/data/repos"
	domainagg "github.com/yungbote/ballot-consensus-backend/internal/domain/aggregates"
	"github.com/yungbote/ballot-consensus-backend/internal/modules/consensus"
	"github.com/yungbote/ballot-consensus-backend/internal/observability"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/ctxutil"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

// Run outcomes, also used as the resolver_runs_total label.
const (
	RunCompleted         = "completed"
	RunCanceled          = "canceled"
	RunSkippedNoWindow   = "skipped_no_window"
	RunSkippedVotingOpen = "skipped_voting_open"
	RunSkippedLocked     = "skipped_locked"
	RunFailed            = "failed"
)

var ErrRunInProgress = fmt.Errorf("%w: resolver run already in progress", pkgerrors.ErrConflict)

// RunLock serializes runs across replicas. release must be called once the run ends.
type RunLock interface {
	TryLock(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

type ResolverConfig struct {
	Concurrency  int
	StoreTimeout time.Duration
}

func (c ResolverConfig) withDefaults() ResolverConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 10 * time.Second
	}
	return c
}

type TableOutcome struct {
	TableCode        string     `json:"table_code"`
	Status           string     `json:"status,omitempty"`
	Rationale        string     `json:"rationale,omitempty"`
	WinningVersionID *uuid.UUID `json:"winning_version_id,omitempty"`
	SkippedFinal     bool       `json:"skipped_final,omitempty"`
	Error            string     `json:"error,omitempty"`
	Retryable        bool       `json:"retryable,omitempty"`

	canceled bool
}

type RunReport struct {
	Outcome      string         `json:"outcome"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Tables       int            `json:"tables"`
	Resolved     int            `json:"resolved"`
	SkippedFinal int            `json:"skipped_final"`
	Failed       int            `json:"failed"`
	ByStatus     map[string]int `json:"by_status"`
	Results      []TableOutcome `json:"results"`
}

type ResolverService interface {
	// RunOnce performs one resolution pass over every table that has attestations and
	// no FINAL case. It is a no-op until voting has closed under the active window.
	RunOnce(ctx context.Context) (*RunReport, error)
}

type resolverService struct {
	log          *logger.Logger
	cfg          ResolverConfig
	windows      WindowService
	attestations repos.AttestationRepo
	versions     repos.BallotVersionRepo
	cases        domainagg.CaseResolutionAggregate
	metrics      *observability.Metrics
	lock         RunLock
	clock        Clock

	mu sync.Mutex
}

type ResolverDeps struct {
	Windows      WindowService
	Attestations repos.AttestationRepo
	Versions     repos.BallotVersionRepo
	Cases        domainagg.CaseResolutionAggregate
	Metrics      *observability.Metrics
	// Lock is optional; nil keeps serialization in-process only.
	Lock  RunLock
	Clock Clock
}

func NewResolverService(baseLog *logger.Logger, cfg ResolverConfig, deps ResolverDeps) ResolverService {
	clock := deps.Clock
	if clock == nil {
		clock = systemClock
	}
	return &resolverService{
		log:          baseLog.With("service", "ResolverService"),
		cfg:          cfg.withDefaults(),
		windows:      deps.Windows,
		attestations: deps.Attestations,
		versions:     deps.Versions,
		cases:        deps.Cases,
		metrics:      deps.Metrics,
		lock:         deps.Lock,
		clock:        clock,
	}
}

func (s *resolverService) RunOnce(ctx context.Context) (*RunReport, error) {
	ctx = ctxutil.Default(ctx)
	report := &RunReport{StartedAt: s.clock().UTC(), ByStatus: map[string]int{}, Results: []TableOutcome{}}

	if !s.mu.TryLock() {
		return s.finish(report, RunSkippedLocked), ErrRunInProgress
	}
	defer s.mu.Unlock()

	if s.lock != nil {
		lctx, cancel := ctxutil.Bounded(ctx, s.cfg.StoreTimeout)
		release, ok, err := s.lock.TryLock(lctx)
		cancel()
		if err != nil {
			s.log.Error("resolver lock unavailable", "error", err)
			return s.finish(report, RunFailed), fmt.Errorf("acquire resolver lock: %w", err)
		}
		if !ok {
			s.log.Info("resolver run held by another replica")
			return s.finish(report, RunSkippedLocked), ErrRunInProgress
		}
		defer func() {
			rctx, cancel := ctxutil.Bounded(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
			defer cancel()
			if err := release(rctx); err != nil {
				s.log.Warn("resolver lock release failed", "error", err)
			}
		}()
	}

	ctx, span := observability.Tracer().Start(ctx, "resolver.run")
	defer span.End()

	sctx, cancel := ctxutil.Bounded(ctx, s.cfg.StoreTimeout)
	status, err := s.windows.Status(dbctx.Context{Ctx: sctx})
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "window status")
		s.log.Error("resolver could not read election window", "error", err)
		return s.finish(report, RunFailed), err
	}
	if !status.HasActiveConfig {
		s.log.Info("resolver skipped, no active election window")
		return s.finish(report, RunSkippedNoWindow), nil
	}
	if !status.VotingClosed {
		s.log.Debug("resolver skipped, voting still open", "voting_end", status.Config.VotingEnd)
		return s.finish(report, RunSkippedVotingOpen), nil
	}

	sctx, cancel = ctxutil.Bounded(ctx, s.cfg.StoreTimeout)
	tableCodes, err := s.attestations.ListResolvableTableCodes(dbctx.Context{Ctx: sctx})
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enumerate tables")
		s.log.Error("resolver could not enumerate tables", "error", err)
		return s.finish(report, RunFailed), err
	}
	span.SetAttributes(attribute.Int("resolver.tables", len(tableCodes)))

	var (
		mu      sync.Mutex
		results = make([]TableOutcome, 0, len(tableCodes))
	)
	stopped := false
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for _, code := range tableCodes {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		code := code
		g.Go(func() error {
			res := s.resolveTable(ctx, code)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].TableCode < results[j].TableCode })
	report.Results = results
	report.Tables = len(results)
	canceled := stopped
	for _, r := range results {
		canceled = canceled || r.canceled
		switch {
		case r.Error != "":
			report.Failed++
		case r.SkippedFinal:
			report.SkippedFinal++
		default:
			report.Resolved++
			report.ByStatus[r.Status]++
		}
	}

	outcome := RunCompleted
	if canceled && ctx.Err() != nil {
		outcome = RunCanceled
	}
	s.finish(report, outcome)
	s.log.Info("resolver run finished",
		"outcome", report.Outcome,
		"tables", report.Tables,
		"resolved", report.Resolved,
		"skipped_final", report.SkippedFinal,
		"failed", report.Failed,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

func (s *resolverService) finish(report *RunReport, outcome string) *RunReport {
	report.Outcome = outcome
	report.FinishedAt = s.clock().UTC()
	s.metrics.IncResolverRun(outcome)
	s.metrics.ObserveResolverRun(report.FinishedAt.Sub(report.StartedAt))
	return report
}

// resolveTable tallies and commits one table. Reads honour ctx; the commit does not, so a
// run cancelled mid-commit still leaves the table consistent.
func (s *resolverService) resolveTable(ctx context.Context, tableCode string) TableOutcome {
	out := TableOutcome{TableCode: tableCode}
	ctx, span := observability.Tracer().Start(ctx, "resolver.table")
	defer span.End()
	span.SetAttributes(attribute.String("table_code", tableCode))

	fail := func(stage string, err error) TableOutcome {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		out.Error = err.Error()
		coded := err
		if domainagg.CodeOf(coded) == "" {
			coded = aggregates.MapError("resolver."+stage, err)
		}
		out.Retryable = domainagg.IsRetryable(coded)
		out.canceled = errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		if out.Retryable {
			s.metrics.IncResolverTable("error_retryable")
			s.log.Warn("table left for next cycle", "table_code", tableCode, "stage", stage, "retryable", true, "error", err)
		} else {
			s.metrics.IncResolverTable("error_permanent")
			s.log.Error("table needs operator attention", "table_code", tableCode, "stage", stage, "retryable", false, "error", err)
		}
		return out
	}
	if err := ctx.Err(); err != nil {
		return fail("dispatch", err)
	}

	rctx, cancel := ctxutil.Bounded(ctx, s.cfg.StoreTimeout)
	defer cancel()
	dbc := dbctx.Context{Ctx: rctx}
	versions, err := s.versions.ListByTableCode(dbc, tableCode)
	if err != nil {
		return fail("load versions", err)
	}
	ids := make([]uuid.UUID, 0, len(versions))
	for _, v := range versions {
		ids = append(ids, v.ID)
	}
	atts, err := s.attestations.ListByVersionIDs(dbc, ids)
	if err != nil {
		return fail("load attestations", err)
	}

	tally := consensus.NewTally(versions, atts)
	verdict := consensus.Decide(tally)

	cctx, ccancel := ctxutil.Bounded(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer ccancel()
	res, err := s.cases.Commit(cctx, domainagg.CommitCaseInput{
		TableCode:        tableCode,
		Status:           string(verdict.Status),
		WinningVersionID: verdict.Winner,
		Rationale:        verdict.Rationale,
		Summary:          tally.Summary(),
		ResolvedAt:       s.clock().UTC(),
	})
	if err != nil {
		span.SetAttributes(attribute.String("aggregate.code", string(domainagg.CodeOf(err))))
		return fail("commit", err)
	}

	out.Status = res.Status
	out.WinningVersionID = res.FlaggedVersion
	if res.Skipped {
		out.SkippedFinal = true
		s.metrics.IncResolverTable("skipped_final")
		return out
	}
	out.Rationale = verdict.Rationale
	span.SetAttributes(attribute.String("case.status", res.Status))
	s.metrics.IncResolverTable(res.Status)
	s.log.Debug("table resolved", "table_code", tableCode, "status", res.Status, "rationale", verdict.Rationale)
	return out
}
