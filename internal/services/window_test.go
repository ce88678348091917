package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
)

func TestComputeWindowStatus(t *testing.T) {
	start := electionDay
	end := electionDay.Add(8 * time.Hour)
	cfg := func(override bool) *types.WindowConfig {
		return &types.WindowConfig{VotingStart: start, VotingEnd: end, ResultsStart: end.Add(time.Hour), AllowOverride: override}
	}

	tests := []struct {
		name     string
		cfg      *types.WindowConfig
		now      time.Time
		voting   bool
		closed   bool
		mutation bool
		results  bool
	}{
		{name: "no config", cfg: nil, now: start},
		{name: "before start", cfg: cfg(false), now: start.Add(-time.Minute)},
		{name: "at start", cfg: cfg(false), now: start, voting: true, mutation: true},
		{name: "at end", cfg: cfg(false), now: end, voting: true, mutation: true},
		{name: "just after end", cfg: cfg(false), now: end.Add(time.Second), closed: true},
		{name: "results open", cfg: cfg(false), now: end.Add(2 * time.Hour), closed: true, results: true},
		{name: "override before start", cfg: cfg(true), now: start.Add(-time.Hour), mutation: true},
		{name: "override does not reopen voting", cfg: cfg(true), now: end.Add(time.Minute), closed: true, mutation: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			st := ComputeWindowStatus(tc.cfg, tc.now)
			if st.HasActiveConfig != (tc.cfg != nil) {
				t.Fatalf("HasActiveConfig=%v", st.HasActiveConfig)
			}
			if st.InVotingWindow != tc.voting || st.VotingClosed != tc.closed || st.MutationsOpen != tc.mutation || st.InResultsWindow != tc.results {
				t.Fatalf("got voting=%v closed=%v mutations=%v results=%v", st.InVotingWindow, st.VotingClosed, st.MutationsOpen, st.InResultsWindow)
			}
		})
	}
}

func TestParseWindowTime(t *testing.T) {
	laPaz, err := time.LoadLocation("America/La_Paz")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{raw: "2025-08-17T08:00", want: time.Date(2025, 8, 17, 12, 0, 0, 0, time.UTC), ok: true},
		{raw: "2025-08-17 16:30:15", want: time.Date(2025, 8, 17, 20, 30, 15, 0, time.UTC), ok: true},
		{raw: "2025-08-17T08:00:00Z", want: time.Date(2025, 8, 17, 8, 0, 0, 0, time.UTC), ok: true},
		{raw: "17/08/2025"},
		{raw: "  "},
	}
	for _, tc := range tests {
		got, err := ParseWindowTime(tc.raw, laPaz)
		if tc.ok != (err == nil) {
			t.Fatalf("%q: err=%v", tc.raw, err)
		}
		if tc.ok && !got.Equal(tc.want) {
			t.Fatalf("%q: got=%s want=%s", tc.raw, got, tc.want)
		}
	}
}

func TestWindowServiceCreateValidation(t *testing.T) {
	e := newEnv(t)
	base := CreateWindowInput{
		Name:         "general",
		VotingStart:  "2025-08-17T08:00",
		VotingEnd:    "2025-08-17T16:00",
		ResultsStart: "2025-08-17T20:00",
	}
	tests := []struct {
		name   string
		mutate func(*CreateWindowInput)
	}{
		{name: "missing name", mutate: func(in *CreateWindowInput) { in.Name = "" }},
		{name: "start after end", mutate: func(in *CreateWindowInput) { in.VotingStart = "2025-08-17T17:00" }},
		{name: "start equals end", mutate: func(in *CreateWindowInput) { in.VotingStart = in.VotingEnd }},
		{name: "results before end", mutate: func(in *CreateWindowInput) { in.ResultsStart = "2025-08-17T15:00" }},
		{name: "unknown timezone", mutate: func(in *CreateWindowInput) { in.Timezone = "Mars/Olympus" }},
		{name: "unparseable time", mutate: func(in *CreateWindowInput) { in.VotingEnd = "tomorrow" }},
	}
	for _, tc := range tests {
		in := base
		tc.mutate(&in)
		if _, err := e.windows.Create(e.dbc(), in); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
			t.Fatalf("%s: expected invalid argument, got %v", tc.name, err)
		}
	}
}

func TestWindowServiceCreateActivatesNewest(t *testing.T) {
	e := newEnv(t)
	first, err := e.windows.Create(e.dbc(), CreateWindowInput{
		Name: "first", VotingStart: "2025-08-17T08:00", VotingEnd: "2025-08-17T16:00", ResultsStart: "2025-08-17T16:00",
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if want := time.Date(2025, 8, 17, 12, 0, 0, 0, time.UTC); !first.VotingStart.Equal(want) {
		t.Fatalf("voting start in La Paz: got=%s want=%s", first.VotingStart, want)
	}
	second, err := e.windows.Create(e.dbc(), CreateWindowInput{
		Name: "second", VotingStart: "2025-08-17T08:00:00Z", VotingEnd: "2025-08-17T20:00:00Z", ResultsStart: "2025-08-17T21:00:00Z", Timezone: "UTC",
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	st, err := e.windows.Status(e.dbc())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Config == nil || st.Config.ID != second.ID {
		t.Fatalf("expected second window active, got %+v", st.Config)
	}
	if !st.InVotingWindow || st.VotingClosed {
		t.Fatalf("expected voting open at %s: %+v", e.now, st)
	}
	all, err := e.windows.List(e.dbc())
	if err != nil || len(all) != 2 {
		t.Fatalf("list: len=%d err=%v", len(all), err)
	}
	old, err := e.windows.Get(e.dbc(), first.ID)
	if err != nil || old.IsActive {
		t.Fatalf("first window should be inactive: %+v err=%v", old, err)
	}

	if _, err := e.windows.Create(e.dbc(), CreateWindowInput{
		Name: "second", VotingStart: "2025-08-18T08:00", VotingEnd: "2025-08-18T16:00", ResultsStart: "2025-08-18T16:00",
	}); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("expected conflict on duplicate name, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }

func TestWindowServiceUpdate(t *testing.T) {
	e := newEnv(t)
	cfg, err := e.windows.Create(e.dbc(), CreateWindowInput{
		Name: "general", VotingStart: "2025-08-17T08:00", VotingEnd: "2025-08-17T16:00", ResultsStart: "2025-08-17T16:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := e.windows.Update(e.dbc(), cfg.ID, UpdateWindowInput{VotingEnd: ptr("2025-08-17T18:00")}); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("results before end: expected invalid argument, got %v", err)
	}
	stored, err := e.windows.Get(e.dbc(), cfg.ID)
	if err != nil || !stored.VotingEnd.Equal(cfg.VotingEnd) {
		t.Fatalf("rejected update must not persist: %+v err=%v", stored, err)
	}

	got, err := e.windows.Update(e.dbc(), cfg.ID, UpdateWindowInput{
		Name:          ptr("general-b"),
		VotingEnd:     ptr("2025-08-17T15:00"),
		AllowOverride: ptr(true),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if want := time.Date(2025, 8, 17, 19, 0, 0, 0, time.UTC); !got.VotingEnd.Equal(want) || got.Name != "general-b" || !got.AllowOverride {
		t.Fatalf("unexpected update result: %+v", got)
	}

	got, err = e.windows.Update(e.dbc(), cfg.ID, UpdateWindowInput{Timezone: ptr("UTC"), ResultsStart: ptr("2025-08-17T22:00")})
	if err != nil {
		t.Fatalf("update timezone: %v", err)
	}
	if want := time.Date(2025, 8, 17, 22, 0, 0, 0, time.UTC); !got.ResultsStart.Equal(want) || got.Timezone != "UTC" {
		t.Fatalf("times should parse in the new zone: %+v", got)
	}
	stored, err = e.windows.Get(e.dbc(), cfg.ID)
	if err != nil || stored.Name != "general-b" || !stored.ResultsStart.Equal(got.ResultsStart) || !stored.IsActive {
		t.Fatalf("update not persisted: %+v err=%v", stored, err)
	}

	tests := []struct {
		name string
		in   UpdateWindowInput
	}{
		{name: "blank name", in: UpdateWindowInput{Name: ptr("  ")}},
		{name: "start after end", in: UpdateWindowInput{VotingStart: ptr("2025-08-17T23:00:00Z")}},
		{name: "unknown timezone", in: UpdateWindowInput{Timezone: ptr("Mars/Olympus")}},
		{name: "unparseable time", in: UpdateWindowInput{VotingStart: ptr("soon")}},
	}
	for _, tc := range tests {
		if _, err := e.windows.Update(e.dbc(), cfg.ID, tc.in); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
			t.Fatalf("%s: expected invalid argument, got %v", tc.name, err)
		}
	}

	if _, err := e.windows.Update(e.dbc(), uuid.New(), UpdateWindowInput{Name: ptr("x")}); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("unknown window: expected not found, got %v", err)
	}
	if _, err := e.windows.Create(e.dbc(), CreateWindowInput{
		Name: "runoff", VotingStart: "2025-08-18T08:00", VotingEnd: "2025-08-18T16:00", ResultsStart: "2025-08-18T16:00",
	}); err != nil {
		t.Fatalf("create runoff: %v", err)
	}
	if _, err := e.windows.Update(e.dbc(), cfg.ID, UpdateWindowInput{Name: ptr("runoff")}); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("duplicate name: expected conflict, got %v", err)
	}
}

func TestWindowServiceOverride(t *testing.T) {
	e := newEnv(t)
	if _, err := e.windows.SetOverride(e.dbc(), true); !errors.Is(err, pkgerrors.ErrNoActiveWindow) {
		t.Fatalf("expected ErrNoActiveWindow, got %v", err)
	}
	e.closedWindow(t)

	st, _ := e.windows.Status(e.dbc())
	if st.MutationsOpen {
		t.Fatalf("mutations should be closed after voting end")
	}
	if _, err := e.windows.SetOverride(e.dbc(), true); err != nil {
		t.Fatalf("override: %v", err)
	}
	st, err := e.windows.Status(e.dbc())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.MutationsOpen || !st.VotingClosed || st.InVotingWindow {
		t.Fatalf("override must open mutations only: %+v", st)
	}
}

func TestWindowStatusWithoutConfig(t *testing.T) {
	e := newEnv(t)
	st, err := e.windows.Status(e.dbc())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.HasActiveConfig || st.MutationsOpen || st.InResultsWindow {
		t.Fatalf("expected all windows closed: %+v", st)
	}
}
