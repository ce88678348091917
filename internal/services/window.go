package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/ballot-consensus-backend/internal/data/repos"
	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

// Clock returns the current instant. Services take one so tests can pin time.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// localLayouts are the wall-clock formats accepted for window boundaries, interpreted
// in the window's timezone.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// WindowStatus is one snapshot of the election schedule. MutationsOpen includes the
// administrative override; InVotingWindow and VotingClosed never do.
type WindowStatus struct {
	HasActiveConfig bool                `json:"has_active_config"`
	InVotingWindow  bool                `json:"in_voting_window"`
	VotingClosed    bool                `json:"voting_closed"`
	MutationsOpen   bool                `json:"mutations_open"`
	InResultsWindow bool                `json:"in_results_window"`
	Now             time.Time           `json:"now"`
	Config          *types.WindowConfig `json:"config,omitempty"`
}

// ComputeWindowStatus evaluates cfg at now. A nil cfg yields every window closed.
func ComputeWindowStatus(cfg *types.WindowConfig, now time.Time) WindowStatus {
	now = now.UTC()
	st := WindowStatus{Now: now, Config: cfg}
	if cfg == nil {
		return st
	}
	start := cfg.VotingStart.UTC()
	end := cfg.VotingEnd.UTC()
	st.HasActiveConfig = true
	st.InVotingWindow = !now.Before(start) && !now.After(end)
	st.VotingClosed = now.After(end)
	st.MutationsOpen = st.InVotingWindow || cfg.AllowOverride
	st.InResultsWindow = !now.Before(cfg.ResultsStart.UTC())
	return st
}

type CreateWindowInput struct {
	Name          string `json:"name" validate:"required,max=128"`
	VotingStart   string `json:"voting_start" validate:"required"`
	VotingEnd     string `json:"voting_end" validate:"required"`
	ResultsStart  string `json:"results_start" validate:"required"`
	AllowOverride bool   `json:"allow_override"`
	Timezone      string `json:"timezone" validate:"omitempty,max=64"`
}

// UpdateWindowInput edits a stored window. Nil fields keep their current value; new
// wall-clock times are read in Timezone when given, else in the window's own zone.
type UpdateWindowInput struct {
	Name          *string `json:"name" validate:"omitempty,max=128"`
	VotingStart   *string `json:"voting_start"`
	VotingEnd     *string `json:"voting_end"`
	ResultsStart  *string `json:"results_start"`
	AllowOverride *bool   `json:"allow_override"`
	Timezone      *string `json:"timezone" validate:"omitempty,max=64"`
}

type WindowService interface {
	Status(dbc dbctx.Context) (WindowStatus, error)
	Create(dbc dbctx.Context, in CreateWindowInput) (*types.WindowConfig, error)
	List(dbc dbctx.Context) ([]*types.WindowConfig, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.WindowConfig, error)
	Update(dbc dbctx.Context, id uuid.UUID, in UpdateWindowInput) (*types.WindowConfig, error)
	SetOverride(dbc dbctx.Context, allow bool) (*types.WindowConfig, error)
}

type windowService struct {
	db        *gorm.DB
	log       *logger.Logger
	repo      repos.WindowConfigRepo
	validate  *validator.Validate
	defaultTZ *time.Location
	clock     Clock
}

func NewWindowService(db *gorm.DB, baseLog *logger.Logger, repo repos.WindowConfigRepo, defaultTZ string, clock Clock) WindowService {
	log := baseLog.With("service", "WindowService")
	loc, err := time.LoadLocation(strings.TrimSpace(defaultTZ))
	if err != nil || strings.TrimSpace(defaultTZ) == "" {
		log.Warn("falling back to UTC for election timezone", "timezone", defaultTZ, "error", err)
		loc = time.UTC
	}
	if clock == nil {
		clock = systemClock
	}
	return &windowService{
		db:        db,
		log:       log,
		repo:      repo,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		defaultTZ: loc,
		clock:     clock,
	}
}

func (s *windowService) Status(dbc dbctx.Context) (WindowStatus, error) {
	cfg, err := s.repo.GetActive(dbc)
	if err != nil {
		return WindowStatus{Now: s.clock().UTC()}, fmt.Errorf("load active window: %w", err)
	}
	return ComputeWindowStatus(cfg, s.clock()), nil
}

func (s *windowService) Create(dbc dbctx.Context, in CreateWindowInput) (*types.WindowConfig, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err)
	}
	loc, err := s.location(in.Timezone)
	if err != nil {
		return nil, err
	}
	start, err := ParseWindowTime(in.VotingStart, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: voting_start: %v", pkgerrors.ErrInvalidArgument, err)
	}
	end, err := ParseWindowTime(in.VotingEnd, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: voting_end: %v", pkgerrors.ErrInvalidArgument, err)
	}
	results, err := ParseWindowTime(in.ResultsStart, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: results_start: %v", pkgerrors.ErrInvalidArgument, err)
	}
	if err := checkSchedule(start, end, results); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	cfg := &types.WindowConfig{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(in.Name),
		VotingStart:   start,
		VotingEnd:     end,
		ResultsStart:  results,
		AllowOverride: in.AllowOverride,
		Timezone:      loc.String(),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.repo.Create(dbc, cfg); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: window %q already exists", pkgerrors.ErrConflict, cfg.Name)
		}
		return nil, fmt.Errorf("create window: %w", err)
	}
	s.log.Info("election window activated",
		"window_id", cfg.ID,
		"name", cfg.Name,
		"voting_start", cfg.VotingStart,
		"voting_end", cfg.VotingEnd,
		"results_start", cfg.ResultsStart,
		"allow_override", cfg.AllowOverride,
	)
	return cfg, nil
}

func (s *windowService) List(dbc dbctx.Context) ([]*types.WindowConfig, error) {
	return s.repo.List(dbc)
}

func (s *windowService) Get(dbc dbctx.Context, id uuid.UUID) (*types.WindowConfig, error) {
	cfg, err := s.repo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("window %s: %w", id, pkgerrors.ErrNotFound)
	}
	return cfg, nil
}

func (s *windowService) Update(dbc dbctx.Context, id uuid.UUID, in UpdateWindowInput) (*types.WindowConfig, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err)
	}
	cfg, err := s.Get(dbc, id)
	if err != nil {
		return nil, err
	}
	tz := cfg.Timezone
	if in.Timezone != nil {
		tz = *in.Timezone
	}
	loc, err := s.location(tz)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", pkgerrors.ErrInvalidArgument)
		}
		cfg.Name = name
	}
	fields := []struct {
		name string
		raw  *string
		dst  *time.Time
	}{
		{"voting_start", in.VotingStart, &cfg.VotingStart},
		{"voting_end", in.VotingEnd, &cfg.VotingEnd},
		{"results_start", in.ResultsStart, &cfg.ResultsStart},
	}
	for _, f := range fields {
		if f.raw == nil {
			continue
		}
		t, err := ParseWindowTime(*f.raw, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", pkgerrors.ErrInvalidArgument, f.name, err)
		}
		*f.dst = t
	}
	if err := checkSchedule(cfg.VotingStart, cfg.VotingEnd, cfg.ResultsStart); err != nil {
		return nil, err
	}
	if in.AllowOverride != nil {
		cfg.AllowOverride = *in.AllowOverride
	}
	cfg.Timezone = loc.String()

	if err := s.repo.Update(dbc, cfg); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: window %q already exists", pkgerrors.ErrConflict, cfg.Name)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("window %s: %w", id, pkgerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("update window: %w", err)
	}
	s.log.Info("election window updated",
		"window_id", cfg.ID,
		"name", cfg.Name,
		"voting_start", cfg.VotingStart,
		"voting_end", cfg.VotingEnd,
		"results_start", cfg.ResultsStart,
		"allow_override", cfg.AllowOverride,
		"timezone", cfg.Timezone,
	)
	return cfg, nil
}

func (s *windowService) SetOverride(dbc dbctx.Context, allow bool) (*types.WindowConfig, error) {
	cfg, err := s.repo.GetActive(dbc)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, pkgerrors.ErrNoActiveWindow
	}
	if err := s.repo.SetOverride(dbc, cfg.ID, allow); err != nil {
		return nil, err
	}
	cfg.AllowOverride = allow
	s.log.Warn("election window override changed", "window_id", cfg.ID, "allow_override", allow)
	return cfg, nil
}

// location resolves tz, falling back to the service default when blank.
func (s *windowService) location(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return s.defaultTZ, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", pkgerrors.ErrInvalidArgument, tz)
	}
	return loc, nil
}

// checkSchedule enforces voting_start < voting_end <= results_start.
func checkSchedule(start, end, results time.Time) error {
	if !start.Before(end) {
		return fmt.Errorf("%w: voting_start must be before voting_end", pkgerrors.ErrInvalidArgument)
	}
	if results.Before(end) {
		return fmt.Errorf("%w: results_start must not be before voting_end", pkgerrors.ErrInvalidArgument)
	}
	return nil
}

// ParseWindowTime accepts RFC 3339 instants or wall-clock times in loc, returning UTC.
func ParseWindowTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
