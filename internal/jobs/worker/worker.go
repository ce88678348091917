package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
	"github.com/yungbote/ballot-consensus-backend/internal/services"
)

const DefaultSchedule = "@every 5m"

// Runner performs one resolver pass.
type Runner interface {
	RunOnce(ctx context.Context) (*services.RunReport, error)
}

type Config struct {
	// Schedule is a cron spec or descriptor such as "@every 5m".
	Schedule   string
	RunOnStart bool
}

// Worker triggers resolver passes on a cron schedule. A pass that panics is logged and
// the schedule carries on.
type Worker struct {
	log    *logger.Logger
	runner Runner
	cfg    Config
	cron   *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewWorker(baseLog *logger.Logger, runner Runner, cfg Config) (*Worker, error) {
	cfg.Schedule = strings.TrimSpace(cfg.Schedule)
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	w := &Worker{
		log:    baseLog.With("component", "ResolverWorker"),
		runner: runner,
		cfg:    cfg,
		cron:   cron.New(),
	}
	if _, err := w.cron.AddFunc(cfg.Schedule, w.tick); err != nil {
		return nil, fmt.Errorf("resolver schedule %q: %w", cfg.Schedule, err)
	}
	return w, nil
}

func (w *Worker) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.log.Info("Starting resolver worker", "schedule", w.cfg.Schedule, "run_on_start", w.cfg.RunOnStart)
	if w.cfg.RunOnStart {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.tick()
		}()
	}
	w.cron.Start()
}

// Stop halts scheduling, cancels the in-flight pass and waits for it to return.
func (w *Worker) Stop() {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		<-w.cron.Stop().Done()
		w.wg.Wait()
		w.log.Info("Resolver worker stopped")
	})
}

func (w *Worker) tick() {
	ctx := w.ctx
	if ctx == nil || ctx.Err() != nil {
		return
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Resolver run panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	report, err := w.runner.RunOnce(ctx)
	switch {
	case errors.Is(err, services.ErrRunInProgress):
		w.log.Info("Resolver run skipped, previous run still active")
	case err != nil:
		w.log.Warn("Resolver run failed", "error", err, "duration", time.Since(start))
	case report != nil:
		w.log.Debug("Resolver tick done", "outcome", report.Outcome, "duration", time.Since(start))
	}
}
