package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/ballot-consensus-backend/internal/domain/aggregates"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 50 * time.Millisecond
)

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks

	// MaxAttempts bounds how often a write runs when it keeps failing retryably.
	MaxAttempts int
	// RetryBackoff is the first pause between attempts; it doubles each time.
	RetryBackoff time.Duration
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = defaultMaxAttempts
	}
	if d.RetryBackoff <= 0 {
		d.RetryBackoff = defaultRetryBackoff
	}
	return d
}

// executeWrite runs fn in a transaction, re-running it in a fresh one while it fails
// with a retryable error and ctx is live. The mapped error of the last attempt is
// returned and reported to the hooks.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}

	var (
		mapped  error
		attempt int
		backoff = deps.RetryBackoff
	)
	for attempt = 1; ; attempt++ {
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if !shouldRetry(ctx, mapped) || attempt >= deps.MaxAttempts {
			break
		}
		deps.Log.Debug("retrying aggregate write", "op", op, "attempt", attempt, "backoff", backoff, "error", mapped)
		if !pause(ctx, backoff) {
			break
		}
		backoff *= 2
	}

	deps.Hooks.ObserveWrite(WriteReport{
		Op:       op,
		Code:     domainagg.CodeOf(mapped),
		Attempts: attempt,
		Duration: time.Since(start),
	})
	return mapped
}

func shouldRetry(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() == nil && domainagg.IsCode(err, domainagg.CodeRetryable)
}

// pause waits d, returning false when ctx ends first.
func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
