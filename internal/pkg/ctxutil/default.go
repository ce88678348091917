package ctxutil

import (
	"context"
	"time"
)

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Bounded derives a context that expires after d. A non-positive d only guards nil.
func Bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	ctx = Default(ctx)
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
