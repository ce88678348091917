package redislock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

var ErrNotHeld = errors.New("redis lock not held")

type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient dials addr and pings it once.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Extends KEYS[1] to ARGV[2] ms only while it still holds ARGV[1].
var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Lock is a single-key mutex shared by every replica that uses the same key.
type Lock struct {
	rdb goredis.UniversalClient
	key string
	ttl time.Duration
	log *logger.Logger
}

func New(rdb goredis.UniversalClient, key string, ttl time.Duration, log *logger.Logger) *Lock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Lock{
		rdb: rdb,
		key: strings.TrimSpace(key),
		ttl: ttl,
		log: log.With("service", "RedisLock", "key", key),
	}
}

// Lease is a held lock. Release is safe to call more than once.
type Lease struct {
	lock *Lock

	mu    sync.Mutex
	token string
}

// TryAcquire takes the lock with SET NX PX. ok is false when another holder has it.
func (l *Lock) TryAcquire(ctx context.Context) (*Lease, bool, error) {
	if l == nil || l.rdb == nil {
		return nil, false, fmt.Errorf("redis lock not initialized")
	}
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lease{lock: l, token: token}, true, nil
}

func (le *Lease) Release(ctx context.Context) error {
	if le == nil || le.lock == nil {
		return nil
	}
	le.mu.Lock()
	token := le.token
	le.token = ""
	le.mu.Unlock()
	if token == "" {
		return nil
	}
	n, err := releaseScript.Run(ctx, le.lock.rdb, []string{le.lock.key}, token).Int()
	if err != nil {
		return fmt.Errorf("redis release %s: %w", le.lock.key, err)
	}
	if n == 0 {
		le.lock.log.Warn("lock expired before release")
		return ErrNotHeld
	}
	return nil
}

// Extend resets the lease TTL. ErrNotHeld means the key expired or changed hands.
func (le *Lease) Extend(ctx context.Context) error {
	if le == nil || le.lock == nil {
		return ErrNotHeld
	}
	le.mu.Lock()
	token := le.token
	le.mu.Unlock()
	if token == "" {
		return ErrNotHeld
	}
	n, err := extendScript.Run(ctx, le.lock.rdb, []string{le.lock.key}, token, le.lock.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis extend %s: %w", le.lock.key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// KeepAlive extends the lease every interval until stop is called or the lease is lost.
// stop waits for the renewal loop to exit.
func (le *Lease) KeepAlive(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				err := le.Extend(ctx)
				cancel()
				if errors.Is(err, ErrNotHeld) {
					le.lock.log.Error("lock lost while held, another replica may start a run")
					return
				}
				if err != nil {
					le.lock.log.Warn("lock extend failed", "error", err)
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
		})
	}
}

// TryLock adapts TryAcquire to a release-func form. The lease is renewed every third of
// its TTL until release is called.
func (l *Lock) TryLock(ctx context.Context) (func(context.Context) error, bool, error) {
	lease, ok, err := l.TryAcquire(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	stop := lease.KeepAlive(l.ttl / 3)
	return func(ctx context.Context) error {
		stop()
		return lease.Release(ctx)
	}, true, nil
}
