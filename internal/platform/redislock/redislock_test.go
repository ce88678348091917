package redislock

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

func TestTryAcquireSurfacesConnectionErrors(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	l := New(rdb, "ballot:resolver", time.Minute, nil)
	lease, ok, err := l.TryAcquire(context.Background())
	if err == nil || ok || lease != nil {
		t.Fatalf("expected connection error, got lease=%v ok=%v err=%v", lease, ok, err)
	}
}

func TestLeaseExtend(t *testing.T) {
	var nilLease *Lease
	if err := nilLease.Extend(context.Background()); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("Extend(nil): %v", err)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	le := &Lease{lock: New(rdb, "ballot:resolver", time.Minute, nil), token: "held"}

	err := le.Extend(context.Background())
	if err == nil || errors.Is(err, ErrNotHeld) {
		t.Fatalf("expected connection error, got %v", err)
	}

	stop := le.KeepAlive(10 * time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	stopped := make(chan struct{})
	go func() {
		stop()
		stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("keepalive did not stop")
	}

	if err := le.Release(context.Background()); err == nil {
		t.Fatalf("expected release to surface connection error")
	}
	if err := le.Extend(context.Background()); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("Extend after release: %v", err)
	}
}

func TestNilLeaseReleaseIsNoop(t *testing.T) {
	var le *Lease
	if err := le.Release(context.Background()); err != nil {
		t.Fatalf("Release(nil): %v", err)
	}
}

func TestNewClientRequiresAddr(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
