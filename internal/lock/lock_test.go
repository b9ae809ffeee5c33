package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/boxoffice-sales/internal/lock"
)

func TestKeyedMutex_Exclusive(t *testing.T) {
	m := lock.NewKeyedMutex()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Lock(ctx, "2024-12-20|Hamilton|Evening")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("%d holders at once", maxSeen)
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	m := lock.NewKeyedMutex()
	ctx := context.Background()
	a, err := m.Lock(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer a()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	b, err := m.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("distinct key blocked: %v", err)
	}
	b()
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	m := lock.NewKeyedMutex()
	release, err := m.Lock(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	release()
	release() // second call is a no-op

	again, err := m.Lock(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	again()
}

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := lock.NewRedisLocker(rdb, "test-lock", time.Second)
	release, err := l.Lock(context.Background(), "bucket")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "bucket"); !errors.Is(err, lock.ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}
	release()
	release2, err := l.Lock(context.Background(), "bucket")
	if err != nil {
		t.Fatal(err)
	}
	release2()
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := lock.NewRedisLocker(rdb, "test-lock", time.Second)
	release, err := l.Lock(context.Background(), "bucket")
	if err != nil {
		t.Fatal(err)
	}
	// Simulate expiry followed by another holder taking the key.
	mr.FastForward(2 * time.Second)
	if err := mr.Set("test-lock:bucket", "someone-else"); err != nil {
		t.Fatal(err)
	}
	release()
	if got, _ := mr.Get("test-lock:bucket"); got != "someone-else" {
		t.Fatalf("release removed a lock it did not own, value now %q", got)
	}
}
