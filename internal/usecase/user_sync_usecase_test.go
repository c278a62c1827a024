package usecase

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jobflow/internal/domain/user"
)

type fakeUserBackend struct {
	calls   atomic.Int32
	verdict string
	err     error
}

func (f *fakeUserBackend) SyncUser(_ context.Context, _ string, _ user.SyncInput) (string, error) {
	f.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	return f.verdict, f.err
}

type fakeMarkers struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (f *fakeMarkers) SetIfNotExists(_ context.Context, key, _ string, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeMarkers) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

func TestUserSync_OncePerSessionUnderConcurrency(t *testing.T) {
	backend := &fakeUserBackend{verdict: "created"}
	uc := NewUserSyncUsecase(backend, nil, time.Hour, discard)

	var wg sync.WaitGroup
	var created atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if uc.Ensure(context.Background(), ada).Status == SyncCreated {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	if backend.calls.Load() != 1 {
		t.Fatalf("expected exactly one backend call, got %d", backend.calls.Load())
	}
	if created.Load() != 1 {
		t.Fatalf("expected one created result, got %d", created.Load())
	}
}

func TestUserSync_NewSessionSyncsAgain(t *testing.T) {
	backend := &fakeUserBackend{verdict: "exists"}
	uc := NewUserSyncUsecase(backend, nil, time.Hour, discard)

	if res := uc.Ensure(context.Background(), ada); res.Status != SyncExists {
		t.Fatalf("expected exists, got %+v", res)
	}
	other := ada
	other.SessionID = "sess_2"
	uc.Ensure(context.Background(), other)
	if backend.calls.Load() != 2 {
		t.Fatalf("expected one call per session, got %d", backend.calls.Load())
	}
}

func TestUserSync_SharedMarkerSkips(t *testing.T) {
	markers := &fakeMarkers{keys: map[string]bool{"usersync:user_1:sess_1": true}}
	backend := &fakeUserBackend{verdict: "created"}
	uc := NewUserSyncUsecase(backend, markers, time.Hour, discard)

	if res := uc.Ensure(context.Background(), ada); res.Status != SyncSkipped {
		t.Fatalf("expected skipped, got %+v", res)
	}
	if backend.calls.Load() != 0 {
		t.Fatalf("expected no call when another instance synced, got %d", backend.calls.Load())
	}
}

func TestUserSync_MarkerStoreDownFailsOpen(t *testing.T) {
	backend := &fakeUserBackend{verdict: "created"}
	uc := NewUserSyncUsecase(backend, &fakeMarkers{err: errors.New("redis down")}, time.Hour, discard)

	if res := uc.Ensure(context.Background(), ada); res.Status != SyncCreated {
		t.Fatalf("expected created, got %+v", res)
	}
	if res := uc.Ensure(context.Background(), ada); res.Status != SyncSkipped {
		t.Fatalf("expected local marker to skip, got %+v", res)
	}
}

func TestUserSync_FailureReleasesMarker(t *testing.T) {
	markers := &fakeMarkers{keys: map[string]bool{}}
	backend := &fakeUserBackend{err: errors.New("502")}
	uc := NewUserSyncUsecase(backend, markers, time.Hour, discard)

	if res := uc.Ensure(context.Background(), ada); res.Status != SyncFailed || res.Err == nil {
		t.Fatalf("expected failed, got %+v", res)
	}
	if len(markers.keys) != 0 {
		t.Fatalf("expected shared marker released, got %v", markers.keys)
	}

	backend.err = nil
	backend.verdict = "created"
	if res := uc.Ensure(context.Background(), ada); res.Status != SyncCreated {
		t.Fatalf("expected retry on next attempt to succeed, got %+v", res)
	}
}

func TestUserSync_SkipsAnonymous(t *testing.T) {
	backend := &fakeUserBackend{}
	uc := NewUserSyncUsecase(backend, nil, time.Hour, discard)

	if res := uc.Ensure(context.Background(), user.Identity{}); res.Status != SyncSkipped {
		t.Fatalf("expected skipped, got %+v", res)
	}
	if res := uc.Ensure(context.Background(), user.Identity{UserID: "u"}); res.Status != SyncSkipped {
		t.Fatalf("expected skipped without email, got %+v", res)
	}
	if backend.calls.Load() != 0 {
		t.Fatalf("expected no calls, got %d", backend.calls.Load())
	}
}

func TestUserSync_MissingEmailClaimIsLogged(t *testing.T) {
	var buf bytes.Buffer
	backend := &fakeUserBackend{}
	uc := NewUserSyncUsecase(backend, nil, time.Hour, log.New(&buf, "", 0))

	res := uc.Ensure(context.Background(), user.Identity{UserID: "user_2abc", SessionID: "sess_1", Token: "tok"})
	if res.Status != SyncSkipped {
		t.Fatalf("expected skipped, got %+v", res)
	}
	if backend.calls.Load() != 0 {
		t.Fatalf("expected no backend call, got %d", backend.calls.Load())
	}
	if !strings.Contains(buf.String(), "skipped uid=user_2abc reason=no email claim") {
		t.Fatalf("expected the skip to be logged, got %q", buf.String())
	}
}

func TestUserSync_MarkerExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	backend := &fakeUserBackend{verdict: "exists"}
	uc := NewUserSyncUsecase(backend, nil, time.Minute, discard)
	uc.now = func() time.Time { return now }

	uc.Ensure(context.Background(), ada)
	now = now.Add(2 * time.Minute)
	uc.Ensure(context.Background(), ada)
	if backend.calls.Load() != 2 {
		t.Fatalf("expected expired marker to allow a new sync, got %d calls", backend.calls.Load())
	}
}
