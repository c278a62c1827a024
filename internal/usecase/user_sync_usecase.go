package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"jobflow/internal/domain/user"
)

type SyncStatus string

const (
	SyncCreated SyncStatus = "created"
	SyncExists  SyncStatus = "exists"
	SyncSkipped SyncStatus = "skipped"
	SyncFailed  SyncStatus = "failed"
)

type SyncResult struct {
	Status SyncStatus
	Err    error
}

const (
	DefaultSyncMarkerTTL = 24 * time.Hour
	syncTimeout          = 10 * time.Second
)

// MarkerStore shares "already synced" markers between processes.
type MarkerStore interface {
	SetIfNotExists(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// UserSync makes sure the backend has a record for a signed-in identity. It
// calls the backend at most once per session.
type UserSync struct {
	backend UserBackend
	markers MarkerStore
	ttl     time.Duration
	logger  *log.Logger
	now     func() time.Time

	mu    sync.Mutex
	local map[string]time.Time
}

func NewUserSyncUsecase(backend UserBackend, markers MarkerStore, ttl time.Duration, logger *log.Logger) *UserSync {
	if logger == nil {
		logger = log.Default()
	}
	if ttl <= 0 {
		ttl = DefaultSyncMarkerTTL
	}
	return &UserSync{
		backend: backend,
		markers: markers,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		local:   make(map[string]time.Time),
	}
}

func markerKey(sessionKey string) string {
	return "usersync:" + sessionKey
}

// claim reports whether this caller owns the sync of key.
func (u *UserSync) claim(ctx context.Context, key string) bool {
	now := u.now()
	u.mu.Lock()
	if exp, ok := u.local[key]; ok && now.Before(exp) {
		u.mu.Unlock()
		return false
	}
	u.local[key] = now.Add(u.ttl)
	for k, exp := range u.local {
		if !now.Before(exp) {
			delete(u.local, k)
		}
	}
	u.mu.Unlock()

	if u.markers == nil {
		return true
	}
	ok, err := u.markers.SetIfNotExists(ctx, markerKey(key), "1", u.ttl)
	if err != nil {
		// Shared store down: the local marker alone decides.
		return true
	}
	return ok
}

func (u *UserSync) release(ctx context.Context, key string) {
	u.mu.Lock()
	delete(u.local, key)
	u.mu.Unlock()
	if u.markers != nil {
		_ = u.markers.Delete(ctx, markerKey(key))
	}
}

func (u *UserSync) Ensure(ctx context.Context, id user.Identity) SyncResult {
	if !id.Authenticated() {
		return SyncResult{Status: SyncSkipped}
	}
	if strings.TrimSpace(id.Email) == "" {
		u.logger.Printf("[UserSync] skipped uid=%s reason=no email claim", id.UserID)
		return SyncResult{Status: SyncSkipped}
	}
	key := id.SessionKey()
	if !u.claim(ctx, key) {
		return SyncResult{Status: SyncSkipped}
	}

	verdict, err := u.backend.SyncUser(ctx, id.Token, user.SyncInput{
		ClerkID:  id.UserID,
		Email:    id.Email,
		FullName: id.FullName,
	})
	if err != nil {
		u.release(context.WithoutCancel(ctx), key)
		if !errors.Is(err, context.Canceled) {
			u.logger.Printf("[UserSync] sync failed uid=%s err=%v", id.UserID, err)
		}
		return SyncResult{Status: SyncFailed, Err: err}
	}

	status := SyncExists
	if verdict == string(SyncCreated) {
		status = SyncCreated
	}
	u.logger.Printf("[UserSync] synced uid=%s user=%s", id.UserID, status)
	return SyncResult{Status: status}
}

// EnsureInBackground runs Ensure detached from the caller. The outcome is
// only logged.
func (u *UserSync) EnsureInBackground(id user.Identity) {
	if u == nil || !id.Authenticated() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		_ = u.Ensure(ctx, id)
	}()
}
