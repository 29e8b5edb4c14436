package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/data/repos"
	"github.com/campusfront/campusfront/internal/pkg/dbctx"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

// TokenStore holds the credential pair for the running session. The access
// token lives in memory only and dies with the process; the refresh token is
// written through to the local state db so a restart can mint a new access
// token without re-entering credentials. Hydrate is the single point where
// durable state enters memory, executed once at startup.
//
// Writers are the session controller and explicit login/logout. Everything
// else reads.
type TokenStore struct {
	mu       sync.Mutex
	access   string
	refresh  string
	userID   uuid.UUID
	hydrated bool

	creds repos.CredentialRepo
	log   *logger.Logger
}

func NewTokenStore(creds repos.CredentialRepo, baseLog *logger.Logger) *TokenStore {
	storeLog := baseLog.With("service", "TokenStore")
	return &TokenStore{creds: creds, log: storeLog}
}

// Hydrate loads the persisted refresh token. Calling it again is a no-op.
func (ts *TokenStore) Hydrate(ctx context.Context) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.hydrated {
		return nil
	}

	cred, err := ts.creds.Get(dbctx.Context{Ctx: ctx})
	if err != nil {
		return fmt.Errorf("failed to hydrate token store: %w", err)
	}
	if cred != nil {
		ts.refresh = cred.RefreshToken
		ts.userID = cred.UserID
	}
	ts.hydrated = true
	return nil
}

// SetTokens stores a fresh pair and persists the refresh half.
func (ts *TokenStore) SetTokens(ctx context.Context, userID uuid.UUID, access, refresh string) error {
	ts.mu.Lock()
	ts.access = access
	ts.refresh = refresh
	ts.userID = userID
	ts.hydrated = true
	ts.mu.Unlock()

	if strings.TrimSpace(refresh) == "" {
		return ts.creds.Clear(dbctx.Context{Ctx: ctx})
	}
	if err := ts.creds.Put(dbctx.Context{Ctx: ctx}, userID, refresh); err != nil {
		return fmt.Errorf("failed to persist refresh token: %w", err)
	}
	return nil
}

// SetAccessToken replaces only the volatile half, leaving the persisted
// refresh token untouched.
func (ts *TokenStore) SetAccessToken(access string) {
	ts.mu.Lock()
	ts.access = access
	ts.mu.Unlock()
}

func (ts *TokenStore) GetAccessToken() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.access
}

func (ts *TokenStore) GetRefreshToken() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.refresh
}

func (ts *TokenStore) UserID() uuid.UUID {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.userID
}

// Clear wipes both tokens from memory and the refresh token from disk.
func (ts *TokenStore) Clear(ctx context.Context) error {
	ts.mu.Lock()
	ts.access = ""
	ts.refresh = ""
	ts.userID = uuid.Nil
	ts.mu.Unlock()

	if err := ts.creds.Clear(dbctx.Context{Ctx: ctx}); err != nil {
		return fmt.Errorf("failed to clear persisted credential: %w", err)
	}
	return nil
}
