package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/api"
	"github.com/campusfront/campusfront/internal/data/repos"
	"github.com/campusfront/campusfront/internal/data/repos/testutil"
	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/pkg/dbctx"
)

type fakeAuthAPI struct {
	mu sync.Mutex

	loginPair    api.TokenPair
	loginErr     error
	refreshPair  api.TokenPair
	refreshErr   error
	meUser       *domain.User
	meErr        error
	logoutErr    error
	refreshCalls int32
	logoutCalls  int32
}

func (f *fakeAuthAPI) Login(ctx context.Context, email, password string) (api.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginPair, f.loginErr
}

func (f *fakeAuthAPI) RefreshToken(ctx context.Context, refreshToken string) (api.TokenPair, error) {
	atomic.AddInt32(&f.refreshCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if refreshToken == "" {
		return api.TokenPair{}, api.ErrNoRefreshToken
	}
	return f.refreshPair, f.refreshErr
}

func (f *fakeAuthAPI) Me(ctx context.Context) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meUser == nil {
		return nil, f.meErr
	}
	u := *f.meUser
	return &u, f.meErr
}

func (f *fakeAuthAPI) Logout(ctx context.Context) error {
	atomic.AddInt32(&f.logoutCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutErr
}

func signedToken(t *testing.T, sub uuid.UUID, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub.String(),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return raw
}

func newTestController(t *testing.T, client AuthAPI) (*Controller, repos.CredentialRepo) {
	t.Helper()
	log := testutil.Logger(t)
	creds := repos.NewCredentialRepo(testutil.DB(t), log)
	tokens := NewTokenStore(creds, log)
	return NewController(tokens, client, log), creds
}

func TestResolveWithoutCredentialIsAnonymous(t *testing.T) {
	ctx := context.Background()
	client := &fakeAuthAPI{}
	sc, _ := newTestController(t, client)

	if !sc.Pending() {
		t.Fatal("fresh controller must be pending")
	}

	state, err := sc.Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if state != StateAnonymous {
		t.Fatalf("unexpected state: got=%q want=%q", state, StateAnonymous)
	}
	if sc.Pending() {
		t.Fatal("resolved controller still pending")
	}
	if n := atomic.LoadInt32(&client.refreshCalls); n != 0 {
		t.Fatalf("refresh attempted with no credential: calls=%d", n)
	}
}

func TestResolveWithCredentialIsAuthenticated(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	client := &fakeAuthAPI{
		refreshPair: api.TokenPair{AccessToken: signedToken(t, userID, time.Now().Add(time.Hour)), RefreshToken: "refresh-2"},
		meUser:      &domain.User{ID: userID, Roles: []string{"student"}},
	}
	sc, creds := newTestController(t, client)
	if err := creds.Put(dbctx.Context{Ctx: ctx}, userID, "refresh-1"); err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}

	state, err := sc.Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if state != StateAuthenticated {
		t.Fatalf("unexpected state: got=%q want=%q", state, StateAuthenticated)
	}
	user := sc.CurrentUser()
	if user == nil || user.ID != userID {
		t.Fatalf("user mirror not loaded: %+v", user)
	}

	// Rotated refresh token must be on disk.
	cred, err := creds.Get(dbctx.Context{Ctx: ctx})
	if err != nil {
		t.Fatalf("failed to read credential: %v", err)
	}
	if cred == nil || cred.RefreshToken != "refresh-2" {
		t.Fatalf("rotated refresh token not persisted: %+v", cred)
	}
}

func TestResolveRejectedCredentialClearsDisk(t *testing.T) {
	ctx := context.Background()
	client := &fakeAuthAPI{
		refreshErr: &api.HTTPError{StatusCode: http.StatusUnauthorized},
	}
	sc, creds := newTestController(t, client)
	if err := creds.Put(dbctx.Context{Ctx: ctx}, uuid.New(), "stale-refresh"); err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}

	state, err := sc.Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if state != StateAnonymous {
		t.Fatalf("unexpected state: got=%q want=%q", state, StateAnonymous)
	}

	cred, err := creds.Get(dbctx.Context{Ctx: ctx})
	if err != nil {
		t.Fatalf("failed to read credential: %v", err)
	}
	if cred != nil {
		t.Fatal("rejected credential still on disk")
	}
}

func TestResolveTransportFailureKeepsCredential(t *testing.T) {
	ctx := context.Background()
	client := &fakeAuthAPI{
		refreshErr: errors.New("connection refused"),
	}
	sc, creds := newTestController(t, client)
	if err := creds.Put(dbctx.Context{Ctx: ctx}, uuid.New(), "refresh-1"); err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}

	state, err := sc.Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if state != StateAnonymous {
		t.Fatalf("unexpected state: got=%q want=%q", state, StateAnonymous)
	}

	// Transient failure must not burn the credential; the next start retries.
	cred, err := creds.Get(dbctx.Context{Ctx: ctx})
	if err != nil {
		t.Fatalf("failed to read credential: %v", err)
	}
	if cred == nil {
		t.Fatal("credential wiped after transport failure")
	}
}

func TestResolveRunsAtMostOnce(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	client := &fakeAuthAPI{
		refreshPair: api.TokenPair{AccessToken: signedToken(t, userID, time.Now().Add(time.Hour)), RefreshToken: "refresh-2"},
		meUser:      &domain.User{ID: userID},
	}
	sc, creds := newTestController(t, client)
	if err := creds.Put(dbctx.Context{Ctx: ctx}, userID, "refresh-1"); err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sc.Resolve(ctx); err != nil {
				t.Errorf("resolve failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&client.refreshCalls); n != 1 {
		t.Fatalf("resolution hit the network more than once: calls=%d", n)
	}
}

func TestWaitResolvedUnblocksOnResolution(t *testing.T) {
	ctx := context.Background()
	client := &fakeAuthAPI{}
	sc, _ := newTestController(t, client)

	done := make(chan error, 1)
	go func() { done <- sc.WaitResolved(ctx) }()

	if _, err := sc.Resolve(ctx); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not unblock after resolution")
	}
}

func TestLoginEstablishesSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	client := &fakeAuthAPI{
		loginPair: api.TokenPair{AccessToken: signedToken(t, userID, time.Now().Add(time.Hour)), RefreshToken: "refresh-1"},
		meUser:    &domain.User{ID: userID, XP: 120, Level: 3},
	}
	sc, creds := newTestController(t, client)

	user, err := sc.Login(ctx, "student@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user == nil || user.ID != userID {
		t.Fatalf("unexpected user: %+v", user)
	}
	if !sc.IsAuthenticated() {
		t.Fatal("login did not authenticate the session")
	}
	if sc.Pending() {
		t.Fatal("login must count as resolution")
	}

	cred, err := creds.Get(dbctx.Context{Ctx: ctx})
	if err != nil {
		t.Fatalf("failed to read credential: %v", err)
	}
	if cred == nil || cred.UserID != userID {
		t.Fatalf("login did not persist the credential: %+v", cred)
	}
}

func TestLoginFailureLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	client := &fakeAuthAPI{
		loginErr: &api.HTTPError{StatusCode: http.StatusUnauthorized},
	}
	sc, _ := newTestController(t, client)

	if _, err := sc.Login(ctx, "student@example.com", "wrong"); err == nil {
		t.Fatal("expected login error")
	}
	if sc.IsAuthenticated() {
		t.Fatal("failed login authenticated the session")
	}
}

func TestLogoutDropsLocalSessionDespiteRemoteFailure(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	client := &fakeAuthAPI{
		loginPair: api.TokenPair{AccessToken: signedToken(t, userID, time.Now().Add(time.Hour)), RefreshToken: "refresh-1"},
		meUser:    &domain.User{ID: userID},
		logoutErr: errors.New("connection refused"),
	}
	sc, creds := newTestController(t, client)

	if _, err := sc.Login(ctx, "student@example.com", "hunter2"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := sc.Logout(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if sc.State() != StateAnonymous {
		t.Fatalf("unexpected state after logout: %q", sc.State())
	}
	if sc.CurrentUser() != nil {
		t.Fatal("user mirror survived logout")
	}
	cred, err := creds.Get(dbctx.Context{Ctx: ctx})
	if err != nil {
		t.Fatalf("failed to read credential: %v", err)
	}
	if cred != nil {
		t.Fatal("credential survived logout")
	}
	if n := atomic.LoadInt32(&client.logoutCalls); n != 1 {
		t.Fatalf("unexpected remote logout calls: %d", n)
	}
}

func TestForceAnonymousClearsEverything(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	client := &fakeAuthAPI{
		loginPair: api.TokenPair{AccessToken: signedToken(t, userID, time.Now().Add(time.Hour)), RefreshToken: "refresh-1"},
		meUser:    &domain.User{ID: userID},
	}
	sc, creds := newTestController(t, client)

	if _, err := sc.Login(ctx, "student@example.com", "hunter2"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	sc.ForceAnonymous(ctx)

	if sc.State() != StateAnonymous {
		t.Fatalf("unexpected state: %q", sc.State())
	}
	cred, err := creds.Get(dbctx.Context{Ctx: ctx})
	if err != nil {
		t.Fatalf("failed to read credential: %v", err)
	}
	if cred != nil {
		t.Fatal("credential survived forced drop")
	}
	// No remote call happens on a forced drop; the server already said no.
	if n := atomic.LoadInt32(&client.logoutCalls); n != 0 {
		t.Fatalf("unexpected remote logout calls: %d", n)
	}
}

func TestLogoutRunsSessionEndHooks(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	client := &fakeAuthAPI{
		loginPair: api.TokenPair{AccessToken: signedToken(t, userID, time.Now().Add(time.Hour)), RefreshToken: "refresh-1"},
		meUser:    &domain.User{ID: userID},
	}
	sc, _ := newTestController(t, client)

	var teardowns int32
	sc.OnSessionEnd(func() { atomic.AddInt32(&teardowns, 1) })

	if _, err := sc.Login(ctx, "student@example.com", "hunter2"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if n := atomic.LoadInt32(&teardowns); n != 0 {
		t.Fatalf("teardown fired before logout: %d", n)
	}

	if err := sc.Logout(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if n := atomic.LoadInt32(&teardowns); n != 1 {
		t.Fatalf("unexpected teardown runs after logout: %d", n)
	}
}

func TestForceAnonymousRunsSessionEndHooks(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	client := &fakeAuthAPI{
		loginPair: api.TokenPair{AccessToken: signedToken(t, userID, time.Now().Add(time.Hour)), RefreshToken: "refresh-1"},
		meUser:    &domain.User{ID: userID},
	}
	sc, _ := newTestController(t, client)

	var teardowns int32
	sc.OnSessionEnd(func() { atomic.AddInt32(&teardowns, 1) })

	if _, err := sc.Login(ctx, "student@example.com", "hunter2"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	sc.ForceAnonymous(ctx)

	if n := atomic.LoadInt32(&teardowns); n != 1 {
		t.Fatalf("unexpected teardown runs after forced drop: %d", n)
	}
}

type blockingAuthAPI struct {
	fakeAuthAPI
	entered chan struct{}
	release chan struct{}
}

func (f *blockingAuthAPI) RefreshToken(ctx context.Context, refreshToken string) (api.TokenPair, error) {
	close(f.entered)
	<-f.release
	return f.fakeAuthAPI.RefreshToken(ctx, refreshToken)
}

func TestLateResolveDoesNotOverwriteLogin(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	client := &blockingAuthAPI{
		fakeAuthAPI: fakeAuthAPI{
			loginPair:  api.TokenPair{AccessToken: signedToken(t, userID, time.Now().Add(time.Hour)), RefreshToken: "refresh-login"},
			refreshErr: errors.New("connection refused"),
			meUser:     &domain.User{ID: userID},
		},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	sc, creds := newTestController(t, client)
	if err := creds.Put(dbctx.Context{Ctx: ctx}, userID, "refresh-stale"); err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = sc.Resolve(ctx)
	}()

	// Resolve is parked inside the refresh call; an explicit login lands first.
	<-client.entered
	if _, err := sc.Login(ctx, "student@example.com", "hunter2"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	close(client.release)
	<-done

	if !sc.IsAuthenticated() {
		t.Fatalf("late resolve result overwrote the login: state=%q", sc.State())
	}
	user := sc.CurrentUser()
	if user == nil || user.ID != userID {
		t.Fatalf("user mirror lost after late resolve: %+v", user)
	}
}

func TestEnsureAccessTokenRefreshesNearExpiry(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	client := &fakeAuthAPI{
		loginPair:   api.TokenPair{AccessToken: signedToken(t, userID, time.Now().Add(5*time.Second)), RefreshToken: "refresh-1"},
		refreshPair: api.TokenPair{AccessToken: signedToken(t, userID, time.Now().Add(time.Hour)), RefreshToken: "refresh-2"},
		meUser:      &domain.User{ID: userID},
	}
	sc, _ := newTestController(t, client)

	if _, err := sc.Login(ctx, "student@example.com", "hunter2"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Token expires within the skew window, so a refresh must fire.
	if err := sc.EnsureAccessToken(ctx); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if n := atomic.LoadInt32(&client.refreshCalls); n != 1 {
		t.Fatalf("unexpected refresh calls: %d", n)
	}

	// Fresh token: no further refresh.
	if err := sc.EnsureAccessToken(ctx); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if n := atomic.LoadInt32(&client.refreshCalls); n != 1 {
		t.Fatalf("refresh fired with a fresh token: calls=%d", n)
	}
}

func TestEnsureAccessTokenAuthFailureDropsSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	client := &fakeAuthAPI{
		loginPair:  api.TokenPair{AccessToken: signedToken(t, userID, time.Now().Add(time.Second)), RefreshToken: "refresh-1"},
		refreshErr: &api.HTTPError{StatusCode: http.StatusUnauthorized},
		meUser:     &domain.User{ID: userID},
	}
	sc, _ := newTestController(t, client)

	if _, err := sc.Login(ctx, "student@example.com", "hunter2"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := sc.EnsureAccessToken(ctx); err == nil {
		t.Fatal("expected refresh error")
	}
	if sc.State() != StateAnonymous {
		t.Fatalf("401 on refresh must drop the session: state=%q", sc.State())
	}
}
