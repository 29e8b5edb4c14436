package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/campusfront/campusfront/internal/api"
	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

type State string

const (
	StateUnresolved    State = "UNRESOLVED"
	StateAuthenticated State = "AUTHENTICATED"
	StateAnonymous     State = "ANONYMOUS"
)

// refreshSkew is how close to expiry an access token may get before a gated
// call triggers a proactive refresh.
const refreshSkew = 30 * time.Second

// AuthAPI is the slice of the platform client the controller needs.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (api.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (api.TokenPair, error)
	Me(ctx context.Context) (*domain.User, error)
	Logout(ctx context.Context) error
}

// Controller owns the session state machine:
//
//	UNRESOLVED -> AUTHENTICATED | ANONYMOUS
//
// Resolution runs at most once per process start; afterwards only explicit
// Login/Logout (or a forced drop on a remote 401/403) move the state. Gated
// consumers block on WaitResolved or poll Pending.
type Controller struct {
	mu    sync.Mutex
	state State
	user  *domain.User

	tokens *TokenStore
	client AuthAPI
	log    *logger.Logger

	group        singleflight.Group
	resolvedCh   chan struct{}
	resolvedOnce sync.Once

	onEnd []func()
}

func NewController(tokens *TokenStore, client AuthAPI, baseLog *logger.Logger) *Controller {
	ctrlLog := baseLog.With("service", "SessionController")
	return &Controller{
		state:      StateUnresolved,
		tokens:     tokens,
		client:     client,
		log:        ctrlLog,
		resolvedCh: make(chan struct{}),
	}
}

func (sc *Controller) State() State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

// Pending is true only between startup and the first resolution.
func (sc *Controller) Pending() bool {
	return sc.State() == StateUnresolved
}

func (sc *Controller) IsAuthenticated() bool {
	return sc.State() == StateAuthenticated
}

// CurrentUser returns the cached user mirror, nil when anonymous or pending.
func (sc *Controller) CurrentUser() *domain.User {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.user == nil {
		return nil
	}
	u := *sc.user
	return &u
}

// WaitResolved blocks until the session reached a terminal state for this
// load, or ctx is done.
func (sc *Controller) WaitResolved(ctx context.Context) error {
	select {
	case <-sc.resolvedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resolve establishes whether a session exists. Concurrent callers share a
// single attempt, and once a terminal state is reached further calls return
// it without touching the network.
func (sc *Controller) Resolve(ctx context.Context) (State, error) {
	if s := sc.State(); s != StateUnresolved {
		return s, nil
	}

	v, err, _ := sc.group.Do("resolve", func() (interface{}, error) {
		if s := sc.State(); s != StateUnresolved {
			return s, nil
		}
		return sc.resolveOnce(ctx), nil
	})
	if err != nil {
		return sc.State(), err
	}
	return v.(State), nil
}

func (sc *Controller) resolveOnce(ctx context.Context) State {
	if err := sc.tokens.Hydrate(ctx); err != nil {
		sc.log.Warn("token store hydration failed", "error", err)
		return sc.finishResolve(StateAnonymous, nil)
	}

	refresh := sc.tokens.GetRefreshToken()
	if strings.TrimSpace(refresh) == "" {
		sc.log.Debug("no persisted refresh token, resolving anonymous")
		return sc.finishResolve(StateAnonymous, nil)
	}

	pair, err := sc.client.RefreshToken(ctx, refresh)
	if err != nil {
		if api.IsAuthError(err) {
			// The server rejected the credential outright, so it is dead
			// weight on disk.
			if clearErr := sc.tokens.Clear(ctx); clearErr != nil {
				sc.log.Warn("failed to clear rejected credential", "error", clearErr)
			}
		}
		sc.log.Warn("session resolution failed", "error", err)
		return sc.finishResolve(StateAnonymous, nil)
	}

	userID := sc.tokens.UserID()
	if err := sc.tokens.SetTokens(ctx, userID, pair.AccessToken, pair.RefreshToken); err != nil {
		sc.log.Warn("failed to store refreshed tokens", "error", err)
	}

	user, err := sc.client.Me(ctx)
	if err != nil {
		sc.log.Warn("who-am-i after refresh failed", "error", err)
		if api.IsAuthError(err) {
			_ = sc.tokens.Clear(ctx)
			return sc.finishResolve(StateAnonymous, nil)
		}
		// Transport trouble: the session itself is fine, the mirror is just
		// missing until the next fetch.
	}
	return sc.finishResolve(StateAuthenticated, user)
}

// finishResolve commits the resolution result. A Login or Logout that landed
// while the resolve was still in flight already moved the state; the late
// result must not overwrite it.
func (sc *Controller) finishResolve(state State, user *domain.User) State {
	sc.mu.Lock()
	if sc.state == StateUnresolved {
		sc.state = state
		sc.user = user
	}
	state = sc.state
	sc.mu.Unlock()
	sc.markResolved()
	return state
}

func (sc *Controller) markResolved() {
	sc.resolvedOnce.Do(func() { close(sc.resolvedCh) })
}

// OnSessionEnd registers fn to run after the session drops (logout or a
// forced drop on a remote 401/403). The feature stores hang their teardown
// here so one user's mirrors never leak into the next sign-in. Register
// during wiring, before the session serves traffic.
func (sc *Controller) OnSessionEnd(fn func()) {
	sc.mu.Lock()
	sc.onEnd = append(sc.onEnd, fn)
	sc.mu.Unlock()
}

func (sc *Controller) fireSessionEnd() {
	sc.mu.Lock()
	hooks := make([]func(), len(sc.onEnd))
	copy(hooks, sc.onEnd)
	sc.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Login authenticates with the remote platform and moves the session to
// AUTHENTICATED. Also counts as resolution when called before Resolve.
func (sc *Controller) Login(ctx context.Context, email, password string) (*domain.User, error) {
	pair, err := sc.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	userID := userIDFromAccessToken(pair.AccessToken)
	if err := sc.tokens.SetTokens(ctx, userID, pair.AccessToken, pair.RefreshToken); err != nil {
		sc.log.Warn("failed to persist tokens after login", "error", err)
	}

	user, meErr := sc.client.Me(ctx)
	if meErr != nil {
		sc.log.Warn("who-am-i after login failed", "error", meErr)
	}

	sc.mu.Lock()
	sc.state = StateAuthenticated
	sc.user = user
	sc.mu.Unlock()
	sc.markResolved()

	sc.log.Info("session authenticated", "user_id", userID.String())
	return user, nil
}

// Logout leaves AUTHENTICATED immediately; the remote revoke is best-effort
// and never gates the local transition.
func (sc *Controller) Logout(ctx context.Context) error {
	sc.mu.Lock()
	wasAuthed := sc.state == StateAuthenticated
	sc.state = StateAnonymous
	sc.user = nil
	sc.mu.Unlock()
	sc.markResolved()
	sc.fireSessionEnd()

	if wasAuthed {
		if err := sc.client.Logout(ctx); err != nil {
			sc.log.Warn("remote logout failed, local session dropped anyway", "error", err)
		}
	}

	if err := sc.tokens.Clear(ctx); err != nil {
		return err
	}
	sc.log.Info("session cleared")
	return nil
}

// ForceAnonymous drops the session after a gated call came back 401/403.
func (sc *Controller) ForceAnonymous(ctx context.Context) {
	sc.mu.Lock()
	sc.state = StateAnonymous
	sc.user = nil
	sc.mu.Unlock()
	sc.markResolved()
	sc.fireSessionEnd()

	if err := sc.tokens.Clear(ctx); err != nil {
		sc.log.Warn("failed to clear tokens on forced drop", "error", err)
	}
	sc.log.Warn("session dropped after remote auth rejection")
}

// EnsureAccessToken refreshes the access token when it is missing or about to
// expire. Concurrent callers share one refresh.
func (sc *Controller) EnsureAccessToken(ctx context.Context) error {
	if sc.State() != StateAuthenticated {
		return nil
	}
	access := sc.tokens.GetAccessToken()
	if access != "" && time.Until(accessTokenExpiry(access)) > refreshSkew {
		return nil
	}

	_, err, _ := sc.group.Do("refresh", func() (interface{}, error) {
		current := sc.tokens.GetAccessToken()
		if current != "" && current != access {
			return nil, nil
		}
		pair, err := sc.client.RefreshToken(ctx, sc.tokens.GetRefreshToken())
		if err != nil {
			if api.IsAuthError(err) {
				sc.ForceAnonymous(ctx)
			}
			return nil, err
		}
		return nil, sc.tokens.SetTokens(ctx, sc.tokens.UserID(), pair.AccessToken, pair.RefreshToken)
	})
	return err
}

// accessTokenExpiry reads exp from the JWT without verifying the signature;
// the client only schedules refreshes with it, the server stays the judge of
// validity.
func accessTokenExpiry(access string) time.Time {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(access, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func userIDFromAccessToken(access string) uuid.UUID {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(access, &claims); err != nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil
	}
	return id
}
