package guard

import (
	"net/url"
	"strings"

	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

type ActionKind string

const (
	// ActionPending renders a loading placeholder; no navigation happens
	// while session resolution is in flight.
	ActionPending ActionKind = "pending"
	ActionAllow   ActionKind = "allow"
	// ActionRedirectSignIn carries the sign-in URL with the originally
	// requested path as a single-encoded return target.
	ActionRedirectSignIn ActionKind = "redirect_sign_in"
	// ActionRedirectHome is the under-privileged fallback.
	ActionRedirectHome ActionKind = "redirect_home"
)

type Action struct {
	Kind   ActionKind
	Target string
}

// Session is the read-only view of the auth session the guard consumes.
type Session interface {
	Pending() bool
	IsAuthenticated() bool
	CurrentUser() *domain.User
}

type Guard struct {
	policies   []RoutePolicy
	signInPath string
	homePath   string
	log        *logger.Logger
}

func New(policies []RoutePolicy, signInPath, homePath string, baseLog *logger.Logger) *Guard {
	if strings.TrimSpace(signInPath) == "" {
		signInPath = "/sign-in"
	}
	if strings.TrimSpace(homePath) == "" {
		homePath = "/"
	}
	return &Guard{
		policies:   policies,
		signInPath: signInPath,
		homePath:   homePath,
		log:        baseLog.With("service", "RouteGuard"),
	}
}

// Evaluate decides what to do with a navigation to requestedPath:
//
//	pending                         -> render placeholder
//	anonymous                       -> redirect to sign-in, keep return target
//	authenticated, role check fails -> redirect home
//	authenticated, role check holds -> allow
func (g *Guard) Evaluate(sess Session, requestedPath string) Action {
	policy := g.match(requestedPath)
	if policy != nil && policy.Public {
		return Action{Kind: ActionAllow}
	}

	if sess.Pending() {
		return Action{Kind: ActionPending}
	}

	if !sess.IsAuthenticated() {
		return Action{Kind: ActionRedirectSignIn, Target: g.signInTarget(requestedPath)}
	}

	if policy != nil && len(policy.Roles) > 0 {
		if !sess.CurrentUser().HasAnyRole(policy.Roles) {
			g.log.Debug("role check failed", "path", requestedPath, "required", policy.Roles)
			return Action{Kind: ActionRedirectHome, Target: g.homePath}
		}
	}

	return Action{Kind: ActionAllow}
}

func (g *Guard) SignInPath() string { return g.signInPath }
func (g *Guard) HomePath() string   { return g.homePath }

func (g *Guard) match(path string) *RoutePolicy {
	clean := path
	if i := strings.IndexByte(clean, '?'); i >= 0 {
		clean = clean[:i]
	}
	var best *RoutePolicy
	for i := range g.policies {
		p := &g.policies[i]
		if !strings.HasPrefix(clean, p.Prefix) {
			continue
		}
		if best == nil || len(p.Prefix) > len(best.Prefix) {
			best = p
		}
	}
	return best
}

// signInTarget appends the return target exactly once. A chain of guards must
// not re-wrap a sign-in redirect that already carries one, and url.Values
// does the single round of encoding.
func (g *Guard) signInTarget(requestedPath string) string {
	if requestedPath == "" || requestedPath == g.signInPath ||
		strings.HasPrefix(requestedPath, g.signInPath+"?") {
		return g.signInPath
	}
	q := url.Values{}
	q.Set("from", requestedPath)
	return g.signInPath + "?" + q.Encode()
}

// ReturnTarget extracts a previously stored return target from a sign-in URL
// query, decoded back to the plain path. Empty when absent or unsafe
// (absolute URLs are rejected so the target cannot leave the app).
func ReturnTarget(rawQuery string) string {
	vals, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}
	from := vals.Get("from")
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") {
		return ""
	}
	return from
}
