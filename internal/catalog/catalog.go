package catalog

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/api"
	"github.com/campusfront/campusfront/internal/cache"
	"github.com/campusfront/campusfront/internal/data/repos"
	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/pkg/dbctx"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

type API interface {
	ListCourses(ctx context.Context, page, size int, filter url.Values) (api.CoursePage, error)
}

type SessionHooks interface {
	Pending() bool
	ForceAnonymous(ctx context.Context)
}

// Catalog mirrors the course list (page-jump, replace mode) and owns the
// completion-celebration guard: a course's celebration fires exactly once,
// ever, tracked in the state DB.
type Catalog struct {
	log          *logger.Logger
	client       API
	sess         SessionHooks
	celebrations repos.CelebrationRepo
	cache        *cache.PagedCache[domain.Course]
}

func NewCatalog(client API, sess SessionHooks, celebrations repos.CelebrationRepo, baseLog *logger.Logger) *Catalog {
	catLog := baseLog.With("service", "CourseCatalog")

	c := &Catalog{
		log:          catLog,
		client:       client,
		sess:         sess,
		celebrations: celebrations,
	}

	fetch := func(ctx context.Context, page, size int, filter url.Values) ([]domain.Course, int, int, error) {
		resp, err := client.ListCourses(ctx, page, size, filter)
		if err != nil {
			if api.IsAuthError(err) {
				sess.ForceAnonymous(ctx)
			}
			return nil, 0, 0, err
		}
		return resp.Items, resp.PageNumber, resp.TotalPages, nil
	}
	c.cache = cache.NewPagedCache(cache.Replace, 20, fetch, sess, catLog)

	return c
}

func (c *Catalog) LoadPage(ctx context.Context, page int, filter url.Values) error {
	return c.cache.Load(ctx, page, filter)
}

func (c *Catalog) Snapshot() cache.Snapshot[domain.Course] {
	return c.cache.Snapshot()
}

func (c *Catalog) Reset() {
	c.cache.Reset()
}

// ShouldCelebrate reports whether a completed course's celebration should be
// shown, and marks it as shown in the same call. The first caller for a given
// course gets true; every later caller gets false, across restarts too.
func (c *Catalog) ShouldCelebrate(ctx context.Context, courseID uuid.UUID) (bool, error) {
	dbc := dbctx.Context{Ctx: ctx}

	seen, err := c.celebrations.Exists(dbc, courseID)
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}

	if err := c.celebrations.Mark(dbc, courseID); err != nil {
		return false, err
	}
	return true, nil
}
