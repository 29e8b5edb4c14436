package achievements

import (
	"context"
	"net/url"
	"sync"

	"github.com/campusfront/campusfront/internal/api"
	"github.com/campusfront/campusfront/internal/cache"
	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

type API interface {
	ListAchievements(ctx context.Context, page, size int, filter url.Values) (api.AchievementPage, error)
	AchievementCategories(ctx context.Context) ([]domain.AchievementCategory, error)
}

type SessionHooks interface {
	Pending() bool
	ForceAnonymous(ctx context.Context)
}

// Board mirrors the achievement gallery: a page-jump list (replace mode) plus
// the category filter set, which only needs fetching once per sign-in.
type Board struct {
	log    *logger.Logger
	client API
	sess   SessionHooks
	cache  *cache.PagedCache[domain.Achievement]

	mu         sync.Mutex
	categories []domain.AchievementCategory
}

func NewBoard(client API, sess SessionHooks, baseLog *logger.Logger) *Board {
	boardLog := baseLog.With("service", "AchievementBoard")

	b := &Board{
		log:    boardLog,
		client: client,
		sess:   sess,
	}

	fetch := func(ctx context.Context, page, size int, filter url.Values) ([]domain.Achievement, int, int, error) {
		resp, err := client.ListAchievements(ctx, page, size, filter)
		if err != nil {
			if api.IsAuthError(err) {
				sess.ForceAnonymous(ctx)
			}
			return nil, 0, 0, err
		}
		return resp.Items, resp.PageNumber, resp.TotalPages, nil
	}
	b.cache = cache.NewPagedCache(cache.Replace, 20, fetch, sess, boardLog)

	return b
}

// LoadPage fetches one gallery page, optionally filtered by category.
func (b *Board) LoadPage(ctx context.Context, page int, category string) error {
	var filter url.Values
	if category != "" {
		filter = url.Values{"category": []string{category}}
	}
	return b.cache.Load(ctx, page, filter)
}

// Categories returns the filter set, fetching it on first use.
func (b *Board) Categories(ctx context.Context) ([]domain.AchievementCategory, error) {
	b.mu.Lock()
	if b.categories != nil {
		cached := append([]domain.AchievementCategory(nil), b.categories...)
		b.mu.Unlock()
		return cached, nil
	}
	b.mu.Unlock()

	cats, err := b.client.AchievementCategories(ctx)
	if err != nil {
		if api.IsAuthError(err) {
			b.sess.ForceAnonymous(ctx)
		}
		return nil, err
	}
	if cats == nil {
		cats = []domain.AchievementCategory{}
	}

	b.mu.Lock()
	b.categories = cats
	b.mu.Unlock()
	return append([]domain.AchievementCategory(nil), cats...), nil
}

func (b *Board) Snapshot() cache.Snapshot[domain.Achievement] {
	return b.cache.Snapshot()
}

func (b *Board) Reset() {
	b.cache.Reset()
	b.mu.Lock()
	b.categories = nil
	b.mu.Unlock()
}
