package achievements

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/api"
	"github.com/campusfront/campusfront/internal/data/repos/testutil"
	"github.com/campusfront/campusfront/internal/domain"
)

type fakeAchievementAPI struct {
	mu sync.Mutex

	items         []domain.Achievement
	categories    []domain.AchievementCategory
	lastFilter    url.Values
	categoryCalls int
}

func (f *fakeAchievementAPI) ListAchievements(ctx context.Context, page, size int, filter url.Values) (api.AchievementPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	return api.AchievementPage{Items: f.items, PageNumber: page, TotalPages: 1}, nil
}

func (f *fakeAchievementAPI) AchievementCategories(ctx context.Context) ([]domain.AchievementCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categoryCalls++
	return f.categories, nil
}

type fakeSession struct{ pending bool }

func (s *fakeSession) Pending() bool                    { return s.pending }
func (s *fakeSession) ForceAnonymous(_ context.Context) {}

func TestLoadPagePassesCategoryFilter(t *testing.T) {
	ctx := context.Background()
	client := &fakeAchievementAPI{items: []domain.Achievement{{ID: uuid.New(), Title: "First Steps"}}}
	board := NewBoard(client, &fakeSession{}, testutil.Logger(t))

	if err := board.LoadPage(ctx, 1, "streaks"); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	client.mu.Lock()
	got := client.lastFilter.Get("category")
	client.mu.Unlock()
	if got != "streaks" {
		t.Fatalf("category filter not passed: %q", got)
	}
	if len(board.Snapshot().Items) != 1 {
		t.Fatalf("items not loaded: %d", len(board.Snapshot().Items))
	}
}

func TestCategoriesFetchedOncePerSignIn(t *testing.T) {
	ctx := context.Background()
	client := &fakeAchievementAPI{
		categories: []domain.AchievementCategory{{ID: "streaks", Name: "Streaks"}},
	}
	board := NewBoard(client, &fakeSession{}, testutil.Logger(t))

	for i := 0; i < 3; i++ {
		cats, err := board.Categories(ctx)
		if err != nil {
			t.Fatalf("categories failed: %v", err)
		}
		if len(cats) != 1 || cats[0].ID != "streaks" {
			t.Fatalf("unexpected categories: %+v", cats)
		}
	}
	client.mu.Lock()
	calls := client.categoryCalls
	client.mu.Unlock()
	if calls != 1 {
		t.Fatalf("categories fetched more than once: %d", calls)
	}

	// Reset (sign-out) drops the cache; the next call refetches.
	board.Reset()
	if _, err := board.Categories(ctx); err != nil {
		t.Fatalf("categories failed: %v", err)
	}
	client.mu.Lock()
	calls = client.categoryCalls
	client.mu.Unlock()
	if calls != 2 {
		t.Fatalf("reset did not invalidate categories: %d", calls)
	}
}
