package catalog

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/api"
	"github.com/campusfront/campusfront/internal/data/repos"
	"github.com/campusfront/campusfront/internal/data/repos/testutil"
	"github.com/campusfront/campusfront/internal/domain"
	pkgerrors "github.com/campusfront/campusfront/internal/pkg/errors"
)

type fakeCourseAPI struct {
	mu      sync.Mutex
	pages   map[int][]domain.Course
	total   int
	listErr error
}

func (f *fakeCourseAPI) ListCourses(ctx context.Context, page, size int, filter url.Values) (api.CoursePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return api.CoursePage{}, f.listErr
	}
	return api.CoursePage{Items: f.pages[page], PageNumber: page, TotalPages: f.total}, nil
}

type fakeSession struct {
	pending bool
}

func (s *fakeSession) Pending() bool                    { return s.pending }
func (s *fakeSession) ForceAnonymous(_ context.Context) {}

func newTestCatalog(t *testing.T, client *fakeCourseAPI, sess *fakeSession) *Catalog {
	t.Helper()
	log := testutil.Logger(t)
	celebrations := repos.NewCelebrationRepo(testutil.DB(t), log)
	return NewCatalog(client, sess, celebrations, log)
}

func TestLoadPageReplacesItems(t *testing.T) {
	ctx := context.Background()
	c1 := domain.Course{ID: uuid.New(), Title: "Intro to Go"}
	c2 := domain.Course{ID: uuid.New(), Title: "Concurrency Patterns"}
	client := &fakeCourseAPI{pages: map[int][]domain.Course{1: {c1}, 2: {c2}}, total: 2}
	cat := newTestCatalog(t, client, &fakeSession{})

	if err := cat.LoadPage(ctx, 1, nil); err != nil {
		t.Fatalf("load page 1 failed: %v", err)
	}
	if err := cat.LoadPage(ctx, 2, nil); err != nil {
		t.Fatalf("load page 2 failed: %v", err)
	}

	snap := cat.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != c2.ID {
		t.Fatalf("page jump did not replace items: %+v", snap.Items)
	}
}

func TestLoadPageGatedWhilePending(t *testing.T) {
	client := &fakeCourseAPI{pages: map[int][]domain.Course{}}
	cat := newTestCatalog(t, client, &fakeSession{pending: true})

	err := cat.LoadPage(context.Background(), 1, nil)
	if !errors.Is(err, pkgerrors.ErrSessionUnresolved) {
		t.Fatalf("unexpected error: got=%v want=%v", err, pkgerrors.ErrSessionUnresolved)
	}
}

func TestShouldCelebrateFiresExactlyOnce(t *testing.T) {
	ctx := context.Background()
	client := &fakeCourseAPI{pages: map[int][]domain.Course{}}
	cat := newTestCatalog(t, client, &fakeSession{})
	courseID := uuid.New()

	first, err := cat.ShouldCelebrate(ctx, courseID)
	if err != nil {
		t.Fatalf("celebrate check failed: %v", err)
	}
	if !first {
		t.Fatal("first check must celebrate")
	}

	for i := 0; i < 3; i++ {
		again, err := cat.ShouldCelebrate(ctx, courseID)
		if err != nil {
			t.Fatalf("celebrate check failed: %v", err)
		}
		if again {
			t.Fatal("celebration replayed")
		}
	}

	// Another course is unaffected.
	other, err := cat.ShouldCelebrate(ctx, uuid.New())
	if err != nil {
		t.Fatalf("celebrate check failed: %v", err)
	}
	if !other {
		t.Fatal("unrelated course blocked from celebrating")
	}
}

func TestShouldCelebratePersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	client := &fakeCourseAPI{pages: map[int][]domain.Course{}}
	courseID := uuid.New()

	cat := NewCatalog(client, &fakeSession{}, repos.NewCelebrationRepo(db, log), log)
	if _, err := cat.ShouldCelebrate(ctx, courseID); err != nil {
		t.Fatalf("celebrate check failed: %v", err)
	}

	restarted := NewCatalog(client, &fakeSession{}, repos.NewCelebrationRepo(db, log), log)
	again, err := restarted.ShouldCelebrate(ctx, courseID)
	if err != nil {
		t.Fatalf("celebrate check failed: %v", err)
	}
	if again {
		t.Fatal("celebration replayed after restart")
	}
}
