package repos_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/data/repos"
	"github.com/campusfront/campusfront/internal/data/repos/testutil"
	"github.com/campusfront/campusfront/internal/pkg/dbctx"
)

func TestCelebrationRepoMarkIsIdempotent(t *testing.T) {
	ctx := dbctx.Context{Ctx: context.Background()}
	repo := repos.NewCelebrationRepo(testutil.DB(t), testutil.Logger(t))
	courseID := uuid.New()

	exists, err := repo.Exists(ctx, courseID)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatal("unmarked course reported as celebrated")
	}

	for i := 0; i < 3; i++ {
		if err := repo.Mark(ctx, courseID); err != nil {
			t.Fatalf("mark %d failed: %v", i, err)
		}
	}

	exists, err = repo.Exists(ctx, courseID)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !exists {
		t.Fatal("marked course not reported as celebrated")
	}
}
