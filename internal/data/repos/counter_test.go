package repos_test

import (
	"context"
	"testing"

	"github.com/campusfront/campusfront/internal/data/repos"
	"github.com/campusfront/campusfront/internal/data/repos/testutil"
	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/pkg/dbctx"
)

func TestCounterRepoDefaultsToZero(t *testing.T) {
	ctx := dbctx.Context{Ctx: context.Background()}
	repo := repos.NewCounterRepo(testutil.DB(t), testutil.Logger(t))

	v, err := repo.Get(ctx, domain.CounterUnreadNotifications)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != 0 {
		t.Fatalf("missing counter not zero: %d", v)
	}
}

func TestCounterRepoSetAndFloor(t *testing.T) {
	ctx := dbctx.Context{Ctx: context.Background()}
	repo := repos.NewCounterRepo(testutil.DB(t), testutil.Logger(t))

	if err := repo.Set(ctx, domain.CounterUnreadNotifications, 5); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	v, err := repo.Get(ctx, domain.CounterUnreadNotifications)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != 5 {
		t.Fatalf("unexpected value: %d", v)
	}

	// Negative values clamp to zero; the unread badge can never go negative.
	if err := repo.Set(ctx, domain.CounterUnreadNotifications, -3); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	v, err = repo.Get(ctx, domain.CounterUnreadNotifications)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != 0 {
		t.Fatalf("negative value not floored: %d", v)
	}
}
