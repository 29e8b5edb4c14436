package optimistic

import (
	"context"

	"github.com/campusfront/campusfront/internal/platform/logger"
)

// Tx is one optimistic mutation over a slice S of local state: apply the
// change before the network call, confirm remotely, reconcile on success or
// restore the exact pre-mutation snapshot on failure. S should capture only
// the affected slice so a rollback cannot clobber unrelated updates that
// landed in between.
type Tx[S any] struct {
	Name string

	Snapshot  func() S
	Apply     func()
	Call      func(ctx context.Context) error
	Reconcile func()
	Restore   func(snap S)
}

// Run executes the transaction. The returned error is the remote call's
// error after the rollback already happened; stale/canceled results are the
// caller's concern, Run itself never swallows errors.
func Run[S any](ctx context.Context, log *logger.Logger, tx Tx[S]) error {
	snap := tx.Snapshot()
	tx.Apply()

	if err := tx.Call(ctx); err != nil {
		tx.Restore(snap)
		if log != nil {
			log.Warn("optimistic mutation rolled back", "mutation", tx.Name, "error", err)
		}
		return err
	}

	if tx.Reconcile != nil {
		tx.Reconcile()
	}
	return nil
}
