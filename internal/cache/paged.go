package cache

import (
	"context"
	"net/url"
	"sync"

	pkgerrors "github.com/campusfront/campusfront/internal/pkg/errors"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

type Mode int

const (
	// Replace discards prior items on every committed load (page-jump UIs).
	Replace Mode = iota
	// Append keeps prior order and only adds to the tail (infinite scroll).
	// A page-1 load is a fresh view of the list and starts the mirror over.
	Append
)

// FetchFunc pulls one page from the remote API.
type FetchFunc[T any] func(ctx context.Context, page, size int, filter url.Values) (items []T, pageNumber, totalPages int, err error)

// Gate blocks loads until session resolution completed.
type Gate interface {
	Pending() bool
}

// Snapshot is a point-in-time copy of the cache for rendering.
type Snapshot[T any] struct {
	Items      []T
	PageNumber int
	// TotalPages is 0 until the first committed load reports it.
	TotalPages int
	Loading    bool
	Err        error
}

// PagedCache mirrors one remote paginated collection. All mutation runs as an
// atomic step under the lock; the only suspension point is the fetch itself,
// and anything read before it is re-validated by sequence number before being
// written back. Only the most recently issued load may commit
// (last-request-wins); superseded results are dropped silently.
type PagedCache[T any] struct {
	mu sync.Mutex

	mode     Mode
	pageSize int
	fetch    FetchFunc[T]
	gate     Gate
	log      *logger.Logger

	items      []T
	pageNumber int
	totalPages int
	loading    bool
	err        error

	// seq is bumped on every issued load and on Reset; a load result commits
	// only if its captured value still matches.
	seq uint64
}

func NewPagedCache[T any](mode Mode, pageSize int, fetch FetchFunc[T], gate Gate, baseLog *logger.Logger) *PagedCache[T] {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &PagedCache[T]{
		mode:     mode,
		pageSize: pageSize,
		fetch:    fetch,
		gate:     gate,
		log:      baseLog.With("service", "PagedCache"),
	}
}

// Load fetches one page and commits it unless a newer load or Reset was
// issued meanwhile. Gated: refuses to touch the network while session
// resolution is pending.
func (c *PagedCache[T]) Load(ctx context.Context, page int, filter url.Values) error {
	if c.gate != nil && c.gate.Pending() {
		return pkgerrors.ErrSessionUnresolved
	}
	if page < 1 {
		page = 1
	}

	c.mu.Lock()
	c.seq++
	mySeq := c.seq
	c.loading = true
	c.err = nil
	fresh := len(c.items) == 0
	c.mu.Unlock()

	items, pageNumber, totalPages, err := c.fetch(ctx, page, c.pageSize, filter)

	c.mu.Lock()
	defer c.mu.Unlock()

	if mySeq != c.seq {
		// A newer request owns the state now; this result is a no-op.
		c.log.Debug("dropping superseded page result", "page", page)
		return nil
	}

	c.loading = false
	if err != nil {
		c.err = err
		if page == 1 && fresh {
			c.items = nil
			c.pageNumber = 0
			c.totalPages = 0
		}
		return err
	}

	switch {
	case c.mode == Append && page > 1:
		c.items = append(c.items, items...)
	default:
		c.items = append([]T(nil), items...)
	}
	c.pageNumber = pageNumber
	c.totalPages = totalPages
	return nil
}

// Reset returns the cache to its pre-fetch state and invalidates any
// in-flight load.
func (c *PagedCache[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.items = nil
	c.pageNumber = 0
	c.totalPages = 0
	c.loading = false
	c.err = nil
}

// Push appends one item to the tail outside the load path (push-append).
func (c *PagedCache[T]) Push(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

// Mutate runs fn over the live item slice under the lock. fn must not keep
// references past its return.
func (c *PagedCache[T]) Mutate(fn func(items []T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.items)
}

func (c *PagedCache[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot[T]{
		Items:      append([]T(nil), c.items...),
		PageNumber: c.pageNumber,
		TotalPages: c.totalPages,
		Loading:    c.loading,
		Err:        c.err,
	}
}

func (c *PagedCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *PagedCache[T]) PageSize() int { return c.pageSize }
