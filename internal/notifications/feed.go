package notifications

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/api"
	"github.com/campusfront/campusfront/internal/cache"
	"github.com/campusfront/campusfront/internal/data/repos"
	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/optimistic"
	"github.com/campusfront/campusfront/internal/pkg/dbctx"
	"github.com/campusfront/campusfront/internal/platform/logger"
	"github.com/campusfront/campusfront/internal/realtime"
	"github.com/campusfront/campusfront/internal/realtime/bus"
)

// API is the slice of the platform client the feed needs.
type API interface {
	ListNotifications(ctx context.Context, page, size int, filter url.Values) (api.NotificationPage, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context) error
	UnreadNotificationCount(ctx context.Context) (int, error)
}

// SessionHooks is what the feed observes (gating) and triggers (forced drop
// on remote 401/403) of the auth session.
type SessionHooks interface {
	Pending() bool
	ForceAnonymous(ctx context.Context)
}

// Feed mirrors the notification list (append mode, infinite scroll) and the
// unread counter. Mark-read mutations are optimistic: flipped locally first,
// confirmed remotely, rolled back on failure. The unread counter is persisted
// so the badge is right immediately after a reload.
type Feed struct {
	log      *logger.Logger
	client   API
	sess     SessionHooks
	counters repos.CounterRepo
	cache    *cache.PagedCache[domain.Notification]

	mu      sync.Mutex
	unread  int
	lastErr error
}

func NewFeed(client API, sess SessionHooks, counters repos.CounterRepo, baseLog *logger.Logger) *Feed {
	feedLog := baseLog.With("service", "NotificationFeed")

	f := &Feed{
		log:      feedLog,
		client:   client,
		sess:     sess,
		counters: counters,
	}

	fetch := func(ctx context.Context, page, size int, filter url.Values) ([]domain.Notification, int, int, error) {
		resp, err := client.ListNotifications(ctx, page, size, filter)
		if err != nil {
			if api.IsAuthError(err) {
				sess.ForceAnonymous(ctx)
			}
			return nil, 0, 0, err
		}
		return resp.Items, resp.PageNumber, resp.TotalPages, nil
	}
	f.cache = cache.NewPagedCache(cache.Append, 20, fetch, sess, feedLog)

	return f
}

// Hydrate loads the persisted unread count so the badge renders before the
// first fetch completes.
func (f *Feed) Hydrate(ctx context.Context) error {
	v, err := f.counters.Get(dbctx.Context{Ctx: ctx}, domain.CounterUnreadNotifications)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.unread = v
	f.mu.Unlock()
	return nil
}

func (f *Feed) LoadPage(ctx context.Context, page int) error {
	return f.cache.Load(ctx, page, nil)
}

// Reset tears the feed down to its signed-out state: mirror, counter and the
// persisted badge value all go to zero.
func (f *Feed) Reset() {
	f.cache.Reset()
	f.mu.Lock()
	f.unread = 0
	f.lastErr = nil
	f.mu.Unlock()
	f.persistUnread(context.Background(), 0)
}

func (f *Feed) Snapshot() cache.Snapshot[domain.Notification] {
	return f.cache.Snapshot()
}

func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

// Err returns the last mutation error, nil after a successful mutation.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// RefreshUnread re-syncs the counter from the server.
func (f *Feed) RefreshUnread(ctx context.Context) error {
	count, err := f.client.UnreadNotificationCount(ctx)
	if err != nil {
		if api.IsAuthError(err) {
			f.sess.ForceAnonymous(ctx)
		}
		return err
	}
	f.setUnread(ctx, count)
	return nil
}

type markReadSnap struct {
	found   bool
	wasRead bool
}

// MarkRead flips one notification read-side local-first. Already-read
// notifications short-circuit without a network call.
func (f *Feed) MarkRead(ctx context.Context, id uuid.UUID) error {
	var snap markReadSnap
	f.cache.Mutate(func(items []domain.Notification) {
		for i := range items {
			if items[i].ID == id {
				snap = markReadSnap{found: true, wasRead: items[i].Read}
				return
			}
		}
	})
	if snap.found && snap.wasRead {
		return nil
	}

	var decremented bool
	err := optimistic.Run(ctx, f.log, optimistic.Tx[markReadSnap]{
		Name:     "notifications.mark_read",
		Snapshot: func() markReadSnap { return snap },
		Apply: func() {
			f.cache.Mutate(func(items []domain.Notification) {
				for i := range items {
					if items[i].ID == id && !items[i].Read {
						items[i].Read = true
						decremented = true
					}
				}
			})
			if !snap.found || decremented {
				f.adjustUnread(ctx, -1)
				decremented = true
			}
		},
		Call: func(ctx context.Context) error {
			err := f.client.MarkNotificationRead(ctx, id)
			if err != nil && api.IsAuthError(err) {
				f.sess.ForceAnonymous(ctx)
			}
			return err
		},
		Restore: func(s markReadSnap) {
			f.cache.Mutate(func(items []domain.Notification) {
				for i := range items {
					if items[i].ID == id {
						items[i].Read = s.wasRead
					}
				}
			})
			if decremented {
				f.adjustUnread(ctx, +1)
			}
		},
	})
	f.setLastErr(err)
	return err
}

type markAllSnap struct {
	ids    []uuid.UUID
	zeroed int
}

// MarkAllRead zeroes the counter and flips every locally mirrored
// notification. A rollback resurrects only the notifications this call
// flipped, so a second call racing a first successful one cannot drive the
// counter negative or un-read anything.
func (f *Feed) MarkAllRead(ctx context.Context) error {
	err := optimistic.Run(ctx, f.log, optimistic.Tx[markAllSnap]{
		Name: "notifications.mark_all_read",
		Snapshot: func() markAllSnap {
			f.mu.Lock()
			zeroed := f.unread
			f.mu.Unlock()
			var ids []uuid.UUID
			f.cache.Mutate(func(items []domain.Notification) {
				for i := range items {
					if !items[i].Read {
						ids = append(ids, items[i].ID)
					}
				}
			})
			return markAllSnap{ids: ids, zeroed: zeroed}
		},
		Apply: func() {
			f.cache.Mutate(func(items []domain.Notification) {
				for i := range items {
					items[i].Read = true
				}
			})
			f.setUnread(ctx, 0)
		},
		Call: func(ctx context.Context) error {
			err := f.client.MarkAllNotificationsRead(ctx)
			if err != nil && api.IsAuthError(err) {
				f.sess.ForceAnonymous(ctx)
			}
			return err
		},
		Restore: func(s markAllSnap) {
			if len(s.ids) > 0 {
				flip := make(map[uuid.UUID]bool, len(s.ids))
				for _, id := range s.ids {
					flip[id] = true
				}
				f.cache.Mutate(func(items []domain.Notification) {
					for i := range items {
						if flip[items[i].ID] {
							items[i].Read = false
						}
					}
				})
			}
			f.adjustUnread(ctx, s.zeroed)
		},
	})
	f.setLastErr(err)
	return err
}

// StartPush subscribes the feed to the platform's push channel.
func (f *Feed) StartPush(ctx context.Context, b bus.Bus) error {
	return b.StartForwarder(ctx, func(m realtime.Message) {
		f.handleMessage(ctx, m)
	})
}

func (f *Feed) handleMessage(ctx context.Context, m realtime.Message) {
	if m.Type != realtime.MessageNotificationCreated {
		return
	}
	var n domain.Notification
	if err := json.Unmarshal(m.Payload, &n); err != nil {
		f.log.Warn("bad notification push payload", "error", err)
		return
	}

	dup := false
	f.cache.Mutate(func(items []domain.Notification) {
		for i := range items {
			if items[i].ID == n.ID {
				dup = true
				return
			}
		}
	})
	if dup {
		return
	}

	f.cache.Push(n)
	if !n.Read {
		f.adjustUnread(ctx, +1)
	}
}

func (f *Feed) setLastErr(err error) {
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()
}

func (f *Feed) setUnread(ctx context.Context, v int) {
	if v < 0 {
		v = 0
	}
	f.mu.Lock()
	f.unread = v
	f.mu.Unlock()
	f.persistUnread(ctx, v)
}

func (f *Feed) adjustUnread(ctx context.Context, delta int) {
	f.mu.Lock()
	v := f.unread + delta
	if v < 0 {
		v = 0
	}
	f.unread = v
	f.mu.Unlock()
	f.persistUnread(ctx, v)
}

func (f *Feed) persistUnread(ctx context.Context, v int) {
	if err := f.counters.Set(dbctx.Context{Ctx: ctx}, domain.CounterUnreadNotifications, v); err != nil {
		f.log.Warn("failed to persist unread counter", "error", err)
	}
}
