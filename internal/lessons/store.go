package lessons

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/campusfront/campusfront/internal/api"
	"github.com/campusfront/campusfront/internal/data/repos"
	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/optimistic"
	"github.com/campusfront/campusfront/internal/pkg/dbctx"
	pkgerrors "github.com/campusfront/campusfront/internal/pkg/errors"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

type API interface {
	ListLessonTasks(ctx context.Context, lessonID uuid.UUID) ([]domain.Task, error)
	SubmitTask(ctx context.Context, lessonID, taskID uuid.UUID, answer json.RawMessage) (domain.Submission, error)
}

type SessionHooks interface {
	Pending() bool
	ForceAnonymous(ctx context.Context)
}

type key struct {
	lesson uuid.UUID
	task   uuid.UUID
}

// Store holds lesson-task submissions keyed by (lessonID, taskID), mirrored
// to the state DB so an in-progress lesson survives a reload. A record starts
// PENDING with the task's boilerplate answer and is replaced wholesale by the
// server's graded result; records are never partially merged.
type Store struct {
	log    *logger.Logger
	client API
	sess   SessionHooks
	repo   repos.SubmissionRepo

	mu   sync.Mutex
	subs map[key]domain.Submission
}

func NewStore(client API, sess SessionHooks, repo repos.SubmissionRepo, baseLog *logger.Logger) *Store {
	return &Store{
		log:    baseLog.With("service", "SubmissionStore"),
		client: client,
		sess:   sess,
		repo:   repo,
		subs:   make(map[key]domain.Submission),
	}
}

// InitLesson loads the lesson's tasks, restores any persisted submissions and
// seeds PENDING boilerplate records for tasks seen for the first time.
func (s *Store) InitLesson(ctx context.Context, lessonID uuid.UUID) error {
	if s.sess != nil && s.sess.Pending() {
		return pkgerrors.ErrSessionUnresolved
	}

	dbc := dbctx.Context{Ctx: ctx}

	persisted, err := s.repo.GetByLessonIDs(dbc, []uuid.UUID{lessonID})
	if err != nil {
		return err
	}
	s.mu.Lock()
	for _, rec := range persisted {
		sub := fromRecord(rec)
		s.subs[key{lesson: sub.LessonID, task: sub.TaskID}] = sub
	}
	s.mu.Unlock()

	tasks, err := s.client.ListLessonTasks(ctx, lessonID)
	if err != nil {
		if api.IsAuthError(err) {
			s.sess.ForceAnonymous(ctx)
		}
		return err
	}

	var seeded []*domain.TaskSubmissionRecord
	s.mu.Lock()
	for _, t := range tasks {
		k := key{lesson: lessonID, task: t.ID}
		if _, ok := s.subs[k]; ok {
			continue
		}
		sub := domain.Submission{
			ID:       uuid.New(),
			LessonID: lessonID,
			TaskID:   t.ID,
			Status:   domain.SubmissionPending,
			Answer:   t.Boilerplate,
		}
		s.subs[k] = sub
		seeded = append(seeded, toRecord(sub))
	}
	s.mu.Unlock()

	return s.repo.Upsert(dbc, seeded)
}

func (s *Store) Get(lessonID, taskID uuid.UUID) (domain.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[key{lesson: lessonID, task: taskID}]
	return sub, ok
}

// LessonSubmissions returns every tracked submission of one lesson.
func (s *Store) LessonSubmissions(lessonID uuid.UUID) []domain.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Submission
	for k, sub := range s.subs {
		if k.lesson == lessonID {
			out = append(out, sub)
		}
	}
	return out
}

// Submit grades one attempt optimistically: the local record flips to PENDING
// with the new answer immediately, the graded server result then replaces it
// wholesale. On failure the exact pre-submit record is restored and the error
// returned.
func (s *Store) Submit(ctx context.Context, lessonID, taskID uuid.UUID, answer json.RawMessage) (domain.Submission, error) {
	k := key{lesson: lessonID, task: taskID}
	dbc := dbctx.Context{Ctx: ctx}

	type snapT struct {
		prev  domain.Submission
		found bool
	}
	var graded domain.Submission

	err := optimistic.Run(ctx, s.log, optimistic.Tx[snapT]{
		Name: "lessons.submit_task",
		Snapshot: func() snapT {
			s.mu.Lock()
			defer s.mu.Unlock()
			prev, ok := s.subs[k]
			return snapT{prev: prev, found: ok}
		},
		Apply: func() {
			s.mu.Lock()
			attempt := s.subs[k]
			if attempt.ID == uuid.Nil {
				attempt.ID = uuid.New()
			}
			attempt.LessonID = lessonID
			attempt.TaskID = taskID
			attempt.Status = domain.SubmissionPending
			attempt.Answer = answer
			attempt.SubmittedAt = time.Now().UTC()
			s.subs[k] = attempt
			s.mu.Unlock()
			s.persist(dbc, attempt)
		},
		Call: func(ctx context.Context) error {
			result, err := s.client.SubmitTask(ctx, lessonID, taskID, answer)
			if err != nil {
				if api.IsAuthError(err) {
					s.sess.ForceAnonymous(ctx)
				}
				return err
			}
			graded = result
			return nil
		},
		Reconcile: func() {
			graded.LessonID = lessonID
			graded.TaskID = taskID
			s.mu.Lock()
			s.subs[k] = graded
			s.mu.Unlock()
			s.persist(dbc, graded)
		},
		Restore: func(snap snapT) {
			s.mu.Lock()
			if snap.found {
				s.subs[k] = snap.prev
			} else {
				delete(s.subs, k)
			}
			s.mu.Unlock()
			if snap.found {
				s.persist(dbc, snap.prev)
			} else if err := s.repo.Delete(dbc, lessonID, taskID); err != nil {
				s.log.Warn("failed to delete rolled-back submission", "lesson_id", lessonID, "task_id", taskID, "error", err)
			}
		},
	})
	if err != nil {
		return domain.Submission{}, err
	}
	return graded, nil
}

// ClearLesson drops a lesson's submissions from memory and disk.
func (s *Store) ClearLesson(ctx context.Context, lessonID uuid.UUID) error {
	s.mu.Lock()
	for k := range s.subs {
		if k.lesson == lessonID {
			delete(s.subs, k)
		}
	}
	s.mu.Unlock()
	return s.repo.FullDeleteByLessonIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{lessonID})
}

// Reset drops the in-memory mirror, keeping persisted records intact.
func (s *Store) Reset() {
	s.mu.Lock()
	s.subs = make(map[key]domain.Submission)
	s.mu.Unlock()
}

func (s *Store) persist(dbc dbctx.Context, sub domain.Submission) {
	if err := s.repo.Upsert(dbc, []*domain.TaskSubmissionRecord{toRecord(sub)}); err != nil {
		s.log.Warn("failed to persist submission", "lesson_id", sub.LessonID, "task_id", sub.TaskID, "error", err)
	}
}

func toRecord(sub domain.Submission) *domain.TaskSubmissionRecord {
	return &domain.TaskSubmissionRecord{
		LessonID:     sub.LessonID,
		TaskID:       sub.TaskID,
		SubmissionID: sub.ID,
		Status:       string(sub.Status),
		Answer:       datatypes.JSON(sub.Answer),
		SubmittedAt:  sub.SubmittedAt,
	}
}

func fromRecord(rec *domain.TaskSubmissionRecord) domain.Submission {
	return domain.Submission{
		ID:          rec.SubmissionID,
		LessonID:    rec.LessonID,
		TaskID:      rec.TaskID,
		Status:      domain.SubmissionStatus(rec.Status),
		Answer:      json.RawMessage(rec.Answer),
		SubmittedAt: rec.SubmittedAt,
	}
}
