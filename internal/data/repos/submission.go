package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/pkg/dbctx"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

type SubmissionRepo interface {
	GetByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*domain.TaskSubmissionRecord, error)
	Upsert(dbc dbctx.Context, records []*domain.TaskSubmissionRecord) error
	Delete(dbc dbctx.Context, lessonID, taskID uuid.UUID) error
	FullDeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	repoLog := baseLog.With("repo", "SubmissionRepo")
	return &submissionRepo{db: db, log: repoLog}
}

func (sr *submissionRepo) GetByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*domain.TaskSubmissionRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*domain.TaskSubmissionRecord

	if len(lessonIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("lesson_id IN ?", lessonIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

// Upsert replaces each record wholesale on key conflict; submissions are
// never partially merged.
func (sr *submissionRepo) Upsert(dbc dbctx.Context, records []*domain.TaskSubmissionRecord) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = sr.db
	}

	if len(records) == 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lesson_id"}, {Name: "task_id"}},
			UpdateAll: true,
		}).
		Create(&records).Error
}

func (sr *submissionRepo) Delete(dbc dbctx.Context, lessonID, taskID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(dbc.Ctx).
		Where("lesson_id = ? AND task_id = ?", lessonID, taskID).
		Delete(&domain.TaskSubmissionRecord{}).Error
}

func (sr *submissionRepo) FullDeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = sr.db
	}

	if len(lessonIDs) == 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Where("lesson_id IN ?", lessonIDs).
		Delete(&domain.TaskSubmissionRecord{}).Error
}
