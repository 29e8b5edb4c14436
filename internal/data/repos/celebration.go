package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/pkg/dbctx"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

type CelebrationRepo interface {
	Exists(dbc dbctx.Context, courseID uuid.UUID) (bool, error)
	Mark(dbc dbctx.Context, courseID uuid.UUID) error
}

type celebrationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCelebrationRepo(db *gorm.DB, baseLog *logger.Logger) CelebrationRepo {
	repoLog := baseLog.With("repo", "CelebrationRepo")
	return &celebrationRepo{db: db, log: repoLog}
}

func (cr *celebrationRepo) Exists(dbc dbctx.Context, courseID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&domain.CelebrationMark{}).
		Where("course_id = ?", courseID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// Mark is idempotent: re-marking an already celebrated course is a no-op.
func (cr *celebrationRepo) Mark(dbc dbctx.Context, courseID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	row := domain.CelebrationMark{CourseID: courseID}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}
