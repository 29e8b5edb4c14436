package repos

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/pkg/dbctx"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

type CounterRepo interface {
	Get(dbc dbctx.Context, name string) (int, error)
	Set(dbc dbctx.Context, name string, value int) error
}

type counterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCounterRepo(db *gorm.DB, baseLog *logger.Logger) CounterRepo {
	repoLog := baseLog.With("repo", "CounterRepo")
	return &counterRepo{db: db, log: repoLog}
}

func (cr *counterRepo) Get(dbc dbctx.Context, name string) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	var row domain.Counter
	if err := transaction.WithContext(dbc.Ctx).
		Where("name = ?", name).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}

	return row.Value, nil
}

func (cr *counterRepo) Set(dbc dbctx.Context, name string, value int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	if value < 0 {
		value = 0
	}

	row := domain.Counter{Name: name, Value: value}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}
