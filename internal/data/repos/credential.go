package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/pkg/dbctx"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

// CredentialRepo persists the single refresh credential row. The token store
// hydrates from it once at startup and writes through on every rotation.
type CredentialRepo interface {
	Get(dbc dbctx.Context) (*domain.Credential, error)
	Put(dbc dbctx.Context, userID uuid.UUID, refreshToken string) error
	Clear(dbc dbctx.Context) error
}

type credentialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCredentialRepo(db *gorm.DB, baseLog *logger.Logger) CredentialRepo {
	repoLog := baseLog.With("repo", "CredentialRepo")
	return &credentialRepo{db: db, log: repoLog}
}

func (cr *credentialRepo) Get(dbc dbctx.Context) (*domain.Credential, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	var result domain.Credential
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", 1).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &result, nil
}

func (cr *credentialRepo) Put(dbc dbctx.Context, userID uuid.UUID, refreshToken string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	row := domain.Credential{ID: 1, UserID: userID, RefreshToken: refreshToken}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (cr *credentialRepo) Clear(dbc dbctx.Context) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", 1).
		Delete(&domain.Credential{}).Error
}
