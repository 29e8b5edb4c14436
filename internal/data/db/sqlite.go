package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/campusfront/campusfront/internal/domain"
	"github.com/campusfront/campusfront/internal/platform/envutil"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

// StateDB is the local durable store: one sqlite file holding the refresh
// credential, cached counters, lesson-task submissions and celebration marks.
type StateDB struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStateDB(logg *logger.Logger) (*StateDB, error) {
	serviceLog := logg.With("service", "StateDB")

	path := envutil.String("STATE_DB_PATH", "campusfront.db")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}

	return &StateDB{db: gdb, log: serviceLog}, nil
}

func (s *StateDB) DB() *gorm.DB { return s.db }

func (s *StateDB) AutoMigrateAll() error {
	return s.db.AutoMigrate(
		&domain.Credential{},
		&domain.TaskSubmissionRecord{},
		&domain.CelebrationMark{},
		&domain.Counter{},
	)
}
