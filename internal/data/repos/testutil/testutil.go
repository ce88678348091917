package testutil

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	appdb "github.com/yungbote/ballot-consensus-backend/internal/data/db"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error

	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a fresh, migrated in-memory SQLite database private to tb.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := appdb.AutoMigrateAll(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// PostgresDB connects to TEST_POSTGRES_DSN once per process, skipping tb when unset.
func PostgresDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
	}
	pgOnce.Do(func() {
		pgDB, pgErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			TranslateError:                           true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if pgErr != nil {
			return
		}
		if pgErr = appdb.AutoMigrateAll(pgDB); pgErr != nil {
			return
		}
		pgErr = appdb.EnsureIndexes(pgDB)
	})
	if pgErr != nil {
		tb.Fatalf("failed to init test db: %v", pgErr)
	}
	return pgDB
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
