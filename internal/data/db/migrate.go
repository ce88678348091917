package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// =========================
		// Reference registry
		// =========================
		&types.ElectoralTable{},

		// =========================
		// Ballot digitizations + endorsements
		// =========================
		&types.BallotVersion{},
		&types.Attestation{},

		// =========================
		// Resolution
		// =========================
		&types.Case{},

		// =========================
		// Scheduling
		// =========================
		&types.WindowConfig{},
	)
}

// EnsureIndexes adds the postgres-only partial indexes AutoMigrate cannot express.
func EnsureIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_ballot_version_one_counted
		ON ballot_versions(table_code)
		WHERE counts_toward_totals;
	`).Error; err != nil {
		return fmt.Errorf("create idx_ballot_version_one_counted: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_election_window_one_active
		ON election_windows(is_active)
		WHERE is_active;
	`).Error; err != nil {
		return fmt.Errorf("create idx_election_window_one_active: %w", err)
	}
	return nil
}
