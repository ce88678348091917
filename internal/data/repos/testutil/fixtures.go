package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
)

func SeedBallotVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, tableCode string, version int) *types.BallotVersion {
	tb.Helper()
	bv := &types.BallotVersion{
		ID:        uuid.New(),
		TableCode: tableCode,
		Version:   version,
	}
	if err := tx.WithContext(ctx).Create(bv).Error; err != nil {
		tb.Fatalf("seed ballot version: %v", err)
	}
	return bv
}

func SeedAttestation(tb testing.TB, ctx context.Context, tx *gorm.DB, versionID uuid.UUID, role types.AttestationRole, stance types.AttestationStance) *types.Attestation {
	tb.Helper()
	a := &types.Attestation{
		ID:          uuid.New(),
		VersionID:   versionID,
		SubmitterID: uuid.New(),
		Role:        role,
		Stance:      stance,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed attestation: %v", err)
	}
	return a
}

// SeedSupport adds users observer and juries jury support attestations for versionID.
func SeedSupport(tb testing.TB, ctx context.Context, tx *gorm.DB, versionID uuid.UUID, users, juries int) {
	tb.Helper()
	for i := 0; i < users; i++ {
		SeedAttestation(tb, ctx, tx, versionID, types.RoleObserver, types.StanceSupport)
	}
	for i := 0; i < juries; i++ {
		SeedAttestation(tb, ctx, tx, versionID, types.RoleJury, types.StanceSupport)
	}
}

func SeedElectoralTable(tb testing.TB, ctx context.Context, tx *gorm.DB, tableCode, department, province, municipality string) *types.ElectoralTable {
	tb.Helper()
	et := &types.ElectoralTable{
		ID:           uuid.New(),
		TableCode:    tableCode,
		TableNumber:  "1",
		Department:   department,
		Province:     province,
		Municipality: municipality,
		Active:       true,
	}
	if err := tx.WithContext(ctx).Create(et).Error; err != nil {
		tb.Fatalf("seed electoral table: %v", err)
	}
	return et
}

func SeedCase(tb testing.TB, ctx context.Context, tx *gorm.DB, tableCode string, status types.CaseStatus, winner *uuid.UUID) *types.Case {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.Case{
		ID:               uuid.New(),
		TableCode:        tableCode,
		Status:           status,
		WinningVersionID: winner,
		Rationale:        "seeded",
		ResolvedAt:       now,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed case: %v", err)
	}
	return c
}

// SeedWindow stores an active window config with voting in [start, end].
func SeedWindow(tb testing.TB, ctx context.Context, tx *gorm.DB, start, end, results time.Time, allowOverride bool) *types.WindowConfig {
	tb.Helper()
	w := &types.WindowConfig{
		ID:            uuid.New(),
		Name:          "window-" + uuid.NewString()[:8],
		VotingStart:   start.UTC(),
		VotingEnd:     end.UTC(),
		ResultsStart:  results.UTC(),
		AllowOverride: allowOverride,
		Timezone:      "America/La_Paz",
		IsActive:      true,
	}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed window: %v", err)
	}
	return w
}
