package services

import (
	"github.com/yungbote/ballot-consensus-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/ballot-consensus-backend/internal/domain/aggregates"
)

func isUniqueViolation(err error) bool {
	return err != nil && domainagg.IsCode(aggregates.MapError("services.unique", err), domainagg.CodeConflict)
}
