package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
)

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	return parseUUID(c.Param(name), name)
}

func parseUUID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", pkgerrors.ErrInvalidArgument, name)
	}
	return id, nil
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", pkgerrors.ErrInvalidArgument, name)
	}
	return n, nil
}

type page struct {
	Limit  int
	Offset int
}

func pageQuery(c *gin.Context) (page, error) {
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		return page{}, err
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		return page{}, err
	}
	return page{Limit: limit, Offset: offset}, nil
}
