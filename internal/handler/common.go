package handler

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/model"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
)

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// queryUint parses an optional numeric query parameter, returning 0 when
// absent or malformed.
func queryUint(c echo.Context, name string) uint64 {
	v, _ := strconv.ParseUint(c.QueryParam(name), 10, 64)
	return v
}

// queryTime parses an optional RFC3339 or date-only query parameter.
func queryTime(c echo.Context, name string) time.Time {
	s := c.QueryParam(name)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}

// recordAudit appends one audit entry on behalf of an administrative
// action.  Audit writes never fail the request; an error is only logged.
func recordAudit(audit *repository.AuditRepo, actor *model.User, action, description string, affectedID *uint64, affectedName string, changes []model.AuditChange) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e := &model.AuditEntry{
		Action:       action,
		Description:  description,
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		AffectedID:   affectedID,
		AffectedName: affectedName,
		Changes:      changes,
	}
	if err := audit.Append(ctx, e); err != nil {
		log.Printf("audit: append %s failed: %v", action, err)
	}
}
