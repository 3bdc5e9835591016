// Package api holds the HTTP handlers and the router that wires them behind
// the guard chain. Handlers only translate between HTTP and the service
// layer; every rule lives in internal/service.
package api

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/middleware"
	"go.uber.org/zap"
)

// responder is embedded by every handler. debug adds the cause of INTERNAL
// errors to the response body and is off in production.
type responder struct {
	logger *zap.Logger
	debug  bool
}

func (r responder) fail(c *gin.Context, err error) {
	e := apperr.As(err)
	if e.Kind == apperr.KindInternal {
		middleware.Logger(c, r.logger).Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	middleware.WriteError(c, e, r.debug)
}

var errBadBody = apperr.Validation(apperr.Field("body", "request body must be valid JSON"))

// bindJSON decodes the request body into dst. Field rules are checked by the
// service, not here.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation(apperr.Field("body", "request body is required"))
		}
		return errBadBody
	}
	return nil
}

func pathID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Validation(apperr.Field(name, "must be a valid UUID"))
	}
	return id, nil
}

// queryID reads an optional UUID query parameter.
func queryID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation(apperr.Field(name, "must be a valid UUID"))
	}
	return &id, nil
}
