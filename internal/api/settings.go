package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/middleware"
	"github.com/lalith-99/bikers/internal/settings"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	responder
	store *settings.Store
}

func NewSettingsHandler(store *settings.Store, logger *zap.Logger, debug bool) *SettingsHandler {
	return &SettingsHandler{responder: responder{logger: logger, debug: debug}, store: store}
}

// List handles GET /api/superadmin/settings
func (h *SettingsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.List())
}

// updateSettingRequest accepts value as a JSON string, bool or number.
type updateSettingRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Update handles PUT /api/superadmin/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req updateSettingRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if req.Key == "" {
		h.fail(c, apperr.Validation(apperr.Field("key", "key is required")))
		return
	}
	if req.Value == nil {
		h.fail(c, apperr.Validation(apperr.Field("value", "value is required")))
		return
	}

	s, err := h.store.Update(req.Key, fmt.Sprint(req.Value))
	switch {
	case errors.Is(err, settings.ErrUnknownKey), errors.Is(err, settings.ErrReadOnly):
		h.fail(c, apperr.Validation(apperr.Field("key", err.Error())))
		return
	case errors.Is(err, settings.ErrInvalidValue):
		h.fail(c, apperr.Validation(apperr.Field("value", err.Error())))
		return
	case err != nil:
		h.fail(c, err)
		return
	}

	middleware.Logger(c, h.logger).Info("setting updated",
		zap.String("key", s.Key),
		zap.String("value", s.Value),
	)
	c.JSON(http.StatusOK, s)
}
