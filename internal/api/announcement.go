package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/bikers/internal/middleware"
	"github.com/lalith-99/bikers/internal/realtime"
	"github.com/lalith-99/bikers/internal/service"
	"go.uber.org/zap"
)

// AnnouncementHandler serves superadmin broadcasts and the tenant side that
// reads them, including the live websocket stream.
type AnnouncementHandler struct {
	responder
	broadcasts *service.BroadcastService
	hub        *realtime.Hub
}

func NewAnnouncementHandler(broadcasts *service.BroadcastService, hub *realtime.Hub, logger *zap.Logger, debug bool) *AnnouncementHandler {
	return &AnnouncementHandler{
		responder:  responder{logger: logger, debug: debug},
		broadcasts: broadcasts,
		hub:        hub,
	}
}

// Visible handles GET /api/tenant/announcements
func (h *AnnouncementHandler) Visible(c *gin.Context) {
	list, err := h.broadcasts.Visible(c.Request.Context(), middleware.GetCompanyID(c), 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Stream handles GET /api/tenant/announcements/stream. The connection stays
// open until the client leaves; only announcements visible to the resolved
// company are pushed.
func (h *AnnouncementHandler) Stream(c *gin.Context) {
	companyID := middleware.GetCompanyID(c)
	logger := middleware.Logger(c, h.logger).With(zap.String("company_id", companyID.String()))

	logger.Debug("announcement stream opened")
	if err := h.hub.ServeWS(c.Writer, c.Request, companyID); err != nil {
		logger.Warn("announcement stream closed with error", zap.Error(err))
		return
	}
	logger.Debug("announcement stream closed")
}

// List handles GET /api/superadmin/broadcasts
func (h *AnnouncementHandler) List(c *gin.Context) {
	list, err := h.broadcasts.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Create handles POST /api/superadmin/broadcasts
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req service.CreateBroadcastInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	a, err := h.broadcasts.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	middleware.Logger(c, h.logger).Info("announcement created", zap.String("announcement_id", a.ID.String()))
	c.JSON(http.StatusCreated, a)
}
