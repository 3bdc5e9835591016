package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/middleware"
	"github.com/lalith-99/bikers/internal/report"
	"github.com/lalith-99/bikers/internal/service"
	"go.uber.org/zap"
)

type ReportHandler struct {
	responder
	reports     *service.ReportService
	maintenance middleware.MaintenanceFlag
}

func NewReportHandler(reports *service.ReportService, maintenance middleware.MaintenanceFlag, logger *zap.Logger, debug bool) *ReportHandler {
	return &ReportHandler{
		responder:   responder{logger: logger, debug: debug},
		reports:     reports,
		maintenance: maintenance,
	}
}

// Dashboard handles GET /api/tenant/dashboard
func (h *ReportHandler) Dashboard(c *gin.Context) {
	d, err := h.reports.Dashboard(c.Request.Context(), middleware.MustIdentity(c), middleware.GetCompanyID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Sales handles GET /api/tenant/sales
func (h *ReportHandler) Sales(c *gin.Context) {
	s, err := h.reports.Sales(c.Request.Context(), middleware.MustIdentity(c), middleware.GetCompanyID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Profit handles GET /api/tenant/reports/profit
func (h *ReportHandler) Profit(c *gin.Context) {
	p, err := h.reports.Profit(c.Request.Context(), middleware.GetCompanyID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SystemStats handles GET /api/superadmin/analytics/system-stats
func (h *ReportHandler) SystemStats(c *gin.Context) {
	s, err := h.reports.SystemStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func period(c *gin.Context) (int, error) {
	days, err := report.ParsePeriod(c.Query("period"))
	if err != nil {
		return 0, apperr.Validation(apperr.Field("period", err.Error()))
	}
	return days, nil
}

// Rankings handles GET /api/superadmin/analytics/company-rankings?period=
func (h *ReportHandler) Rankings(c *gin.Context) {
	days, err := period(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	r, err := h.reports.Rankings(c.Request.Context(), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Trends handles GET /api/superadmin/analytics/sales-trends?period=
func (h *ReportHandler) Trends(c *gin.Context) {
	days, err := period(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	t, err := h.reports.Trends(c.Request.Context(), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Health handles GET /api/superadmin/health. An unreachable database is
// answered with 503 and the same body.
func (h *ReportHandler) Health(c *gin.Context) {
	health := h.reports.Health(c.Request.Context(), h.maintenance.Maintenance())
	status := http.StatusOK
	if health.Database != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}
