package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/middleware"
	"github.com/lalith-99/bikers/internal/service"
	"go.uber.org/zap"
)

type CompanyHandler struct {
	responder
	companies *service.CompanyService
}

func NewCompanyHandler(companies *service.CompanyService, logger *zap.Logger, debug bool) *CompanyHandler {
	return &CompanyHandler{responder: responder{logger: logger, debug: debug}, companies: companies}
}

// ListActive handles GET /api/public/companies and GET /api/auth/companies.
// Only id, name and logo are exposed.
func (h *CompanyHandler) ListActive(c *gin.Context) {
	companies, err := h.companies.ListActive(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

// List handles GET /api/superadmin/companies
func (h *CompanyHandler) List(c *gin.Context) {
	companies, err := h.companies.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

// Create handles POST /api/superadmin/companies
func (h *CompanyHandler) Create(c *gin.Context) {
	var req service.CreateCompanyInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	company, err := h.companies.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	middleware.Logger(c, h.logger).Info("company created", zap.String("company_id", company.ID.String()))
	c.JSON(http.StatusCreated, company)
}

type suspendRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetActive handles POST /api/superadmin/companies/:id/suspend.
// {"is_active": false} suspends, true reactivates.
func (h *CompanyHandler) SetActive(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req suspendRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if req.IsActive == nil {
		h.fail(c, apperr.Validation(apperr.Field("is_active", "is_active is required")))
		return
	}

	company, err := h.companies.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		h.fail(c, err)
		return
	}
	middleware.Logger(c, h.logger).Info("company status changed",
		zap.String("company_id", company.ID.String()),
		zap.Bool("is_active", company.IsActive),
	)
	c.JSON(http.StatusOK, company)
}

// Delete handles DELETE /api/superadmin/companies/:id
func (h *CompanyHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.companies.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	middleware.Logger(c, h.logger).Info("company deleted", zap.String("company_id", id.String()))
	c.JSON(http.StatusOK, gin.H{"message": "company deleted"})
}

// Stats handles GET /api/superadmin/companies/:id/stats
func (h *CompanyHandler) Stats(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	h.stats(c, id)
}

// TenantStats handles GET /api/tenant/admin/stats for the resolved company.
func (h *CompanyHandler) TenantStats(c *gin.Context) {
	h.stats(c, middleware.GetCompanyID(c))
}

func (h *CompanyHandler) stats(c *gin.Context, id uuid.UUID) {
	stats, err := h.companies.Stats(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
