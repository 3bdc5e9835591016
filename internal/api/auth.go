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

// AuthHandler serves /api/auth and superadmin impersonation.
type AuthHandler struct {
	responder
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService, logger *zap.Logger, debug bool) *AuthHandler {
	return &AuthHandler{responder: responder{logger: logger, debug: debug}, auth: auth}
}

// Login handles POST /api/auth/login. It is the only unauthenticated write.
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Profile handles GET /api/auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	p, err := h.auth.Profile(c.Request.Context(), middleware.MustIdentity(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), middleware.MustIdentity(c), req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

type impersonateRequest struct {
	CompanyID *uuid.UUID `json:"company_id"`
}

// Impersonate handles POST /api/superadmin/impersonate. The token it returns
// is short-lived and scoped to the requested company.
func (h *AuthHandler) Impersonate(c *gin.Context) {
	var req impersonateRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if req.CompanyID == nil {
		h.fail(c, apperr.Validation(apperr.Field("company_id", "company_id is required")))
		return
	}

	res, err := h.auth.Impersonate(c.Request.Context(), middleware.MustIdentity(c), *req.CompanyID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
