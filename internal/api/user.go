package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/bikers/internal/middleware"
	"github.com/lalith-99/bikers/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	responder
	users *service.UserService
}

func NewUserHandler(users *service.UserService, logger *zap.Logger, debug bool) *UserHandler {
	return &UserHandler{responder: responder{logger: logger, debug: debug}, users: users}
}

// Create handles POST /api/auth/register, POST /api/tenant/admin/users and
// POST /api/superadmin/users. Which roles and companies the caller may
// assign is decided by UserService from the caller's identity.
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	who := middleware.MustIdentity(c)
	user, err := h.users.Create(c.Request.Context(), who, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	middleware.Logger(c, h.logger).Info("user created",
		zap.String("new_user_id", user.ID.String()),
		zap.String("new_user_role", user.Role.String()),
	)
	c.JSON(http.StatusCreated, user)
}

// ListCompany handles GET /api/tenant/admin/users
func (h *UserHandler) ListCompany(c *gin.Context) {
	users, err := h.users.ListCompany(c.Request.Context(), middleware.GetCompanyID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// List handles GET /api/superadmin/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
