package api

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/auth"
	"github.com/lalith-99/bikers/internal/config"
	"github.com/lalith-99/bikers/internal/middleware"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/observ"
	"github.com/lalith-99/bikers/internal/ratelimit"
	"github.com/lalith-99/bikers/internal/realtime"
	"github.com/lalith-99/bikers/internal/service"
	"github.com/lalith-99/bikers/internal/settings"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps is what the router needs beyond configuration. Limiter, Metrics and
// Gatherer may be nil; Hub defaults to a local-only hub.
type Deps struct {
	Services  *service.Services
	Companies middleware.CompanyLookup
	Issuer    *auth.Issuer
	Settings  *settings.Store
	Hub       *realtime.Hub
	Limiter   *ratelimit.Limiter
	Metrics   *observ.Metrics
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
}

// maintenanceExempt stays reachable while maintenance mode is on so a
// superadmin can log in and turn it off.
var maintenanceExempt = []string{"/api/auth", "/api/superadmin"}

// NewRouter builds the engine with every route behind its guard chain:
//
//	/api/auth        public login; the rest needs a token
//	/api/public      maintenance
//	/api/tenant      auth, roles{ADMIN,WORKER,SUPERADMIN}, tenant, maintenance
//	/api/superadmin  auth, roles{SUPERADMIN}
func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	logger := d.Logger
	debug := !cfg.IsProduction()
	if d.Limiter == nil {
		d.Limiter = ratelimit.New(nil)
	}
	if d.Hub == nil {
		d.Hub = realtime.NewHub(nil, logger, d.Metrics, cfg.CORSOrigins)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(logger),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			middleware.Logger(c, logger).Error("panic recovered", zap.Any("panic", recovered), zap.Stack("stack"))
			middleware.WriteError(c, apperr.Internal(fmt.Errorf("panic: %v", recovered)), debug)
		}),
		middleware.RequestLogger(logger),
		cors.New(corsConfig(cfg.CORSOrigins)),
	)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Liveness only; the database check lives under /api/superadmin/health.
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	svc := d.Services
	authH := NewAuthHandler(svc.Auth, logger, debug)
	users := NewUserHandler(svc.Users, logger, debug)
	companies := NewCompanyHandler(svc.Companies, logger, debug)
	bikes := NewBikeHandler(svc.Inventory, logger, debug)
	reports := NewReportHandler(svc.Reports, d.Settings, logger, debug)
	announcements := NewAnnouncementHandler(svc.Broadcasts, d.Hub, logger, debug)
	customers := NewCustomerHandler(svc.Customers, logger, debug)
	settingsH := NewSettingsHandler(d.Settings, logger, debug)

	authenticate := middleware.Authenticate(d.Issuer, d.Metrics)
	maintenance := middleware.Maintenance(d.Settings, d.Metrics, maintenanceExempt...)
	limit := func(name string, rule config.RateLimit) gin.HandlerFunc {
		return middleware.RateLimit(d.Limiter, name, ratelimit.Rule(rule), d.Metrics, logger)
	}

	// /api/auth
	authG := r.Group("/api/auth")
	authG.POST("/login", limit("login", cfg.LoginLimit), authH.Login)
	authG.GET("/companies", companies.ListActive)
	authG.GET("/profile", authenticate, authH.Profile)
	authG.POST("/change-password", authenticate, authH.ChangePassword)
	authG.POST("/register",
		authenticate,
		middleware.RequireRoles(models.RoleSuperadmin, models.RoleAdmin),
		limit("user_create", cfg.UserCreateLimit),
		users.Create,
	)

	// /api/public
	public := r.Group("/api/public", maintenance)
	public.GET("/companies", companies.ListActive)

	// /api/tenant
	tenant := r.Group("/api/tenant",
		authenticate,
		middleware.RequireRoles(models.RoleAdmin, models.RoleWorker, models.RoleSuperadmin),
		middleware.RequireTenant(d.Companies, cfg.BlockSuspendedCompanies, logger),
		maintenance,
	)
	tenant.GET("/dashboard", reports.Dashboard)
	tenant.GET("/bikes", bikes.List)
	tenant.POST("/bikes", bikes.Create)
	tenant.GET("/bikes/:id", bikes.Get)
	tenant.PUT("/bikes/:id", bikes.Update)
	tenant.DELETE("/bikes/:id", bikes.Delete)
	tenant.PATCH("/bikes/:id/mark-sold", bikes.MarkSold)
	receiptLimit := limit("receipt", cfg.ReceiptLimit)
	tenant.GET("/bikes/:id/receipt", receiptLimit, bikes.Receipt)
	tenant.POST("/bikes/:id/receipt", receiptLimit, bikes.Receipt)
	tenant.GET("/sales", reports.Sales)
	tenant.GET("/reports/profit", reports.Profit)
	tenant.GET("/announcements", announcements.Visible)
	tenant.GET("/announcements/stream", announcements.Stream)

	admin := tenant.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/users", users.ListCompany)
	admin.POST("/users", limit("user_create", cfg.UserCreateLimit), users.Create)
	admin.GET("/stats", companies.TenantStats)

	// /api/superadmin
	super := r.Group("/api/superadmin", authenticate, middleware.RequireRoles(models.RoleSuperadmin))
	super.GET("/companies", companies.List)
	super.POST("/companies", companies.Create)
	super.POST("/companies/:id/suspend", companies.SetActive)
	super.DELETE("/companies/:id", companies.Delete)
	super.GET("/companies/:id/stats", companies.Stats)

	super.GET("/users", users.List)
	super.POST("/users", limit("user_create", cfg.UserCreateLimit), users.Create)

	super.GET("/bikes", bikes.ListAll)

	super.GET("/analytics/system-stats", reports.SystemStats)
	super.GET("/analytics/company-rankings", reports.Rankings)
	super.GET("/analytics/sales-trends", reports.Trends)
	super.GET("/health", reports.Health)

	super.GET("/customers", customers.List)
	super.GET("/customers/stats", customers.Stats)
	super.GET("/customers/export", customers.Export)

	super.GET("/broadcasts", announcements.List)
	super.POST("/broadcasts", announcements.Create)

	super.GET("/settings", settingsH.List)
	super.PUT("/settings", settingsH.Update)

	super.POST("/impersonate", authH.Impersonate)

	r.NoRoute(func(c *gin.Context) {
		middleware.WriteError(c, apperr.NotFound("route not found"), false)
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID, "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
