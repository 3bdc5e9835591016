package api

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/bikers/internal/service"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	responder
	customers *service.CustomerService
}

func NewCustomerHandler(customers *service.CustomerService, logger *zap.Logger, debug bool) *CustomerHandler {
	return &CustomerHandler{responder: responder{logger: logger, debug: debug}, customers: customers}
}

// List handles GET /api/superadmin/customers
func (h *CustomerHandler) List(c *gin.Context) {
	list, err := h.customers.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Stats handles GET /api/superadmin/customers/stats
func (h *CustomerHandler) Stats(c *gin.Context) {
	stats, err := h.customers.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

var exportHeader = []string{
	"id", "name", "phone", "aadhaar_number", "address",
	"total_purchases", "total_spent", "last_purchase_date", "created_at",
}

// Export handles GET /api/superadmin/customers/export as a CSV attachment.
func (h *CustomerHandler) Export(c *gin.Context) {
	list, err := h.customers.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	filename := "customers-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeader)
	for _, cu := range list {
		last := ""
		if cu.LastPurchaseDate != nil {
			last = cu.LastPurchaseDate.Format(time.RFC3339)
		}
		_ = w.Write([]string{
			cu.ID.String(),
			cu.Name,
			cu.Phone,
			cu.AadhaarNumber,
			cu.Address,
			strconv.Itoa(cu.TotalPurchases),
			cu.TotalSpent.StringFixed(2),
			last,
			cu.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		// Headers are already sent; all that is left is to log it.
		h.logger.Warn("customer export interrupted", zap.Error(err))
	}
}
