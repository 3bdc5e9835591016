package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/auth"
	"github.com/lalith-99/bikers/internal/middleware"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/receipt"
	"github.com/lalith-99/bikers/internal/service"
	"go.uber.org/zap"
)

// BikeHandler serves the tenant inventory routes. The company always comes
// from the tenant middleware, never from the request body.
type BikeHandler struct {
	responder
	inventory *service.InventoryService
}

func NewBikeHandler(inventory *service.InventoryService, logger *zap.Logger, debug bool) *BikeHandler {
	return &BikeHandler{responder: responder{logger: logger, debug: debug}, inventory: inventory}
}

// scope returns the caller, the resolved company and the :id bike.
func (h *BikeHandler) scope(c *gin.Context) (who auth.Identity, companyID, bikeID uuid.UUID, ok bool) {
	bikeID, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return who, uuid.Nil, uuid.Nil, false
	}
	return middleware.MustIdentity(c), middleware.GetCompanyID(c), bikeID, true
}

// List handles GET /api/tenant/bikes?status=available|sold
func (h *BikeHandler) List(c *gin.Context) {
	bikes, err := h.inventory.List(c.Request.Context(), middleware.MustIdentity(c), middleware.GetCompanyID(c), c.Query("status"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bikes)
}

// Create handles POST /api/tenant/bikes
func (h *BikeHandler) Create(c *gin.Context) {
	var req service.CreateBikeInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	bike, err := h.inventory.Create(c.Request.Context(), middleware.MustIdentity(c), middleware.GetCompanyID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, bike)
}

// Get handles GET /api/tenant/bikes/:id
func (h *BikeHandler) Get(c *gin.Context) {
	who, companyID, bikeID, ok := h.scope(c)
	if !ok {
		return
	}
	detail, err := h.inventory.Get(c.Request.Context(), who, companyID, bikeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Update handles PUT /api/tenant/bikes/:id. Omitted fields are unchanged.
func (h *BikeHandler) Update(c *gin.Context) {
	who, companyID, bikeID, ok := h.scope(c)
	if !ok {
		return
	}
	var req service.UpdateBikeInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	bike, err := h.inventory.Update(c.Request.Context(), who, companyID, bikeID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bike)
}

// Delete handles DELETE /api/tenant/bikes/:id
func (h *BikeHandler) Delete(c *gin.Context) {
	_, companyID, bikeID, ok := h.scope(c)
	if !ok {
		return
	}
	if err := h.inventory.Delete(c.Request.Context(), companyID, bikeID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "bike deleted"})
}

// MarkSold handles PATCH /api/tenant/bikes/:id/mark-sold
func (h *BikeHandler) MarkSold(c *gin.Context) {
	who, companyID, bikeID, ok := h.scope(c)
	if !ok {
		return
	}
	var req service.MarkSoldInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	sale, err := h.inventory.MarkSold(c.Request.Context(), who, companyID, bikeID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// Receipt handles GET and POST /api/tenant/bikes/:id/receipt. The PDF is
// built in memory so a render failure can still produce a JSON error.
func (h *BikeHandler) Receipt(c *gin.Context) {
	who, companyID, bikeID, ok := h.scope(c)
	if !ok {
		return
	}
	data, err := h.inventory.Receipt(c.Request.Context(), companyID, bikeID)
	if err != nil {
		h.fail(c, err)
		return
	}

	aadhaar := data.Customer.AadhaarNumber
	if who.Role == models.RoleWorker {
		aadhaar = models.MaskAadhaar(aadhaar)
	}
	d := receipt.Data{
		ReceiptID:       data.Bike.ID,
		CompanyName:     data.Company.Name,
		IssuedAt:        time.Now().UTC(),
		BikeName:        data.Bike.Name,
		RegNo:           data.Bike.RegNo,
		SoldPrice:       *data.Bike.SoldPrice,
		SoldAt:          *data.Bike.SoldAt,
		CustomerName:    data.Customer.Name,
		CustomerPhone:   data.Customer.Phone,
		CustomerAddress: data.Customer.Address,
		CustomerAadhaar: aadhaar,
		ProcessedBy:     data.SoldBy,
	}

	var buf bytes.Buffer
	if err := receipt.Render(&buf, d); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+receipt.Filename(data.Bike.RegNo)+`"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// ListAll handles GET /api/superadmin/bikes?company_id=&status=
func (h *BikeHandler) ListAll(c *gin.Context) {
	companyID, err := queryID(c, "company_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	bikes, err := h.inventory.ListAll(c.Request.Context(), companyID, c.Query("status"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bikes)
}
