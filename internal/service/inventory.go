package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/auth"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/observ"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// InventoryService owns the bike lifecycle inside one company:
// AVAILABLE on create, SOLD exactly once through MarkSold.
type InventoryService struct {
	deps Deps
}

const (
	StatusAvailable = "available"
	StatusSold      = "sold"
)

// maxPrice is the first value that no longer fits a numeric(12,2) column.
var maxPrice = decimal.New(1, 10)

// checkPrice reports whether p is a storable amount of money: positive, at
// most two decimal places and below maxPrice.
func checkPrice(field string, p decimal.Decimal) (apperr.FieldError, bool) {
	switch {
	case !p.IsPositive():
		return apperr.Field(field, field+" must be greater than 0"), false
	case !p.Equal(p.Truncate(2)):
		return apperr.Field(field, field+" must have at most 2 decimal places"), false
	case p.GreaterThanOrEqual(maxPrice):
		return apperr.Field(field, field+" must be less than "+maxPrice.String()), false
	}
	return apperr.FieldError{}, true
}

type CreateBikeInput struct {
	Name                 string           `json:"name" validate:"required,min=2,max=100"`
	RegNo                string           `json:"reg_no" validate:"required,min=2,max=20"`
	PreviousOwnerAadhaar string           `json:"previous_owner_aadhaar" validate:"required,aadhaar"`
	BoughtPrice          *decimal.Decimal `json:"bought_price"`
}

func (s *InventoryService) Create(ctx context.Context, who auth.Identity, companyID uuid.UUID, in CreateBikeInput) (*BikeView, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.RegNo = models.NormalizeRegNo(in.RegNo)
	in.PreviousOwnerAadhaar = strings.TrimSpace(in.PreviousOwnerAadhaar)

	fields := s.deps.Validator.Fields(in)
	if in.BoughtPrice == nil {
		fields = append(fields, apperr.Field("bought_price", "bought_price is a required field"))
	} else if fe, ok := checkPrice("bought_price", *in.BoughtPrice); !ok {
		fields = append(fields, fe)
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	taken, err := s.deps.Store.Bikes.RegNoExists(ctx, companyID, in.RegNo, nil)
	if err != nil {
		return nil, internal("check reg no", err)
	}
	if taken {
		return nil, apperr.Conflict("a bike with this registration number already exists")
	}

	bike, err := s.deps.Store.Bikes.Create(ctx, companyID, models.NewBike{
		Name:                 in.Name,
		RegNo:                in.RegNo,
		PreviousOwnerAadhaar: in.PreviousOwnerAadhaar,
		BoughtPrice:          *in.BoughtPrice,
		AddedBy:              who.UserID,
	})
	if err != nil {
		return nil, conflictOr("create bike", err)
	}

	s.deps.countBikeOp("create")
	v := bikeView(*bike, who.Role)
	return &v, nil
}

// List returns the company's bikes, newest first. status filters on
// "available" or "sold"; empty means all.
func (s *InventoryService) List(ctx context.Context, who auth.Identity, companyID uuid.UUID, status string) ([]BikeView, error) {
	keep, err := statusFilter(status)
	if err != nil {
		return nil, err
	}

	bikes, err := s.deps.Store.Bikes.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, internal("list bikes", err)
	}
	emails, err := s.userEmails(ctx, companyID)
	if err != nil {
		return nil, err
	}

	out := make([]BikeView, 0, len(bikes))
	for _, b := range bikes {
		if !keep(b) {
			continue
		}
		v := bikeView(b, who.Role)
		v.AddedByEmail = emails[b.AddedBy]
		out = append(out, v)
	}
	return out, nil
}

func statusFilter(status string) (func(models.Bike) bool, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "":
		return func(models.Bike) bool { return true }, nil
	case StatusAvailable:
		return func(b models.Bike) bool { return !b.IsSold }, nil
	case StatusSold:
		return func(b models.Bike) bool { return b.IsSold }, nil
	}
	return nil, apperr.Validation(apperr.Field("status", "status must be one of available, sold"))
}

func (s *InventoryService) userEmails(ctx context.Context, companyID uuid.UUID) (map[uuid.UUID]string, error) {
	users, err := s.deps.Store.Users.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, internal("list company users", err)
	}
	emails := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	return emails, nil
}

type SupplierInfo struct {
	Name          string `json:"name"`
	AadhaarNumber string `json:"aadhaar_number"`
	Note          string `json:"note"`
}

type PurchaseInfo struct {
	AddedBy       *UserSummary    `json:"added_by"`
	Company       *CompanySummary `json:"company"`
	PurchaseDate  time.Time       `json:"purchase_date"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

type BikeDetail struct {
	BikeView
	Supplier SupplierInfo `json:"supplier_info"`
	Purchase PurchaseInfo `json:"purchase_info"`
	Sale     *SaleView    `json:"sale_info"`
}

// Get returns one bike with who sold it to the dealer, who bought it in and,
// once sold, the sale. A bike outside companyID is NotFound.
func (s *InventoryService) Get(ctx context.Context, who auth.Identity, companyID, bikeID uuid.UUID) (*BikeDetail, error) {
	bike, err := s.deps.Store.Bikes.GetByID(ctx, companyID, bikeID)
	if err != nil {
		return nil, internal("get bike", err)
	}
	if bike == nil {
		return nil, apperr.NotFound("bike not found")
	}

	view := bikeView(*bike, who.Role)
	detail := &BikeDetail{
		BikeView: view,
		Supplier: SupplierInfo{
			Name:          "Previous Owner",
			AadhaarNumber: view.PreviousOwnerAadhaar,
			Note:          "This bike was purchased from the individual with this identity number",
		},
		Purchase: PurchaseInfo{
			PurchaseDate:  bike.CreatedAt,
			PurchasePrice: bike.BoughtPrice,
		},
	}

	addedBy, err := s.deps.Store.Users.GetByID(ctx, bike.AddedBy)
	if err != nil {
		return nil, internal("get user", err)
	}
	if addedBy != nil {
		summary := userSummary(addedBy)
		detail.Purchase.AddedBy = &summary
		detail.AddedByEmail = addedBy.Email
	}

	company, err := s.deps.Store.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, internal("get company", err)
	}
	detail.Purchase.Company = companySummary(company)
	if company != nil {
		detail.CompanyName = company.Name
	}

	if bike.IsSold && bike.CustomerID != nil {
		customer, err := s.deps.Store.Customers.GetByID(ctx, *bike.CustomerID)
		if err != nil {
			return nil, internal("get customer", err)
		}
		sale := saleView(*bike, customer, who.Role)
		detail.Sale = &sale
	}
	return detail, nil
}

type UpdateBikeInput struct {
	Name                 *string          `json:"name" validate:"omitempty,min=2,max=100"`
	RegNo                *string          `json:"reg_no" validate:"omitempty,min=2,max=20"`
	PreviousOwnerAadhaar *string          `json:"previous_owner_aadhaar" validate:"omitempty,aadhaar"`
	BoughtPrice          *decimal.Decimal `json:"bought_price"`
}

// Update edits an unsold bike. Sold bikes are Conflict: their records are
// sales history.
func (s *InventoryService) Update(ctx context.Context, who auth.Identity, companyID, bikeID uuid.UUID, in UpdateBikeInput) (*BikeView, error) {
	in.Name = trimmed(in.Name)
	in.PreviousOwnerAadhaar = trimmed(in.PreviousOwnerAadhaar)
	if in.RegNo != nil {
		regNo := models.NormalizeRegNo(*in.RegNo)
		in.RegNo = &regNo
	}

	fields := s.deps.Validator.Fields(in)
	if in.BoughtPrice != nil {
		if fe, ok := checkPrice("bought_price", *in.BoughtPrice); !ok {
			fields = append(fields, fe)
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	existing, err := s.deps.Store.Bikes.GetByID(ctx, companyID, bikeID)
	if err != nil {
		return nil, internal("get bike", err)
	}
	if existing == nil {
		return nil, apperr.NotFound("bike not found")
	}
	if existing.IsSold {
		return nil, apperr.Conflict("sold bikes cannot be edited")
	}

	if in.RegNo != nil && *in.RegNo != existing.RegNo {
		taken, err := s.deps.Store.Bikes.RegNoExists(ctx, companyID, *in.RegNo, &bikeID)
		if err != nil {
			return nil, internal("check reg no", err)
		}
		if taken {
			return nil, apperr.Conflict("a bike with this registration number already exists")
		}
	}

	bike, err := s.deps.Store.Bikes.Update(ctx, companyID, bikeID, models.BikeUpdate{
		Name:                 in.Name,
		RegNo:                in.RegNo,
		PreviousOwnerAadhaar: in.PreviousOwnerAadhaar,
		BoughtPrice:          in.BoughtPrice,
	})
	if err != nil {
		return nil, conflictOr("update bike", err)
	}
	if bike == nil {
		// Sold or deleted between the read and the write.
		return nil, apperr.Conflict("bike was sold or removed")
	}

	s.deps.countBikeOp("update")
	v := bikeView(*bike, who.Role)
	return &v, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// Delete removes an unsold bike. Sold bikes are Conflict.
func (s *InventoryService) Delete(ctx context.Context, companyID, bikeID uuid.UUID) error {
	existing, err := s.deps.Store.Bikes.GetByID(ctx, companyID, bikeID)
	if err != nil {
		return internal("get bike", err)
	}
	if existing == nil {
		return apperr.NotFound("bike not found")
	}
	if existing.IsSold {
		return apperr.Conflict("sold bikes cannot be deleted")
	}

	deleted, err := s.deps.Store.Bikes.Delete(ctx, companyID, bikeID)
	if err != nil {
		return internal("delete bike", err)
	}
	if !deleted {
		return apperr.Conflict("bike was sold or removed")
	}
	s.deps.countBikeOp("delete")
	return nil
}

type CustomerInput struct {
	Name          string `json:"name" validate:"required,max=100"`
	Phone         string `json:"phone" validate:"required,max=20"`
	AadhaarNumber string `json:"aadhaar_number" validate:"required,aadhaar"`
	Address       string `json:"address" validate:"required,max=500"`
}

type MarkSoldInput struct {
	SoldPrice *decimal.Decimal `json:"sold_price"`
	Customer  CustomerInput    `json:"customer"`
}

var errNotFoundOrSold = apperr.NotFound("bike not found or already sold")

// MarkSold moves a bike from AVAILABLE to SOLD and records the buyer.
//
// Checks run in this order and nothing is written until all pass:
//  1. the bike exists in companyID and is unsold (NotFound otherwise, same
//     message for both)
//  2. sold_price is present, positive and fits the price column
//  3. every customer field is present, the identity number is 12 digits
//  4. sold_price is not below bought_price
//
// The customer upsert and the bike update then run in one transaction.
func (s *InventoryService) MarkSold(ctx context.Context, who auth.Identity, companyID, bikeID uuid.UUID, in MarkSoldInput) (*SaleView, error) {
	ctx, span := observ.StartSpan(ctx, "inventory.MarkSold",
		attribute.String("company_id", companyID.String()),
		attribute.String("bike_id", bikeID.String()),
	)
	defer span.End()

	bike, err := s.deps.Store.Bikes.GetByID(ctx, companyID, bikeID)
	if err != nil {
		return nil, internal("get bike", err)
	}
	if bike == nil || bike.IsSold {
		return nil, errNotFoundOrSold
	}

	if in.SoldPrice == nil {
		return nil, apperr.Validation(apperr.Field("sold_price", "sold_price is a required field"))
	}
	if fe, ok := checkPrice("sold_price", *in.SoldPrice); !ok {
		return nil, apperr.Validation(fe)
	}

	in.Customer = CustomerInput{
		Name:          strings.TrimSpace(in.Customer.Name),
		Phone:         strings.TrimSpace(in.Customer.Phone),
		AadhaarNumber: strings.TrimSpace(in.Customer.AadhaarNumber),
		Address:       strings.TrimSpace(in.Customer.Address),
	}
	if err := s.deps.Validator.Struct(in); err != nil {
		return nil, err
	}

	if in.SoldPrice.LessThan(bike.BoughtPrice) {
		return nil, apperr.Validation(apperr.Field("sold_price", "sold_price cannot be below bought_price "+bike.BoughtPrice.String()))
	}

	sold, customer, err := s.deps.Store.Bikes.MarkSold(ctx, companyID, bikeID, *in.SoldPrice, models.CustomerInfo{
		Name:          in.Customer.Name,
		Phone:         in.Customer.Phone,
		AadhaarNumber: in.Customer.AadhaarNumber,
		Address:       in.Customer.Address,
	}, s.deps.now())
	if err != nil {
		return nil, internal("mark bike sold", err)
	}
	if sold == nil {
		// Lost a race with another sale of the same bike.
		return nil, errNotFoundOrSold
	}

	s.deps.countBikeOp("sell")
	if s.deps.Metrics != nil {
		revenue, _ := sold.SoldPrice.Float64()
		s.deps.Metrics.SaleRevenueCounter.Add(revenue)
	}
	observ.FromContext(ctx, s.deps.Logger).Info("bike sold",
		zap.String("bike_id", sold.ID.String()),
		zap.String("company_id", companyID.String()),
		zap.String("sold_price", sold.SoldPrice.String()),
	)

	v := saleView(*sold, customer, who.Role)
	return &v, nil
}

// ReceiptData is everything a sale receipt prints.
type ReceiptData struct {
	Company  CompanySummary
	Bike     models.Bike
	Customer models.Customer
	SoldBy   string
}

// Receipt loads the data for a sold bike's receipt. Unsold or missing bikes
// are NotFound.
func (s *InventoryService) Receipt(ctx context.Context, companyID, bikeID uuid.UUID) (*ReceiptData, error) {
	bike, err := s.deps.Store.Bikes.GetByID(ctx, companyID, bikeID)
	if err != nil {
		return nil, internal("get bike", err)
	}
	if bike == nil || !bike.IsSold || bike.CustomerID == nil {
		return nil, apperr.NotFound("bike not found or not sold")
	}

	customer, err := s.deps.Store.Customers.GetByID(ctx, *bike.CustomerID)
	if err != nil {
		return nil, internal("get customer", err)
	}
	if customer == nil {
		return nil, internal("get customer", errMissingCustomer)
	}

	company, err := s.deps.Store.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, internal("get company", err)
	}
	if company == nil {
		return nil, apperr.NotFound("company not found")
	}

	data := &ReceiptData{Company: *companySummary(company), Bike: *bike, Customer: *customer}
	if u, err := s.deps.Store.Users.GetByID(ctx, bike.AddedBy); err == nil && u != nil {
		data.SoldBy = u.Email
	}
	return data, nil
}

// ListAll is the superadmin's cross-tenant bike list. A non-nil companyID
// narrows it to one company.
func (s *InventoryService) ListAll(ctx context.Context, companyID *uuid.UUID, status string) ([]BikeView, error) {
	keep, err := statusFilter(status)
	if err != nil {
		return nil, err
	}

	bikes, err := s.deps.Store.Bikes.ListAll(ctx)
	if err != nil {
		return nil, internal("list bikes", err)
	}
	companies, err := s.deps.Store.Companies.List(ctx)
	if err != nil {
		return nil, internal("list companies", err)
	}
	users, err := s.deps.Store.Users.List(ctx)
	if err != nil {
		return nil, internal("list users", err)
	}

	names := make(map[uuid.UUID]string, len(companies))
	for _, c := range companies {
		names[c.ID] = c.Name
	}
	emails := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}

	out := make([]BikeView, 0, len(bikes))
	for _, b := range bikes {
		if companyID != nil && b.CompanyID != *companyID {
			continue
		}
		if !keep(b) {
			continue
		}
		v := bikeView(b, models.RoleSuperadmin)
		v.CompanyName = names[b.CompanyID]
		v.AddedByEmail = emails[b.AddedBy]
		out = append(out, v)
	}
	return out, nil
}
