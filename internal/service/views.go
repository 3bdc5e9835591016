package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/shopspring/decimal"
)

// Response shapes. Handlers serialize these as-is.

type UserSummary struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CompanyID *uuid.UUID  `json:"company_id"`
}

func userSummary(u *models.User) UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Role: u.Role, CompanyID: u.CompanyID}
}

// CompanySummary is the public face of a company: safe for the login screen.
type CompanySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Logo *string   `json:"logo"`
}

func companySummary(c *models.Company) *CompanySummary {
	if c == nil {
		return nil
	}
	return &CompanySummary{ID: c.ID, Name: c.Name, Logo: c.Logo}
}

// BikeView is a bike as shown to a particular viewer: identity numbers are
// masked for workers.
type BikeView struct {
	models.Bike
	Profit       *decimal.Decimal `json:"profit,omitempty"`
	AddedByEmail string           `json:"added_by_email,omitempty"`
	CompanyName  string           `json:"company_name,omitempty"`
}

func bikeView(b models.Bike, viewer models.Role) BikeView {
	if viewer == models.RoleWorker {
		b.PreviousOwnerAadhaar = models.MaskAadhaar(b.PreviousOwnerAadhaar)
	}
	v := BikeView{Bike: b}
	if p, ok := b.Profit(); ok {
		v.Profit = &p
	}
	return v
}

type CustomerView struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	AadhaarNumber string    `json:"aadhaar_number"`
	Address       string    `json:"address"`
}

func customerView(c *models.Customer, viewer models.Role) *CustomerView {
	if c == nil {
		return nil
	}
	aadhaar := c.AadhaarNumber
	if viewer == models.RoleWorker {
		aadhaar = models.MaskAadhaar(aadhaar)
	}
	return &CustomerView{ID: c.ID, Name: c.Name, Phone: c.Phone, AadhaarNumber: aadhaar, Address: c.Address}
}

// SaleView is one sold bike with its derived profit.
type SaleView struct {
	BikeID      uuid.UUID       `json:"bike_id"`
	Name        string          `json:"name"`
	RegNo       string          `json:"reg_no"`
	BoughtPrice decimal.Decimal `json:"bought_price"`
	SoldPrice   decimal.Decimal `json:"sold_price"`
	Profit      decimal.Decimal `json:"profit"`
	SoldAt      time.Time       `json:"sold_at"`
	Customer    *CustomerView   `json:"customer"`
}

func saleView(b models.Bike, customer *models.Customer, viewer models.Role) SaleView {
	profit, _ := b.Profit()
	v := SaleView{
		BikeID:      b.ID,
		Name:        b.Name,
		RegNo:       b.RegNo,
		BoughtPrice: b.BoughtPrice,
		Profit:      profit,
		Customer:    customerView(customer, viewer),
	}
	if b.SoldPrice != nil {
		v.SoldPrice = *b.SoldPrice
	}
	if b.SoldAt != nil {
		v.SoldAt = *b.SoldAt
	}
	return v
}
