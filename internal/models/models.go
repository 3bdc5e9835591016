package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Company is the tenant: the unit of data isolation. Users and bikes
// belong to exactly one company (except the superadmin, who belongs to none).
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Logo      *string   `json:"logo"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is an identity scoped to at most one company.
//
// CompanyID is nil only for RoleSuperadmin.
// PasswordHash never leaves the server (json:"-").
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CompanyID    *uuid.UUID `json:"company_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewUser is the insert shape for users. Email must already be normalized.
type NewUser struct {
	Email        string
	PasswordHash string
	Role         Role
	CompanyID    *uuid.UUID
}

// Bike is one inventory unit owned by a company.
//
// The sale fields move together: IsSold is true exactly when SoldPrice,
// CustomerID and SoldAt are all set. The database enforces the same rule
// with a CHECK constraint.
type Bike struct {
	ID                   uuid.UUID        `json:"id"`
	CompanyID            uuid.UUID        `json:"company_id"`
	Name                 string           `json:"name"`
	RegNo                string           `json:"reg_no"`
	PreviousOwnerAadhaar string           `json:"previous_owner_aadhaar"`
	BoughtPrice          decimal.Decimal  `json:"bought_price"`
	IsSold               bool             `json:"is_sold"`
	SoldPrice            *decimal.Decimal `json:"sold_price"`
	CustomerID           *uuid.UUID       `json:"customer_id"`
	SoldAt               *time.Time       `json:"sold_at"`
	AddedBy              uuid.UUID        `json:"added_by"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// Profit is SoldPrice - BoughtPrice. ok is false for unsold bikes.
func (b *Bike) Profit() (profit decimal.Decimal, ok bool) {
	if !b.IsSold || b.SoldPrice == nil {
		return decimal.Zero, false
	}
	return b.SoldPrice.Sub(b.BoughtPrice), true
}

// NewBike is the insert shape for bikes. RegNo must already be normalized.
type NewBike struct {
	Name                 string
	RegNo                string
	PreviousOwnerAadhaar string
	BoughtPrice          decimal.Decimal
	AddedBy              uuid.UUID
}

// BikeUpdate is a partial edit; nil fields are left untouched.
type BikeUpdate struct {
	Name                 *string
	RegNo                *string
	PreviousOwnerAadhaar *string
	BoughtPrice          *decimal.Decimal
}

// Customer is a buyer, keyed platform-wide by AadhaarNumber.
type Customer struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	AadhaarNumber string    `json:"aadhaar_number"`
	Address       string    `json:"address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CustomerInfo is the buyer data captured at sale time.
type CustomerInfo struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	AadhaarNumber string `json:"aadhaar_number"`
	Address       string `json:"address"`
}

// Announcement is a superadmin broadcast. A nil TargetCompanyID means every
// company sees it.
type Announcement struct {
	ID              uuid.UUID  `json:"id"`
	Message         string     `json:"message"`
	TargetCompanyID *uuid.UUID `json:"target_company_id"`
	CreatedAt       time.Time  `json:"created_at"`
}

// VisibleTo reports whether companyID should see the announcement.
func (a *Announcement) VisibleTo(companyID uuid.UUID) bool {
	return a.TargetCompanyID == nil || *a.TargetCompanyID == companyID
}

// NormalizeRegNo trims and upper-cases a registration number.
func NormalizeRegNo(regNo string) string {
	return strings.ToUpper(strings.TrimSpace(regNo))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MaskAadhaar keeps only the last four digits of an identity number.
func MaskAadhaar(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("X", len(number)-4) + number[len(number)-4:]
}
