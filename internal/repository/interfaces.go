package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/shopspring/decimal"
)

// Every method takes ctx first: it carries the request deadline and trace.
//
// Not-found is reported as (nil, nil), never as an error. Uniqueness
// violations are reported with the sentinels below regardless of backend,
// so a race lost at the storage layer looks the same as a failed pre-check.
//
// Methods on BikeRepository that take companyID only ever see rows of that
// company. Cross-tenant reads have their own methods (ListAll) and are only
// wired to superadmin routes.

var (
	ErrDuplicateRegNo       = errors.New("registration number already exists in company")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrDuplicateCompanyName = errors.New("company name already exists")
	ErrCompanyNotFound      = errors.New("referenced company does not exist")
	ErrCompanyInUse         = errors.New("company still owns users or bikes")
)

type CompanyRepository interface {
	Create(ctx context.Context, name string, logo *string) (*models.Company, error)

	// GetByID returns nil, nil if the company does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)

	// List returns all companies ordered by name.
	List(ctx context.Context) ([]models.Company, error)

	// ListActive returns active companies ordered by name.
	ListActive(ctx context.Context) ([]models.Company, error)

	// SetActive flips the active flag. Returns nil, nil if not found.
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Company, error)

	// Delete removes a company. Callers check CountDependents first.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	CountDependents(ctx context.Context, id uuid.UUID) (users int, bikes int, err error)
}

type UserRepository interface {
	Create(ctx context.Context, u models.NewUser) (*models.User, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail matches case-insensitively. Used for login.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	List(ctx context.Context) ([]models.User, error)

	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.User, error)

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// ExistsWithRole reports whether at least one user holds role.
	ExistsWithRole(ctx context.Context, role models.Role) (bool, error)
}

type BikeRepository interface {
	Create(ctx context.Context, companyID uuid.UUID, b models.NewBike) (*models.Bike, error)

	// GetByID returns nil, nil when the bike is absent or owned by another
	// company.
	GetByID(ctx context.Context, companyID, bikeID uuid.UUID) (*models.Bike, error)

	// RegNoExists is the pre-check for the (company_id, reg_no) unique index.
	// exclude skips one bike, for edits.
	RegNoExists(ctx context.Context, companyID uuid.UUID, regNo string, exclude *uuid.UUID) (bool, error)

	// ListByCompany returns the company's bikes, newest first.
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Bike, error)

	// ListAll returns bikes across every company, newest first.
	ListAll(ctx context.Context) ([]models.Bike, error)

	// Update edits an unsold bike. Returns nil, nil if the bike is absent,
	// out of scope or already sold.
	Update(ctx context.Context, companyID, bikeID uuid.UUID, upd models.BikeUpdate) (*models.Bike, error)

	// Delete removes an unsold bike. Returns false if nothing matched.
	Delete(ctx context.Context, companyID, bikeID uuid.UUID) (bool, error)

	// MarkSold performs the AVAILABLE -> SOLD transition in one transaction:
	// upsert the customer by identity number, then set the sale fields.
	// Returns nil, nil, nil if the bike is absent, out of scope or already
	// sold, in which case nothing is written.
	MarkSold(ctx context.Context, companyID, bikeID uuid.UUID, soldPrice decimal.Decimal, buyer models.CustomerInfo, soldAt time.Time) (*models.Bike, *models.Customer, error)
}

type CustomerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)

	GetByAadhaar(ctx context.Context, aadhaar string) (*models.Customer, error)

	// List returns all customers, newest first.
	List(ctx context.Context) ([]models.Customer, error)
}

type AnnouncementRepository interface {
	// Create fails with ErrCompanyNotFound when target does not exist.
	Create(ctx context.Context, message string, target *uuid.UUID) (*models.Announcement, error)

	// List returns every announcement, newest first.
	List(ctx context.Context) ([]models.Announcement, error)

	// ListVisible returns announcements that are global or target
	// companyID, newest first. limit <= 0 means no limit.
	ListVisible(ctx context.Context, companyID uuid.UUID, limit int) ([]models.Announcement, error)
}

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Health(ctx context.Context) error
}

// Store bundles every repository for wiring.
type Store struct {
	Companies     CompanyRepository
	Users         UserRepository
	Bikes         BikeRepository
	Customers     CustomerRepository
	Announcements AnnouncementRepository
	Health        Pinger
}
