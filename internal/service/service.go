// Package service holds the business rules: who may do what, input
// validation, the bike sale transition and report assembly. Handlers stay
// thin and only translate HTTP to these calls.
//
// Every tenant-scoped method takes the resolved companyID explicitly; the
// repositories filter on it in storage so nothing here can reach another
// company's rows by accident.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/auth"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/observ"
	"github.com/lalith-99/bikers/internal/repository"
	"github.com/lalith-99/bikers/internal/validate"
	"go.uber.org/zap"
)

// AnnouncementPublisher pushes freshly created announcements to live
// subscribers.
type AnnouncementPublisher interface {
	Publish(ctx context.Context, a models.Announcement) error
}

type Deps struct {
	Store     *repository.Store
	Issuer    *auth.Issuer
	Validator *validate.Validator
	Logger    *zap.Logger

	// Optional.
	Metrics   *observ.Metrics
	Publisher AnnouncementPublisher
	Clock     func() time.Time

	ImpersonationTTL        time.Duration
	BlockSuspendedCompanies bool
}

// Services is the full business layer, built once at startup.
type Services struct {
	Auth       *AuthService
	Users      *UserService
	Companies  *CompanyService
	Inventory  *InventoryService
	Reports    *ReportService
	Customers  *CustomerService
	Broadcasts *BroadcastService
}

func New(d Deps) *Services {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.ImpersonationTTL == 0 {
		d.ImpersonationTTL = time.Hour
	}
	if d.Validator == nil {
		d.Validator = validate.New()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	broadcasts := &BroadcastService{deps: d}
	return &Services{
		Auth:       &AuthService{deps: d},
		Users:      &UserService{deps: d},
		Companies:  &CompanyService{deps: d},
		Inventory:  &InventoryService{deps: d},
		Reports:    &ReportService{deps: d, broadcasts: broadcasts},
		Customers:  &CustomerService{deps: d},
		Broadcasts: broadcasts,
	}
}

// errMissingCustomer means a sold bike points at a customer row that is gone,
// which the foreign key should make impossible.
var errMissingCustomer = errors.New("sold bike references a missing customer")

// internal wraps an unexpected store failure with the operation name.
func internal(op string, err error) error {
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

// conflictOr maps repository uniqueness sentinels to Conflict and anything
// else to Internal.
func conflictOr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateRegNo):
		return apperr.Conflict("a bike with this registration number already exists")
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperr.Conflict("email already registered")
	case errors.Is(err, repository.ErrDuplicateCompanyName):
		return apperr.Conflict("company name already exists")
	case errors.Is(err, repository.ErrCompanyInUse):
		return apperr.Conflict("company still has users or bikes")
	}
	return internal(op, err)
}

func (d Deps) now() time.Time {
	return d.Clock().UTC()
}

func (d Deps) countBikeOp(op string) {
	if d.Metrics != nil {
		d.Metrics.BikeOperationCounter.WithLabelValues(op).Inc()
	}
}

func (d Deps) countLogin(outcome string) {
	if d.Metrics != nil {
		d.Metrics.LoginCounter.WithLabelValues(outcome).Inc()
	}
}
