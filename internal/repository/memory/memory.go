// Package memory is an in-process implementation of every repository
// interface. It mirrors the Postgres schema's constraints (unique indexes,
// restrict-on-delete, the sale transaction) so services behave the same on
// both backends. It backs STORAGE=memory and the service and HTTP tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/repository"
	"github.com/shopspring/decimal"
)

type state struct {
	mu    sync.RWMutex
	clock func() time.Time
	last  time.Time

	companies     map[uuid.UUID]models.Company
	users         map[uuid.UUID]models.User
	bikes         map[uuid.UUID]models.Bike
	customers     map[uuid.UUID]models.Customer
	announcements map[uuid.UUID]models.Announcement
}

type Option func(*state)

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(clock func() time.Time) Option {
	return func(s *state) { s.clock = clock }
}

// New returns a Store whose repositories share one in-memory state.
func New(opts ...Option) *repository.Store {
	s := &state{
		clock:         time.Now,
		companies:     make(map[uuid.UUID]models.Company),
		users:         make(map[uuid.UUID]models.User),
		bikes:         make(map[uuid.UUID]models.Bike),
		customers:     make(map[uuid.UUID]models.Customer),
		announcements: make(map[uuid.UUID]models.Announcement),
	}
	for _, opt := range opts {
		opt(s)
	}

	return &repository.Store{
		Companies:     &CompanyRepo{s},
		Users:         &UserRepo{s},
		Bikes:         &BikeRepo{s},
		Customers:     &CustomerRepo{s},
		Announcements: &AnnouncementRepo{s},
		Health:        pinger{},
	}
}

// tick returns a strictly increasing timestamp so "newest first" ordering is
// deterministic even when the clock does not advance. Callers hold s.mu.
func (s *state) tick() time.Time {
	t := s.clock().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

type pinger struct{}

func (pinger) Health(context.Context) error { return nil }

// ---------------------------------------------------------------
// Companies
// ---------------------------------------------------------------

type CompanyRepo struct{ s *state }

func (r *CompanyRepo) Create(_ context.Context, name string, logo *string) (*models.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.companies {
		if strings.EqualFold(c.Name, name) {
			return nil, repository.ErrDuplicateCompanyName
		}
	}

	now := r.s.tick()
	c := models.Company{
		ID:        uuid.New(),
		Name:      name,
		Logo:      logo,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.companies[c.ID] = c
	return &c, nil
}

func (r *CompanyRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *CompanyRepo) List(_ context.Context) ([]models.Company, error) {
	return r.list(func(models.Company) bool { return true }), nil
}

func (r *CompanyRepo) ListActive(_ context.Context) ([]models.Company, error) {
	return r.list(func(c models.Company) bool { return c.IsActive }), nil
}

func (r *CompanyRepo) list(keep func(models.Company) bool) []models.Company {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Company, 0, len(r.s.companies))
	for _, c := range r.s.companies {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *CompanyRepo) SetActive(_ context.Context, id uuid.UUID, active bool) (*models.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.companies[id]
	if !ok {
		return nil, nil
	}
	c.IsActive = active
	c.UpdatedAt = r.s.tick()
	r.s.companies[id] = c
	return &c, nil
}

func (r *CompanyRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.companies[id]; !ok {
		return false, nil
	}
	if users, bikes := r.s.countDependents(id); users > 0 || bikes > 0 {
		return false, repository.ErrCompanyInUse
	}

	delete(r.s.companies, id)
	for aid, a := range r.s.announcements {
		if a.TargetCompanyID != nil && *a.TargetCompanyID == id {
			delete(r.s.announcements, aid)
		}
	}
	return true, nil
}

func (r *CompanyRepo) CountDependents(_ context.Context, id uuid.UUID) (int, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users, bikes := r.s.countDependents(id)
	return users, bikes, nil
}

func (s *state) countDependents(id uuid.UUID) (users, bikes int) {
	for _, u := range s.users {
		if u.CompanyID != nil && *u.CompanyID == id {
			users++
		}
	}
	for _, b := range s.bikes {
		if b.CompanyID == id {
			bikes++
		}
	}
	return users, bikes
}

// ---------------------------------------------------------------
// Users
// ---------------------------------------------------------------

type UserRepo struct{ s *state }

func (r *UserRepo) Create(_ context.Context, nu models.NewUser) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, nu.Email) {
			return nil, repository.ErrDuplicateEmail
		}
	}
	if nu.CompanyID != nil {
		if _, ok := r.s.companies[*nu.CompanyID]; !ok {
			return nil, repository.ErrCompanyNotFound
		}
	}

	now := r.s.tick()
	u := models.User{
		ID:           uuid.New(),
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		CompanyID:    nu.CompanyID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.s.users[u.ID] = u
	return &u, nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) List(_ context.Context) ([]models.User, error) {
	return r.list(func(models.User) bool { return true }), nil
}

func (r *UserRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]models.User, error) {
	return r.list(func(u models.User) bool {
		return u.CompanyID != nil && *u.CompanyID == companyID
	}), nil
}

func (r *UserRepo) list(keep func(models.User) bool) []models.User {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.User, 0)
	for _, u := range r.s.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *UserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = r.s.tick()
	r.s.users[id] = u
	return nil
}

func (r *UserRepo) ExistsWithRole(_ context.Context, role models.Role) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

// ---------------------------------------------------------------
// Bikes
// ---------------------------------------------------------------

type BikeRepo struct{ s *state }

func (r *BikeRepo) Create(_ context.Context, companyID uuid.UUID, nb models.NewBike) (*models.Bike, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.regNoTaken(companyID, nb.RegNo, nil) {
		return nil, repository.ErrDuplicateRegNo
	}

	now := r.s.tick()
	b := models.Bike{
		ID:                   uuid.New(),
		CompanyID:            companyID,
		Name:                 nb.Name,
		RegNo:                nb.RegNo,
		PreviousOwnerAadhaar: nb.PreviousOwnerAadhaar,
		BoughtPrice:          nb.BoughtPrice,
		AddedBy:              nb.AddedBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	r.s.bikes[b.ID] = b
	return &b, nil
}

func (s *state) regNoTaken(companyID uuid.UUID, regNo string, exclude *uuid.UUID) bool {
	for _, b := range s.bikes {
		if b.CompanyID != companyID || b.RegNo != regNo {
			continue
		}
		if exclude != nil && b.ID == *exclude {
			continue
		}
		return true
	}
	return false
}

func (r *BikeRepo) GetByID(_ context.Context, companyID, bikeID uuid.UUID) (*models.Bike, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bikes[bikeID]
	if !ok || b.CompanyID != companyID {
		return nil, nil
	}
	return &b, nil
}

func (r *BikeRepo) RegNoExists(_ context.Context, companyID uuid.UUID, regNo string, exclude *uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.regNoTaken(companyID, regNo, exclude), nil
}

func (r *BikeRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]models.Bike, error) {
	return r.list(func(b models.Bike) bool { return b.CompanyID == companyID }), nil
}

func (r *BikeRepo) ListAll(_ context.Context) ([]models.Bike, error) {
	return r.list(func(models.Bike) bool { return true }), nil
}

func (r *BikeRepo) list(keep func(models.Bike) bool) []models.Bike {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Bike, 0)
	for _, b := range r.s.bikes {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *BikeRepo) Update(_ context.Context, companyID, bikeID uuid.UUID, upd models.BikeUpdate) (*models.Bike, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bikes[bikeID]
	if !ok || b.CompanyID != companyID || b.IsSold {
		return nil, nil
	}

	if upd.RegNo != nil {
		if r.s.regNoTaken(companyID, *upd.RegNo, &bikeID) {
			return nil, repository.ErrDuplicateRegNo
		}
		b.RegNo = *upd.RegNo
	}
	if upd.Name != nil {
		b.Name = *upd.Name
	}
	if upd.PreviousOwnerAadhaar != nil {
		b.PreviousOwnerAadhaar = *upd.PreviousOwnerAadhaar
	}
	if upd.BoughtPrice != nil {
		b.BoughtPrice = *upd.BoughtPrice
	}
	b.UpdatedAt = r.s.tick()
	r.s.bikes[bikeID] = b
	return &b, nil
}

func (r *BikeRepo) Delete(_ context.Context, companyID, bikeID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bikes[bikeID]
	if !ok || b.CompanyID != companyID || b.IsSold {
		return false, nil
	}
	delete(r.s.bikes, bikeID)
	return true, nil
}

// MarkSold holds the write lock for the whole transition, which gives the
// same all-or-nothing result as the Postgres transaction.
func (r *BikeRepo) MarkSold(_ context.Context, companyID, bikeID uuid.UUID, soldPrice decimal.Decimal, buyer models.CustomerInfo, soldAt time.Time) (*models.Bike, *models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bikes[bikeID]
	if !ok || b.CompanyID != companyID || b.IsSold {
		return nil, nil, nil
	}

	now := r.s.tick()

	var customer *models.Customer
	for id, c := range r.s.customers {
		if c.AadhaarNumber == buyer.AadhaarNumber {
			c.Name, c.Phone, c.Address = buyer.Name, buyer.Phone, buyer.Address
			c.UpdatedAt = now
			r.s.customers[id] = c
			customer = &c
			break
		}
	}
	if customer == nil {
		c := models.Customer{
			ID:            uuid.New(),
			Name:          buyer.Name,
			Phone:         buyer.Phone,
			AadhaarNumber: buyer.AadhaarNumber,
			Address:       buyer.Address,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		r.s.customers[c.ID] = c
		customer = &c
	}

	price := soldPrice
	customerID := customer.ID
	at := soldAt
	b.IsSold = true
	b.SoldPrice = &price
	b.CustomerID = &customerID
	b.SoldAt = &at
	b.UpdatedAt = now
	r.s.bikes[bikeID] = b

	return &b, customer, nil
}

// ---------------------------------------------------------------
// Customers
// ---------------------------------------------------------------

type CustomerRepo struct{ s *state }

func (r *CustomerRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *CustomerRepo) GetByAadhaar(_ context.Context, aadhaar string) (*models.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.customers {
		if c.AadhaarNumber == aadhaar {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *CustomerRepo) List(_ context.Context) ([]models.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Customer, 0, len(r.s.customers))
	for _, c := range r.s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---------------------------------------------------------------
// Announcements
// ---------------------------------------------------------------

type AnnouncementRepo struct{ s *state }

func (r *AnnouncementRepo) Create(_ context.Context, message string, target *uuid.UUID) (*models.Announcement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if target != nil {
		if _, ok := r.s.companies[*target]; !ok {
			return nil, repository.ErrCompanyNotFound
		}
	}

	a := models.Announcement{
		ID:              uuid.New(),
		Message:         message,
		TargetCompanyID: target,
		CreatedAt:       r.s.tick(),
	}
	r.s.announcements[a.ID] = a
	return &a, nil
}

func (r *AnnouncementRepo) List(_ context.Context) ([]models.Announcement, error) {
	return r.list(func(models.Announcement) bool { return true }, 0), nil
}

func (r *AnnouncementRepo) ListVisible(_ context.Context, companyID uuid.UUID, limit int) ([]models.Announcement, error) {
	return r.list(func(a models.Announcement) bool { return a.VisibleTo(companyID) }, limit), nil
}

func (r *AnnouncementRepo) list(keep func(models.Announcement) bool, limit int) []models.Announcement {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Announcement, 0)
	for _, a := range r.s.announcements {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
