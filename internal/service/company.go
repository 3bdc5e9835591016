package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/report"
)

type CompanyService struct {
	deps Deps
}

type CreateCompanyInput struct {
	Name string  `json:"name" validate:"required,min=2,max=100"`
	Logo *string `json:"logo" validate:"omitempty,url"`
}

func (s *CompanyService) Create(ctx context.Context, in CreateCompanyInput) (*models.Company, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Logo != nil {
		logo := strings.TrimSpace(*in.Logo)
		if logo == "" {
			in.Logo = nil
		} else {
			in.Logo = &logo
		}
	}
	if err := s.deps.Validator.Struct(in); err != nil {
		return nil, err
	}

	company, err := s.deps.Store.Companies.Create(ctx, in.Name, in.Logo)
	if err != nil {
		return nil, conflictOr("create company", err)
	}
	return company, nil
}

// ListActive is the login-screen list: active companies, public fields only.
func (s *CompanyService) ListActive(ctx context.Context) ([]CompanySummary, error) {
	companies, err := s.deps.Store.Companies.ListActive(ctx)
	if err != nil {
		return nil, internal("list active companies", err)
	}
	out := make([]CompanySummary, 0, len(companies))
	for i := range companies {
		out = append(out, *companySummary(&companies[i]))
	}
	return out, nil
}

type CompanyOverview struct {
	models.Company
	UserCount int `json:"user_count"`
	BikeCount int `json:"bike_count"`
	SoldCount int `json:"sold_count"`
}

// List returns every company with user and bike counts.
func (s *CompanyService) List(ctx context.Context) ([]CompanyOverview, error) {
	companies, err := s.deps.Store.Companies.List(ctx)
	if err != nil {
		return nil, internal("list companies", err)
	}
	users, err := s.deps.Store.Users.List(ctx)
	if err != nil {
		return nil, internal("list users", err)
	}
	bikes, err := s.deps.Store.Bikes.ListAll(ctx)
	if err != nil {
		return nil, internal("list bikes", err)
	}

	userCount := make(map[uuid.UUID]int)
	for _, u := range users {
		if u.CompanyID != nil {
			userCount[*u.CompanyID]++
		}
	}
	bikeCount := make(map[uuid.UUID]int)
	soldCount := make(map[uuid.UUID]int)
	for _, b := range bikes {
		bikeCount[b.CompanyID]++
		if b.IsSold {
			soldCount[b.CompanyID]++
		}
	}

	out := make([]CompanyOverview, 0, len(companies))
	for _, c := range companies {
		out = append(out, CompanyOverview{
			Company:   c,
			UserCount: userCount[c.ID],
			BikeCount: bikeCount[c.ID],
			SoldCount: soldCount[c.ID],
		})
	}
	return out, nil
}

// SetActive suspends (false) or reactivates (true) a company.
func (s *CompanyService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Company, error) {
	company, err := s.deps.Store.Companies.SetActive(ctx, id, active)
	if err != nil {
		return nil, internal("set company active", err)
	}
	if company == nil {
		return nil, apperr.NotFound("company not found")
	}
	return company, nil
}

// Delete removes a company that owns no users and no bikes.
func (s *CompanyService) Delete(ctx context.Context, id uuid.UUID) error {
	company, err := s.deps.Store.Companies.GetByID(ctx, id)
	if err != nil {
		return internal("get company", err)
	}
	if company == nil {
		return apperr.NotFound("company not found")
	}

	users, bikes, err := s.deps.Store.Companies.CountDependents(ctx, id)
	if err != nil {
		return internal("count company dependents", err)
	}
	if users > 0 || bikes > 0 {
		return apperr.Conflict(fmt.Sprintf("cannot delete company with %d users and %d bikes", users, bikes))
	}

	deleted, err := s.deps.Store.Companies.Delete(ctx, id)
	if err != nil {
		return conflictOr("delete company", err)
	}
	if !deleted {
		return apperr.NotFound("company not found")
	}
	return nil
}

type UserCounts struct {
	Total   int `json:"total"`
	Admins  int `json:"admins"`
	Workers int `json:"workers"`
}

type CompanyStats struct {
	Company        models.Company `json:"company"`
	Users          UserCounts     `json:"users"`
	Totals         report.Totals  `json:"totals"`
	AgingInventory int            `json:"aging_inventory"`
}

// Stats summarizes one company: users by role and inventory money figures.
func (s *CompanyService) Stats(ctx context.Context, id uuid.UUID) (*CompanyStats, error) {
	company, err := s.deps.Store.Companies.GetByID(ctx, id)
	if err != nil {
		return nil, internal("get company", err)
	}
	if company == nil {
		return nil, apperr.NotFound("company not found")
	}

	users, err := s.deps.Store.Users.ListByCompany(ctx, id)
	if err != nil {
		return nil, internal("list company users", err)
	}
	bikes, err := s.deps.Store.Bikes.ListByCompany(ctx, id)
	if err != nil {
		return nil, internal("list bikes", err)
	}

	counts := UserCounts{Total: len(users)}
	for _, u := range users {
		switch u.Role {
		case models.RoleAdmin:
			counts.Admins++
		case models.RoleWorker:
			counts.Workers++
		}
	}

	return &CompanyStats{
		Company:        *company,
		Users:          counts,
		Totals:         report.Summarize(bikes),
		AgingInventory: report.AgingCount(bikes, s.deps.now()),
	}, nil
}
