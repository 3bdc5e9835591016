package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/auth"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/repository"
)

type UserService struct {
	deps Deps
}

type CreateUserInput struct {
	Email     string     `json:"email" validate:"required,email,max=254"`
	Password  string     `json:"password" validate:"required,min=6,max=72"`
	Role      string     `json:"role" validate:"required,oneof=SUPERADMIN ADMIN WORKER"`
	CompanyID *uuid.UUID `json:"company_id"`
}

// Create adds a user on behalf of creator.
//
//   - SUPERADMIN may create any role. ADMIN/WORKER need an existing
//     company; a SUPERADMIN never has one.
//   - ADMIN may create ADMIN or WORKER users in their own company only.
//   - WORKER may not create users.
func (s *UserService) Create(ctx context.Context, creator auth.Identity, in CreateUserInput) (*models.User, error) {
	in.Email = models.NormalizeEmail(in.Email)
	if err := s.deps.Validator.Struct(in); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, apperr.Validation(apperr.Field("role", err.Error()))
	}

	companyID, err := s.targetCompany(creator, role, in.CompanyID)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, internal("hash password", err)
	}

	user, err := s.deps.Store.Users.Create(ctx, models.NewUser{
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CompanyID:    companyID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			return nil, apperr.Validation(apperr.Field("company_id", "company does not exist"))
		}
		return nil, conflictOr("create user", err)
	}
	return user, nil
}

func (s *UserService) targetCompany(creator auth.Identity, role models.Role, requested *uuid.UUID) (*uuid.UUID, error) {
	switch creator.Role {
	case models.RoleSuperadmin:
		if role == models.RoleSuperadmin {
			if requested != nil {
				return nil, apperr.Validation(apperr.Field("company_id", "a superadmin cannot belong to a company"))
			}
			return nil, nil
		}
		if requested == nil {
			return nil, apperr.Validation(apperr.Field("company_id", "company_id is required for ADMIN and WORKER users"))
		}
		return requested, nil

	case models.RoleAdmin:
		if !role.TenantScoped() {
			return nil, apperr.Forbidden("admins can only create ADMIN or WORKER users")
		}
		if creator.CompanyID == nil {
			return nil, apperr.Forbidden("company context required")
		}
		if requested != nil && *requested != *creator.CompanyID {
			return nil, apperr.Forbidden("admins can only create users in their own company")
		}
		return creator.CompanyID, nil

	default:
		return nil, apperr.Forbidden("insufficient permissions to create users")
	}
}

type UserWithCompany struct {
	UserSummary
	CompanyName *string   `json:"company_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// List returns every user on the platform with their company name.
func (s *UserService) List(ctx context.Context) ([]UserWithCompany, error) {
	users, err := s.deps.Store.Users.List(ctx)
	if err != nil {
		return nil, internal("list users", err)
	}
	companies, err := s.deps.Store.Companies.List(ctx)
	if err != nil {
		return nil, internal("list companies", err)
	}
	names := make(map[uuid.UUID]string, len(companies))
	for _, c := range companies {
		names[c.ID] = c.Name
	}

	out := make([]UserWithCompany, 0, len(users))
	for i := range users {
		u := &users[i]
		v := UserWithCompany{UserSummary: userSummary(u), CreatedAt: u.CreatedAt}
		if u.CompanyID != nil {
			if name, ok := names[*u.CompanyID]; ok {
				v.CompanyName = &name
			}
		}
		out = append(out, v)
	}
	return out, nil
}

type CompanyUser struct {
	UserSummary
	BikesAdded int       `json:"bikes_added"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListCompany returns a company's users with how many bikes each added.
func (s *UserService) ListCompany(ctx context.Context, companyID uuid.UUID) ([]CompanyUser, error) {
	users, err := s.deps.Store.Users.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, internal("list company users", err)
	}
	bikes, err := s.deps.Store.Bikes.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, internal("list bikes", err)
	}

	added := make(map[uuid.UUID]int)
	for _, b := range bikes {
		added[b.AddedBy]++
	}

	out := make([]CompanyUser, 0, len(users))
	for i := range users {
		u := &users[i]
		out = append(out, CompanyUser{
			UserSummary: userSummary(u),
			BikesAdded:  added[u.ID],
			CreatedAt:   u.CreatedAt,
		})
	}
	return out, nil
}
