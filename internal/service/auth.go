package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/auth"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/observ"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type AuthService struct {
	deps Deps
}

type LoginInput struct {
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required"`
	CompanyID *uuid.UUID `json:"company_id"`
}

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresIn int64           `json:"expires_in"`
	User      UserSummary     `json:"user"`
	Company   *CompanySummary `json:"company"`
}

// errBadCredentials is shared by "no such user" and "wrong password" so the
// response does not reveal which emails are registered.
var errBadCredentials = apperr.Unauthenticated("invalid email or password")

// Login verifies credentials and issues a token.
//
// Tenant resolution:
//   - SUPERADMIN: a supplied company_id becomes the token's company
//     (impersonation); otherwise the token carries no company.
//   - ADMIN/WORKER: a supplied company_id must equal the stored one; the
//     token always carries the stored company.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	ctx, span := observ.StartSpan(ctx, "auth.Login")
	defer span.End()

	in.Email = models.NormalizeEmail(in.Email)
	if err := s.deps.Validator.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.deps.Store.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, internal("get user by email", err)
	}
	if user == nil {
		s.deps.countLogin("bad_credentials")
		return nil, errBadCredentials
	}

	ok, err := auth.CheckPassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, internal("check password", err)
	}
	if !ok {
		s.deps.countLogin("bad_credentials")
		return nil, errBadCredentials
	}

	companyID := user.CompanyID
	impersonating := false
	if user.Role == models.RoleSuperadmin {
		if in.CompanyID != nil {
			companyID = in.CompanyID
			impersonating = true
		}
	} else if in.CompanyID != nil && (user.CompanyID == nil || *in.CompanyID != *user.CompanyID) {
		s.deps.countLogin("company_mismatch")
		return nil, apperr.Forbidden("user does not belong to the selected company")
	}

	company, err := s.resolveCompany(ctx, user, companyID)
	if err != nil {
		s.deps.countLogin("company_rejected")
		return nil, err
	}

	span.SetAttributes(attribute.String("role", user.Role.String()), attribute.Bool("impersonating", impersonating))

	token, err := s.deps.Issuer.GenerateWithTTL(user.ID, user.Role, companyID, impersonating, s.deps.Issuer.TTL())
	if err != nil {
		return nil, internal("generate token", err)
	}

	s.deps.countLogin("success")
	return &LoginResult{
		Token:     token,
		ExpiresIn: int64(s.deps.Issuer.TTL().Seconds()),
		User:      userSummary(user),
		Company:   companySummary(company),
	}, nil
}

// resolveCompany loads the company the token will be scoped to and applies
// the suspension policy. A nil companyID is only possible for a superadmin.
func (s *AuthService) resolveCompany(ctx context.Context, user *models.User, companyID *uuid.UUID) (*models.Company, error) {
	if companyID == nil {
		return nil, nil
	}

	company, err := s.deps.Store.Companies.GetByID(ctx, *companyID)
	if err != nil {
		return nil, internal("get company", err)
	}
	if company == nil {
		if user.Role == models.RoleSuperadmin {
			return nil, apperr.NotFound("company not found")
		}
		return nil, apperr.Forbidden("user company no longer exists")
	}

	if s.deps.BlockSuspendedCompanies && user.Role.TenantScoped() && !company.IsActive {
		return nil, apperr.Forbidden("company is suspended")
	}
	return company, nil
}

// Impersonate issues a short-lived token scoped to companyID for a
// superadmin. Suspended companies can be impersonated.
func (s *AuthService) Impersonate(ctx context.Context, who auth.Identity, companyID uuid.UUID) (*LoginResult, error) {
	if !who.IsSuperadmin() {
		return nil, apperr.Forbidden("only a superadmin can impersonate")
	}

	user, err := s.deps.Store.Users.GetByID(ctx, who.UserID)
	if err != nil {
		return nil, internal("get user", err)
	}
	if user == nil {
		return nil, apperr.Unauthenticated("user no longer exists")
	}

	company, err := s.deps.Store.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, internal("get company", err)
	}
	if company == nil {
		return nil, apperr.NotFound("company not found")
	}

	token, err := s.deps.Issuer.GenerateWithTTL(user.ID, user.Role, &company.ID, true, s.deps.ImpersonationTTL)
	if err != nil {
		return nil, internal("generate token", err)
	}

	observ.FromContext(ctx, s.deps.Logger).Info("superadmin impersonation",
		zap.String("user_id", user.ID.String()),
		zap.String("company_id", company.ID.String()),
	)

	return &LoginResult{
		Token:     token,
		ExpiresIn: int64(s.deps.ImpersonationTTL.Seconds()),
		User:      userSummary(user),
		Company:   companySummary(company),
	}, nil
}

type Profile struct {
	User         UserSummary     `json:"user"`
	Company      *CompanySummary `json:"company"`
	Impersonated bool            `json:"impersonated"`
}

// Profile returns the caller and the company their token is scoped to.
func (s *AuthService) Profile(ctx context.Context, who auth.Identity) (*Profile, error) {
	user, err := s.deps.Store.Users.GetByID(ctx, who.UserID)
	if err != nil {
		return nil, internal("get user", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}

	p := &Profile{User: userSummary(user), Impersonated: who.Impersonated}
	if who.CompanyID != nil {
		company, err := s.deps.Store.Companies.GetByID(ctx, *who.CompanyID)
		if err != nil {
			return nil, internal("get company", err)
		}
		p.Company = companySummary(company)
	}
	return p, nil
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

func (s *AuthService) ChangePassword(ctx context.Context, who auth.Identity, in ChangePasswordInput) error {
	if err := s.deps.Validator.Struct(in); err != nil {
		return err
	}

	user, err := s.deps.Store.Users.GetByID(ctx, who.UserID)
	if err != nil {
		return internal("get user", err)
	}
	if user == nil {
		return apperr.NotFound("user not found")
	}

	ok, err := auth.CheckPassword(user.PasswordHash, in.CurrentPassword)
	if err != nil {
		return internal("check password", err)
	}
	if !ok {
		return apperr.Unauthenticated("current password is incorrect")
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return internal("hash password", err)
	}
	if err := s.deps.Store.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return internal("update password", err)
	}
	return nil
}

// Bootstrap creates the first superadmin from configuration when no
// superadmin exists yet. Empty credentials skip it.
func (s *AuthService) Bootstrap(ctx context.Context, email, password string) error {
	email = models.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	exists, err := s.deps.Store.Users.ExistsWithRole(ctx, models.RoleSuperadmin)
	if err != nil {
		return internal("check superadmin", err)
	}
	if exists {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return internal("hash password", err)
	}
	if _, err := s.deps.Store.Users.Create(ctx, models.NewUser{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleSuperadmin,
	}); err != nil {
		return conflictOr("create superadmin", err)
	}

	s.deps.Logger.Info("bootstrap superadmin created", zap.String("email", email))
	return nil
}
