package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/models"
	"go.uber.org/zap"
)

// CompanyLookup is the slice of the company repository the tenant check
// needs.
type CompanyLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

// RequireTenant resolves the company the request operates on and stores it
// for GetCompanyID.
//
//   - ADMIN/WORKER: the token's company. A token without one is Forbidden.
//     With blockSuspended, an inactive company is Forbidden too.
//   - SUPERADMIN: the token's company when impersonating, otherwise the
//     company_id query parameter, which must name an existing company.
func RequireTenant(companies CompanyLookup, blockSuspended bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := GetIdentity(c)
		if !ok {
			abort(c, apperr.Unauthenticated("authentication required"))
			return
		}
		ctx := c.Request.Context()

		if who.IsSuperadmin() {
			companyID, err := superadminCompany(c, who.CompanyID)
			if err != nil {
				abort(c, err)
				return
			}
			company, err := companies.GetByID(ctx, companyID)
			if err != nil {
				Logger(c, logger).Error("tenant lookup failed", zap.Error(err))
				abort(c, apperr.Internal(err))
				return
			}
			if company == nil {
				abort(c, apperr.NotFound("company not found"))
				return
			}
			c.Set(ContextKeyCompanyID, companyID)
			c.Next()
			return
		}

		if who.CompanyID == nil {
			abort(c, apperr.Forbidden("company context required"))
			return
		}

		if blockSuspended {
			company, err := companies.GetByID(ctx, *who.CompanyID)
			if err != nil {
				Logger(c, logger).Error("tenant lookup failed", zap.Error(err))
				abort(c, apperr.Internal(err))
				return
			}
			if company == nil {
				abort(c, apperr.Forbidden("company no longer exists"))
				return
			}
			if !company.IsActive {
				abort(c, apperr.Forbidden("company is suspended"))
				return
			}
		}

		c.Set(ContextKeyCompanyID, *who.CompanyID)
		c.Next()
	}
}

func superadminCompany(c *gin.Context, fromToken *uuid.UUID) (uuid.UUID, error) {
	if fromToken != nil {
		return *fromToken, nil
	}
	raw := c.Query("company_id")
	if raw == "" {
		return uuid.Nil, apperr.Validation(apperr.Field("company_id", "company_id is required for superadmin tenant access"))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation(apperr.Field("company_id", "company_id must be a valid UUID"))
	}
	return id, nil
}
