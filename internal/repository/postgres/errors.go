package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lalith-99/bikers/internal/repository"
)

// Postgres SQLSTATE codes we translate.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Unique index names from the migrations. Keep in sync.
// customers_aadhaar_number_key is not listed: MarkSold writes customers with
// ON CONFLICT (aadhaar_number) DO UPDATE, so it cannot raise 23505.
var uniqueIndexErrors = map[string]error{
	"companies_name_key":       repository.ErrDuplicateCompanyName,
	"users_email_key":          repository.ErrDuplicateEmail,
	"bikes_company_reg_no_key": repository.ErrDuplicateRegNo,
}

// translate maps unique violations onto repository sentinels, and foreign
// key violations onto onFK when it is non-nil. Anything else is returned
// unchanged.
func translate(err error, onFK error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case uniqueViolation:
		if sentinel, ok := uniqueIndexErrors[pgErr.ConstraintName]; ok {
			return sentinel
		}
	case foreignKeyViolation:
		if onFK != nil {
			return onFK
		}
	}
	return err
}
