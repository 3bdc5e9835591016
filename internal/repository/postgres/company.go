package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/repository"
)

const companyColumns = `id, name, logo, is_active, created_at, updated_at`

type CompanyStore struct {
	pool *pgxpool.Pool
}

func NewCompanyStore(pool *pgxpool.Pool) *CompanyStore {
	return &CompanyStore{pool: pool}
}

func scanCompany(row pgx.Row) (*models.Company, error) {
	var c models.Company
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Logo,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CompanyStore) Create(ctx context.Context, name string, logo *string) (*models.Company, error) {
	query := `
		INSERT INTO companies (name, logo, is_active, created_at, updated_at)
		VALUES ($1, $2, true, now(), now())
		RETURNING ` + companyColumns

	c, err := scanCompany(s.pool.QueryRow(ctx, query, name, logo))
	if err != nil {
		return nil, fmt.Errorf("insert company: %w", translate(err, nil))
	}
	return c, nil
}

func (s *CompanyStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`

	c, err := scanCompany(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func (s *CompanyStore) List(ctx context.Context) ([]models.Company, error) {
	return s.list(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name`)
}

func (s *CompanyStore) ListActive(ctx context.Context) ([]models.Company, error) {
	return s.list(ctx, `SELECT `+companyColumns+` FROM companies WHERE is_active ORDER BY name`)
}

func (s *CompanyStore) list(ctx context.Context, query string) ([]models.Company, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]models.Company, 0)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}

func (s *CompanyStore) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Company, error) {
	query := `
		UPDATE companies SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + companyColumns

	c, err := scanCompany(s.pool.QueryRow(ctx, query, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("set company active: %w", err)
	}
	return c, nil
}

// Delete relies on ON DELETE RESTRICT from users and bikes: a company that
// gained a dependent after the caller's pre-check fails with
// repository.ErrCompanyInUse instead of orphaning rows.
func (s *CompanyStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete company: %w", translate(err, repository.ErrCompanyInUse))
	}
	return tag.RowsAffected() > 0, nil
}

func (s *CompanyStore) CountDependents(ctx context.Context, id uuid.UUID) (int, int, error) {
	query := `
		SELECT
			(SELECT count(*) FROM users WHERE company_id = $1),
			(SELECT count(*) FROM bikes WHERE company_id = $1)`

	var users, bikes int
	if err := s.pool.QueryRow(ctx, query, id).Scan(&users, &bikes); err != nil {
		return 0, 0, fmt.Errorf("count company dependents: %w", err)
	}
	return users, bikes, nil
}
