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

const userColumns = `id, email, password_hash, role, company_id, created_at, updated_at`

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.CompanyID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if u.Role, err = models.ParseRole(role); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row. Postgres generates the UUID and timestamps.
func (s *UserStore) Create(ctx context.Context, nu models.NewUser) (*models.User, error) {
	query := `
		INSERT INTO users (email, password_hash, role, company_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, query, nu.Email, nu.PasswordHash, nu.Role.String(), nu.CompanyID))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", translate(err, repository.ErrCompanyNotFound))
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail looks up a user by email (globally, not tenant-scoped).
// The unique index is on lower(email), so the lookup is too.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (s *UserStore) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
}

func (s *UserStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users WHERE company_id = $1 ORDER BY created_at DESC`, companyID)
}

func (s *UserStore) list(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	if _, err := s.pool.Exec(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *UserStore) ExistsWithRole(ctx context.Context, role models.Role) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, role.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("check role exists: %w", err)
	}
	return exists, nil
}
