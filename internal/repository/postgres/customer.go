package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/bikers/internal/models"
)

const customerColumns = `id, name, phone, aadhaar_number, address, created_at, updated_at`

// CustomerStore reads buyers. Writes only happen inside BikeStore.MarkSold.
type CustomerStore struct {
	pool *pgxpool.Pool
}

func NewCustomerStore(pool *pgxpool.Pool) *CustomerStore {
	return &CustomerStore{pool: pool}
}

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Phone,
		&c.AadhaarNumber,
		&c.Address,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CustomerStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.getOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

func (s *CustomerStore) GetByAadhaar(ctx context.Context, aadhaar string) (*models.Customer, error) {
	return s.getOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE aadhaar_number = $1`, aadhaar)
}

func (s *CustomerStore) getOne(ctx context.Context, query string, arg any) (*models.Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *CustomerStore) List(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]models.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}
