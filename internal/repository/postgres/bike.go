package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/shopspring/decimal"
)

const bikeColumns = `id, company_id, name, reg_no, previous_owner_aadhaar, bought_price,
	is_sold, sold_price, customer_id, sold_at, added_by, created_at, updated_at`

// BikeStore is the tenant-scoped inventory store. Every statement that takes
// a company id filters on it in SQL; there is no path that loads a bike by
// id alone.
type BikeStore struct {
	pool *pgxpool.Pool
}

func NewBikeStore(pool *pgxpool.Pool) *BikeStore {
	return &BikeStore{pool: pool}
}

func scanBike(row pgx.Row) (*models.Bike, error) {
	var b models.Bike
	err := row.Scan(
		&b.ID,
		&b.CompanyID,
		&b.Name,
		&b.RegNo,
		&b.PreviousOwnerAadhaar,
		&b.BoughtPrice,
		&b.IsSold,
		&b.SoldPrice,
		&b.CustomerID,
		&b.SoldAt,
		&b.AddedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BikeStore) Create(ctx context.Context, companyID uuid.UUID, nb models.NewBike) (*models.Bike, error) {
	query := `
		INSERT INTO bikes (company_id, name, reg_no, previous_owner_aadhaar, bought_price, added_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING ` + bikeColumns

	b, err := scanBike(s.pool.QueryRow(ctx, query,
		companyID, nb.Name, nb.RegNo, nb.PreviousOwnerAadhaar, nb.BoughtPrice, nb.AddedBy))
	if err != nil {
		return nil, fmt.Errorf("insert bike: %w", translate(err, nil))
	}
	return b, nil
}

func (s *BikeStore) GetByID(ctx context.Context, companyID, bikeID uuid.UUID) (*models.Bike, error) {
	query := `SELECT ` + bikeColumns + ` FROM bikes WHERE id = $1 AND company_id = $2`

	b, err := scanBike(s.pool.QueryRow(ctx, query, bikeID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bike: %w", err)
	}
	return b, nil
}

func (s *BikeStore) RegNoExists(ctx context.Context, companyID uuid.UUID, regNo string, exclude *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bikes
			WHERE company_id = $1 AND reg_no = $2 AND ($3::uuid IS NULL OR id <> $3)
		)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, companyID, regNo, exclude).Scan(&exists); err != nil {
		return false, fmt.Errorf("check reg no: %w", err)
	}
	return exists, nil
}

func (s *BikeStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Bike, error) {
	return s.list(ctx, `SELECT `+bikeColumns+` FROM bikes WHERE company_id = $1 ORDER BY created_at DESC`, companyID)
}

func (s *BikeStore) ListAll(ctx context.Context) ([]models.Bike, error) {
	return s.list(ctx, `SELECT `+bikeColumns+` FROM bikes ORDER BY created_at DESC`)
}

func (s *BikeStore) list(ctx context.Context, query string, args ...any) ([]models.Bike, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bikes: %w", err)
	}
	defer rows.Close()

	bikes := make([]models.Bike, 0)
	for rows.Next() {
		b, err := scanBike(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bike: %w", err)
		}
		bikes = append(bikes, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bikes: %w", err)
	}
	return bikes, nil
}

// Update applies a partial edit to an unsold bike. NULL parameters keep the
// current column value.
func (s *BikeStore) Update(ctx context.Context, companyID, bikeID uuid.UUID, upd models.BikeUpdate) (*models.Bike, error) {
	query := `
		UPDATE bikes SET
			name                   = COALESCE($3::text, name),
			reg_no                 = COALESCE($4::text, reg_no),
			previous_owner_aadhaar = COALESCE($5::text, previous_owner_aadhaar),
			bought_price           = COALESCE($6::numeric, bought_price),
			updated_at             = now()
		WHERE id = $1 AND company_id = $2 AND NOT is_sold
		RETURNING ` + bikeColumns

	b, err := scanBike(s.pool.QueryRow(ctx, query,
		bikeID, companyID, upd.Name, upd.RegNo, upd.PreviousOwnerAadhaar, upd.BoughtPrice))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update bike: %w", translate(err, nil))
	}
	return b, nil
}

func (s *BikeStore) Delete(ctx context.Context, companyID, bikeID uuid.UUID) (bool, error) {
	query := `DELETE FROM bikes WHERE id = $1 AND company_id = $2 AND NOT is_sold`

	tag, err := s.pool.Exec(ctx, query, bikeID, companyID)
	if err != nil {
		return false, fmt.Errorf("delete bike: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkSold runs the sale as one transaction:
//
//  1. Lock the bike row if it is in scope and unsold. No row ends the
//     transaction without writes.
//  2. Upsert the customer by identity number, overwriting contact fields.
//  3. Set the sale fields on the bike.
//
// The row lock serializes two concurrent sales of the same bike; the loser
// finds it sold at step 1.
func (s *BikeStore) MarkSold(ctx context.Context, companyID, bikeID uuid.UUID, soldPrice decimal.Decimal, buyer models.CustomerInfo, soldAt time.Time) (*models.Bike, *models.Customer, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("begin sale: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM bikes
		WHERE id = $1 AND company_id = $2 AND NOT is_sold
		FOR UPDATE`, bikeID, companyID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("lock bike: %w", err)
	}

	customer, err := scanCustomer(tx.QueryRow(ctx, `
		INSERT INTO customers (name, phone, aadhaar_number, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (aadhaar_number) DO UPDATE SET
			name       = EXCLUDED.name,
			phone      = EXCLUDED.phone,
			address    = EXCLUDED.address,
			updated_at = now()
		RETURNING `+customerColumns,
		buyer.Name, buyer.Phone, buyer.AadhaarNumber, buyer.Address))
	if err != nil {
		return nil, nil, fmt.Errorf("upsert customer: %w", err)
	}

	bike, err := scanBike(tx.QueryRow(ctx, `
		UPDATE bikes SET
			is_sold     = true,
			sold_price  = $3,
			customer_id = $4,
			sold_at     = $5,
			updated_at  = now()
		WHERE id = $1 AND company_id = $2 AND NOT is_sold
		RETURNING `+bikeColumns,
		bikeID, companyID, soldPrice, customer.ID, soldAt))
	if err != nil {
		return nil, nil, fmt.Errorf("update sold bike: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit sale: %w", err)
	}
	return bike, customer, nil
}
