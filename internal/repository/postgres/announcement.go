package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/repository"
)

type AnnouncementStore struct {
	pool *pgxpool.Pool
}

func NewAnnouncementStore(pool *pgxpool.Pool) *AnnouncementStore {
	return &AnnouncementStore{pool: pool}
}

func (s *AnnouncementStore) Create(ctx context.Context, message string, target *uuid.UUID) (*models.Announcement, error) {
	query := `
		INSERT INTO announcements (message, target_company_id, created_at)
		VALUES ($1, $2, now())
		RETURNING id, message, target_company_id, created_at`

	var a models.Announcement
	err := s.pool.QueryRow(ctx, query, message, target).Scan(
		&a.ID,
		&a.Message,
		&a.TargetCompanyID,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert announcement: %w", translate(err, repository.ErrCompanyNotFound))
	}
	return &a, nil
}

func (s *AnnouncementStore) List(ctx context.Context) ([]models.Announcement, error) {
	query := `
		SELECT id, message, target_company_id, created_at
		FROM announcements
		ORDER BY created_at DESC`

	return s.list(ctx, query)
}

func (s *AnnouncementStore) ListVisible(ctx context.Context, companyID uuid.UUID, limit int) ([]models.Announcement, error) {
	// LIMIT NULL means no limit in Postgres.
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	query := `
		SELECT id, message, target_company_id, created_at
		FROM announcements
		WHERE target_company_id IS NULL OR target_company_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	return s.list(ctx, query, companyID, lim)
}

func (s *AnnouncementStore) list(ctx context.Context, query string, args ...any) ([]models.Announcement, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	announcements := make([]models.Announcement, 0)
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(&a.ID, &a.Message, &a.TargetCompanyID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate announcements: %w", err)
	}
	return announcements, nil
}
