package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/repository"
	"go.uber.org/zap"
)

// BroadcastService stores announcements and pushes new ones to live
// subscribers. Announcements are never edited or deleted.
type BroadcastService struct {
	deps Deps
}

type CreateBroadcastInput struct {
	Message         string     `json:"message" validate:"required,max=1000"`
	TargetCompanyID *uuid.UUID `json:"target_company_id"`
}

func (s *BroadcastService) Create(ctx context.Context, in CreateBroadcastInput) (*models.Announcement, error) {
	in.Message = strings.TrimSpace(in.Message)
	if err := s.deps.Validator.Struct(in); err != nil {
		return nil, err
	}

	a, err := s.deps.Store.Announcements.Create(ctx, in.Message, in.TargetCompanyID)
	if err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			return nil, apperr.NotFound("target company not found")
		}
		return nil, internal("create announcement", err)
	}

	// The announcement is stored; a failed push only costs live delivery.
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.Publish(ctx, *a); err != nil {
			s.deps.Logger.Warn("publish announcement failed",
				zap.String("announcement_id", a.ID.String()),
				zap.Error(err),
			)
		}
	}
	return a, nil
}

type BroadcastView struct {
	models.Announcement
	TargetCompanyName *string `json:"target_company_name"`
}

// List returns every announcement, newest first, with the target's name.
func (s *BroadcastService) List(ctx context.Context) ([]BroadcastView, error) {
	announcements, err := s.deps.Store.Announcements.List(ctx)
	if err != nil {
		return nil, internal("list announcements", err)
	}
	companies, err := s.deps.Store.Companies.List(ctx)
	if err != nil {
		return nil, internal("list companies", err)
	}
	names := make(map[uuid.UUID]string, len(companies))
	for _, c := range companies {
		names[c.ID] = c.Name
	}

	out := make([]BroadcastView, 0, len(announcements))
	for _, a := range announcements {
		v := BroadcastView{Announcement: a}
		if a.TargetCompanyID != nil {
			if name, ok := names[*a.TargetCompanyID]; ok {
				v.TargetCompanyName = &name
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// Visible returns what companyID sees, newest first. limit <= 0 is no limit.
func (s *BroadcastService) Visible(ctx context.Context, companyID uuid.UUID, limit int) ([]models.Announcement, error) {
	announcements, err := s.deps.Store.Announcements.ListVisible(ctx, companyID, limit)
	if err != nil {
		return nil, internal("list announcements", err)
	}
	return announcements, nil
}
