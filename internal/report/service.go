package report

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/listing-marketplace/internal"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Create files a notice about a listing. The listing id is resolved from the
// URL when it points at a listing page; unresolvable URLs are kept as given.
func (s *Service) Create(ctx context.Context, dto CreateReportDTO) (*Report, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	r := &Report{
		ListingURL:  strings.TrimSpace(dto.ListingURL),
		Reason:      dto.Reason,
		Description: dto.Description,
		Status:      StatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if id := ListingIDFromURL(dto.ListingURL); id != "" {
		r.ListingID = &id
	}
	if dto.ReporterEmail != nil && *dto.ReporterEmail != "" {
		r.ReporterEmail = dto.ReporterEmail
	}

	row := r.ToDataModel()
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create report", "error", err)
		return nil, errors.NewInternalError("failed to create report", err)
	}
	r.ID = row.ID

	s.logger.Info("report filed",
		"report_id", r.ID,
		"reason", r.Reason,
		"listing_resolved", r.ListingID != nil)

	return r, nil
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Report, error) {
	rows, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		s.logger.Error("failed to list reports", "error", err)
		return nil, errors.NewInternalError("failed to list reports", err)
	}

	reports := make([]*Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, FromDataModel(row))
	}
	return reports, nil
}

// UpdateStatus moves a report forward. Moving to the current status is a no-op;
// moving backwards is rejected.
func (s *Service) UpdateStatus(ctx context.Context, id int64, dto UpdateStatusDTO) (*Report, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByID(ctx, id)
	if goerrors.Is(err, ErrReportNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, errors.NewInternalError("failed to load report", err)
	}

	current := FromDataModel(row)
	if current.Status == dto.Status {
		return current, nil
	}
	if !current.CanMoveTo(dto.Status) {
		return nil, errors.NewConflictError(
			fmt.Sprintf("report cannot move from %s to %s", current.Status, dto.Status),
			errors.ErrCodeInvalidReportState)
	}

	now := s.now().UTC()
	applied, err := s.repo.UpdateStatusIf(ctx, id, current.Status, dto.Status, now)
	if err != nil {
		s.logger.Error("failed to update report status", "error", err, "report_id", id)
		return nil, errors.NewInternalError("failed to update report", err)
	}
	if !applied {
		s.logger.Warn("report status changed concurrently", "report_id", id, "expected", current.Status)
		return nil, errors.NewConflictError("report was updated concurrently", errors.ErrCodeInvalidReportState)
	}

	s.logger.Info("report status updated", "report_id", id, "from", current.Status, "to", dto.Status)

	current.Status = dto.Status
	current.UpdatedAt = now
	return current, nil
}
