package service

import (
	"context"
	"fmt"

	"plantdoc/internal/model"
	"plantdoc/internal/repository"
)

// ExportLog records generated reports
type ExportLog interface {
	Record(ctx context.Context, rec *model.ExportRecord) (string, error)
	List(ctx context.Context, userID string) ([]*model.ExportRecord, error)
}

// ReportService serves the saved report archive and the local export log
type ReportService struct {
	backends   BackendFactory
	exportRepo repository.ExportRepo
	listLimit  int64
}

// NewReportService creates a new report service. exportRepo may be nil when
// no database is configured.
func NewReportService(backends BackendFactory, exportRepo repository.ExportRepo) *ReportService {
	return &ReportService{
		backends:   backends,
		exportRepo: exportRepo,
		listLimit:  100,
	}
}

// ListReports returns the caller's saved reports from the backend
func (s *ReportService) ListReports(ctx context.Context, c Caller) ([]model.SavedReport, error) {
	reports, err := s.backends(c.Header).ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// DeleteReport removes one saved report on the backend
func (s *ReportService) DeleteReport(ctx context.Context, c Caller, id int64) error {
	if err := s.backends(c.Header).DeleteReport(ctx, id); err != nil {
		return fmt.Errorf("failed to delete report %d: %w", id, err)
	}
	return nil
}

// Record implements ExportLog
func (s *ReportService) Record(ctx context.Context, rec *model.ExportRecord) (string, error) {
	if s.exportRepo == nil {
		return "", nil
	}
	return s.exportRepo.Create(ctx, rec)
}

// List implements ExportLog
func (s *ReportService) List(ctx context.Context, userID string) ([]*model.ExportRecord, error) {
	if s.exportRepo == nil {
		return []*model.ExportRecord{}, nil
	}
	recs, err := s.exportRepo.ListByUser(ctx, userID, s.listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return recs, nil
}
