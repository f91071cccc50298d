package memstore

import (
	"context"
	"sort"
	"time"

	reportDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/report"
	"github.com/frahmantamala/listing-marketplace/internal/report"
)

type ReportRepository struct {
	store *Store
}

var _ report.RepositoryAPI = (*ReportRepository)(nil)

func (r *ReportRepository) Create(ctx context.Context, rep *reportDatamodel.Report) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextReportID++
	rep.ID = s.nextReportID
	cp := *rep
	s.reports[rep.ID] = &cp
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*reportDatamodel.Report, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rep, ok := s.reports[id]
	if !ok {
		return nil, report.ErrReportNotFound
	}
	cp := *rep
	return &cp, nil
}

func (r *ReportRepository) List(ctx context.Context, status string, limit, offset int) ([]*reportDatamodel.Report, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*reportDatamodel.Report
	for _, rep := range s.reports {
		if status != "" && rep.Status != status {
			continue
		}
		cp := *rep
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r *ReportRepository) UpdateStatusIf(ctx context.Context, id int64, from, to string, at time.Time) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rep, ok := s.reports[id]
	if !ok || rep.Status != from {
		return false, nil
	}
	rep.Status = to
	rep.UpdatedAt = at
	return true, nil
}
