package postgres

import (
	"context"
	"errors"
	"time"

	reportDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/report"
	"github.com/frahmantamala/listing-marketplace/internal/report"
	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

var _ report.RepositoryAPI = (*ReportRepository)(nil)

func (r *ReportRepository) Create(ctx context.Context, rep *reportDatamodel.Report) error {
	return r.db.WithContext(ctx).Create(rep).Error
}

func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*reportDatamodel.Report, error) {
	var rep reportDatamodel.Report
	err := r.db.WithContext(ctx).First(&rep, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, report.ErrReportNotFound
		}
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepository) List(ctx context.Context, status string, limit, offset int) ([]*reportDatamodel.Report, error) {
	q := r.db.WithContext(ctx).Model(&reportDatamodel.Report{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var reports []*reportDatamodel.Report
	err := q.Order("created_at DESC").Order("id DESC").Find(&reports).Error
	return reports, err
}

func (r *ReportRepository) UpdateStatusIf(ctx context.Context, id int64, from, to string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&reportDatamodel.Report{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
