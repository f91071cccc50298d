package report

import (
	"context"
	"net/url"
	"strings"
	"time"

	errors "github.com/frahmantamala/listing-marketplace/internal"
	reportDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/report"
)

const (
	StatusNew      = reportDatamodel.StatusNew
	StatusReviewed = reportDatamodel.StatusReviewed
	StatusResolved = reportDatamodel.StatusResolved
)

var Statuses = []string{StatusNew, StatusReviewed, StatusResolved}

var Reasons = []string{
	"fraud",
	"illegal_content",
	"prohibited_item",
	"misleading",
	"intellectual_property",
	"other",
}

var ErrReportNotFound = errors.ErrReportNotFound

// statusRank orders report statuses; a report only moves to a higher rank.
var statusRank = map[string]int{
	StatusNew:      0,
	StatusReviewed: 1,
	StatusResolved: 2,
}

// listingPathPrefixes are the public listing URL shapes a report may point at.
var listingPathPrefixes = []string{"/annonces/", "/listings/", "/api/v1/listings/"}

type RepositoryAPI interface {
	Create(ctx context.Context, r *reportDatamodel.Report) error
	GetByID(ctx context.Context, id int64) (*reportDatamodel.Report, error)
	List(ctx context.Context, status string, limit, offset int) ([]*reportDatamodel.Report, error)
	UpdateStatusIf(ctx context.Context, id int64, from, to string, at time.Time) (bool, error)
}

type Report struct {
	ID            int64     `json:"id"`
	ListingURL    string    `json:"listing_url"`
	ListingID     *string   `json:"listing_id,omitempty"`
	Reason        string    `json:"reason"`
	Description   string    `json:"description"`
	ReporterEmail *string   `json:"reporter_email,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (r *Report) ToDataModel() *reportDatamodel.Report {
	return &reportDatamodel.Report{
		ID:            r.ID,
		ListingURL:    r.ListingURL,
		ListingID:     r.ListingID,
		Reason:        r.Reason,
		Description:   r.Description,
		ReporterEmail: r.ReporterEmail,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func FromDataModel(r *reportDatamodel.Report) *Report {
	return &Report{
		ID:            r.ID,
		ListingURL:    r.ListingURL,
		ListingID:     r.ListingID,
		Reason:        r.Reason,
		Description:   r.Description,
		ReporterEmail: r.ReporterEmail,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// CanMoveTo reports whether status is a forward move from the current one.
func (r *Report) CanMoveTo(status string) bool {
	target, ok := statusRank[status]
	if !ok {
		return false
	}
	return target > statusRank[r.Status]
}

// ListingIDFromURL extracts the listing id from a public listing URL or path.
// It returns "" when the URL does not point at a listing.
func ListingIDFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.Path, "/")
	for _, prefix := range listingPathPrefixes {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		id := strings.TrimPrefix(p, prefix)
		if id == "" || strings.Contains(id, "/") {
			return ""
		}
		return id
	}
	return ""
}
