package listing

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/listing-marketplace/internal"
	listingDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/listing"
	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/listing-marketplace/internal/core/events"
	"github.com/google/uuid"
)

var (
	ErrListingNotFound    = errors.ErrListingNotFound
	ErrDraftNotFound      = errors.ErrDraftNotFound
	ErrListingNotEditable = errors.ErrListingNotEditable
)

// Fields is a partial update keyed by column name.
type Fields map[string]interface{}

// Filter narrows List. Zero values do not filter.
type Filter struct {
	Status            string
	SellerID          string
	Category          string
	ListingType       string
	ExpiresAtOrBefore *time.Time
}

const (
	OrderPublishedDesc = "published_at DESC"
	OrderExpiresAsc    = "expires_at ASC"
	OrderCreatedDesc   = "created_at DESC"
)

// RepositoryAPI is the record store contract for listings. UpdateIfStatus is the
// only write used for state transitions; its applied flag is the concurrency token.
type RepositoryAPI interface {
	Create(ctx context.Context, l *listingDatamodel.Listing) error
	GetByID(ctx context.Context, id string) (*listingDatamodel.Listing, error)
	Update(ctx context.Context, id string, fields Fields) (bool, error)
	UpdateIfStatus(ctx context.Context, id, expected string, fields Fields) (bool, error)
	List(ctx context.Context, filter Filter, order string, limit, offset int) ([]*listingDatamodel.Listing, error)
	GetMedia(ctx context.Context, listingID string) ([]*listingDatamodel.Media, error)
	ReplaceMedia(ctx context.Context, listingID string, media []*listingDatamodel.Media) ([]*listingDatamodel.Media, error)
}

// PaymentGate decides once per submission whether checkout is needed.
type PaymentGate interface {
	Require(ctx context.Context, intent paymentgatewaytypes.CheckoutIntent) (paymentgatewaytypes.CheckoutRequirement, error)
}

// IncompleteDraftError points the wizard at the first step that still needs input.
type IncompleteDraftError struct {
	ListingID string
	Step      int
}

func (e *IncompleteDraftError) Error() string {
	return fmt.Sprintf("listing %s is incomplete at step %d", e.ListingID, e.Step)
}

type Service struct {
	repo      RepositoryAPI
	gate      PaymentGate
	storage   ObjectStorage
	publisher events.Publisher
	logger    *slog.Logger
	maxPhotos int
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMaxPhotos(n int) Option {
	return func(s *Service) { s.maxPhotos = n }
}

func NewService(repo RepositoryAPI, gate PaymentGate, storage ObjectStorage, publisher events.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		gate:      gate,
		storage:   storage,
		publisher: publisher,
		logger:    logger,
		maxPhotos: 1,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// SaveBasics creates a draft, or replays step 1 on an existing draft when draftID is set.
func (s *Service) SaveBasics(ctx context.Context, draftID string, dto BasicsDTO, sellerID string) (*Listing, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("step 1 validation failed", "error", err, "listing_id", draftID)
		return nil, err
	}

	if draftID != "" {
		if err := s.updateDraft(ctx, draftID, dto.Fields()); err != nil {
			return nil, err
		}
		return s.GetDraft(ctx, draftID)
	}

	now := s.clock()
	l := &Listing{
		ID:          uuid.NewString(),
		ListingType: dto.ListingType,
		Category:    dto.Category,
		Title:       dto.Title,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sellerID != "" {
		l.SellerID = &sellerID
	}

	if err := s.repo.Create(ctx, ToDataModel(l)); err != nil {
		s.logger.Error("failed to create draft listing", "error", err)
		return nil, errors.NewInternalError("failed to create draft", err)
	}

	s.logger.Info("draft listing created",
		"listing_id", l.ID,
		"listing_type", l.ListingType,
		"category", l.Category)

	return l, nil
}

func (s *Service) SaveDetails(ctx context.Context, id string, dto DetailsDTO) (*Listing, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("step 2 validation failed", "error", err, "listing_id", id)
		return nil, err
	}
	if err := s.updateDraft(ctx, id, dto.Fields()); err != nil {
		return nil, err
	}
	return s.GetDraft(ctx, id)
}

func (s *Service) SavePricing(ctx context.Context, id string, dto PricingDTO) (*Listing, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("step 4 validation failed", "error", err, "listing_id", id)
		return nil, err
	}
	if err := s.updateDraft(ctx, id, dto.Fields()); err != nil {
		return nil, err
	}
	return s.GetDraft(ctx, id)
}

// updateDraft applies a partial update only while the listing is a draft.
func (s *Service) updateDraft(ctx context.Context, id string, fields Fields) error {
	fields["updated_at"] = s.clock()

	applied, err := s.repo.UpdateIfStatus(ctx, id, StatusDraft, fields)
	if err != nil {
		s.logger.Error("failed to update draft", "error", err, "listing_id", id)
		return errors.NewInternalError("failed to update draft", err)
	}
	if applied {
		s.logger.Debug("draft updated", "listing_id", id, "fields", len(fields))
		return nil
	}

	current, err := s.repo.GetByID(ctx, id)
	if goerrors.Is(err, ErrListingNotFound) {
		return ErrDraftNotFound
	}
	if err != nil {
		return errors.NewInternalError("failed to load listing", err)
	}

	s.logger.Warn("rejected edit of non-draft listing", "listing_id", id, "status", current.Status)
	return ErrListingNotEditable
}

// GetDraft returns the wizard view of a listing; anything but a draft is reported missing.
func (s *Service) GetDraft(ctx context.Context, id string) (*Listing, error) {
	l, err := s.load(ctx, id)
	if goerrors.Is(err, ErrListingNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	if !l.IsDraft() {
		return nil, ErrListingNotEditable
	}
	return l, nil
}

// GetListing returns a public listing with its media. Drafts are not public.
func (s *Service) GetListing(ctx context.Context, id string) (*Listing, error) {
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.IsPublic() {
		return nil, ErrListingNotFound
	}
	return l, nil
}

func (s *Service) ListPublished(ctx context.Context, category, listingType string, limit, offset int) ([]*Listing, error) {
	rows, err := s.repo.List(ctx, Filter{
		Status:      StatusPublished,
		Category:    category,
		ListingType: listingType,
	}, OrderPublishedDesc, limit, offset)
	if err != nil {
		s.logger.Error("failed to list published listings", "error", err)
		return nil, errors.NewInternalError("failed to list listings", err)
	}
	return s.withMedia(ctx, rows)
}

// ListBySeller returns every listing of a seller whatever its status, newest first.
func (s *Service) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*Listing, error) {
	if sellerID == "" {
		return nil, errors.NewValidationFieldError("seller_id", "seller id is required", errors.ErrCodeValidationFailed)
	}

	rows, err := s.repo.List(ctx, Filter{SellerID: sellerID}, OrderCreatedDesc, limit, offset)
	if err != nil {
		s.logger.Error("failed to list seller listings", "error", err, "seller_id", sellerID)
		return nil, errors.NewInternalError("failed to list listings", err)
	}
	return s.withMedia(ctx, rows)
}

func (s *Service) withMedia(ctx context.Context, rows []*listingDatamodel.Listing) ([]*Listing, error) {
	out := make([]*Listing, 0, len(rows))
	for _, row := range rows {
		l := FromDataModel(row)
		media, err := s.repo.GetMedia(ctx, l.ID)
		if err != nil {
			s.logger.Error("failed to load media", "error", err, "listing_id", l.ID)
			return nil, errors.NewInternalError("failed to load media", err)
		}
		l.Media = MediaFromDataModel(media)
		out = append(out, l)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id string) (*Listing, error) {
	row, err := s.repo.GetByID(ctx, id)
	if goerrors.Is(err, ErrListingNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		s.logger.Error("failed to load listing", "error", err, "listing_id", id)
		return nil, errors.NewInternalError("failed to load listing", err)
	}

	l := FromDataModel(row)
	media, err := s.repo.GetMedia(ctx, id)
	if err != nil {
		s.logger.Error("failed to load media", "error", err, "listing_id", id)
		return nil, errors.NewInternalError("failed to load media", err)
	}
	l.Media = MediaFromDataModel(media)
	return l, nil
}

// Submit is wizard step 5. The payment gate is asked exactly once and the
// result decides between immediate publication and a checkout redirect.
func (s *Service) Submit(ctx context.Context, id, sellerID string) (*SubmitResponse, error) {
	l, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	if step := l.FirstIncompleteStep(); step > 0 {
		s.logger.Info("submit rejected, draft incomplete", "listing_id", id, "step", step)
		return nil, &IncompleteDraftError{ListingID: id, Step: step}
	}

	requirement, err := s.gate.Require(ctx, paymentgatewaytypes.CheckoutIntent{
		ListingID: l.ID,
		UserID:    sellerID,
		Title:     l.Title,
	})
	if err != nil {
		s.logger.Error("payment gate failed", "error", err, "listing_id", id)
		return nil, err
	}

	switch req := requirement.(type) {
	case paymentgatewaytypes.PaymentNotRequired:
		if _, err := s.Publish(ctx, id, "no_payment_required"); err != nil {
			return nil, err
		}
		return &SubmitResponse{ListingID: id, Status: StatusPublished}, nil
	case paymentgatewaytypes.PaymentRequired:
		s.logger.Info("checkout issued for listing",
			"listing_id", id,
			"reference", req.Reference)
		return &SubmitResponse{
			ListingID:   id,
			Status:      "payment_required",
			Reference:   req.Reference,
			RedirectURL: req.RedirectURL,
		}, nil
	default:
		return nil, errors.NewInternalError("unknown checkout requirement", fmt.Errorf("%T", requirement))
	}
}

// Publish moves a draft to published. It reports whether this call performed the
// transition; already published or expired listings are left untouched.
func (s *Service) Publish(ctx context.Context, id, reason string) (bool, error) {
	now := s.clock()
	expiresAt := now.Add(PublicationPeriod)

	applied, err := s.repo.UpdateIfStatus(ctx, id, StatusDraft, Fields{
		"status":       StatusPublished,
		"published_at": now,
		"expires_at":   expiresAt,
		"updated_at":   now,
	})
	if err != nil {
		s.logger.Error("publish write failed", "error", err, "listing_id", id, "reason", reason)
		return false, fmt.Errorf("publish listing %s: %w", id, err)
	}

	if applied {
		s.logger.Info("listing published",
			"listing_id", id,
			"reason", reason,
			"published_at", now,
			"expires_at", expiresAt)
		s.emit(ctx, events.NewListingPublishedEvent(id, reason, now, expiresAt))
		return true, nil
	}

	current, err := s.repo.GetByID(ctx, id)
	if goerrors.Is(err, ErrListingNotFound) {
		s.logger.Warn("publish requested for unknown listing", "listing_id", id, "reason", reason)
		return false, ErrListingNotFound
	}
	if err != nil {
		return false, fmt.Errorf("publish listing %s: %w", id, err)
	}

	switch current.Status {
	case StatusPublished:
		s.logger.Debug("listing already published", "listing_id", id, "reason", reason)
	case StatusExpired:
		s.logger.Warn("invalid transition expired -> published ignored", "listing_id", id, "reason", reason)
	default:
		s.logger.Warn("publish not applied", "listing_id", id, "status", current.Status)
	}
	return false, nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", event.EventType())
	}
}
