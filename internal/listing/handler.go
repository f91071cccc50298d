package listing

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"

	errors "github.com/frahmantamala/listing-marketplace/internal"
	"github.com/frahmantamala/listing-marketplace/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	SaveBasics(ctx context.Context, draftID string, dto BasicsDTO, sellerID string) (*Listing, error)
	SaveDetails(ctx context.Context, id string, dto DetailsDTO) (*Listing, error)
	ReplacePhotos(ctx context.Context, id string, uploads []PhotoUpload) ([]*Media, error)
	SavePricing(ctx context.Context, id string, dto PricingDTO) (*Listing, error)
	Submit(ctx context.Context, id, sellerID string) (*SubmitResponse, error)
	GetDraft(ctx context.Context, id string) (*Listing, error)
	GetListing(ctx context.Context, id string) (*Listing, error)
	ListPublished(ctx context.Context, category, listingType string, limit, offset int) ([]*Listing, error)
	ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*Listing, error)
}

type SweeperAPI interface {
	Sweep(ctx context.Context) (int, error)
}

type Handler struct {
	*transport.BaseHandler
	Service       ServiceAPI
	Sweeper       SweeperAPI
	startPath     string
	maxPhotoBytes int64
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, sweeper SweeperAPI, startPath string, maxPhotoBytes int64) *Handler {
	if startPath == "" {
		startPath = "/api/v1/wizard/step1"
	}
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = 10 << 20
	}
	return &Handler{
		BaseHandler:   baseHandler,
		Service:       service,
		Sweeper:       sweeper,
		startPath:     startPath,
		maxPhotoBytes: maxPhotoBytes,
	}
}

// StepPath is where the wizard resumes for a given step of a draft.
func (h *Handler) StepPath(id string, step int) string {
	if step <= 1 {
		if id == "" {
			return h.startPath
		}
		return h.startPath + "?draft_id=" + url.QueryEscape(id)
	}
	return path.Join(path.Dir(h.startPath), id, fmt.Sprintf("step%d", step))
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, Catalog())
}

func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.Pagination(r, 20, 100)
	q := r.URL.Query()

	listings, err := h.Service.ListPublished(r.Context(), q.Get("category"), q.Get("listing_type"), limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListingsResponse{Listings: listings, Limit: limit, Offset: offset})
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	l, err := h.Service.GetListing(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, l)
}

// ListSellerListings handles GET /wizard: the drafts and past listings of the
// seller named by the forwarded seller header.
func (h *Handler) ListSellerListings(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.Pagination(r, 20, 100)

	listings, err := h.Service.ListBySeller(r.Context(), errors.SellerIDFromContext(r.Context()), limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListingsResponse{Listings: listings, Limit: limit, Offset: offset})
}

// SaveBasics handles POST /wizard/step1, optionally replaying ?draft_id=.
func (h *Handler) SaveBasics(w http.ResponseWriter, r *http.Request) {
	var dto BasicsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	draftID := r.URL.Query().Get("draft_id")
	l, err := h.Service.SaveBasics(r.Context(), draftID, dto, errors.SellerIDFromContext(r.Context()))
	if err != nil {
		h.handleWizardError(w, r, err)
		return
	}

	status := http.StatusOK
	if draftID == "" {
		status = http.StatusCreated
	}
	h.WriteJSON(w, status, l)
}

func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	l, err := h.Service.GetDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleWizardError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) SaveDetails(w http.ResponseWriter, r *http.Request) {
	var dto DetailsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	l, err := h.Service.SaveDetails(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.handleWizardError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, l)
}

// SavePhotos handles the multipart "photos" field of step 3.
func (h *Handler) SavePhotos(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxPhotoBytes)
	if err := r.ParseMultipartForm(h.maxPhotoBytes); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid or too large upload", errors.ErrCodeValidationFailed))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["photos"]
	uploads := make([]PhotoUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.HandleError(w, errors.NewValidationError("unreadable upload", errors.ErrCodeValidationFailed))
			return
		}
		defer func(f multipart.File) { _ = f.Close() }(f)

		uploads = append(uploads, PhotoUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	media, err := h.Service.ReplacePhotos(r.Context(), id, uploads)
	if err != nil {
		h.handleWizardError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"media": media})
}

func (h *Handler) SavePricing(w http.ResponseWriter, r *http.Request) {
	var dto PricingDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	l, err := h.Service.SavePricing(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.handleWizardError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	resp, err := h.Service.Submit(r.Context(), id, errors.SellerIDFromContext(r.Context()))
	if err != nil {
		h.handleWizardError(w, r, err)
		return
	}

	h.Logger.Info("Submit: listing submitted", "listing_id", id, "status", resp.Status)
	h.WriteJSON(w, http.StatusOK, resp)
}

// Sweep runs one expiration pass; it is the hook for external schedulers.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.Sweeper.Sweep(r.Context())
	if err != nil {
		h.HandleError(w, errors.NewInternalError("expiration sweep failed", err))
		return
	}
	h.WriteJSON(w, http.StatusOK, SweepResponse{Expired: n})
}

// handleWizardError sends the caller back into the wizard instead of an error
// page when the draft is missing or incomplete.
func (h *Handler) handleWizardError(w http.ResponseWriter, r *http.Request, err error) {
	var incomplete *IncompleteDraftError
	switch {
	case goerrors.Is(err, ErrDraftNotFound):
		h.Logger.Info("wizard draft missing, restarting", "path", r.URL.Path)
		h.Redirect(w, r, h.StepPath("", 1))
	case goerrors.As(err, &incomplete):
		h.Redirect(w, r, h.StepPath(incomplete.ListingID, incomplete.Step))
	default:
		h.HandleServiceError(w, err)
	}
}
