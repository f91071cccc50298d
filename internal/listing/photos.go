package listing

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	errors "github.com/frahmantamala/listing-marketplace/internal"
	listingDatamodel "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/listing"
	"github.com/google/uuid"
)

// ObjectStorage stores listing photos and returns their public URL.
type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

var photoContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// PhotoKey builds the object key for a new photo of a listing.
func PhotoKey(listingID, filename string) string {
	return fmt.Sprintf("listings/%s/%s%s", listingID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
}

// ReplacePhotos is wizard step 3. New objects are uploaded first, the media set
// is swapped in one store transaction, then the previous objects are removed.
// Objects that cannot be removed are logged as orphaned_object.
func (s *Service) ReplacePhotos(ctx context.Context, id string, uploads []PhotoUpload) ([]*Media, error) {
	if _, err := s.GetDraft(ctx, id); err != nil {
		return nil, err
	}

	if len(uploads) > s.maxPhotos {
		return nil, errors.NewValidationFieldError("photos",
			fmt.Sprintf("at most %d photo(s) per listing", s.maxPhotos), errors.ErrCodeTooManyPhotos)
	}
	for _, u := range uploads {
		if _, ok := photoContentTypes[strings.ToLower(filepath.Ext(u.Filename))]; !ok {
			return nil, errors.NewValidationFieldError("photos",
				fmt.Sprintf("unsupported file type: %s", u.Filename), errors.ErrCodeUnsupportedFormat)
		}
	}

	media := make([]*listingDatamodel.Media, 0, len(uploads))
	uploaded := make([]string, 0, len(uploads))
	for i, u := range uploads {
		key := PhotoKey(id, u.Filename)
		contentType := photoContentTypes[strings.ToLower(filepath.Ext(u.Filename))]

		url, err := s.storage.Put(ctx, key, u.Body, u.Size, contentType)
		if err != nil {
			s.logger.Error("photo upload failed", "error", err, "listing_id", id, "key", key)
			s.removeObjects(ctx, id, uploaded)
			return nil, errors.NewUpstreamError("failed to store photo", err)
		}
		uploaded = append(uploaded, key)

		media = append(media, &listingDatamodel.Media{
			ListingID:        id,
			MediaType:        "image",
			StorageKey:       key,
			URL:              url,
			OriginalFilename: u.Filename,
			DisplayOrder:     i,
		})
	}

	removed, err := s.repo.ReplaceMedia(ctx, id, media)
	if err != nil {
		s.logger.Error("media replacement failed", "error", err, "listing_id", id)
		s.removeObjects(ctx, id, uploaded)
		return nil, errors.NewInternalError("failed to save photos", err)
	}

	previous := make([]string, 0, len(removed))
	for _, m := range removed {
		previous = append(previous, m.StorageKey)
	}
	s.removeObjects(ctx, id, previous)

	s.logger.Info("listing photos replaced",
		"listing_id", id,
		"added", len(media),
		"removed", len(removed))

	return MediaFromDataModel(media), nil
}

func (s *Service) removeObjects(ctx context.Context, listingID string, keys []string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("orphaned_object",
				"error", err,
				"listing_id", listingID,
				"key", key)
		}
	}
}
