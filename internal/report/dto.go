package report

import (
	errors "github.com/frahmantamala/listing-marketplace/internal"
	"github.com/frahmantamala/listing-marketplace/internal/core/common/validation"
)

type CreateReportDTO struct {
	ListingURL    string  `json:"listing_url"`
	Reason        string  `json:"reason"`
	Description   string  `json:"description"`
	ReporterEmail *string `json:"reporter_email"`
}

func (d *CreateReportDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("listing_url", d.ListingURL).Required().MaxLength(2048)
	validator.Field("reason", d.Reason).Required().OneOf(Reasons, errors.ErrCodeValidationFailed)
	validator.Field("description", d.Description).Required().MinLength(10).MaxLength(5000)
	validator.Field("reporter_email", d.ReporterEmail).Email()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type UpdateStatusDTO struct {
	Status string `json:"status"`
}

func (d *UpdateStatusDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("status", d.Status).Required().OneOf(Statuses, errors.ErrCodeInvalidReportState)
	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type ReportsResponse struct {
	Reports []*Report `json:"reports"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
}
