package usecase

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/V4T54L/leadhub/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LeadPayload is the body accepted by the inbound webhook and the lead API.
type LeadPayload struct {
	CustomerName  string  `json:"customer_name" validate:"required,max=255"`
	CustomerEmail *string `json:"customer_email" validate:"omitnil,email,max=255"`
	CustomerPhone *string `json:"customer_phone" validate:"omitnil,max=50"`
	Source        *string `json:"source" validate:"omitnil,max=255"`
	Notes         *string `json:"notes" validate:"omitnil,max=5000"`
}

// Normalize trims every field and turns blank optionals into absent ones.
func (p LeadPayload) Normalize() LeadPayload {
	p.CustomerName = strings.TrimSpace(p.CustomerName)
	p.CustomerEmail = trimOptional(p.CustomerEmail)
	p.CustomerPhone = trimOptional(p.CustomerPhone)
	p.Source = trimOptional(p.Source)
	p.Notes = trimOptional(p.Notes)
	return p
}

// Validate returns a *domain.ValidationError keyed by JSON field name.
func (p LeadPayload) Validate() error {
	return validationError(validate.Struct(p))
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := domain.NewValidationError()
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
