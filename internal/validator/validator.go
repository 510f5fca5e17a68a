package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	ErrDefaultInvalid = "is invalid"
	ErrMinLength      = "must contain at least %s item(s)"
	ErrMaxLength      = "must contain at most %s item(s)"

	bookingReferenceRgx = regexp.MustCompile(`^CMX-[ABCDEFGHJKMNPQRSTVWXYZ23456789]{10}$`)
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("booking_reference", validateBookingReference)

	return validator
}

func validateBookingReference(fl validator.FieldLevel) bool {
	return bookingReferenceRgx.MatchString(fl.Field().String())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		switch err.Kind().String() {
		case "slice", "array":
			return fmt.Sprintf(ErrMinLength, err.Param())
		default:
			return fmt.Sprintf("must be at least %s", err.Param())
		}
	case "max":
		switch err.Kind().String() {
		case "slice", "array":
			return fmt.Sprintf(ErrMaxLength, err.Param())
		default:
			return fmt.Sprintf("must be at most %s", err.Param())
		}
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "unique":
		return "must not contain duplicate values"
	case "booking_reference":
		return "must be a valid booking reference"
	default:
		return ErrDefaultInvalid
	}
}
