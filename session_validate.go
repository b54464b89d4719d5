package relay

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// Validate checks the fields a caller supplied. Run it after
// [SessionRequest.WithDefaults] so that codes are already upper case.
func (r SessionRequest) Validate() error {
	if r.Amount != nil && r.Amount.IsNegative() {
		return errors.New("amount must not be negative")
	}
	if err := validate.Struct(r); err != nil {
		return normalizeValidationError(err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

func normalizeValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	first := validationErrs[0]
	return fmt.Errorf("%s %s", first.Field(), validationMessage(first))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "iso4217":
		return "must be an ISO-4217 currency code"
	case "iso3166_1_alpha2":
		return "must be an ISO-3166 alpha-2 country code"
	case "required":
		return "is required"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
