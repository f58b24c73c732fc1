package core

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"paygate/internal/types"
)

// Validator wraps go-playground/validator and translates its failures into
// the AppError taxonomy so that handlers return consistent validation codes.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

// Struct validates v against its `validate` tags. On failure it returns a
// *types.AppError whose code reflects the first failing field: missing email
// and missing payment method have dedicated codes because the storefront
// branches on them; everything else maps to a generic invalid-field code
// with the field and rule in the details.
func (vd *Validator) Struct(v interface{}) error {
	err := vd.validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return types.NewAppError(
			types.ErrCodeValidationInvalidField,
			"request validation failed",
			err,
		)
	}

	first := verrs[0]
	switch {
	case first.Field() == "Email" && first.Tag() == "required":
		return types.NewAppError(
			types.ErrCodeValidationMissingEmail,
			"email is required",
			err,
		)
	case first.Field() == "PaymentMethodID" && first.Tag() == "required":
		return types.NewAppError(
			types.ErrCodeValidationMissingPaymentMethod,
			"paymentMethodId is required",
			err,
		)
	default:
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidField,
			"invalid value for field "+strings.ToLower(first.Field()),
			err,
			map[string]any{
				"field": first.Field(),
				"rule":  first.Tag(),
			},
		)
	}
}
