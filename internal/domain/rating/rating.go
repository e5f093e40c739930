package rating

import "github.com/ratehub/ratehub/internal/httperr"

// ===============================
// Rating value rules
// ===============================

const (
	MinValue = 1
	MaxValue = 5
)

func ValidateValue(v int) error {
	if v < MinValue || v > MaxValue {
		return httperr.ErrBusiness(httperr.CodeRatingOutOfRange)
	}
	return nil
}
