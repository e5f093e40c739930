package httperr

import "errors"

// Stable business error codes shared between use cases and handlers.
const (
	CodeRatingOutOfRange = "rating_out_of_range"
	CodeStoreNotFound    = "store_not_found"
	CodeUserNotFound     = "user_not_found"
	CodeEmailTaken       = "email_already_registered"
)

type BusinessError struct {
	Code string
}

func (e BusinessError) Error() string {
	return e.Code
}

func ErrBusiness(code string) error {
	return BusinessError{Code: code}
}

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}
