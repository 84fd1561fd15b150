package cart

import "errors"

var (
	ErrItemNotFound        = errors.New("cart item not found")
	ErrConstraintViolation = errors.New("cart item constraint violation")
	ErrStorageUnavailable  = errors.New("cart storage unavailable")
)
