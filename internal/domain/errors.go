package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrPlanExpired       = errors.New("plan expired")
	ErrPlanInactive      = errors.New("plan inactive")
	ErrInvalidInput      = errors.New("invalid input")
)
