package services

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAlreadyConfirmed = errors.New("payment already confirmed")
	ErrOrderNotPending  = errors.New("order is not pending")
)
