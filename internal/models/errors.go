package models

import "errors"

// Ошибки ядра. Каждая операция возвращает различимое значение,
// чтобы вызывающая сторона могла показать точную причину отказа.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidState       = errors.New("invalid state")
	ErrDuplicateVote      = errors.New("duplicate vote")
	ErrNoBidsAvailable    = errors.New("no bids available")
	ErrSignatureInvalid   = errors.New("signature invalid")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrNotFound           = errors.New("not found")
)
