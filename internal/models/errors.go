package models

import "errors"

// Ledger failure reasons. Each one aborts the whole operation; nothing is committed.
var (
	ErrSignatureExpired    = errors.New("signature expired")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrBlacklisted         = errors.New("blacklisted")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrLimitReached        = errors.New("limit reached")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrNotOwner            = errors.New("not owner")
	ErrAlreadyPaid         = errors.New("already paid")
	ErrInvalidAmount       = errors.New("invalid amount")

	ErrInvalidArgument = errors.New("invalid argument")
	ErrTokenExists     = errors.New("token already minted")
	ErrOutOfOrder      = errors.New("previous installment unpaid")
)

// ErrorCode returns a stable machine-readable code for a ledger error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrSignatureExpired):
		return "signature_expired"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrBlacklisted):
		return "blacklisted"
	case errors.Is(err, ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, ErrLimitReached):
		return "limit_reached"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrAlreadyPaid):
		return "already_paid"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrTokenExists):
		return "token_exists"
	case errors.Is(err, ErrOutOfOrder):
		return "out_of_order"
	default:
		return "internal"
	}
}
