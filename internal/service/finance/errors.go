package finance

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be non-negative")
	ErrInvalidRate         = errors.New("commission rate must be a number between 0 and 100")
	ErrInsufficientBalance = errors.New("payout amount exceeds remaining balance")
	ErrLedgerNotFound      = errors.New("teacher has no commission ledger")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentNotCompleted = errors.New("payment is not completed")
	ErrCourseNotFound      = errors.New("course not found")
)
