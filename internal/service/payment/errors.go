package payment

import "errors"

var (
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrCourseUnpublished  = errors.New("course is not published")
	ErrGatewayFailure     = errors.New("payment gateway error")
	ErrSignatureMismatch  = errors.New("payment signature verification failed")
	ErrPaymentNotComplete = errors.New("payment is not completed")
	ErrAlreadyRefunded    = errors.New("payment already refunded")
	ErrNotOwner           = errors.New("payment belongs to another user")
)
