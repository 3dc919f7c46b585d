package domain

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrForbidden   = errors.New("forbidden")
	ErrConflict    = errors.New("conflict")
	ErrUpstream    = errors.New("upstream failure")
	ErrRateLimited = errors.New("rate limited")
)

// Error carries a readable message and wraps one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newErr(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrAppointmentNotFound    = newErr(ErrNotFound, "appointment not found")
	ErrContractorNotFound     = newErr(ErrNotFound, "contractor not found")
	ErrContractorUnavailable  = newErr(ErrValidation, "contractor not available")
	ErrContractorExists       = newErr(ErrConflict, "contractor with this email already exists")
	ErrInvalidSlot            = newErr(ErrValidation, "slot is outside the booking window")
	ErrSlotUnavailable        = newErr(ErrConflict, "slot not available")
	ErrProofRequired          = newErr(ErrValidation, "no file uploaded")
	ErrInvalidFile            = newErr(ErrValidation, "unsupported file")
	ErrNoProof                = newErr(ErrValidation, "no completion proof submitted")
	ErrInvalidTransition      = newErr(ErrValidation, "transition not allowed from current status")
	ErrNotCompleted           = newErr(ErrValidation, "appointment is not completed")
	ErrAlreadyRated           = newErr(ErrValidation, "appointment already rated")
	ErrInvalidStars           = newErr(ErrValidation, "stars must be between 1 and 5")
	ErrNotOwner               = newErr(ErrForbidden, "appointment does not belong to caller")
	ErrAdminOnly              = newErr(ErrForbidden, "admin access required")
	ErrConcurrentModification = newErr(ErrConflict, "appointment was modified concurrently")
	ErrUploadFailed           = newErr(ErrUpstream, "upload failed")
	ErrMailFailed             = newErr(ErrUpstream, "failed to send email")
	ErrTooManyBookings        = newErr(ErrRateLimited, "too many booking attempts")
)

// Validation builds an ad-hoc validation error.
func Validation(msg string) error {
	return newErr(ErrValidation, msg)
}

// HTTPStatus maps an error to the response status by its kind.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to show callers.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return "internal error"
}
