package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation   = errors.New("validation")   // 400
	ErrNotFound     = errors.New("not found")    // 404
	ErrConflict     = errors.New("conflict")     // 400, stock or slot contention
	ErrForbidden    = errors.New("forbidden")    // 403
	ErrUnauthorized = errors.New("unauthorized") // 401
	ErrGateway      = errors.New("gateway")      // 502
)

// DomainError carries the message shown to the client and unwraps to its kind.
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Kind }

func newErr(kind error, format string, args ...any) error {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error { return newErr(ErrValidation, format, args...) }

func NotFound(format string, args ...any) error { return newErr(ErrNotFound, format, args...) }

func Conflict(format string, args ...any) error { return newErr(ErrConflict, format, args...) }

func Forbidden(format string, args ...any) error { return newErr(ErrForbidden, format, args...) }

func Unauthorized(format string, args ...any) error { return newErr(ErrUnauthorized, format, args...) }

func Gateway(format string, args ...any) error { return newErr(ErrGateway, format, args...) }

// Messages asserted by clients.
const (
	MsgEmptyCart         = "Cart is empty"
	MsgProductNotFound   = "Product not found"
	MsgSlotBooked        = "This time slot is already booked"
	MsgPetSlotBooked     = "This pet already has an appointment at this time"
	MsgOrderNotCancelled = "Order cannot be cancelled"
	MsgNoPermission      = "You do not have permission to perform this action"
	MsgInvalidToken      = "Token is invalid or has expired"
)

// notFoundOr maps gorm's missing-row error to a NotFound domain error.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("%s", msg)
	}
	return err
}
