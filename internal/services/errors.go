package services

import (
	"errors"
	"fmt"

	"github.com/fablab/fablab-registration/internal/repositories"
)

// ErrorKind classifies domain errors for translation at the HTTP boundary.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
)

// AppError is a domain error carrying bilingual user-facing messages.
type AppError struct {
	Kind      ErrorKind
	Code      string
	Message   string
	MessageAr string
	Details   map[string]interface{}
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches context the UI needs to re-render (section, date, ...).
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func NewValidationError(code, message, messageAr string) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Message: message, MessageAr: messageAr}
}

func NewConflictError(code, message, messageAr string) *AppError {
	return &AppError{Kind: KindConflict, Code: code, Message: message, MessageAr: messageAr}
}

func NewNotFoundError(code, message, messageAr string) *AppError {
	return &AppError{Kind: KindNotFound, Code: code, Message: message, MessageAr: messageAr}
}

// AsAppError extracts an AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an AppError of kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}

// notFoundOr maps repositories.ErrNotFound to a NotFound AppError and
// passes any other error through.
func notFoundOr(err error, code, message, messageAr string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		appErr := NewNotFoundError(code, message, messageAr)
		appErr.Err = err
		return appErr
	}
	return err
}

// Common validation errors.
func errInvalidSection(section string) *AppError {
	return NewValidationError("INVALID_SECTION",
		"Unknown FABLAB section",
		"قسم فاب لاب غير معروف",
	).WithDetail("section", section)
}

func errInvalidDate(field, value string) *AppError {
	return NewValidationError("INVALID_DATE",
		fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field),
		"صيغة التاريخ غير صحيحة، يجب أن تكون YYYY-MM-DD",
	).WithDetail("field", field).WithDetail("value", value)
}

func errInvalidTime(field, value string) *AppError {
	return NewValidationError("INVALID_TIME",
		fmt.Sprintf("%s must be a time in HH:mm format", field),
		"صيغة الوقت غير صحيحة، يجب أن تكون HH:mm",
	).WithDetail("field", field).WithDetail("value", value)
}

func errTimeOrder(startField, endField string) *AppError {
	return NewValidationError("INVALID_TIME_RANGE",
		fmt.Sprintf("%s must be before %s", startField, endField),
		"يجب أن يكون وقت البداية قبل وقت النهاية",
	)
}

func errDateOrder(startField, endField string) *AppError {
	return NewValidationError("INVALID_DATE_RANGE",
		fmt.Sprintf("%s must not be after %s", startField, endField),
		"يجب ألا يكون تاريخ البداية بعد تاريخ النهاية",
	)
}
