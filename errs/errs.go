// Package errs defines the error taxonomy shared by stores, behaviors and the mediator.
//
// Every error is a *goerrors.Error from github.com/goliatone/go-errors so callers
// can switch on the category or text code regardless of which layer raised it.
package errs

import (
	"context"
	"database/sql"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to every error raised by this module.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeAuthorizationFailed = "AUTHORIZATION_FAILED"
	CodeConflict            = "CONFLICT"
	CodeUnavailable         = "UNAVAILABLE"
)

// NotFound reports that no record exists for the identifier.
func NotFound(model, id string) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("%s %q not found", model, id), goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithTextCode(CodeNotFound).
		WithMetadata(map[string]any{"model": model, "id": id})
}

// ValidationFailed builds a validation error carrying field level violations.
func ValidationFailed(message string, fields ...goerrors.FieldError) *goerrors.Error {
	return goerrors.NewValidation(message, fields...).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(CodeValidationFailed)
}

// FromValidation converts an ozzo-validation error into a ValidationFailed error.
func FromValidation(err error, message string) *goerrors.Error {
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, message).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(CodeValidationFailed)
}

// AuthorizationFailed reports a tenant mismatch or a missing tenant.
func AuthorizationFailed(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden).
		WithTextCode(CodeAuthorizationFailed)
}

// Conflict reports a concurrent mutation detected by the store.
func Conflict(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryConflict).
		WithCode(goerrors.CodeConflict).
		WithTextCode(CodeConflict)
}

// Unavailable wraps an infrastructure failure (store or distributed cache).
func Unavailable(source error, message string) *goerrors.Error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryExternal).
			WithCode(503).
			WithTextCode(CodeUnavailable)
	}
	return goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(503).
		WithTextCode(CodeUnavailable)
}

// Internal reports a programming or wiring error.
func Internal(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
}

func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.IsNotFound(err) || goerrors.Is(err, sql.ErrNoRows)
}

func IsValidation(err error) bool {
	return goerrors.IsValidation(err)
}

func IsAuthorization(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryAuthz)
}

func IsConflict(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryConflict)
}

func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return hasTextCode(err, CodeUnavailable)
}

// Fields returns the field level violations carried by a validation error.
func Fields(err error) goerrors.ValidationErrors {
	fields, _ := goerrors.GetValidationErrors(err)
	return fields
}

func hasTextCode(err error, code string) bool {
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return e.TextCode == code
	}
	return false
}
