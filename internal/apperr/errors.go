// Package apperr defines the error kinds shared by the listing and payment
// services. Handlers map each kind to one HTTP status.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports caller input that cannot be accepted
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports a missing entity
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// InvalidStateError reports an operation not allowed in the entity's current state
type InvalidStateError struct {
	Entity  string
	State   string
	Message string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s in state %q: %s", e.Entity, e.State, e.Message)
}

// UpstreamError wraps a payment processor failure or timeout.
// Error() stays generic so processor details never reach callers.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("payment processor unavailable during %s, please retry", e.Op)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// SignatureError reports a webhook payload that failed verification
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	return "invalid webhook signature"
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

// Validation builds a ValidationError
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFoundError
func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidState builds an InvalidStateError
func InvalidState(entity, state, format string, args ...any) error {
	return &InvalidStateError{Entity: entity, State: state, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps err as an UpstreamError for operation op
func Upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// Signature wraps err as a SignatureError
func Signature(err error) error {
	return &SignatureError{Err: err}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsInvalidState(err error) bool {
	var target *InvalidStateError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

func IsSignature(err error) bool {
	var target *SignatureError
	return errors.As(err, &target)
}
