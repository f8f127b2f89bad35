// Package xerrors implements the error taxonomy of the data-processing
// engine: Configuration errors (start-time, fatal), Encoding errors
// (per-record, policy-driven), Transient errors (per-batch, retried), and
// Fatal runtime errors (terminate the owning task, maybe restart). This is
// a direct re-classification of the platform's own errors package
// (Transient/Invalid/Fatal) into the four-way split the engine's error
// handling design calls for.
package xerrors

import (
	"errors"
	"fmt"

	"github.com/gauss-project/gauss/pkg/retry"
)

// Class identifies which bucket of the taxonomy an error belongs to.
type Class int

const (
	// ClassConfiguration: unknown plugin, unsupported read-mode, missing
	// required config field, unmapped type in mapping script, unknown
	// converter reference, duplicate target field names. Fatal at start.
	ClassConfiguration Class = iota
	// ClassEncoding: MalformedFrame, InvalidValue, MissingKeyField.
	// Per-record, policy-driven (log+drop by default, or halt).
	ClassEncoding
	// ClassTransient: storage connect timeout, downstream write refused.
	// Per-batch, retried by the processor/storage, not the engine.
	ClassTransient
	// ClassFatal: storage corruption, plugin panic. Terminates the owning
	// task. The supervisor has no restart path: a processor whose Run
	// returns a fatal error stays stopped, and the pipeline's other
	// processors are canceled.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassEncoding:
		return "encoding"
	case ClassTransient:
		return "transient"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard sentinel errors for common conditions named throughout the spec.
var (
	ErrUnknownPlugin        = errors.New("unknown plugin")
	ErrReadModeIncompatible = errors.New("read mode not supported by storage")
	ErrMissingConfigField   = errors.New("missing required configuration field")
	ErrUnknownConverter     = errors.New("converter not found in registry")
	ErrDuplicateTargetField = errors.New("duplicate target field name")
	ErrUnknownSourceField   = errors.New("unknown source field")

	ErrMalformedFrame  = errors.New("malformed frame")
	ErrInvalidValue    = errors.New("invalid value for field type")
	ErrMissingKeyField = errors.New("missing key field value")

	ErrStorageNotReady        = errors.New("storage not ready")
	ErrBackpressure           = errors.New("back-pressure: save would block")
	ErrReconfigureUnsupported = errors.New("storage does not support reconfiguration")

	ErrClosed = errors.New("closed")
)

// Error wraps a cause with its Class, the component/operation that raised
// it, and an optional structured-field set for logging.
type Error struct {
	Class     Class
	Err       error
	Component string
	Operation string
	Fields    map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s.%s: %s: %v", e.Component, e.Operation, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(class Class, err error, component, operation string) *Error {
	return &Error{Class: class, Err: err, Component: component, Operation: operation}
}

// Config wraps err as a ClassConfiguration error.
func Config(err error, component, operation string) error {
	if err == nil {
		return nil
	}
	return newError(ClassConfiguration, err, component, operation)
}

// Encoding wraps err as a ClassEncoding error.
func Encoding(err error, component, operation string) error {
	if err == nil {
		return nil
	}
	return newError(ClassEncoding, err, component, operation)
}

// Transient wraps err as a ClassTransient error.
func Transient(err error, component, operation string) error {
	if err == nil {
		return nil
	}
	return newError(ClassTransient, err, component, operation)
}

// Fatal wraps err as a ClassFatal error.
func Fatal(err error, component, operation string) error {
	if err == nil {
		return nil
	}
	return newError(ClassFatal, err, component, operation)
}

// WithField attaches a structured field to a *Error in place, returning the
// same error value for chaining. No-op on non-*Error values.
func WithField(err error, key string, value any) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Fields == nil {
			e.Fields = make(map[string]any)
		}
		e.Fields[key] = value
	}
	return err
}

// ClassOf returns the Class of err, defaulting to ClassTransient for
// unclassified errors so unrecognized failures are retried rather than
// treated as silently dropped or immediately fatal.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassTransient
}

// Is reports whether err matches target, unwrapping through the Class
// wrapper the same way errors.Is unwraps any chain.
func Is(err, target error) bool { return errors.Is(err, target) }

func IsConfiguration(err error) bool { return err != nil && ClassOf(err) == ClassConfiguration }
func IsEncoding(err error) bool      { return err != nil && ClassOf(err) == ClassEncoding }
func IsTransient(err error) bool     { return err != nil && ClassOf(err) == ClassTransient }
func IsFatal(err error) bool         { return err != nil && ClassOf(err) == ClassFatal }

// RetryPolicy converts a retry.Config the way the platform's errors package
// does, kept so transient-error retry call sites can reuse the shared
// backoff implementation in pkg/retry.
func RetryPolicy(maxAttempts int) retry.Config {
	cfg := retry.DefaultConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	return cfg
}
