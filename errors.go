package nodeid

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zero-day-ai/nodeid/handler"
)

// Sentinel errors for common node identification failures.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrNotFound is the uniform outcome for identifiers that cannot be resolved:
	// malformed input, identifiers no handler claims, and keys without a row.
	// It is the same value as handler.ErrNotFound.
	ErrNotFound = handler.ErrNotFound

	// ErrInvalidConfig indicates the provided configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBuildFailed indicates a schema could not be built from its descriptors.
	ErrBuildFailed = errors.New("schema build failed")

	// ErrNoClaimsShape indicates no shape is marked as the claims token type.
	ErrNoClaimsShape = errors.New("no claims shape found")
)

// Error kinds categorize errors by their type.
const (
	// KindNotFound represents identifiers that do not resolve to a row.
	KindNotFound = "not_found"

	// KindValidation represents errors related to input validation.
	KindValidation = "validation"

	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindFetch represents errors returned by a getter while fetching a row.
	KindFetch = "fetch"

	// KindInternal represents internal errors.
	KindInternal = "internal"
)

// NodeIDError is a structured error type that wraps underlying errors with
// the operation that failed and the category of error.
//
// NodeIDError supports error unwrapping, so errors.Is() and errors.As() see
// the wrapped sentinel.
//
// Example usage:
//
//	err := &NodeIDError{
//		Op:   "Schema.ResolveByID",
//		Kind: KindNotFound,
//		Err:  ErrNotFound,
//	}
type NodeIDError struct {
	// Op is the operation that failed (e.g., "Build", "Schema.ResolveByID").
	Op string

	// Kind categorizes the error (e.g., KindNotFound, KindConfiguration).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional),
	// such as the type name or the shape involved.
	Context map[string]any
}

// Error implements the error interface.
func (e *NodeIDError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("nodeid: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("nodeid: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("nodeid: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeIDError) Unwrap() error {
	return e.Err
}

// Is matches another NodeIDError by Kind (and Op, when the target sets one),
// and otherwise delegates to the wrapped error.
func (e *NodeIDError) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*NodeIDError); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a copy of the error with ctx merged into its context.
func (e *NodeIDError) WithContext(ctx map[string]any) *NodeIDError {
	newErr := *e
	merged := make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	newErr.Context = merged
	return &newErr
}

// NewNotFoundError creates a new NodeIDError with KindNotFound.
func NewNotFoundError(op string, err error) *NodeIDError {
	return &NodeIDError{
		Op:   op,
		Kind: KindNotFound,
		Err:  err,
	}
}

// NewValidationError creates a new NodeIDError with KindValidation.
func NewValidationError(op string, err error) *NodeIDError {
	return &NodeIDError{
		Op:   op,
		Kind: KindValidation,
		Err:  err,
	}
}

// NewConfigurationError creates a new NodeIDError with KindConfiguration.
func NewConfigurationError(op string, err error) *NodeIDError {
	return &NodeIDError{
		Op:   op,
		Kind: KindConfiguration,
		Err:  err,
	}
}

// NewFetchError creates a new NodeIDError with KindFetch.
func NewFetchError(op string, err error) *NodeIDError {
	return &NodeIDError{
		Op:   op,
		Kind: KindFetch,
		Err:  err,
	}
}

// NewInternalError creates a new NodeIDError with KindInternal.
func NewInternalError(op string, err error) *NodeIDError {
	return &NodeIDError{
		Op:   op,
		Kind: KindInternal,
		Err:  err,
	}
}

// CloseWithLog attempts to close the provided resource and logs any error
// at warning level. It is meant for defer statements.
//
// If logger is nil, slog.Default() is used.
//
//	defer nodeid.CloseWithLog(store, logger, "redis row store")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
