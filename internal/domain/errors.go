package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so wrapped sentinels still match with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes. NOT_FOUND is an expected condition on the probe path and is
// only raised as an error when a caller asked for a resource that must exist.
const (
	ErrCodeTransientProvider = "TRANSIENT_PROVIDER_ERROR"
	ErrCodeProvider          = "PROVIDER_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeFatalSetup        = "FATAL_SETUP_ERROR"
	ErrCodeQuery             = "QUERY_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidResourceKind   = NewDomainError(ErrCodeValidation, "invalid resource kind")
	ErrInvalidMode           = NewDomainError(ErrCodeValidation, "invalid reconciliation mode")
	ErrInvalidQueryMode      = NewDomainError(ErrCodeValidation, "invalid query mode")
	ErrMissingKnowledgeBase  = NewDomainError(ErrCodeValidation, "knowledge base id is required")
	ErrFabricatedDescriptor  = NewDomainError(ErrCodeInternalError, "found descriptor requires a provider payload")
	ErrProvenanceUnsupported = NewDomainError(ErrCodeInternalError, "unsupported knowledge base provenance")
	ErrKnowledgeBaseExists   = NewDomainError(ErrCodeValidation, "knowledge base already exists, use adopt mode")
)

// Not found errors
var (
	ErrBucketNotFound           = NewDomainError(ErrCodeNotFound, "bucket not found")
	ErrVectorCollectionNotFound = NewDomainError(ErrCodeNotFound, "vector collection not found")
	ErrKnowledgeBaseNotFound    = NewDomainError(ErrCodeNotFound, "knowledge base not found")
	ErrDataSourceNotFound       = NewDomainError(ErrCodeNotFound, "data source not found")
)

// Setup errors
var (
	ErrIdentityResolution = NewDomainError(ErrCodeFatalSetup, "failed to resolve caller identity")
	ErrRegionResolution   = NewDomainError(ErrCodeFatalSetup, "aws region is not configured")
	ErrDataDirMissing     = NewDomainError(ErrCodeFatalSetup, "local data directory does not exist")
)

// NotFoundFor returns the not-found sentinel for a resource kind.
func NotFoundFor(kind ResourceKind) *DomainError {
	switch kind {
	case ResourceKindBucket:
		return ErrBucketNotFound
	case ResourceKindVectorCollection:
		return ErrVectorCollectionNotFound
	case ResourceKindKnowledgeBase:
		return ErrKnowledgeBaseNotFound
	case ResourceKindDataSource:
		return ErrDataSourceNotFound
	default:
		return NewDomainError(ErrCodeNotFound, fmt.Sprintf("%s not found", kind))
	}
}

// NewQueryError wraps a provider failure raised while dispatching a query.
func NewQueryError(mode QueryMode, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeQuery, fmt.Sprintf("%s query failed", mode), err)
}

// ErrorCode returns the code of the outermost DomainError in err's chain,
// or an empty string when there is none.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return ErrorCode(err) == ErrCodeNotFound
}

// IsTransient reports whether err is a network or throttling failure.
func IsTransient(err error) bool {
	return ErrorCode(err) == ErrCodeTransientProvider
}
