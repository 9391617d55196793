package domain

import "fmt"

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

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrDimensionMismatch    = NewDomainError(ErrCodeValidation, fmt.Sprintf("embedding dimension must be %d", EmbeddingDimensions))
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrNoCandidateSources   = NewDomainError(ErrCodeValidation, "candidate source set cannot be empty")
)

// Not found errors
var (
	ErrIngestionJobNotFound = NewDomainError(ErrCodeNotFound, "ingestion job not found")
)

// Collaborator errors
var (
	ErrSearchUnavailable  = NewDomainError(ErrCodeUnavailable, "web search service unavailable")
	ErrExtractUnavailable = NewDomainError(ErrCodeUnavailable, "content extraction service unavailable")
)

// FetchError marks a per-source fetch failure. Ingestion records it and skips
// the source; sibling sources are unaffected.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// EmbeddingError marks a failed batch call to the embedding service. The
// whole embed invocation fails with it; vectors from earlier batches are
// discarded so stored records never go out of alignment.
type EmbeddingError struct {
	BatchIndex int // zero-based index of the failed batch
	Err        error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding batch %d failed: %v", e.BatchIndex, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// StoreWriteError marks a failed chunk write. The caller must treat the whole
// record sequence as unwritten; retrying the ingest is safe because writes
// are idempotent at the source level.
type StoreWriteError struct {
	Source string
	Err    error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write failed for %s: %v", e.Source, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}
