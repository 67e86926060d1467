package core

import "errors"

// Ingestion failures. Every error returned by ValidateSource, Parse and
// ParseSource wraps exactly one of the first three; use errors.Is to classify.
var (
	// ErrInvalidFormat: the file name and declared type do not identify CSV.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrParseFailure: the content could not be read or is not valid CSV.
	ErrParseFailure = errors.New("invalid csv")

	// ErrEmptyResult: the file is well formed but has no data rows.
	ErrEmptyResult = errors.New("empty file")

	// ErrFileTooLarge is wrapped together with ErrParseFailure.
	ErrFileTooLarge = errors.New("file too large")

	// ErrTooManyParses is returned when no parse slot frees up in time.
	ErrTooManyParses = errors.New("too many uploads in progress")

	// ErrSessionNotFound is returned by Store lookups for unknown IDs.
	ErrSessionNotFound = errors.New("session not found")
)

// Failure names the class of an ingestion error for status display and metrics.
type Failure string

const (
	FailureNone          Failure = ""
	FailureInvalidFormat Failure = "invalid_format"
	FailureParse         Failure = "parse_failure"
	FailureEmpty         Failure = "empty_result"
	FailureBusy          Failure = "busy"
)

// Classify maps an ingestion error to its Failure class.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrInvalidFormat):
		return FailureInvalidFormat
	case errors.Is(err, ErrEmptyResult):
		return FailureEmpty
	case errors.Is(err, ErrTooManyParses):
		return FailureBusy
	default:
		return FailureParse
	}
}
