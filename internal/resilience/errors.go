// Package resilience classifies ingestion failures as transient (retry with
// bounded exponential backoff) or permanent (skip the record, keep the run
// alive) and provides the retry helpers built on that taxonomy.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an error that is safe to retry (429, 5xx, network
// timeout, rate limit). Exhausting retries on a transient error fails the
// run, never the whole scheduler.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// RecordError marks a permanent per-record failure: one malformed candidate
// record inside an otherwise healthy run. The connector logs it, counts it as
// skipped, and continues; it is never retried and never aborts the run.
type RecordError struct {
	Source     string // connector name
	ExternalID string // source-native id of the bad record, if known
	Err        error
}

func (e *RecordError) Error() string {
	if e.ExternalID != "" {
		return fmt.Sprintf("%s: record %s: %v", e.Source, e.ExternalID, e.Err)
	}
	return fmt.Sprintf("%s: record: %v", e.Source, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// NewRecordError wraps a parse failure for a single source record.
func NewRecordError(source, externalID string, err error) *RecordError {
	return &RecordError{Source: source, ExternalID: externalID, Err: err}
}

// IsRecordError reports whether the error chain contains a permanent
// per-record failure.
func IsRecordError(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or matches common transient network failure patterns.
// Record errors are never transient.
func IsTransient(err error) bool {
	if err == nil || IsRecordError(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
