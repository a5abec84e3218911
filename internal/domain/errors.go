package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the failure taxonomy shared by adapters and the orchestrator.
type ErrorKind string

const (
	KindNetworkFailure      ErrorKind = "network_failure"
	KindTimeout             ErrorKind = "timeout"
	KindEmptyPayload        ErrorKind = "empty_payload"
	KindMalformedPayload    ErrorKind = "malformed_payload"
	KindInsufficientHistory ErrorKind = "insufficient_history"
	KindNoData              ErrorKind = "no_data"
)

var (
	ErrNetworkFailure      = errors.New("network failure")
	ErrTimeout             = errors.New("request timed out")
	ErrEmptyPayload        = errors.New("empty payload")
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrNoData              = errors.New("no data available")
)

var kindSentinels = map[ErrorKind]error{
	KindNetworkFailure:      ErrNetworkFailure,
	KindTimeout:             ErrTimeout,
	KindEmptyPayload:        ErrEmptyPayload,
	KindMalformedPayload:    ErrMalformedPayload,
	KindInsufficientHistory: ErrInsufficientHistory,
	KindNoData:              ErrNoData,
}

// SourceError is a classified failure from a named data source.
type SourceError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func NewSourceError(kind ErrorKind, source string, err error) *SourceError {
	return &SourceError{Kind: kind, Source: source, Err: err}
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind, so callers can write
// errors.Is(err, domain.ErrTimeout).
func (e *SourceError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf reports the taxonomy kind of err, or "" when unclassified.
func KindOf(err error) ErrorKind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}
