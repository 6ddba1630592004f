package core

import (
	"errors"
	"fmt"
	"strings"
)

// KnownSampleSize is how many stored identifiers a NotFoundError carries.
const KnownSampleSize = 5

var (
	// ErrUnauthorized is returned when the shared secret is missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotEditable marks a patch against a field outside the allow-list.
	ErrNotEditable = errors.New("not editable")

	errNotObject = errors.New("json value is not an object")
)

// ValidationError reports a malformed request. The store is never touched
// when one is returned.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an identifier that resolved to no row by either the
// exact or the suffix-stripped lookup.
type NotFoundError struct {
	ID          string
	KnownSample []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("row '%s' not found; known sample: [%s]", e.ID, strings.Join(e.KnownSample, ", "))
}

// UpstreamFailure is one failed attempt against an upstream service.
type UpstreamFailure struct {
	Method string
	URL    string
	Status int
	Body   string
	Err    error
}

func (f UpstreamFailure) String() string {
	if f.Err != nil {
		return fmt.Sprintf("%s %s: %v", f.Method, f.URL, f.Err)
	}
	return fmt.Sprintf("%s %s: %d - %s", f.Method, f.URL, f.Status, f.Body)
}

// UpstreamError is returned after every attempt of an upstream operation
// failed. Failures are listed in attempt order.
type UpstreamError struct {
	Service  string
	Op       string
	Failures []UpstreamFailure
}

func (e *UpstreamError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("upstream %s %s failed: %s", e.Service, e.Op, strings.Join(parts, "; "))
}

// Unwrap exposes transport errors of individual attempts to errors.Is.
func (e *UpstreamError) Unwrap() []error {
	var errs []error
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// newNotFound builds a NotFoundError with a sample taken from ids.
func newNotFound(id string, ids []string) *NotFoundError {
	n := len(ids)
	if n > KnownSampleSize {
		n = KnownSampleSize
	}
	sample := make([]string, n)
	copy(sample, ids[:n])
	return &NotFoundError{ID: id, KnownSample: sample}
}
