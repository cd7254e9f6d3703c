package model

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// Failure kinds surfaced to callers. Wrapped errors are classified with
// eris.Is so transport layers can map kinds to status codes.
var (
	// ErrValidation marks bad caller input: invalid date ranges, unknown
	// metric names, malformed GeoJSON.
	ErrValidation = eris.New("validation error")

	// ErrDependency marks a read or write failure in the underlying store.
	ErrDependency = eris.New("dependency error")

	// ErrConsistency marks a partially applied mutation, e.g. an ingestion
	// replace that failed after some batches committed.
	ErrConsistency = eris.New("consistency error")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return eris.Wrap(ErrValidation, fmt.Sprintf(format, args...))
}

// Dependency wraps a store failure so it classifies as ErrDependency while
// keeping the cause in the message chain.
func Dependency(err error, msg string) error {
	if err == nil {
		return nil
	}
	return eris.Wrapf(ErrDependency, "%s: %s", msg, err.Error())
}

// Consistency wraps a partial-application failure as ErrConsistency.
func Consistency(err error, msg string) error {
	if err == nil {
		return nil
	}
	return eris.Wrapf(ErrConsistency, "%s: %s", msg, err.Error())
}

// DateLayout is the wire format for all dates.
const DateLayout = "2006-01-02"

// ValidDate reports whether s is a well-formed YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
