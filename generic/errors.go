/*
errors.go - Centralized error types for the assessment engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Unparseable input - bad dates, unknown grid formats. Parsers recover
     locally by skipping the offending line; these sentinels only surface
     at the API boundary (e.g. a malformed anchor date in a request).
  2. Insufficient data - a determination cannot be made. Domain results
     carry a Computable=false flag plus the missing inputs; the error form
     exists for callers that want an error value.
  3. Programmer errors - a malformed index table. Constructors return
     ErrMalformedIndexTable; Must* variants panic.

USAGE:
  if errors.Is(err, generic.ErrInsufficientData) {
      // show "cannot compute" rather than a zero
  }

SEE ALSO:
  - karens/gtable.go: Table validation
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned when a DD.MM.YYYY value cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidRequest is returned when a request field fails validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInsufficientData is returned when a determination lacks its inputs.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnknownFormat is returned when a salary grid matches no known layout.
	ErrUnknownFormat = errors.New("unrecognized salary grid format")

	// ErrNoSalaryAtSickDate is returned when no salary entry is in effect on the sick date.
	ErrNoSalaryAtSickDate = errors.New("no salary in effect at sick date")

	// ErrMalformedIndexTable is returned when a G-regulation table is unsorted or non-positive.
	ErrMalformedIndexTable = errors.New("malformed index table")

	// ErrIndexEntryNotFound is returned when a G-table row does not exist.
	ErrIndexEntryNotFound = errors.New("index entry not found")

	// ErrLastIndexEntry is returned when a delete would leave the G table empty.
	ErrLastIndexEntry = errors.New("cannot delete the last index entry")

	// ErrDateOutOfRange is returned when an index lookup precedes the table.
	ErrDateOutOfRange = errors.New("date precedes index table")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientDataError names the determination and its missing inputs.
type InsufficientDataError struct {
	Determination string
	Missing       []string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("cannot compute %s: missing %s",
		e.Determination, strings.Join(e.Missing, ", "))
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrUnknownFormat) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrMalformedIndexTable)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrIndexEntryNotFound)
}
