package txclient

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Concrete error types below match them with errors.Is.
var (
	// ErrUnsupportedValueType is returned when a parameter value has no FHIR type mapping.
	ErrUnsupportedValueType = errors.New("unsupported parameter value type")

	// ErrDuplicateParameterName is returned when a Parameters resource repeats a name.
	ErrDuplicateParameterName = errors.New("duplicate parameter name")

	// ErrUnsupportedTermType is returned when a membership test gets something
	// other than a Coding or CodeableConcept.
	ErrUnsupportedTermType = errors.New("unsupported term type")

	// ErrOperationFailed is returned for transport failures and non-success responses.
	ErrOperationFailed = errors.New("operation failed")

	// ErrMalformedParameters is returned when a Parameters resource cannot be read.
	ErrMalformedParameters = errors.New("malformed Parameters resource")

	// ErrResourceTypeNotAllowed is returned when a terminology client is asked
	// for a resource type it does not serve.
	ErrResourceTypeNotAllowed = errors.New("resource type not allowed")
)

// UnsupportedValueTypeError reports a parameter whose value cannot be encoded.
type UnsupportedValueTypeError struct {
	Key  string
	Type string
}

func (e *UnsupportedValueTypeError) Error() string {
	return fmt.Sprintf("parameter %q: unsupported value type %s", e.Key, e.Type)
}

// Is reports whether target is ErrUnsupportedValueType.
func (e *UnsupportedValueTypeError) Is(target error) bool {
	return target == ErrUnsupportedValueType
}

// DuplicateParameterNameError reports a name that occurs twice in a Parameters resource.
type DuplicateParameterNameError struct {
	Name string
}

func (e *DuplicateParameterNameError) Error() string {
	return fmt.Sprintf("duplicate parameter name %q", e.Name)
}

// Is reports whether target is ErrDuplicateParameterName.
func (e *DuplicateParameterNameError) Is(target error) bool {
	return target == ErrDuplicateParameterName
}

// UnsupportedTermTypeError reports a membership test with an unusable term.
type UnsupportedTermTypeError struct {
	Type string
}

func (e *UnsupportedTermTypeError) Error() string {
	return fmt.Sprintf("unsupported term type %s: expected Coding or CodeableConcept", e.Type)
}

// Is reports whether target is ErrUnsupportedTermType.
func (e *UnsupportedTermTypeError) Is(target error) bool {
	return target == ErrUnsupportedTermType
}

// OperationFailedError reports a failed round trip to the terminology server.
// StatusCode is zero when no response was received; Err then holds the cause.
type OperationFailedError struct {
	Operation  string
	Method     string
	StatusCode int
	Outcome    *OperationOutcome
	Err        error
}

func (e *OperationFailedError) Error() string {
	var b strings.Builder
	b.WriteString("operation ")
	b.WriteString(e.Method)
	b.WriteString(" ")
	b.WriteString(e.Operation)
	b.WriteString(" failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " with status %d", e.StatusCode)
	}
	if e.Outcome != nil && len(e.Outcome.Issues) > 0 {
		b.WriteString(": ")
		b.WriteString(e.Outcome.Issues[0].String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is reports whether target is ErrOperationFailed.
func (e *OperationFailedError) Is(target error) bool {
	return target == ErrOperationFailed
}

func (e *OperationFailedError) Unwrap() error {
	return e.Err
}
