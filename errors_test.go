package txclient

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestErrors_IsSentinel(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"unsupported value", &UnsupportedValueTypeError{Key: "k", Type: "chan int"}, ErrUnsupportedValueType},
		{"duplicate name", &DuplicateParameterNameError{Name: "result"}, ErrDuplicateParameterName},
		{"unsupported term", &UnsupportedTermTypeError{Type: "string"}, ErrUnsupportedTermType},
		{"operation failed", &OperationFailedError{Operation: "$expand", Method: "POST", StatusCode: 404}, ErrOperationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%T, %v) = false", tt.err, tt.target)
			}
			wrapped := fmt.Errorf("context: %w", tt.err)
			if !errors.Is(wrapped, tt.target) {
				t.Errorf("wrapped errors.Is(%T, %v) = false", tt.err, tt.target)
			}
			if errors.Is(tt.err, ErrMalformedParameters) {
				t.Errorf("%T should not match ErrMalformedParameters", tt.err)
			}
		})
	}
}

func TestOperationFailedError_Message(t *testing.T) {
	err := &OperationFailedError{
		Operation:  "ValueSet/nope/$expand",
		Method:     "POST",
		StatusCode: 404,
		Outcome:    NewOperationOutcome(Error(IssueTypeNotFound).Diagnostics("ValueSet/nope not found").Build()),
	}

	msg := err.Error()
	for _, want := range []string{"POST", "ValueSet/nope/$expand", "status 404", "ValueSet/nope not found"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q; missing %q", msg, want)
		}
	}
}

func TestOperationFailedError_Unwrap(t *testing.T) {
	err := &OperationFailedError{Operation: "$expand", Method: "POST", Err: io.ErrUnexpectedEOF}

	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is(err, io.ErrUnexpectedEOF) = false")
	}
	if strings.Contains(err.Error(), "status") {
		t.Errorf("Error() = %q; should not mention a status without a response", err.Error())
	}

	var opErr *OperationFailedError
	if !errors.As(fmt.Errorf("wrap: %w", err), &opErr) {
		t.Fatal("errors.As failed")
	}
	if opErr.Operation != "$expand" {
		t.Errorf("Operation = %q", opErr.Operation)
	}
}
