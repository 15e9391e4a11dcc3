package valueset

import (
	"context"
	"fmt"

	txclient "github.com/gofhir/txclient"
	"github.com/gofhir/txclient/params"
)

// ValidateCodeResult is a typed view of a $validate-code response.
type ValidateCodeResult struct {
	Result  bool
	Message string
	Display string
	Code    string
	System  string
}

// ParseValidateCodeResult reads the well-known $validate-code output
// parameters from m. Only result is required.
func ParseValidateCodeResult(m *params.Map) (*ValidateCodeResult, error) {
	result, ok := m.Bool("result")
	if !ok {
		return nil, fmt.Errorf("%w: $validate-code response has no boolean result", txclient.ErrMalformedParameters)
	}

	r := &ValidateCodeResult{Result: result}
	r.Message, _ = m.String("message")
	r.Display, _ = m.String("display")
	r.Code, _ = m.String("code")
	r.System, _ = m.String("system")
	return r, nil
}

// Validate runs $validate-code and returns the typed result.
func (r *Resource) Validate(ctx context.Context, in ValidateCodeInput) (*ValidateCodeResult, error) {
	m, err := r.ValidateCode(ctx, in)
	if err != nil {
		return nil, err
	}
	return ParseValidateCodeResult(m)
}
