package terminology

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofhir/fhir/r4"

	txclient "github.com/gofhir/txclient"
	"github.com/gofhir/txclient/params"
	"github.com/gofhir/txclient/valueset"
)

// Provider answers code validation questions for code systems that cannot
// be expanded locally (SNOMED CT, LOINC, ICD-10). Validators plug one in to
// delegate those checks to a terminology server. *Client implements it.
type Provider interface {
	// ValidateCode checks if a code is valid in a given code system.
	ValidateCode(ctx context.Context, system, code string) (bool, error)

	// ValidateCodeInValueSet checks if a code is a member of a ValueSet.
	// found is false when the server does not know the ValueSet.
	ValidateCodeInValueSet(ctx context.Context, system, code, valueSetURL string) (valid bool, found bool, err error)
}

var _ Provider = (*Client)(nil)

// ValidateCode runs CodeSystem/$validate-code for system and code.
func (c *Client) ValidateCode(ctx context.Context, system, code string) (bool, error) {
	in := params.NewMap().
		Set("url", params.URI(system)).
		Set("code", params.Code(code))

	out, err := c.Invoke(ctx, ResourceTypeCodeSystem, "", valueset.OperationValidateCode, in)
	if err != nil {
		return false, err
	}
	result, ok := out.Bool("result")
	if !ok {
		return false, fmt.Errorf("%w: $validate-code response has no boolean result", txclient.ErrMalformedParameters)
	}
	return result, nil
}

// ValidateCodeInValueSet runs ValueSet/$validate-code against the ValueSet
// with canonical valueSetURL. A 404 from the server reports found = false
// instead of an error.
func (c *Client) ValidateCodeInValueSet(ctx context.Context, system, code, valueSetURL string) (bool, bool, error) {
	coding := r4.Coding{Code: &code}
	if system != "" {
		coding.System = &system
	}

	valid, err := c.ValueSetByURL(valueSetURL, "").ContainsTerm(ctx, valueset.CodingTerm(coding))
	if err != nil {
		var opErr *txclient.OperationFailedError
		if errors.As(err, &opErr) && opErr.StatusCode == http.StatusNotFound {
			return false, false, nil
		}
		return false, false, err
	}
	return valid, true, nil
}
