package valueset

import (
	"context"
	"iter"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/txclient/params"
)

// Small interfaces over Resource, so callers can depend on just the
// operation they use.

// Expander expands a ValueSet.
type Expander interface {
	Expand(ctx context.Context, p *params.Map) (*r4.ValueSet, error)
}

// CodeValidator validates codes against a ValueSet.
type CodeValidator interface {
	ValidateCode(ctx context.Context, in ValidateCodeInput) (*params.Map, error)
}

// MembershipChecker tests whether a Coding or CodeableConcept is in a ValueSet.
type MembershipChecker interface {
	Contains(ctx context.Context, term any) (bool, error)
}

// CodingSource iterates over the codings of a ValueSet.
type CodingSource interface {
	Codings(ctx context.Context) iter.Seq2[r4.Coding, error]
}

// Service combines all ValueSet operations.
type Service interface {
	Expander
	CodeValidator
	MembershipChecker
	CodingSource
}

var _ Service = (*Resource)(nil)
