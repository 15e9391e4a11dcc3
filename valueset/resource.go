// Package valueset implements the FHIR ValueSet terminology operations
// $expand and $validate-code, iteration over expansions and membership tests.
//
// Every operation is a single blocking round trip. Nothing is cached:
// iterating or testing membership always asks the server again, so results
// reflect the server's current view of code status.
package valueset

import (
	"context"
	"fmt"
	"iter"
	"net/http"

	"github.com/gofhir/fhir/r4"

	txclient "github.com/gofhir/txclient"
	"github.com/gofhir/txclient/params"
	"github.com/gofhir/txclient/rest"
)

const (
	// ResourceType is the FHIR resource type served by this package.
	ResourceType = "ValueSet"

	// OperationExpand is the $expand operation name.
	OperationExpand = "$expand"

	// OperationValidateCode is the $validate-code operation name.
	OperationValidateCode = "$validate-code"
)

// Executor performs one raw operation round trip. *rest.Client implements it.
type Executor interface {
	Execute(ctx context.Context, path, method string, body []byte) ([]byte, error)
}

// Resource addresses one ValueSet on a terminology server, either by id
// (instance level, "ValueSet/{id}/$op") or by canonical url (type level,
// "ValueSet/$op" with url and valueSetVersion sent as parameters).
type Resource struct {
	exec    Executor
	id      string
	url     string
	version string
}

// New returns the ValueSet with the given server id.
func New(exec Executor, id string) *Resource {
	return &Resource{exec: exec, id: id}
}

// ByURL returns the ValueSet with the given canonical url and, optionally, version.
func ByURL(exec Executor, url, version string) *Resource {
	return &Resource{exec: exec, url: url, version: version}
}

// ID returns the server id, empty for type-level resources.
func (r *Resource) ID() string { return r.id }

// URL returns the canonical url, empty for instance-level resources.
func (r *Resource) URL() string { return r.url }

// Version returns the ValueSet version, if any.
func (r *Resource) Version() string { return r.version }

// Reference returns "ValueSet/{id}" or the canonical "url|version".
func (r *Resource) Reference() string {
	if r.id != "" {
		return ResourceType + "/" + r.id
	}
	if r.version != "" {
		return r.url + "|" + r.version
	}
	return r.url
}

func (r *Resource) path(operation string) string {
	if r.id != "" {
		return ResourceType + "/" + r.id + "/" + operation
	}
	return ResourceType + "/" + operation
}

// body encodes p as a Parameters body. Type-level resources lead with
// url and valueSetVersion unless p sets them itself.
func (r *Resource) body(p *params.Map) ([]byte, error) {
	m := p
	if r.id == "" {
		m = params.NewMap()
		if r.url != "" {
			m.Set("url", params.URI(r.url))
		}
		if r.version != "" {
			m.Set("valueSetVersion", r.version)
		}
		for k, v := range p.All() {
			m.Set(k, v)
		}
	}
	return params.Marshal(m)
}

// Expand runs $expand with p as expansion options (count, offset,
// activeOnly, filter, ...) and returns the expanded ValueSet as sent by the
// server. p may be nil.
func (r *Resource) Expand(ctx context.Context, p *params.Map) (*r4.ValueSet, error) {
	body, err := r.body(p)
	if err != nil {
		return nil, err
	}

	raw, err := r.exec.Execute(ctx, r.path(OperationExpand), http.MethodPost, body)
	if err != nil {
		return nil, err
	}

	var vs r4.ValueSet
	if err := rest.Parse(raw, &vs); err != nil {
		return nil, err
	}
	return &vs, nil
}

// ValidateCodeInput holds the $validate-code arguments. Coding and
// CodeableConcept are each sent when set; callers normally set one.
type ValidateCodeInput struct {
	Coding          *r4.Coding
	CodeableConcept *r4.CodeableConcept

	// Extra holds further $validate-code parameters, e.g. display or date.
	Extra *params.Map
}

func (in ValidateCodeInput) params() *params.Map {
	m := params.NewMap()
	if in.Coding != nil {
		m.Set("coding", in.Coding)
	}
	if in.CodeableConcept != nil {
		m.Set("codeableConcept", in.CodeableConcept)
	}
	for k, v := range in.Extra.All() {
		m.Set(k, v)
	}
	return m
}

// ValidateCode runs $validate-code and returns the decoded response
// parameters, which include at least "result".
func (r *Resource) ValidateCode(ctx context.Context, in ValidateCodeInput) (*params.Map, error) {
	body, err := r.body(in.params())
	if err != nil {
		return nil, err
	}

	raw, err := r.exec.Execute(ctx, r.path(OperationValidateCode), http.MethodPost, body)
	if err != nil {
		return nil, err
	}

	var p params.Parameters
	if err := rest.Parse(raw, &p); err != nil {
		return nil, err
	}
	return params.Decode(&p)
}

// Codings expands the ValueSet and iterates over its codings in pre-order.
// Each range over the sequence runs a fresh $expand. An expand failure is
// yielded once as the error of a zero Coding.
func (r *Resource) Codings(ctx context.Context) iter.Seq2[r4.Coding, error] {
	return func(yield func(r4.Coding, error) bool) {
		vs, err := r.Expand(ctx, nil)
		if err != nil {
			yield(r4.Coding{}, err)
			return
		}
		for c := range Walk(ContainsOf(vs)) {
			if !yield(c, nil) {
				return
			}
		}
	}
}

// Contains reports whether term is a member of the ValueSet, as decided by
// $validate-code. term must be an r4.Coding or r4.CodeableConcept (or a
// pointer to one); anything else fails with *txclient.UnsupportedTermTypeError
// without contacting the server.
func (r *Resource) Contains(ctx context.Context, term any) (bool, error) {
	t, err := TermOf(term)
	if err != nil {
		return false, err
	}
	return r.ContainsTerm(ctx, t)
}

// ContainsTerm reports whether t is a member of the ValueSet.
func (r *Resource) ContainsTerm(ctx context.Context, t Term) (bool, error) {
	m, err := r.ValidateCode(ctx, t.input())
	if err != nil {
		return false, err
	}
	result, ok := m.Bool("result")
	if !ok {
		return false, fmt.Errorf("%w: $validate-code response has no boolean result", txclient.ErrMalformedParameters)
	}
	return result, nil
}
