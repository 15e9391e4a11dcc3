// Package params converts between ordered Go maps and the FHIR Parameters
// resource used as input and output of FHIR operations.
//
// Each map value becomes one parameter entry whose value is serialized under
// a type-derived member name ("valueBoolean", "valueCoding", ...). Native Go
// values are mapped as follows:
//
//	bool                     valueBoolean
//	string                   valueString
//	int, int8..int64, uint8..uint32   valueInteger
//	float32, float64, decimal.Decimal valueDecimal
//	[]byte                   valueBase64Binary
//	civil.Date               valueDate
//	time.Time                valueDateTime
//
// Primitive carries the remaining FHIR primitives (code, uri, ...), r4.Coding
// and r4.CodeableConcept map to their datatypes, resources go into the
// resource member and a nested *Map into part.
package params

import (
	txclient "github.com/gofhir/txclient"
)

// Encode converts m into a Parameters resource, one entry per key in map
// order. A value without a FHIR mapping fails with
// *txclient.UnsupportedValueTypeError.
func Encode(m *Map) (*Parameters, error) {
	p := &Parameters{Parameter: make([]Parameter, 0, m.Len())}
	for key, x := range m.All() {
		v, err := valueOf(key, x)
		if err != nil {
			return nil, err
		}
		p.Parameter = append(p.Parameter, Parameter{Name: key, Value: v})
	}
	return p, nil
}

// Decode converts p into a Map of native values, in entry order. A repeated
// name fails with *txclient.DuplicateParameterNameError and no map is
// returned. Nested parts decode into *Map with the same rules.
func Decode(p *Parameters) (*Map, error) {
	m := NewMap()
	if p == nil {
		return m, nil
	}
	for _, param := range p.Parameter {
		if m.Has(param.Name) {
			return nil, &txclient.DuplicateParameterNameError{Name: param.Name}
		}
		native, err := nativeOf(param.Value)
		if err != nil {
			return nil, err
		}
		m.Set(param.Name, native)
	}
	return m, nil
}

func nativeOf(v Value) (any, error) {
	if v.kind != KindPart {
		return v.Native(), nil
	}
	return Decode(&Parameters{Parameter: v.v.([]Parameter)})
}

// Marshal encodes m and serializes it as Parameters JSON.
func Marshal(m *Map) ([]byte, error) {
	p, err := Encode(m)
	if err != nil {
		return nil, err
	}
	return p.MarshalJSON()
}

// Unmarshal parses Parameters JSON and decodes it into a Map.
func Unmarshal(data []byte) (*Map, error) {
	var p Parameters
	if err := p.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return Decode(&p)
}

func unsupportedType(key, typ string) error {
	return &txclient.UnsupportedValueTypeError{Key: key, Type: typ}
}
