package params

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// Primitive is a FHIR primitive held in its lexical form, for the primitive
// types that have no dedicated Go mapping (code, uri, canonical, id, ...).
type Primitive struct {
	Type string
	Text string
}

// FHIRTypeName returns the FHIR primitive type name.
func (p Primitive) FHIRTypeName() string { return p.Type }

// String returns the lexical form.
func (p Primitive) String() string { return p.Text }

// Code returns a FHIR code.
func Code(s string) Primitive { return Primitive{Type: "code", Text: s} }

// URI returns a FHIR uri.
func URI(s string) Primitive { return Primitive{Type: "uri", Text: s} }

// URL returns a FHIR url.
func URL(s string) Primitive { return Primitive{Type: "url", Text: s} }

// Canonical returns a FHIR canonical.
func Canonical(s string) Primitive { return Primitive{Type: "canonical", Text: s} }

// ID returns a FHIR id.
func ID(s string) Primitive { return Primitive{Type: "id", Text: s} }

// Markdown returns a FHIR markdown.
func Markdown(s string) Primitive { return Primitive{Type: "markdown", Text: s} }

// Element is a complex FHIR datatype without a dedicated Go mapping,
// held as its JSON form.
type Element struct {
	Type string
	Raw  []byte
}

// FHIRTypeName returns the datatype name.
func (e Element) FHIRTypeName() string { return e.Type }

// MarshalJSON returns the raw JSON.
func (e Element) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return []byte("{}"), nil
	}
	return e.Raw, nil
}

// Decode unmarshals the element into out.
func (e Element) Decode(out any) error {
	return json.Unmarshal(e.Raw, out)
}

// Resource is a FHIR resource carried in a parameter's resource slot,
// held as its JSON form.
type Resource struct {
	Type string
	Raw  []byte
}

// ResourceType returns the resource type.
func (r Resource) ResourceType() string { return r.Type }

// MarshalJSON returns the raw JSON.
func (r Resource) MarshalJSON() ([]byte, error) {
	return withResourceType(r.Raw, r.Type), nil
}

// Decode unmarshals the resource into out, e.g. a *r4.ValueSet.
func (r Resource) Decode(out any) error {
	return json.Unmarshal(r.Raw, out)
}

// primitiveTypes lists the FHIR primitive type names. A value[x] member whose
// suffix is not one of these carries a complex datatype.
var primitiveTypes = map[string]bool{
	"base64Binary": true,
	"boolean":      true,
	"canonical":    true,
	"code":         true,
	"date":         true,
	"dateTime":     true,
	"decimal":      true,
	"id":           true,
	"instant":      true,
	"integer":      true,
	"integer64":    true,
	"markdown":     true,
	"oid":          true,
	"positiveInt":  true,
	"string":       true,
	"time":         true,
	"unsignedInt":  true,
	"uri":          true,
	"url":          true,
	"uuid":         true,
}

// bareJSONPrimitives are the primitives serialized as JSON numbers or booleans.
var bareJSONPrimitives = map[string]bool{
	"boolean":     true,
	"decimal":     true,
	"integer":     true,
	"positiveInt": true,
	"unsignedInt": true,
}

// withResourceType makes sure raw is a JSON object carrying resourceType.
func withResourceType(raw []byte, resourceType string) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) < 2 || trimmed[0] != '{' {
		return []byte(`{"resourceType":` + strconv.Quote(resourceType) + `}`)
	}

	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(trimmed, &probe); err == nil && probe.ResourceType != "" {
		return trimmed
	}

	var b bytes.Buffer
	b.WriteString(`{"resourceType":`)
	b.WriteString(strconv.Quote(resourceType))
	body := bytes.TrimSpace(trimmed[1:])
	if len(body) > 0 && body[0] != '}' {
		b.WriteByte(',')
	}
	b.Write(body)
	return b.Bytes()
}
