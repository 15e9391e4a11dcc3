package params

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofhir/fhir/r4"
	"github.com/golang-sql/civil"

	txclient "github.com/gofhir/txclient"
)

// ResourceTypeParameters is the resourceType of a Parameters resource.
const ResourceTypeParameters = "Parameters"

// Parameters is the FHIR Parameters resource: an ordered list of named,
// typed values.
type Parameters struct {
	ID        string
	Parameter []Parameter
}

// Parameter is one Parameters.parameter entry.
type Parameter struct {
	Name  string
	Value Value
}

type parametersJSON struct {
	ResourceType string      `json:"resourceType"`
	ID           string      `json:"id,omitempty"`
	Parameter    []Parameter `json:"parameter,omitempty"`
}

// MarshalJSON encodes p as a FHIR Parameters resource.
func (p Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(parametersJSON{
		ResourceType: ResourceTypeParameters,
		ID:           p.ID,
		Parameter:    p.Parameter,
	})
}

// UnmarshalJSON decodes a FHIR Parameters resource. A missing resourceType
// is accepted; any other resourceType is rejected.
func (p *Parameters) UnmarshalJSON(data []byte) error {
	var w struct {
		ResourceType string            `json:"resourceType"`
		ID           string            `json:"id"`
		Parameter    []json.RawMessage `json:"parameter"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", txclient.ErrMalformedParameters, err)
	}
	if w.ResourceType != "" && w.ResourceType != ResourceTypeParameters {
		return fmt.Errorf("%w: resourceType is %q", txclient.ErrMalformedParameters, w.ResourceType)
	}

	entries := make([]Parameter, len(w.Parameter))
	for i, raw := range w.Parameter {
		if err := entries[i].UnmarshalJSON(raw); err != nil {
			return err
		}
	}
	p.ID = w.ID
	p.Parameter = entries
	return nil
}

// MarshalJSON encodes the entry as {"name": ..., <wire key>: ...}.
func (p Parameter) MarshalJSON() ([]byte, error) {
	if !p.Value.IsValid() {
		return nil, fmt.Errorf("parameter %q has no value", p.Name)
	}
	name, err := json.Marshal(p.Name)
	if err != nil {
		return nil, err
	}
	value, err := p.Value.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.WriteString(`{"name":`)
	b.Write(name)
	b.WriteString(`,"`)
	b.WriteString(p.Value.WireKey())
	b.WriteString(`":`)
	b.Write(value)
	b.WriteByte('}')
	return b.Bytes(), nil
}

// ignoredMembers are entry members that carry no parameter value.
var ignoredMembers = map[string]bool{
	"name":              true,
	"id":                true,
	"extension":         true,
	"modifierExtension": true,
}

// UnmarshalJSON decodes one entry. The entry must have a name and exactly
// one of the value[x], resource or part members.
func (p *Parameter) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("%w: %v", txclient.ErrMalformedParameters, err)
	}

	rawName, ok := members["name"]
	if !ok {
		return fmt.Errorf("%w: parameter without name", txclient.ErrMalformedParameters)
	}
	var name string
	if err := json.Unmarshal(rawName, &name); err != nil || name == "" {
		return fmt.Errorf("%w: parameter without name", txclient.ErrMalformedParameters)
	}

	var slot string
	for key := range members {
		// "_valueX" carries primitive extensions, not a value.
		if ignoredMembers[key] || strings.HasPrefix(key, "_") {
			continue
		}
		if key != "resource" && key != "part" && !strings.HasPrefix(key, "value") {
			continue
		}
		if slot != "" {
			return fmt.Errorf("%w: parameter %q has several values (%s, %s)", txclient.ErrMalformedParameters, name, slot, key)
		}
		slot = key
	}
	if slot == "" {
		return fmt.Errorf("%w: parameter %q has no value", txclient.ErrMalformedParameters, name)
	}

	v, err := decodeValue(slot, members[slot])
	if err != nil {
		return fmt.Errorf("%w: parameter %q: %v", txclient.ErrMalformedParameters, name, err)
	}
	p.Name = name
	p.Value = v
	return nil
}

// decodeValue reads the JSON found under wire key into a Value.
func decodeValue(key string, raw json.RawMessage) (Value, error) {
	switch key {
	case "resource":
		var probe struct {
			ResourceType string `json:"resourceType"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return Value{}, err
		}
		if probe.ResourceType == "" {
			return Value{}, fmt.Errorf("resource without resourceType")
		}
		return ResourceValue(Resource{Type: probe.ResourceType, Raw: cloneBytes(raw)}), nil
	case "part":
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return Value{}, err
		}
		parts := make([]Parameter, len(items))
		for i, item := range items {
			if err := parts[i].UnmarshalJSON(item); err != nil {
				return Value{}, err
			}
		}
		return PartValue(parts), nil
	}

	suffix := strings.TrimPrefix(key, "value")
	if suffix == "" {
		return Value{}, fmt.Errorf("unknown member %q", key)
	}
	if name := lowerFirst(suffix); primitiveTypes[name] {
		return decodePrimitive(name, raw)
	}

	switch suffix {
	case "Coding":
		var c r4.Coding
		if err := json.Unmarshal(raw, &c); err != nil {
			return Value{}, err
		}
		return CodingValue(c), nil
	case "CodeableConcept":
		var cc r4.CodeableConcept
		if err := json.Unmarshal(raw, &cc); err != nil {
			return Value{}, err
		}
		return CodeableConceptValue(cc), nil
	}
	return ElementValue(Element{Type: suffix, Raw: cloneBytes(raw)}), nil
}

func decodePrimitive(typeName string, raw json.RawMessage) (Value, error) {
	text := string(bytes.TrimSpace(raw))

	switch typeName {
	case "boolean":
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, fmt.Errorf("invalid boolean %s", text)
		}
		return BooleanValue(b), nil
	case "integer", "unsignedInt", "positiveInt":
		i, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("invalid %s %s", typeName, text)
		}
		return IntegerValue(int(i)), nil
	case "decimal":
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid decimal %s", text)
		}
		return Value{kind: KindDecimal, typeName: "decimal", v: f, text: text}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return Value{}, fmt.Errorf("invalid %s: %v", typeName, err)
	}

	switch typeName {
	case "string":
		return StringValue(s), nil
	case "base64Binary":
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Value{}, fmt.Errorf("invalid base64Binary: %v", err)
		}
		return Base64Value(b), nil
	case "date":
		// Partial dates (YYYY, YYYY-MM) have no civil.Date form.
		if d, err := civil.ParseDate(s); err == nil {
			return DateValue(d), nil
		}
	case "dateTime":
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return DateTimeValue(t), nil
		}
	}
	return PrimitiveValue(Primitive{Type: typeName, Text: s}), nil
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
