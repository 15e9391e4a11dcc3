package params

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofhir/fhir/r4"
	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
)

// Kind identifies the variant held by a Value.
type Kind int

// Value variants.
const (
	KindInvalid Kind = iota
	KindBoolean
	KindString
	KindInteger
	KindDecimal
	KindBase64Binary
	KindDate
	KindDateTime
	KindPrimitive // any other FHIR primitive, kept in its lexical form
	KindCoding
	KindCodeableConcept
	KindElement // any other complex datatype, kept as raw JSON
	KindResource
	KindPart
)

var kindNames = [...]string{
	KindInvalid:         "invalid",
	KindBoolean:         "boolean",
	KindString:          "string",
	KindInteger:         "integer",
	KindDecimal:         "decimal",
	KindBase64Binary:    "base64Binary",
	KindDate:            "date",
	KindDateTime:        "dateTime",
	KindPrimitive:       "primitive",
	KindCoding:          "Coding",
	KindCodeableConcept: "CodeableConcept",
	KindElement:         "element",
	KindResource:        "resource",
	KindPart:            "part",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// Value is the typed payload of one Parameters entry: exactly one of the
// value[x], resource or part slots.
//
// The zero Value is invalid.
type Value struct {
	kind     Kind
	typeName string // FHIR type name; resource type for KindResource
	v        any
	text     string // lexical form for decimals and primitives
	raw      []byte // JSON for elements and resources
}

// Kind returns the variant.
func (v Value) Kind() Kind { return v.kind }

// TypeName returns the FHIR type name of the value, e.g. "boolean", "code",
// "Coding". For resources it is the resource type; for parts it is empty.
func (v Value) TypeName() string { return v.typeName }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// WireKey returns the JSON member name the value is serialized under:
// "value" + TypeName with the first letter upper-cased, or "resource" / "part".
func (v Value) WireKey() string {
	switch v.kind {
	case KindResource:
		return "resource"
	case KindPart:
		return "part"
	default:
		return WireKey(v.typeName)
	}
}

// WireKey derives the value[x] member name for a FHIR type name.
func WireKey(typeName string) string {
	return "value" + upperFirst(typeName)
}

// Native returns the Go form of the value:
//
//	boolean       bool
//	string        string
//	integer       int
//	decimal       float64
//	base64Binary  []byte
//	date          civil.Date
//	dateTime      time.Time
//	Coding        r4.Coding
//	CodeableConcept r4.CodeableConcept
//
// Other primitives come back as Primitive, other datatypes as Element,
// resources as Resource, and parts as the nested []Parameter (Decode turns
// those into a *Map).
func (v Value) Native() any {
	return v.v
}

// Decimal returns the exact decimal for a KindDecimal value.
func (v Value) Decimal() (decimal.Decimal, bool) {
	if v.kind != KindDecimal {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(v.text)
	if err != nil {
		return decimal.NewFromFloat(v.v.(float64)), true
	}
	return d, true
}

// Raw returns the JSON form of an element or resource value.
func (v Value) Raw() []byte { return v.raw }

// --- Constructors ---

// BooleanValue wraps b as a FHIR boolean.
func BooleanValue(b bool) Value {
	return Value{kind: KindBoolean, typeName: "boolean", v: b}
}

// StringValue wraps s as a FHIR string.
func StringValue(s string) Value {
	return Value{kind: KindString, typeName: "string", v: s}
}

// IntegerValue wraps i as a FHIR integer.
func IntegerValue(i int) Value {
	return Value{kind: KindInteger, typeName: "integer", v: i}
}

// DecimalValue wraps f as a FHIR decimal.
func DecimalValue(f float64) Value {
	return decimalValue(f, 64)
}

// decimalValue formats f with the shortest digits that round-trip at
// bitSize, so a float32 keeps its float32 digits.
func decimalValue(f float64, bitSize int) Value {
	text := strconv.FormatFloat(f, 'f', -1, bitSize)
	if bitSize != 64 {
		f, _ = strconv.ParseFloat(text, 64)
	}
	return Value{kind: KindDecimal, typeName: "decimal", v: f, text: text}
}

// ExactDecimalValue wraps d as a FHIR decimal, keeping its exact digits on the wire.
func ExactDecimalValue(d decimal.Decimal) Value {
	return Value{kind: KindDecimal, typeName: "decimal", v: d.InexactFloat64(), text: d.String()}
}

// Base64Value wraps b as a FHIR base64Binary.
func Base64Value(b []byte) Value {
	return Value{kind: KindBase64Binary, typeName: "base64Binary", v: b}
}

// DateValue wraps d as a FHIR date.
func DateValue(d civil.Date) Value {
	return Value{kind: KindDate, typeName: "date", v: d}
}

// DateTimeValue wraps t as a FHIR dateTime.
func DateTimeValue(t time.Time) Value {
	return Value{kind: KindDateTime, typeName: "dateTime", v: t}
}

// PrimitiveValue wraps a FHIR primitive given in lexical form.
func PrimitiveValue(p Primitive) Value {
	return Value{kind: KindPrimitive, typeName: p.Type, v: p, text: p.Text}
}

// CodingValue wraps c as a FHIR Coding.
func CodingValue(c r4.Coding) Value {
	return Value{kind: KindCoding, typeName: "Coding", v: c}
}

// CodeableConceptValue wraps cc as a FHIR CodeableConcept.
func CodeableConceptValue(cc r4.CodeableConcept) Value {
	return Value{kind: KindCodeableConcept, typeName: "CodeableConcept", v: cc}
}

// ElementValue wraps a complex datatype given as JSON.
func ElementValue(e Element) Value {
	return Value{kind: KindElement, typeName: e.Type, v: e, raw: e.Raw}
}

// ResourceValue wraps a resource given as JSON. The JSON gets a
// resourceType member when it lacks one.
func ResourceValue(r Resource) Value {
	r.Raw = withResourceType(r.Raw, r.Type)
	return Value{kind: KindResource, typeName: r.Type, v: r, raw: r.Raw}
}

// PartValue wraps nested parameters.
func PartValue(parts []Parameter) Value {
	return Value{kind: KindPart, v: parts}
}

// --- Native to Value ---

type fhirTyped interface {
	FHIRTypeName() string
}

type resourceTyped interface {
	ResourceType() string
}

// ValueOf wraps a Go value into its FHIR variant. See Native for the mapping;
// integers must fit in 32 bits and floats must be finite.
func ValueOf(x any) (Value, error) {
	return valueOf("", x)
}

func valueOf(key string, x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, unsupported(key, x)
	case Value:
		if !t.IsValid() {
			return Value{}, unsupported(key, x)
		}
		return t, nil
	case bool:
		return BooleanValue(t), nil
	case string:
		return StringValue(t), nil
	case int:
		return integerOf(key, int64(t))
	case int8:
		return integerOf(key, int64(t))
	case int16:
		return integerOf(key, int64(t))
	case int32:
		return integerOf(key, int64(t))
	case int64:
		return integerOf(key, t)
	case uint8:
		return integerOf(key, int64(t))
	case uint16:
		return integerOf(key, int64(t))
	case uint32:
		return integerOf(key, int64(t))
	case float32:
		return decimalOf(key, float64(t), 32)
	case float64:
		return decimalOf(key, t, 64)
	case decimal.Decimal:
		return ExactDecimalValue(t), nil
	case []byte:
		return Base64Value(t), nil
	case civil.Date:
		if !t.IsValid() {
			return Value{}, unsupported(key, x)
		}
		return DateValue(t), nil
	case time.Time:
		return DateTimeValue(t), nil
	case Primitive:
		return PrimitiveValue(t), nil
	case r4.Coding:
		return CodingValue(t), nil
	case *r4.Coding:
		if t == nil {
			return Value{}, unsupported(key, x)
		}
		return CodingValue(*t), nil
	case r4.CodeableConcept:
		return CodeableConceptValue(t), nil
	case *r4.CodeableConcept:
		if t == nil {
			return Value{}, unsupported(key, x)
		}
		return CodeableConceptValue(*t), nil
	case r4.ValueSet:
		return resourceOf(key, "ValueSet", t)
	case *r4.ValueSet:
		if t == nil {
			return Value{}, unsupported(key, x)
		}
		return resourceOf(key, "ValueSet", t)
	case r4.Resource:
		if isNilPointer(t) {
			return Value{}, unsupported(key, x)
		}
		return resourceOf(key, t.GetResourceType(), t)
	case Resource:
		if t.Type == "" {
			return Value{}, unsupported(key, x)
		}
		return ResourceValue(t), nil
	case Element:
		return ElementValue(t), nil
	case *Map:
		if t == nil {
			return Value{}, unsupported(key, x)
		}
		p, err := Encode(t)
		if err != nil {
			return Value{}, err
		}
		return PartValue(p.Parameter), nil
	case resourceTyped:
		return resourceOf(key, t.ResourceType(), t)
	case fhirTyped:
		return typedOf(key, t)
	}
	if v, ok, err := datatypeOf(key, x); ok {
		return v, err
	}
	return Value{}, unsupported(key, x)
}

func integerOf(key string, i int64) (Value, error) {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return Value{}, unsupportedType(key, "integer out of 32-bit range")
	}
	return IntegerValue(int(i)), nil
}

func decimalOf(key string, f float64, bitSize int) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, unsupportedType(key, "non-finite float")
	}
	return decimalValue(f, bitSize), nil
}

// r4Datatypes maps the r4 complex datatypes allowed in Parameters.value[x]
// to their FHIR type names. Coding and CodeableConcept have their own kinds.
var r4Datatypes = map[reflect.Type]string{
	reflect.TypeOf(r4.Address{}):             "Address",
	reflect.TypeOf(r4.Age{}):                 "Age",
	reflect.TypeOf(r4.Annotation{}):          "Annotation",
	reflect.TypeOf(r4.Attachment{}):          "Attachment",
	reflect.TypeOf(r4.ContactDetail{}):       "ContactDetail",
	reflect.TypeOf(r4.ContactPoint{}):        "ContactPoint",
	reflect.TypeOf(r4.Contributor{}):         "Contributor",
	reflect.TypeOf(r4.Count{}):               "Count",
	reflect.TypeOf(r4.DataRequirement{}):     "DataRequirement",
	reflect.TypeOf(r4.Distance{}):            "Distance",
	reflect.TypeOf(r4.Dosage{}):              "Dosage",
	reflect.TypeOf(r4.Duration{}):            "Duration",
	reflect.TypeOf(r4.Expression{}):          "Expression",
	reflect.TypeOf(r4.HumanName{}):           "HumanName",
	reflect.TypeOf(r4.Identifier{}):          "Identifier",
	reflect.TypeOf(r4.Meta{}):                "Meta",
	reflect.TypeOf(r4.Money{}):               "Money",
	reflect.TypeOf(r4.MoneyQuantity{}):       "Quantity",
	reflect.TypeOf(r4.ParameterDefinition{}): "ParameterDefinition",
	reflect.TypeOf(r4.Period{}):              "Period",
	reflect.TypeOf(r4.Quantity{}):            "Quantity",
	reflect.TypeOf(r4.Range{}):               "Range",
	reflect.TypeOf(r4.Ratio{}):               "Ratio",
	reflect.TypeOf(r4.Reference{}):           "Reference",
	reflect.TypeOf(r4.RelatedArtifact{}):     "RelatedArtifact",
	reflect.TypeOf(r4.SampledData{}):         "SampledData",
	reflect.TypeOf(r4.Signature{}):           "Signature",
	reflect.TypeOf(r4.SimpleQuantity{}):      "Quantity",
	reflect.TypeOf(r4.Timing{}):              "Timing",
	reflect.TypeOf(r4.TriggerDefinition{}):   "TriggerDefinition",
	reflect.TypeOf(r4.UsageContext{}):        "UsageContext",
}

// datatypeOf encodes an r4 datatype, given by value or pointer, as an
// Element. ok is false when x is not one.
func datatypeOf(key string, x any) (v Value, ok bool, err error) {
	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Value{}, false, nil
		}
		rv = rv.Elem()
	}
	name, ok := r4Datatypes[rv.Type()]
	if !ok {
		return Value{}, false, nil
	}
	raw, err := json.Marshal(rv.Interface())
	if err != nil {
		return Value{}, true, fmt.Errorf("parameter %q: encode %s: %w", key, name, err)
	}
	return ElementValue(Element{Type: name, Raw: raw}), true, nil
}

func isNilPointer(x any) bool {
	rv := reflect.ValueOf(x)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func resourceOf(key, resourceType string, x any) (Value, error) {
	if resourceType == "" {
		return Value{}, unsupported(key, x)
	}
	raw, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("parameter %q: encode %s: %w", key, resourceType, err)
	}
	return ResourceValue(Resource{Type: resourceType, Raw: withResourceType(raw, resourceType)}), nil
}

func typedOf(key string, t fhirTyped) (Value, error) {
	name := t.FHIRTypeName()
	if name == "" {
		return Value{}, unsupported(key, t)
	}
	switch m := t.(type) {
	case json.Marshaler:
		raw, err := m.MarshalJSON()
		if err != nil {
			return Value{}, fmt.Errorf("parameter %q: encode %s: %w", key, name, err)
		}
		return ElementValue(Element{Type: name, Raw: raw}), nil
	case fmt.Stringer:
		return PrimitiveValue(Primitive{Type: name, Text: m.String()}), nil
	}
	return Value{}, unsupported(key, t)
}

// --- Value to JSON ---

// MarshalJSON encodes the value as it appears under its wire key.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBoolean:
		return strconv.AppendBool(nil, v.v.(bool)), nil
	case KindString:
		return json.Marshal(v.v.(string))
	case KindInteger:
		return strconv.AppendInt(nil, int64(v.v.(int)), 10), nil
	case KindDecimal:
		return []byte(v.text), nil
	case KindBase64Binary:
		return json.Marshal(base64.StdEncoding.EncodeToString(v.v.([]byte)))
	case KindDate:
		return json.Marshal(v.v.(civil.Date).String())
	case KindDateTime:
		return json.Marshal(v.v.(time.Time).Format(time.RFC3339Nano))
	case KindPrimitive:
		if bareJSONPrimitives[v.typeName] {
			return []byte(v.text), nil
		}
		return json.Marshal(v.text)
	case KindCoding, KindCodeableConcept:
		return json.Marshal(v.v)
	case KindElement, KindResource:
		if len(v.raw) == 0 {
			return []byte("{}"), nil
		}
		return v.raw, nil
	case KindPart:
		return json.Marshal(v.v.([]Parameter))
	}
	return nil, fmt.Errorf("marshal invalid parameter value")
}

func unsupported(key string, x any) error {
	return unsupportedType(key, fmt.Sprintf("%T", x))
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'A' && c <= 'Z' {
		return string(c-'A'+'a') + s[1:]
	}
	return s
}
