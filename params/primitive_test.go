package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrimitiveConstructors(t *testing.T) {
	tests := []struct {
		p        Primitive
		wantType string
	}{
		{Code("a"), "code"},
		{URI("a"), "uri"},
		{URL("a"), "url"},
		{Canonical("a"), "canonical"},
		{ID("a"), "id"},
		{Markdown("a"), "markdown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantType, tt.p.FHIRTypeName())
		assert.Equal(t, "a", tt.p.String())
	}
}

func TestWithResourceType(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"already typed", `{"resourceType":"ValueSet","id":"1"}`, `{"resourceType":"ValueSet","id":"1"}`},
		{"missing type", `{"id":"1"}`, `{"resourceType":"ValueSet","id":"1"}`},
		{"empty object", `{}`, `{"resourceType":"ValueSet"}`},
		{"empty raw", ``, `{"resourceType":"ValueSet"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, string(withResourceType([]byte(tt.raw), "ValueSet")))
		})
	}
}

func TestElement_EmptyRaw(t *testing.T) {
	data, err := Element{Type: "Quantity"}.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
