package snomed

import (
	"errors"
	"testing"

	"github.com/gofhir/fhir/r4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoding(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		code    string
		display string
	}{
		{"with term", "102263004 |Eggs (edible)|", "102263004", "Eggs (edible)"},
		{"code only", "102263004", "102263004", ""},
		{"padded", "  22298006 | Myocardial infarction |  ", "22298006", "Myocardial infarction"},
		{"unterminated term", "22298006 |Myocardial infarction", "22298006", "Myocardial infarction"},
		{"empty term", "22298006 ||", "22298006", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCoding(tt.token)
			require.NoError(t, err)
			require.NotNil(t, c.System)
			assert.Equal(t, System, *c.System)
			assert.Equal(t, tt.code, *c.Code)
			if tt.display == "" {
				assert.Nil(t, c.Display)
			} else {
				require.NotNil(t, c.Display)
				assert.Equal(t, tt.display, *c.Display)
			}
		})
	}
}

func TestParseCoding_EmptyCode(t *testing.T) {
	for _, token := range []string{"", "   ", "|Eggs (edible)|"} {
		_, err := ParseCoding(token)
		assert.True(t, errors.Is(err, ErrEmptyCode), "token %q", token)
	}
}

func TestIsSNOMED(t *testing.T) {
	assert.True(t, IsSNOMED(Coding("102263004", "")))

	other := "http://loinc.org"
	assert.False(t, IsSNOMED(r4.Coding{System: &other}))
	assert.False(t, IsSNOMED(r4.Coding{}))
}
