// Package snomed builds SNOMED CT codings from compositional grammar tokens
// such as "102263004 |Eggs (edible)|".
package snomed

import (
	"errors"
	"strings"

	"github.com/gofhir/fhir/r4"
)

// System is the SNOMED CT code system URI.
const System = "http://snomed.info/sct"

// ErrEmptyCode is returned when a token carries no concept id.
var ErrEmptyCode = errors.New("snomed: empty concept id")

// Coding returns a SNOMED CT coding. An empty display is omitted.
func Coding(code, display string) r4.Coding {
	system := System
	c := r4.Coding{System: &system, Code: &code}
	if display != "" {
		c.Display = &display
	}
	return c
}

// ParseCoding parses "code" or "code |term|" into a SNOMED CT coding.
// Surrounding whitespace is trimmed from both parts; text after the closing
// pipe is ignored.
func ParseCoding(token string) (r4.Coding, error) {
	code, rest, hasTerm := strings.Cut(token, "|")
	code = strings.TrimSpace(code)
	if code == "" {
		return r4.Coding{}, ErrEmptyCode
	}
	if !hasTerm {
		return Coding(code, ""), nil
	}
	term, _, _ := strings.Cut(rest, "|")
	return Coding(code, strings.TrimSpace(term)), nil
}

// IsSNOMED reports whether c belongs to SNOMED CT.
func IsSNOMED(c r4.Coding) bool {
	return c.System != nil && *c.System == System
}
