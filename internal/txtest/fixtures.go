package txtest

import (
	"github.com/gofhir/fhir/r4"
)

// FHIRVersionSystem is the code system of FHIR release numbers.
const FHIRVersionSystem = "http://hl7.org/fhir/FHIR-version"

// FHIRVersionURL is the canonical url of the FHIR-version ValueSet.
const FHIRVersionURL = "http://hl7.org/fhir/ValueSet/FHIR-version"

// Node builds an expansion entry with optional children.
func Node(system, code, display string, children ...r4.ValueSetExpansionContains) r4.ValueSetExpansionContains {
	n := r4.ValueSetExpansionContains{
		System:   ptr(system),
		Code:     ptr(code),
		Contains: children,
	}
	if display != "" {
		n.Display = ptr(display)
	}
	return n
}

// Expanded builds a ValueSet with url that already carries an expansion.
func Expanded(url string, contains ...r4.ValueSetExpansionContains) *r4.ValueSet {
	return &r4.ValueSet{
		Url:       ptr(url),
		Expansion: &r4.ValueSetExpansion{Contains: contains},
	}
}

// FHIRVersionValueSet returns a small FHIR-version ValueSet, grouped by
// major release:
//
//	4.0.0 [4.0.1]
//	4.3.0
//	5.0.0
func FHIRVersionValueSet() *r4.ValueSet {
	return Expanded(FHIRVersionURL,
		Node(FHIRVersionSystem, "4.0.0", "4.0.0",
			Node(FHIRVersionSystem, "4.0.1", "4.0.1"),
		),
		Node(FHIRVersionSystem, "4.3.0", "4.3.0"),
		Node(FHIRVersionSystem, "5.0.0", "5.0.0"),
	)
}

// ABCD returns the ValueSet whose expansion is the tree [A[B,C], D].
func ABCD(url string) *r4.ValueSet {
	const system = "http://example.org/letters"
	return Expanded(url,
		Node(system, "A", "Alpha",
			Node(system, "B", "Bravo"),
			Node(system, "C", "Charlie"),
		),
		Node(system, "D", "Delta"),
	)
}
