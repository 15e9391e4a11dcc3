package valueset

import (
	"fmt"

	"github.com/gofhir/fhir/r4"

	txclient "github.com/gofhir/txclient"
)

// Term is the subject of a membership test: either a Coding or a
// CodeableConcept.
type Term struct {
	coding  *r4.Coding
	concept *r4.CodeableConcept
}

// CodingTerm returns a Term for c.
func CodingTerm(c r4.Coding) Term {
	return Term{coding: &c}
}

// ConceptTerm returns a Term for cc.
func ConceptTerm(cc r4.CodeableConcept) Term {
	return Term{concept: &cc}
}

// TermOf converts a Coding or CodeableConcept, by value or pointer, into a Term.
func TermOf(x any) (Term, error) {
	switch t := x.(type) {
	case Term:
		if t.coding != nil || t.concept != nil {
			return t, nil
		}
	case r4.Coding:
		return CodingTerm(t), nil
	case *r4.Coding:
		if t != nil {
			return CodingTerm(*t), nil
		}
	case r4.CodeableConcept:
		return ConceptTerm(t), nil
	case *r4.CodeableConcept:
		if t != nil {
			return ConceptTerm(*t), nil
		}
	}
	return Term{}, &txclient.UnsupportedTermTypeError{Type: fmt.Sprintf("%T", x)}
}

// Coding returns the Coding, if the term is one.
func (t Term) Coding() (r4.Coding, bool) {
	if t.coding == nil {
		return r4.Coding{}, false
	}
	return *t.coding, true
}

// CodeableConcept returns the CodeableConcept, if the term is one.
func (t Term) CodeableConcept() (r4.CodeableConcept, bool) {
	if t.concept == nil {
		return r4.CodeableConcept{}, false
	}
	return *t.concept, true
}

func (t Term) input() ValidateCodeInput {
	return ValidateCodeInput{Coding: t.coding, CodeableConcept: t.concept}
}
