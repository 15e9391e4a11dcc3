package valueset

import (
	"iter"

	"github.com/gofhir/fhir/r4"
)

// Nodes iterates over an expansion tree in depth-first pre-order: each node
// comes before its children, and siblings keep their declared order.
// Breaking out of the range stops the walk.
func Nodes(contains []r4.ValueSetExpansionContains) iter.Seq[*r4.ValueSetExpansionContains] {
	return func(yield func(*r4.ValueSetExpansionContains) bool) {
		stack := make([]*r4.ValueSetExpansionContains, 0, len(contains))
		stack = pushReversed(stack, contains)

		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(node) {
				return
			}
			stack = pushReversed(stack, node.Contains)
		}
	}
}

// pushReversed pushes nodes so that nodes[0] is popped first.
func pushReversed(stack []*r4.ValueSetExpansionContains, nodes []r4.ValueSetExpansionContains) []*r4.ValueSetExpansionContains {
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, &nodes[i])
	}
	return stack
}

// Walk iterates over the codings of an expansion tree in pre-order.
func Walk(contains []r4.ValueSetExpansionContains) iter.Seq[r4.Coding] {
	return func(yield func(r4.Coding) bool) {
		for node := range Nodes(contains) {
			if !yield(CodingOf(node)) {
				return
			}
		}
	}
}

// Flatten returns all codings of an expansion tree in pre-order.
func Flatten(contains []r4.ValueSetExpansionContains) []r4.Coding {
	var out []r4.Coding
	for c := range Walk(contains) {
		out = append(out, c)
	}
	return out
}

// ContainsOf returns the top-level expansion entries of vs, or nil when vs
// has not been expanded.
func ContainsOf(vs *r4.ValueSet) []r4.ValueSetExpansionContains {
	if vs == nil || vs.Expansion == nil {
		return nil
	}
	return vs.Expansion.Contains
}

// Count returns the number of entries in the expansion of vs, nested ones included.
func Count(vs *r4.ValueSet) int {
	n := 0
	for range Nodes(ContainsOf(vs)) {
		n++
	}
	return n
}

// Includes reports whether the expansion of vs lists system and code.
// An empty system matches any system. It stops at the first match.
func Includes(vs *r4.ValueSet, system, code string) bool {
	for node := range Nodes(ContainsOf(vs)) {
		if deref(node.Code) != code {
			continue
		}
		if system == "" || deref(node.System) == system {
			return true
		}
	}
	return false
}

// CodingOf builds the Coding (system, code, display) of an expansion entry.
// The result does not share memory with the tree.
func CodingOf(node *r4.ValueSetExpansionContains) r4.Coding {
	return r4.Coding{
		System:  clone(node.System),
		Code:    clone(node.Code),
		Display: clone(node.Display),
	}
}

func clone(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
