// Package txtest provides an in-process fake terminology server for tests.
//
// The server keeps ValueSets and CodeSystems in memory and answers
// ValueSet $expand and $validate-code at instance and type level, plus
// CodeSystem $lookup and $validate-code. It implements just enough of the
// protocol to exercise a client, and records every request.
package txtest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gofhir/fhir/r4"
)

// Store holds ValueSets (by id and canonical url) and CodeSystems (by url).
type Store struct {
	mu          sync.RWMutex
	byID        map[string]*r4.ValueSet
	byURL       map[string]*r4.ValueSet
	codeSystems map[string]*r4.CodeSystem
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byID:        make(map[string]*r4.ValueSet),
		byURL:       make(map[string]*r4.ValueSet),
		codeSystems: make(map[string]*r4.CodeSystem),
	}
}

// AddValueSet stores vs under id and, when set, under its url.
func (s *Store) AddValueSet(id string, vs *r4.ValueSet) error {
	if vs == nil {
		return fmt.Errorf("valueset is nil")
	}
	if id == "" && vs.Url == nil {
		return fmt.Errorf("valueset has neither id nor url")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		s.byID[id] = vs
	}
	if vs.Url != nil {
		s.byURL[*vs.Url] = vs
	}
	return nil
}

// AddCodeSystem stores cs under its url. ValueSets that include the whole
// system expand to its concept hierarchy.
func (s *Store) AddCodeSystem(cs *r4.CodeSystem) error {
	if cs == nil || cs.Url == nil {
		return fmt.Errorf("codesystem is nil or has no URL")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codeSystems[*cs.Url] = cs
	return nil
}

// ValueSetByID returns the ValueSet stored under id.
func (s *Store) ValueSetByID(id string) (*r4.ValueSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs, ok := s.byID[id]
	return vs, ok
}

// AddValueSetVersion stores vs under its url and the given business version,
// so type-level requests naming that valueSetVersion find it.
func (s *Store) AddValueSetVersion(version string, vs *r4.ValueSet) error {
	if vs == nil || vs.Url == nil {
		return fmt.Errorf("valueset is nil or has no URL")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byURL[*vs.Url+"|"+version] = vs
	if _, ok := s.byURL[*vs.Url]; !ok {
		s.byURL[*vs.Url] = vs
	}
	return nil
}

// ValueSetByURL returns the ValueSet with canonical url. The version may be
// given as a "|version" suffix of url. A ValueSet stored without version
// answers for any version.
func (s *Store) ValueSetByURL(url, version string) (*r4.ValueSet, bool) {
	if i := strings.LastIndex(url, "|"); i != -1 {
		if version == "" {
			version = url[i+1:]
		}
		url = url[:i]
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if version != "" {
		if vs, ok := s.byURL[url+"|"+version]; ok {
			return vs, true
		}
		if s.hasVersions(url) {
			return nil, false
		}
	}
	vs, ok := s.byURL[url]
	return vs, ok
}

func (s *Store) hasVersions(url string) bool {
	prefix := url + "|"
	for key := range s.byURL {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// Count returns the number of stored ValueSets and CodeSystems.
func (s *Store) Count() (valueSets, codeSystems int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[*r4.ValueSet]bool)
	for _, vs := range s.byID {
		seen[vs] = true
	}
	for _, vs := range s.byURL {
		seen[vs] = true
	}
	return len(seen), len(s.codeSystems)
}

// Expand returns the expansion entries of vs: its stored expansion if
// present, otherwise entries computed from compose.include.
func (s *Store) Expand(vs *r4.ValueSet) []r4.ValueSetExpansionContains {
	if vs.Expansion != nil {
		return vs.Expansion.Contains
	}
	if vs.Compose == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []r4.ValueSetExpansionContains
	for i := range vs.Compose.Include {
		include := &vs.Compose.Include[i]
		if include.System == nil {
			continue
		}
		system := *include.System

		// Explicitly listed concepts
		if len(include.Concept) > 0 {
			for j := range include.Concept {
				concept := &include.Concept[j]
				if concept.Code == nil {
					continue
				}
				out = append(out, r4.ValueSetExpansionContains{
					System:  ptr(system),
					Code:    ptr(*concept.Code),
					Display: concept.Display,
				})
			}
			continue
		}

		// Whole code system, keeping its hierarchy
		if cs, ok := s.codeSystems[system]; ok {
			out = append(out, conceptTree(system, cs.Concept)...)
		}
	}
	return out
}

func conceptTree(system string, concepts []r4.CodeSystemConcept) []r4.ValueSetExpansionContains {
	var out []r4.ValueSetExpansionContains
	for i := range concepts {
		concept := &concepts[i]
		if concept.Code == nil {
			continue
		}
		out = append(out, r4.ValueSetExpansionContains{
			System:   ptr(system),
			Code:     ptr(*concept.Code),
			Display:  concept.Display,
			Contains: conceptTree(system, concept.Concept),
		})
	}
	return out
}

// Lookup finds system and code in the expansion of vs. An empty system
// matches any system.
func (s *Store) Lookup(vs *r4.ValueSet, system, code string) (r4.ValueSetExpansionContains, bool) {
	return find(s.Expand(vs), system, code)
}

func find(contains []r4.ValueSetExpansionContains, system, code string) (r4.ValueSetExpansionContains, bool) {
	for i := range contains {
		entry := &contains[i]
		if entry.Code != nil && *entry.Code == code && (system == "" || (entry.System != nil && *entry.System == system)) {
			return *entry, true
		}
		// Recurse into nested contains
		if found, ok := find(entry.Contains, system, code); ok {
			return found, true
		}
	}
	return r4.ValueSetExpansionContains{}, false
}

func ptr(s string) *string {
	return &s
}

// Concept finds code in the CodeSystem with url system, at any depth.
func (s *Store) Concept(system, code string) (r4.CodeSystemConcept, bool) {
	s.mu.RLock()
	cs, ok := s.codeSystems[system]
	s.mu.RUnlock()
	if !ok {
		return r4.CodeSystemConcept{}, false
	}
	return findConcept(cs.Concept, code)
}

func findConcept(concepts []r4.CodeSystemConcept, code string) (r4.CodeSystemConcept, bool) {
	for i := range concepts {
		if concepts[i].Code != nil && *concepts[i].Code == code {
			return concepts[i], true
		}
		if found, ok := findConcept(concepts[i].Concept, code); ok {
			return found, true
		}
	}
	return r4.CodeSystemConcept{}, false
}
