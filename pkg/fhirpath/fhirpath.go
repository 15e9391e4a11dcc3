// Package fhirpath evaluates FHIRPath expressions against resources returned
// by a terminology server, such as an expanded ValueSet.
package fhirpath

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/gofhir/fhirpath"

	"github.com/gofhir/txclient/internal/lru"
)

// DefaultCacheSize is the number of compiled expressions NewEvaluator keeps.
const DefaultCacheSize = 256

// Evaluator compiles FHIRPath expressions once and reuses them, keeping the
// most recently used ones. It is safe for concurrent use.
type Evaluator struct {
	cache *lru.Cache[string, *fhirpath.Expression]
}

// NewEvaluator creates an evaluator caching DefaultCacheSize expressions.
func NewEvaluator() *Evaluator {
	return NewEvaluatorSize(DefaultCacheSize)
}

// NewEvaluatorSize creates an evaluator caching up to size expressions.
func NewEvaluatorSize(size int) *Evaluator {
	return &Evaluator{cache: lru.New[string, *fhirpath.Expression](size)}
}

// Evaluate runs expression against resource. resource may be raw JSON
// ([]byte, string, json.RawMessage) or any value that marshals to a FHIR resource.
func (e *Evaluator) Evaluate(expression string, resource any) (fhirpath.Collection, error) {
	data, err := toJSON(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to convert resource to JSON: %w", err)
	}

	compiled, err := e.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile FHIRPath expression '%s': %w", expression, err)
	}

	result, err := compiled.Evaluate(data)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate FHIRPath expression '%s': %w", expression, err)
	}
	return result, nil
}

// EvaluateBool runs expression and applies FHIRPath truthiness: an empty
// result is false, a single boolean is its value, anything else is true.
func (e *Evaluator) EvaluateBool(expression string, resource any) (bool, error) {
	result, err := e.Evaluate(expression, resource)
	if err != nil {
		return false, err
	}
	if result.Empty() {
		return false, nil
	}
	b, err := result.ToBoolean()
	if err != nil {
		return true, nil
	}
	return b, nil
}

// Strings renders each item of a result with its default formatting.
func Strings(c fhirpath.Collection) []string {
	out := make([]string, 0, len(c))
	for _, v := range c {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func (e *Evaluator) compile(expression string) (*fhirpath.Expression, error) {
	return e.cache.GetOrCompute(expression, func() (*fhirpath.Expression, error) {
		return fhirpath.Compile(expression)
	})
}

// CacheSize returns the number of compiled expressions held.
func (e *Evaluator) CacheSize() int {
	return e.cache.Len()
}

// CacheStats holds counters of the compiled-expression cache.
type CacheStats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CacheStats returns hit and eviction counters of the expression cache.
func (e *Evaluator) CacheStats() CacheStats {
	s := e.cache.Stats()
	return CacheStats{
		Size:      s.Size,
		Capacity:  s.Capacity,
		Hits:      s.Hits,
		Misses:    s.Misses,
		Evictions: s.Evicts,
	}
}

// ClearCache drops all compiled expressions.
func (e *Evaluator) ClearCache() {
	e.cache.Clear()
}

func toJSON(resource any) ([]byte, error) {
	switch v := resource.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}
