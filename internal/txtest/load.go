package txtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofhir/fhir/r4"
)

// LoadStats counts the resources taken from a load call.
type LoadStats struct {
	ValueSets   int
	CodeSystems int
	Skipped     int
}

type probe struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
}

type bundle struct {
	Entry []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
}

// LoadJSON stores a ValueSet, a CodeSystem, or every ValueSet and CodeSystem
// of a Bundle. ValueSets are stored under their JSON id. Other entry types
// in a Bundle are skipped.
func (s *Store) LoadJSON(data []byte) (*LoadStats, error) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	stats := &LoadStats{}
	switch p.ResourceType {
	case "Bundle":
		var b bundle
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("failed to parse Bundle: %w", err)
		}
		// CodeSystems first so compose.include can resolve them
		for _, want := range []string{"CodeSystem", "ValueSet"} {
			for _, entry := range b.Entry {
				var ep probe
				if len(entry.Resource) == 0 || json.Unmarshal(entry.Resource, &ep) != nil {
					if want == "ValueSet" {
						stats.Skipped++
					}
					continue
				}
				if ep.ResourceType != want {
					if want == "ValueSet" && ep.ResourceType != "CodeSystem" {
						stats.Skipped++
					}
					continue
				}
				if err := s.loadOne(ep, entry.Resource, stats); err != nil {
					return stats, err
				}
			}
		}
	case "ValueSet", "CodeSystem":
		if err := s.loadOne(p, data, stats); err != nil {
			return stats, err
		}
	default:
		return nil, fmt.Errorf("unsupported resourceType: %s", p.ResourceType)
	}
	return stats, nil
}

func (s *Store) loadOne(p probe, raw []byte, stats *LoadStats) error {
	switch p.ResourceType {
	case "CodeSystem":
		var cs r4.CodeSystem
		if err := json.Unmarshal(raw, &cs); err != nil {
			return fmt.Errorf("failed to parse CodeSystem: %w", err)
		}
		if err := s.AddCodeSystem(&cs); err != nil {
			return err
		}
		stats.CodeSystems++
	case "ValueSet":
		var vs r4.ValueSet
		if err := json.Unmarshal(raw, &vs); err != nil {
			return fmt.Errorf("failed to parse ValueSet: %w", err)
		}
		if err := s.AddValueSet(p.ID, &vs); err != nil {
			return err
		}
		stats.ValueSets++
	}
	return nil
}

// LoadDir loads every *.json file in dir, in name order.
func (s *Store) LoadDir(dir string) (*LoadStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	total := &LoadStats{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return total, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		stats, err := s.LoadJSON(data)
		if err != nil {
			return total, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		total.ValueSets += stats.ValueSets
		total.CodeSystems += stats.CodeSystems
		total.Skipped += stats.Skipped
	}
	return total, nil
}
