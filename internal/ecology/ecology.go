// Package ecology holds the static ecological reference dataset: the
// species table, known consumer-resource relationships, and the fixed
// impact-note texts attached to specific species pairs. The dataset is
// loaded once from YAML at startup and read-only afterwards.
package ecology

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ecosync/phenology/internal/domain"
)

// Relationship is one known consumer-resource interaction.
type Relationship struct {
	Consumer     string `yaml:"consumer" json:"consumer"`
	ConsumerType string `yaml:"consumer_type" json:"consumer_type"`
	Resource     string `yaml:"resource" json:"resource"`
	ResourceType string `yaml:"resource_type" json:"resource_type"`
	Kind         string `yaml:"relationship" json:"relationship"`
	Description  string `yaml:"description" json:"description"`
}

// Text is the canonical sentence embedded for a relationship fact.
func (r Relationship) Text() string {
	return fmt.Sprintf("%s (%s) depends on %s (%s) for %s: %s",
		r.Consumer, r.ConsumerType, r.Resource, r.ResourceType, r.Kind, r.Description)
}

// ImpactNote is a fixed domain-impact statement for a species pair,
// matched by substring against the consumer and resource display names.
type ImpactNote struct {
	Consumer string `yaml:"consumer"`
	Resource string `yaml:"resource"`
	Label    string `yaml:"label"`
	Text     string `yaml:"text"`
}

// Facts is the full static dataset.
type Facts struct {
	Species       []domain.Species `yaml:"species"`
	Relationships []Relationship   `yaml:"relationships"`
	ImpactNotes   []ImpactNote     `yaml:"impact_notes"`
}

// Load reads and validates the facts file.
func Load(path string) (*Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ecology facts %s: %w", path, err)
	}

	var facts Facts
	if err := yaml.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("parse ecology facts: %w", err)
	}
	if err := facts.validate(); err != nil {
		return nil, fmt.Errorf("ecology facts %s: %w", path, err)
	}
	return &facts, nil
}

func (f *Facts) validate() error {
	if len(f.Species) == 0 {
		return fmt.Errorf("species table is empty")
	}
	seen := make(map[string]bool, len(f.Species))
	for _, sp := range f.Species {
		if sp.Key == "" || sp.Name == "" {
			return fmt.Errorf("species entry missing key or common name: %+v", sp)
		}
		if seen[sp.Key] {
			return fmt.Errorf("duplicate species key %q", sp.Key)
		}
		seen[sp.Key] = true
	}
	for _, rel := range f.Relationships {
		if rel.Consumer == "" || rel.Resource == "" {
			return fmt.Errorf("relationship missing consumer or resource: %+v", rel)
		}
	}
	return nil
}

// Table returns the species table keyed by species key.
func (f *Facts) Table() domain.SpeciesTable {
	table := make(domain.SpeciesTable, len(f.Species))
	for _, sp := range f.Species {
		table[sp.Key] = sp
	}
	return table
}

// SpeciesByName looks a species up by its display name.
func (f *Facts) SpeciesByName(name string) (domain.Species, bool) {
	for _, sp := range f.Species {
		if sp.Name == name {
			return sp, true
		}
	}
	return domain.Species{}, false
}

// RelationshipFor returns the known relationship between a consumer and a
// resource display name, if any.
func (f *Facts) RelationshipFor(consumer, resource string) (Relationship, bool) {
	for _, rel := range f.Relationships {
		if rel.Consumer == consumer && rel.Resource == resource {
			return rel, true
		}
	}
	return Relationship{}, false
}

// ImpactNoteFor selects the impact note for a species pair by substring
// match on the display names. Unmatched pairs get no note.
func (f *Facts) ImpactNoteFor(consumerName, resourceName string) (ImpactNote, bool) {
	for _, note := range f.ImpactNotes {
		if strings.Contains(consumerName, note.Consumer) && strings.Contains(resourceName, note.Resource) {
			return note, true
		}
	}
	return ImpactNote{}, false
}
