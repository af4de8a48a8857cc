// Package fixtures loads YAML seed data for the planner store.
//
// A fixture lists raw task and pattern documents exactly as they are stored,
// so legacy shapes can be reproduced verbatim:
//
//	name: weekly-with-history
//	description: one legacy weekly task with two materialized instances
//	tasks:
//	  - id: legacy-1
//	    userId: u1
//	    title: Team sync
//	    scheduledDate: "2026-01-05"
//	    recurrence: {type: weekly, interval: 1, daysOfWeek: [1, 3]}
package fixtures

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wneill3333/neill-planner-sub008/internal/model"
)

// Fixture is a named set of documents.
type Fixture struct {
	// Name identifies the fixture.
	Name string `yaml:"name"`

	// Description explains what state the fixture sets up.
	Description string `yaml:"description"`

	// Tasks are documents for the tasks collection.
	Tasks []Document `yaml:"tasks"`

	// Patterns are documents for the recurringPatterns collection.
	Patterns []Document `yaml:"patterns,omitempty"`
}

// Document is one raw document. The "id" key is the document id; every other
// key is stored as a field.
type Document map[string]any

// ID returns the document id.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Fields returns the stored fields, without the id.
func (d Document) Fields() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		if k != "id" {
			out[k] = v
		}
	}
	return out
}

// Writer stores a document under a chosen id. *store.Store satisfies it.
type Writer interface {
	Put(ctx context.Context, collection, id string, fields map[string]any) error
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture. Unknown top-level keys are rejected.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validate(&f); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

func validate(f *Fixture) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	for collection, docs := range map[string][]Document{
		model.CollectionTasks:    f.Tasks,
		model.CollectionPatterns: f.Patterns,
	} {
		seen := make(map[string]bool, len(docs))
		for i, d := range docs {
			id := d.ID()
			if id == "" {
				return fmt.Errorf("%s[%d]: id is required", collection, i)
			}
			if seen[id] {
				return fmt.Errorf("%s[%d]: duplicate id %q", collection, i, id)
			}
			seen[id] = true
		}
	}
	return nil
}

// Seed writes every document and returns how many were written. Patterns are
// written before tasks.
func (f *Fixture) Seed(ctx context.Context, w Writer) (int, error) {
	n := 0
	for _, set := range []struct {
		collection string
		docs       []Document
	}{
		{model.CollectionPatterns, f.Patterns},
		{model.CollectionTasks, f.Tasks},
	} {
		for _, d := range set.docs {
			if err := w.Put(ctx, set.collection, d.ID(), d.Fields()); err != nil {
				return n, fmt.Errorf("seed %s/%s: %w", set.collection, d.ID(), err)
			}
			n++
		}
	}
	return n, nil
}
