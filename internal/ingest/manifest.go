// Package ingest reads task manifests into engine tasks. A manifest is a
// YAML file declaring the batch: task IDs, opaque payloads, and optional
// priorities.
package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/annobatch/annobatch/internal/engine"
	"github.com/annobatch/annobatch/internal/logging"
)

// TaskSpec is one declared task in a manifest.
type TaskSpec struct {
	// ID identifies the task within the batch. Generated when empty.
	ID string `yaml:"id"`

	// Payload is handed to the work function untouched.
	Payload string `yaml:"payload"`

	// Priority orders dispatch; higher first. Defaults to 0.
	Priority int `yaml:"priority"`
}

// Manifest is a declared batch of tasks.
type Manifest struct {
	Tasks []TaskSpec `yaml:"tasks"`
}

// LoadManifest reads and validates a YAML task manifest. Tasks without an
// ID are assigned a generated one; duplicate IDs are rejected here rather
// than at dispatch time.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if len(m.Tasks) == 0 {
		return nil, fmt.Errorf("manifest %s declares no tasks", path)
	}

	seen := make(map[string]struct{}, len(m.Tasks))
	for i := range m.Tasks {
		if m.Tasks[i].ID == "" {
			m.Tasks[i].ID = logging.NewRunID()
		}
		if _, dup := seen[m.Tasks[i].ID]; dup {
			return nil, fmt.Errorf("manifest %s: duplicate task id %q", path, m.Tasks[i].ID)
		}
		seen[m.Tasks[i].ID] = struct{}{}
	}

	return &m, nil
}

// EngineTasks converts the manifest into engine tasks in declared order.
func (m *Manifest) EngineTasks() []engine.Task {
	tasks := make([]engine.Task, len(m.Tasks))
	for i, spec := range m.Tasks {
		tasks[i] = engine.Task{
			ID:       spec.ID,
			Payload:  spec.Payload,
			Priority: spec.Priority,
		}
	}
	return tasks
}

// Synthetic generates a manifest of n placeholder tasks, used by the CLI
// when no manifest file is given.
func Synthetic(n int) *Manifest {
	m := &Manifest{Tasks: make([]TaskSpec, n)}
	for i := range m.Tasks {
		m.Tasks[i] = TaskSpec{
			ID:      fmt.Sprintf("task-%04d", i+1),
			Payload: fmt.Sprintf("synthetic item %d", i+1),
		}
	}
	return m
}
