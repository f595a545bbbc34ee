// Package importer loads a whole project (tasks, hierarchy, and
// dependency edges) from a YAML file in one shot. Entities reference
// each other by file-local refs, resolved to UUIDs on conversion.
package importer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ImportSchema is the top-level YAML structure for project import.
type ImportSchema struct {
	Project      ProjectImport      `yaml:"project"`
	Tasks        []TaskImport       `yaml:"tasks"`
	Dependencies []DependencyImport `yaml:"dependencies,omitempty"`
}

// ProjectImport defines the project-level fields in the import file.
type ProjectImport struct {
	Name       string  `yaml:"name"`
	StartDate  string  `yaml:"start_date"`
	TargetDate *string `yaml:"target_date,omitempty"`
}

// TaskImport defines one task. ParentRef points at another task's ref;
// tasks must appear after their parent in the file.
type TaskImport struct {
	Ref           string   `yaml:"ref"`
	ParentRef     *string  `yaml:"parent_ref,omitempty"`
	Title         string   `yaml:"title"`
	Status        string   `yaml:"status,omitempty"`
	EstimateValue *float64 `yaml:"estimate,omitempty"`
	EstimateUnit  string   `yaml:"estimate_unit,omitempty"`
	Progress      *int     `yaml:"progress,omitempty"`
	StartDate     *string  `yaml:"start_date,omitempty"`
	DueDate       *string  `yaml:"due_date,omitempty"`
}

// DependencyImport defines a precedence edge between two task refs.
type DependencyImport struct {
	PredecessorRef string  `yaml:"predecessor_ref"`
	SuccessorRef   string  `yaml:"successor_ref"`
	Type           string  `yaml:"type,omitempty"`
	Lag            float64 `yaml:"lag,omitempty"`
	LagUnit        string  `yaml:"lag_unit,omitempty"`
}

// LoadImportSchema reads and parses a project import YAML file.
func LoadImportSchema(path string) (*ImportSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseImportSchema(data)
}

// ParseImportSchema parses import YAML from memory.
func ParseImportSchema(data []byte) (*ImportSchema, error) {
	var schema ImportSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}
	return &schema, nil
}
