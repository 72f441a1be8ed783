// pkg/registry/registry.go
package registry

import (
	"fmt"
	"os"
	"sort"
	"time"

	"kredmitra/internal/common/validation"

	"gopkg.in/yaml.v3"
)

// Registry is a loaded activity registry with compiled input schemas.
type Registry struct {
	doc     ActivityRegistry
	byTask  map[string]*Activity
	schemas map[string]*validation.Schema
}

func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML registry and compiles every input schema.
func Parse(data []byte) (*Registry, error) {
	var doc ActivityRegistry
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if problems := Lint(&doc); len(problems) > 0 {
		return nil, fmt.Errorf("invalid registry: %s", problems[0])
	}

	reg := &Registry{
		doc:     doc,
		byTask:  make(map[string]*Activity, len(doc.Activities)),
		schemas: make(map[string]*validation.Schema, len(doc.Activities)),
	}
	for i := range doc.Activities {
		a := &reg.doc.Activities[i]
		reg.byTask[a.TaskType] = a
		if len(a.InputSchema) == 0 {
			continue
		}
		schema, err := validation.CompileSchema(a.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", a.ID, err)
		}
		reg.schemas[a.TaskType] = schema
	}
	return reg, nil
}

// Lint reports structural problems: missing ids, duplicate task types,
// unparsable timeouts and input schemas that do not compile.
func Lint(doc *ActivityRegistry) []string {
	var problems []string
	seen := make(map[string]bool)
	for i, a := range doc.Activities {
		label := a.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			problems = append(problems, fmt.Sprintf("activity %s: id is required", label))
		}
		if a.TaskType == "" {
			problems = append(problems, fmt.Sprintf("activity %s: taskType is required", label))
		} else if seen[a.TaskType] {
			problems = append(problems, fmt.Sprintf("activity %s: duplicate taskType %q", label, a.TaskType))
		}
		seen[a.TaskType] = true

		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				problems = append(problems, fmt.Sprintf("activity %s: bad timeout %q", label, a.Timeout))
			}
		}
		if a.Retries < 0 {
			problems = append(problems, fmt.Sprintf("activity %s: retries must not be negative", label))
		}
		if len(a.InputSchema) > 0 {
			if _, err := validation.CompileSchema(a.InputSchema); err != nil {
				problems = append(problems, fmt.Sprintf("activity %s: %v", label, err))
			}
		}
	}
	return problems
}

func (r *Registry) Version() string {
	return r.doc.Version
}

// Activities returns the activities sorted by task type.
func (r *Registry) Activities() []Activity {
	out := make([]Activity, len(r.doc.Activities))
	copy(out, r.doc.Activities)
	sort.Slice(out, func(i, j int) bool { return out[i].TaskType < out[j].TaskType })
	return out
}

func (r *Registry) Find(taskType string) (*Activity, bool) {
	a, ok := r.byTask[taskType]
	return a, ok
}

// Timeout returns the activity timeout, or def when unset.
func (r *Registry) Timeout(taskType string, def time.Duration) time.Duration {
	a, ok := r.byTask[taskType]
	if !ok || a.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return def
	}
	return d
}

// ValidateInput checks job variables against the activity's input schema.
// Unknown task types and activities without a schema pass.
func (r *Registry) ValidateInput(taskType string, variables map[string]interface{}) (*validation.ValidationResult, error) {
	schema, ok := r.schemas[taskType]
	if !ok {
		return &validation.ValidationResult{Valid: true}, nil
	}
	return schema.Validate(variables)
}
