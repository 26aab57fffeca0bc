package workflow

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PlaceholderKind marks a StepOutputRef in serialized inputs.
const PlaceholderKind = "placeholder"

// Mode says how the steps of an ExecutionGroup may be run.
type Mode string

const (
	Sequential Mode = "SEQUENTIAL"
	Parallel   Mode = "PARALLEL"
)

// ExecutionGroup is one scheduling unit of a plan. A Sequential group holds
// exactly one step, a Parallel group two or more.
type ExecutionGroup struct {
	Mode  Mode     `json:"mode"`
	Steps []string `json:"steps"`
}

// StepOutputRef names the output of another step. The executor replaces it
// with the actual value at run time.
type StepOutputRef struct {
	Source string `json:"source"`
	Key    string `json:"key"`
	Kind   string `json:"kind"`
}

// StepInput is either a literal value (string, json.Number, bool or nil) or a
// reference to another step's output.
type StepInput struct {
	Literal any
	Ref     *StepOutputRef
}

// Literal returns a literal input.
func Literal(v any) StepInput { return StepInput{Literal: v} }

// Placeholder returns an input that refers to the output key of step source.
func Placeholder(source, key string) StepInput {
	return StepInput{Ref: &StepOutputRef{Source: source, Key: key, Kind: PlaceholderKind}}
}

// IsPlaceholder reports whether the input refers to another step.
func (in StepInput) IsPlaceholder() bool { return in.Ref != nil }

func (in StepInput) MarshalJSON() ([]byte, error) {
	if in.Ref != nil {
		return json.Marshal(in.Ref)
	}
	return json.Marshal(in.Literal)
}

func (in *StepInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var ref StepOutputRef
		if err := json.Unmarshal(b, &ref); err == nil && ref.Kind == PlaceholderKind {
			*in = StepInput{Ref: &ref}
			return nil
		}
	}
	v, ok := decodeLiteral(b)
	if !ok {
		return fmt.Errorf("workflow: invalid step input %s", b)
	}
	*in = StepInput{Literal: v}
	return nil
}

// Step is the compiled form of one diagram node.
type Step struct {
	ID           string                     `json:"id"`
	TemplateType string                     `json:"templateType"`
	Inputs       map[string]StepInput       `json:"inputs"`
	Dependencies []string                   `json:"dependencies"`
	OutputKey    string                     `json:"outputKey"`
	Metadata     map[string]json.RawMessage `json:"metadata"`
}

// StepMap is an insertion-ordered map of step id to step.
// The zero value is an empty map ready to use.
type StepMap struct {
	order []string
	steps map[string]*Step
}

// Add appends s. It reports false, leaving the map unchanged, when a step
// with the same id is already present.
func (m *StepMap) Add(s *Step) bool {
	if m.steps == nil {
		m.steps = make(map[string]*Step)
	}
	if _, ok := m.steps[s.ID]; ok {
		return false
	}
	m.steps[s.ID] = s
	m.order = append(m.order, s.ID)
	return true
}

// Get returns the step with the given id.
func (m StepMap) Get(id string) (*Step, bool) {
	s, ok := m.steps[id]
	return s, ok
}

// Has reports whether id is a step.
func (m StepMap) Has(id string) bool {
	_, ok := m.steps[id]
	return ok
}

// Len returns the number of steps.
func (m StepMap) Len() int { return len(m.order) }

// IDs returns the step ids in insertion order.
func (m StepMap) IDs() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Steps returns the steps in insertion order.
func (m StepMap) Steps() []*Step {
	out := make([]*Step, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.steps[id])
	}
	return out
}

// MarshalJSON writes the steps as a JSON object in insertion order.
func (m StepMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.steps[id])
		if err != nil {
			return nil, fmt.Errorf("workflow: marshal step %s: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of steps keeping document order.
func (m *StepMap) UnmarshalJSON(b []byte) error {
	*m = StepMap{}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("workflow: decode steps: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("workflow: decode steps: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("workflow: decode steps: %w", err)
		}
		id, _ := tok.(string)
		var s Step
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("workflow: decode step %s: %w", id, err)
		}
		if s.ID == "" {
			s.ID = id
		}
		if !m.Add(&s) {
			return fmt.Errorf("workflow: decode steps: duplicate step %q", id)
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("workflow: decode steps: %w", err)
	}
	return nil
}

// Template is a compiled workflow. Treat it as read-only once Compile has
// returned it.
type Template struct {
	Name          string           `json:"name"`
	Steps         StepMap          `json:"steps"`
	ExecutionPlan []ExecutionGroup `json:"executionPlan"`
}

// Fingerprint returns the hex SHA-256 of the template's JSON encoding.
// Compiling the same diagram twice yields the same fingerprint.
func (t *Template) Fingerprint() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("workflow: fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
