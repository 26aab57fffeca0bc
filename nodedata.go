package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnknownStepType is used when a node payload does not declare a step type.
const UnknownStepType = "unknown"

// NodeData is the typed view of a node payload. Absent fields are left at
// their zero value; Extra holds members this package does not know about.
type NodeData struct {
	StepType       string
	Template       json.RawMessage
	Label          string
	CatalogType    string
	CatalogSubtype string
	CatalogName    string
	OriginalStepID string
	Extra          map[string]json.RawMessage

	// raw holds the decoded display fields as they appeared in the payload,
	// so an empty string is still told apart from an absent field.
	raw map[string]json.RawMessage
}

// DecodeNodeData decodes a raw node payload.
// It never fails hard: on error the returned NodeData holds whatever could be
// read and the error only describes what was skipped.
func DecodeNodeData(raw json.RawMessage) (NodeData, error) {
	var d NodeData
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return d, nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return d, fmt.Errorf("workflow: decode node data: %w", err)
	}

	known := map[string]*string{
		"stepType":       &d.StepType,
		"label":          &d.Label,
		"catalogType":    &d.CatalogType,
		"catalogSubtype": &d.CatalogSubtype,
		"catalogName":    &d.CatalogName,
		"originalStepId": &d.OriginalStepID,
	}
	for key, value := range members {
		if key == "template" {
			d.Template = value
			continue
		}
		if dst, ok := known[key]; ok {
			// A wrongly typed known field is carried as an extra member.
			if err := json.Unmarshal(value, dst); err == nil {
				if key != "stepType" {
					if d.raw == nil {
						d.raw = make(map[string]json.RawMessage)
					}
					d.raw[key] = value
				}
				continue
			}
		}
		if d.Extra == nil {
			d.Extra = make(map[string]json.RawMessage)
		}
		d.Extra[key] = value
	}
	return d, nil
}

// TemplateType returns the declared step type or UnknownStepType.
func (d NodeData) TemplateType() string {
	if d.StepType == "" {
		return UnknownStepType
	}
	return d.StepType
}

// Inputs returns the literal inputs seeded from the template field.
//
// An object contributes one input per member. Any other scalar is stored under
// the "template" key. Nested arrays and objects become their compact JSON text.
func (d NodeData) Inputs() map[string]StepInput {
	inputs := make(map[string]StepInput)
	raw := bytes.TrimSpace(d.Template)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return inputs
	}

	if raw[0] == '{' {
		var members map[string]json.RawMessage
		if err := json.Unmarshal(raw, &members); err != nil {
			return inputs
		}
		for key, value := range members {
			if lit, ok := decodeLiteral(value); ok {
				inputs[key] = Literal(lit)
			}
		}
		return inputs
	}

	if lit, ok := decodeLiteral(raw); ok {
		inputs["template"] = Literal(lit)
	}
	return inputs
}

// Metadata returns everything in the payload except the step type and the
// template, for display by downstream tools. Values are kept as raw JSON.
func (d NodeData) Metadata() map[string]json.RawMessage {
	meta := make(map[string]json.RawMessage)
	for key, value := range map[string]string{
		"label":          d.Label,
		"catalogType":    d.CatalogType,
		"catalogSubtype": d.CatalogSubtype,
		"catalogName":    d.CatalogName,
		"originalStepId": d.OriginalStepID,
	} {
		if raw, ok := d.raw[key]; ok {
			meta[key] = raw
			continue
		}
		if value != "" {
			b, _ := json.Marshal(value)
			meta[key] = b
		}
	}
	for key, value := range d.Extra {
		meta[key] = value
	}
	return meta
}

// decodeLiteral turns a JSON value into a literal input value. Scalars keep
// their type (numbers as json.Number); arrays and objects are compacted to text.
func decodeLiteral(raw json.RawMessage) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, false
		}
		return buf.String(), true
	}
	return v, true
}
