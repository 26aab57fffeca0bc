package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compiled(t *testing.T) *Template {
	t.Helper()
	tmpl, err := Compile(nodes("A", "B", "C", "D"), []Edge{edge("A", "C"), edge("B", "D")})
	require.NoError(t, err)
	require.NoError(t, Validate(tmpl))
	return tmpl
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tmpl *Template)
		kind   string
	}{
		{
			name:   "missing step",
			mutate: func(tmpl *Template) { tmpl.ExecutionPlan = tmpl.ExecutionPlan[:1] },
			kind:   "coverage",
		},
		{
			name: "duplicate step",
			mutate: func(tmpl *Template) {
				tmpl.ExecutionPlan = append(tmpl.ExecutionPlan, seq("A"))
			},
			kind: "coverage",
		},
		{
			name: "unknown step in plan",
			mutate: func(tmpl *Template) {
				tmpl.ExecutionPlan = append(tmpl.ExecutionPlan, seq("ghost"))
			},
			kind: "dangling_reference",
		},
		{
			name: "parallel group of one",
			mutate: func(tmpl *Template) {
				tmpl.ExecutionPlan = []ExecutionGroup{par("A"), par("B"), par("C", "D")}
			},
			kind: "group_size",
		},
		{
			name: "sequential group of two",
			mutate: func(tmpl *Template) {
				tmpl.ExecutionPlan = []ExecutionGroup{{Mode: Sequential, Steps: []string{"A", "B"}}, par("C", "D")}
			},
			kind: "group_size",
		},
		{
			name: "dependency scheduled later",
			mutate: func(tmpl *Template) {
				tmpl.ExecutionPlan = []ExecutionGroup{par("C", "D"), par("A", "B")}
			},
			kind: "order",
		},
		{
			name: "dependency in same group",
			mutate: func(tmpl *Template) {
				tmpl.ExecutionPlan = []ExecutionGroup{par("A", "C"), par("B", "D")}
			},
			kind: "order",
		},
		{
			name: "missing placeholder",
			mutate: func(tmpl *Template) {
				c, _ := tmpl.Steps.Get("C")
				delete(c.Inputs, "A_output")
			},
			kind: "placeholder",
		},
		{
			name: "wrong placeholder key",
			mutate: func(tmpl *Template) {
				c, _ := tmpl.Steps.Get("C")
				c.Inputs["A_output"] = Placeholder("A", "nope")
			},
			kind: "placeholder",
		},
		{
			name: "placeholder to unknown step",
			mutate: func(tmpl *Template) {
				a, _ := tmpl.Steps.Get("A")
				a.Inputs["x"] = Placeholder("ghost", "ghost_result")
			},
			kind: "dangling_reference",
		},
		{
			name: "unknown dependency",
			mutate: func(tmpl *Template) {
				a, _ := tmpl.Steps.Get("A")
				a.Dependencies = append(a.Dependencies, "ghost")
			},
			kind: "dangling_reference",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := compiled(t)
			tt.mutate(tmpl)

			err := Validate(tmpl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTemplate))

			var te *TemplateError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.kind, te.Kind, err.Error())
		})
	}
}

func TestValidate_ParallelConflict(t *testing.T) {
	tmpl, err := Compile(nodes("A", "B", "C"), []Edge{edge("A", "B"), edge("A", "C")})
	require.NoError(t, err)

	tmpl.ExecutionPlan = []ExecutionGroup{seq("A"), par("B", "C")}
	err = Validate(tmpl)

	var te *TemplateError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "parallel_conflict", te.Kind)
}

func TestValidate_Nil(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrInvalidTemplate)
}
