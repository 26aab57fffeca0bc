package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepInput_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   StepInput
		json string
	}{
		{"string", Literal("hello"), `"hello"`},
		{"number", Literal(json.Number("1.5")), `1.5`},
		{"bool", Literal(false), `false`},
		{"null", Literal(nil), `null`},
		{"placeholder", Placeholder("A", "A_result"), `{"source":"A","key":"A_result","kind":"placeholder"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.json, string(got))

			var back StepInput
			require.NoError(t, json.Unmarshal(got, &back))
			assert.Equal(t, tt.in, back)
		})
	}
}

func TestStepInput_ObjectWithoutKindIsLiteral(t *testing.T) {
	var in StepInput
	require.NoError(t, json.Unmarshal([]byte(`{"source": "A", "key": "x"}`), &in))
	assert.False(t, in.IsPlaceholder())
	assert.Equal(t, `{"source":"A","key":"x"}`, in.Literal)
}

func TestStepMap_KeepsInsertionOrder(t *testing.T) {
	var m StepMap
	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.True(t, m.Add(&Step{ID: id, Inputs: map[string]StepInput{}, Dependencies: []string{}}))
	}
	assert.False(t, m.Add(&Step{ID: "alpha"}))
	assert.Equal(t, 3, m.Len())

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var back StepMap
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, back.IDs())

	again, err := json.Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestStepMap_UnmarshalErrors(t *testing.T) {
	var m StepMap
	assert.Error(t, json.Unmarshal([]byte(`[]`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"a": {"id": "a"}, "a": {"id": "a"}}`), &m))

	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Equal(t, 0, m.Len())
}

func TestTemplate_RoundTrip(t *testing.T) {
	tmpl, err := Compile(
		[]Node{
			{ID: "start"},
			{ID: "b", Data: json.RawMessage(`{"stepType": "x", "template": {"n": 2}}`)},
			{ID: "a"},
			{ID: "c"},
		},
		[]Edge{edge("start", "b"), edge("b", "c"), edge("a", "c")},
		WithName("rt"),
	)
	require.NoError(t, err)

	data, err := json.Marshal(tmpl)
	require.NoError(t, err)

	var back Template
	require.NoError(t, json.Unmarshal(data, &back))
	require.NoError(t, Validate(&back))
	assert.Equal(t, []string{"b", "a", "c"}, back.Steps.IDs())
	assert.Equal(t, tmpl.ExecutionPlan, back.ExecutionPlan)

	again, err := json.Marshal(&back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestTemplate_RoundTripKeepsMetadataExact(t *testing.T) {
	tmpl, err := Compile(
		[]Node{{ID: "A", Data: json.RawMessage(`{
			"label": "",
			"big": 12345678901234567890,
			"f": 1.10,
			"nested": {"b": 1, "a": [1.50, "x"]},
			"template": {"n": 1.0}
		}`)}},
		nil,
	)
	require.NoError(t, err)

	data, err := json.Marshal(tmpl)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"big":12345678901234567890`)
	assert.Contains(t, string(data), `"f":1.10`)
	assert.Contains(t, string(data), `"nested":{"b":1,"a":[1.50,"x"]}`)

	var back Template
	require.NoError(t, json.Unmarshal(data, &back))
	again, err := json.Marshal(&back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))

	want, err := tmpl.Fingerprint()
	require.NoError(t, err)
	got, err := back.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
