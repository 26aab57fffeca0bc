package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func nodes(ids ...string) []Node {
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, Node{ID: id, Data: json.RawMessage(`{}`)})
	}
	return out
}

func edge(source, target string) Edge { return Edge{Source: source, Target: target} }

func seq(id string) ExecutionGroup { return ExecutionGroup{Mode: Sequential, Steps: []string{id}} }

func par(ids ...string) ExecutionGroup { return ExecutionGroup{Mode: Parallel, Steps: ids} }

func TestCompile_Plans(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		edges []Edge
		want  []ExecutionGroup
	}{
		{
			name:  "independent steps run in parallel",
			nodes: nodes("start", "A", "B"),
			edges: []Edge{edge("start", "A"), edge("start", "B")},
			want:  []ExecutionGroup{par("A", "B")},
		},
		{
			name:  "linear chain",
			nodes: nodes("start", "A", "B", "C"),
			edges: []Edge{edge("start", "A"), edge("A", "B"), edge("B", "C")},
			want:  []ExecutionGroup{seq("A"), seq("B"), seq("C")},
		},
		{
			name:  "shared dependency forces sequential",
			nodes: nodes("start", "A", "B", "C"),
			edges: []Edge{edge("start", "A"), edge("A", "B"), edge("A", "C")},
			want:  []ExecutionGroup{seq("A"), seq("B"), seq("C")},
		},
		{
			name:  "diamond",
			nodes: nodes("A", "B", "C", "D"),
			edges: []Edge{edge("A", "B"), edge("A", "C"), edge("B", "D"), edge("C", "D")},
			want:  []ExecutionGroup{seq("A"), seq("B"), seq("C"), seq("D")},
		},
		{
			name:  "two independent chains",
			nodes: nodes("A", "B", "C", "D"),
			edges: []Edge{edge("A", "C"), edge("B", "D")},
			want:  []ExecutionGroup{par("A", "B"), par("C", "D")},
		},
		{
			name:  "ready step blocked by a pending dependent",
			nodes: nodes("X", "Y", "P", "R", "Q"),
			edges: []Edge{edge("X", "P"), edge("Y", "R"), edge("P", "Q")},
			want:  []ExecutionGroup{par("X", "Y"), seq("P"), seq("R"), seq("Q")},
		},
		{
			name:  "single step",
			nodes: nodes("start", "A"),
			edges: []Edge{edge("start", "A")},
			want:  []ExecutionGroup{seq("A")},
		},
		{
			name:  "only the entry node",
			nodes: nodes("start"),
			want:  []ExecutionGroup{},
		},
		{
			name:  "empty diagram",
			want:  []ExecutionGroup{},
		},
		{
			name:  "step map order decides group order",
			nodes: nodes("C", "B", "A"),
			edges: []Edge{edge("C", "A"), edge("C", "B")},
			want:  []ExecutionGroup{seq("C"), seq("B"), seq("A")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Compile(tt.nodes, tt.edges)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tmpl.ExecutionPlan)
			assert.NoError(t, Validate(tmpl))
		})
	}
}

func TestCompile_Cycles(t *testing.T) {
	tests := []struct {
		name      string
		nodes     []Node
		edges     []Edge
		remaining []string
	}{
		{
			name:      "two step cycle",
			nodes:     nodes("A", "B"),
			edges:     []Edge{edge("A", "B"), edge("B", "A")},
			remaining: []string{"A", "B"},
		},
		{
			name:      "self loop",
			nodes:     nodes("start", "A"),
			edges:     []Edge{edge("start", "A"), edge("A", "A")},
			remaining: []string{"A"},
		},
		{
			name:      "cycle behind a seed",
			nodes:     nodes("A", "B", "C", "D"),
			edges:     []Edge{edge("A", "B"), edge("B", "C"), edge("C", "B"), edge("A", "D")},
			remaining: []string{"B", "C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Compile(tt.nodes, tt.edges)
			require.Error(t, err)
			assert.Nil(t, tmpl)
			assert.True(t, errors.Is(err, ErrCycleDetected))

			var ce *CycleError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.remaining, ce.Remaining)
		})
	}
}

func TestCompile_DropsEntryAndDanglingEdges(t *testing.T) {
	tmpl, err := Compile(
		nodes("start", "A", "B"),
		[]Edge{
			edge("start", "A"),
			edge("A", "missing"),
			edge("missing", "B"),
			edge("B", "start"),
			edge("A", "B"),
			edge("A", "B"),
		},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, tmpl.Steps.IDs())
	b, ok := tmpl.Steps.Get("B")
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, b.Dependencies)
	assert.False(t, tmpl.Steps.Has("start"))
	assert.Equal(t, []ExecutionGroup{seq("A"), seq("B")}, tmpl.ExecutionPlan)
}

func TestCompile_DependencyOrderFollowsEdges(t *testing.T) {
	tmpl, err := Compile(nodes("A", "B", "C"), []Edge{edge("B", "C"), edge("A", "C")})
	require.NoError(t, err)

	c, _ := tmpl.Steps.Get("C")
	assert.Equal(t, []string{"B", "A"}, c.Dependencies)
	assert.Equal(t, []ExecutionGroup{par("A", "B"), seq("C")}, tmpl.ExecutionPlan)
}

func TestCompile_StepFields(t *testing.T) {
	tmpl, err := Compile(
		[]Node{
			{ID: "start"},
			{ID: "fetch", Data: json.RawMessage(`{
				"stepType": "http",
				"template": {"url": "https://example.com", "retries": 3, "follow": true, "headers": {"a": "b"}},
				"label": "Fetch page",
				"catalogType": "tools",
				"catalogSubtype": "web",
				"catalogName": "fetcher",
				"originalStepId": "orig-1",
				"color": "red"
			}`)},
			{ID: "summarize", Data: json.RawMessage(`{"template": "Summarize it"}`)},
		},
		[]Edge{edge("start", "fetch"), edge("fetch", "summarize")},
		WithName("pipeline"),
	)
	require.NoError(t, err)
	assert.Equal(t, "pipeline", tmpl.Name)

	fetch, ok := tmpl.Steps.Get("fetch")
	require.True(t, ok)
	assert.Equal(t, "http", fetch.TemplateType)
	assert.Equal(t, "fetch_result", fetch.OutputKey)
	assert.Equal(t, []string{}, fetch.Dependencies)
	assert.Equal(t, map[string]StepInput{
		"url":     Literal("https://example.com"),
		"retries": Literal(json.Number("3")),
		"follow":  Literal(true),
		"headers": Literal(`{"a":"b"}`),
	}, fetch.Inputs)
	assert.Equal(t, json.RawMessage(`"Fetch page"`), fetch.Metadata["label"])
	assert.Equal(t, json.RawMessage(`"tools"`), fetch.Metadata["catalogType"])
	assert.Equal(t, json.RawMessage(`"web"`), fetch.Metadata["catalogSubtype"])
	assert.Equal(t, json.RawMessage(`"fetcher"`), fetch.Metadata["catalogName"])
	assert.Equal(t, json.RawMessage(`"orig-1"`), fetch.Metadata["originalStepId"])
	assert.Equal(t, json.RawMessage(`"red"`), fetch.Metadata["color"])
	assert.NotContains(t, fetch.Metadata, "stepType")
	assert.NotContains(t, fetch.Metadata, "template")

	sum, ok := tmpl.Steps.Get("summarize")
	require.True(t, ok)
	assert.Equal(t, UnknownStepType, sum.TemplateType)
	assert.Equal(t, map[string]StepInput{
		"template":     Literal("Summarize it"),
		"fetch_output": Placeholder("fetch", "fetch_result"),
	}, sum.Inputs)
}

func TestCompile_MalformedPayloadDefaults(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tmpl, err := Compile(
		[]Node{
			{ID: "A", Data: json.RawMessage(`not json`)},
			{ID: "B", Data: json.RawMessage(`[1,2]`)},
			{ID: "C"},
			{ID: "D", Data: json.RawMessage(`{"stepType": 7, "template": null}`)},
		},
		nil,
		WithLogger(zap.New(core)),
	)
	require.NoError(t, err)

	for _, s := range tmpl.Steps.Steps() {
		assert.Equal(t, UnknownStepType, s.TemplateType, s.ID)
		assert.Empty(t, s.Inputs, s.ID)
	}
	d, _ := tmpl.Steps.Get("D")
	assert.Equal(t, json.RawMessage(`7`), d.Metadata["stepType"])
	assert.Equal(t, 2, logs.FilterMessage("node payload defaulted").Len())
	assert.Equal(t, []ExecutionGroup{par("A", "B", "C", "D")}, tmpl.ExecutionPlan)
}

func TestCompile_CustomEntryAndDuplicates(t *testing.T) {
	tmpl, err := Compile(
		[]Node{
			{ID: "begin"},
			{ID: "start", Data: json.RawMessage(`{"stepType": "first"}`)},
			{ID: "start", Data: json.RawMessage(`{"stepType": "second"}`)},
			{ID: ""},
		},
		[]Edge{edge("begin", "start")},
		WithEntryID("begin"),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"start"}, tmpl.Steps.IDs())
	s, _ := tmpl.Steps.Get("start")
	assert.Equal(t, "first", s.TemplateType)
	assert.Empty(t, s.Dependencies)
}

func TestCompile_Placeholders(t *testing.T) {
	tmpl, err := Compile(
		[]Node{
			{ID: "A"},
			{ID: "B", Data: json.RawMessage(`{"template": {"A_output": "overwritten"}}`)},
			{ID: "C"},
		},
		[]Edge{edge("A", "B"), edge("A", "C"), edge("B", "C")},
	)
	require.NoError(t, err)

	for _, s := range tmpl.Steps.Steps() {
		for _, dep := range s.Dependencies {
			in, ok := s.Inputs[dep+"_output"]
			require.True(t, ok, "%s missing placeholder for %s", s.ID, dep)
			require.True(t, in.IsPlaceholder())
			assert.Equal(t, StepOutputRef{Source: dep, Key: dep + "_result", Kind: "placeholder"}, *in.Ref)
		}
	}
	a, _ := tmpl.Steps.Get("A")
	assert.Empty(t, a.Inputs)
}

func TestCompileWorkflow_Golden(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "chain.workflow.json"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("testdata", "chain.template.json"))
	require.NoError(t, err)

	var w Workflow
	require.NoError(t, json.Unmarshal(raw, &w))

	first, err := CompileWorkflow(&w)
	require.NoError(t, err)
	second, err := CompileWorkflow(&w)
	require.NoError(t, err)

	got1, err := json.Marshal(first)
	require.NoError(t, err)
	got2, err := json.Marshal(second)
	require.NoError(t, err)

	assert.Equal(t, string(got1), string(got2))
	assert.JSONEq(t, string(want), string(got1))
	assert.Equal(t, string(trimNewline(want)), string(got1))

	fp1, err := first.Fingerprint()
	require.NoError(t, err)
	fp2, err := second.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)
}

func TestCompileWorkflow_NameFallsBackToID(t *testing.T) {
	tmpl, err := CompileWorkflow(&Workflow{ID: "wf-1"})
	require.NoError(t, err)
	assert.Equal(t, "wf-1", tmpl.Name)

	tmpl, err = CompileWorkflow(&Workflow{ID: "wf-1", Name: "n"}, WithName("override"))
	require.NoError(t, err)
	assert.Equal(t, "override", tmpl.Name)
}

// TestCompile_RandomDAGs checks the plan invariants on generated graphs.
func TestCompile_RandomDAGs(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))

	for round := 0; round < 200; round++ {
		n := 1 + rng.IntN(12)
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("s%d", i)
		}
		// Shuffle node order so step-map order differs from topological order.
		perm := rng.Perm(n)
		ns := []Node{{ID: "start"}}
		for _, p := range perm {
			ns = append(ns, Node{ID: ids[p]})
		}
		var es []Edge
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if rng.IntN(4) == 0 {
					es = append(es, edge(ids[i], ids[j]))
				}
			}
			if rng.IntN(2) == 0 {
				es = append(es, edge("start", ids[i]))
			}
		}

		tmpl, err := Compile(ns, es)
		require.NoError(t, err, "round %d", round)
		require.NoError(t, Validate(tmpl), "round %d", round)

		seen := 0
		for _, g := range tmpl.ExecutionPlan {
			seen += len(g.Steps)
		}
		assert.Equal(t, n, seen, "round %d", round)

		again, err := Compile(ns, es)
		require.NoError(t, err)
		b1, _ := json.Marshal(tmpl)
		b2, _ := json.Marshal(again)
		require.Equal(t, string(b1), string(b2), "round %d", round)
	}
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
