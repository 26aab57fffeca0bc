package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/memory"
	"github.com/meikuraledutech/workflow/postgres"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Postgres when DATABASE_URL is set, memory otherwise.
	var store workflow.Store = memory.New(memory.WithIDGenerator(workflow.NewSequenceGenerator("edge", 0)))
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Save a diagram ────────────────────────────────────────────────
	diagram := &workflow.Workflow{
		ID:   "research-report",
		Name: "Research report",
		Nodes: []workflow.Node{
			{ID: "start", Data: json.RawMessage(`{"label": "Start"}`)},
			{ID: "search", Data: json.RawMessage(`{"stepType": "web_search", "template": {"query": "go schedulers"}, "label": "Search"}`)},
			{ID: "papers", Data: json.RawMessage(`{"stepType": "paper_lookup", "template": {"limit": 5}, "label": "Papers"}`)},
			{ID: "summarize", Data: json.RawMessage(`{"stepType": "llm", "template": "Summarize the findings", "catalogName": "gpt"}`)},
		},
		Edges: []workflow.Edge{
			{Source: "start", Target: "search"},
			{Source: "start", Target: "papers"},
			{Source: "search", Target: "summarize"},
			{Source: "papers", Target: "summarize"},
		},
	}
	if _, err := store.CreateWorkflow(ctx, diagram); err != nil {
		log.Fatalf("create workflow: %v", err)
	}
	fmt.Println("workflow saved")

	// ── Compile and store the template ────────────────────────────────
	w, err := store.GetWorkflow(ctx, diagram.ID)
	if err != nil {
		log.Fatalf("get workflow: %v", err)
	}
	tmpl, err := workflow.CompileWorkflow(w, workflow.WithLogger(logger))
	if err != nil {
		log.Fatalf("compile: %v", err)
	}
	if err := store.SaveTemplate(ctx, w.ID, tmpl); err != nil {
		log.Fatalf("save template: %v", err)
	}
	fmt.Println("\ntemplate:")
	printJSON(tmpl)

	// ── A cycle is refused ────────────────────────────────────────────
	_, err = store.AddEdge(ctx, diagram.ID, &workflow.Edge{Source: "summarize", Target: "search"})
	var cycle *workflow.CycleError
	if errors.As(err, &cycle) {
		fmt.Printf("\nedge refused, unschedulable steps: %v\n", cycle.Remaining)
	}

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteWorkflow(ctx, diagram.ID); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nworkflow deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
