package main

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/workflow"
	"go.uber.org/zap"
)

// compileRequest is the body of POST /compile.
type compileRequest struct {
	Name  string          `json:"name"`
	Nodes []workflow.Node `json:"nodes"`
	Edges []workflow.Edge `json:"edges"`
}

type api struct {
	store    workflow.Store
	compiler []workflow.Option
	log      *zap.Logger
}

// newApp wires the HTTP routes onto a fiber app.
func newApp(store workflow.Store, log *zap.Logger, entryID string) *fiber.App {
	a := &api{
		store:    store,
		compiler: []workflow.Option{workflow.WithEntryID(entryID), workflow.WithLogger(log)},
		log:      log,
	}

	// Route params are stored as ids, so they must not alias fiber's buffers.
	app := fiber.New(fiber.Config{Immutable: true})

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := a.store.CreateSchema(c.Context()); err != nil {
			return a.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := a.store.DropSchema(c.Context()); err != nil {
			return a.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Stateless compile ─────────────────────────────────────────────
	app.Post("/compile", func(c fiber.Ctx) error {
		var req compileRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		opts := append([]workflow.Option{workflow.WithName(req.Name)}, a.compiler...)
		tmpl, err := workflow.Compile(req.Nodes, req.Edges, opts...)
		if err != nil {
			return a.fail(c, err)
		}
		return a.sendTemplate(c, 200, tmpl)
	})

	// ── Workflows (bulk) ──────────────────────────────────────────────
	app.Post("/workflows", func(c fiber.Ctx) error {
		var w workflow.Workflow
		if err := c.Bind().JSON(&w); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		result, err := a.store.CreateWorkflow(c.Context(), &w)
		if err != nil {
			return a.fail(c, err)
		}
		return c.Status(201).JSON(result)
	})

	app.Get("/workflows/:id", func(c fiber.Ctx) error {
		w, err := a.store.GetWorkflow(c.Context(), c.Params("id"))
		if err != nil {
			return a.fail(c, err)
		}
		if w == nil {
			return c.Status(404).JSON(fiber.Map{"error": "workflow not found"})
		}
		return c.JSON(w)
	})

	app.Delete("/workflows/:id", func(c fiber.Ctx) error {
		if err := a.store.DeleteWorkflow(c.Context(), c.Params("id")); err != nil {
			return a.fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/workflows/:id/nodes", func(c fiber.Ctx) error {
		var node workflow.Node
		if err := c.Bind().JSON(&node); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		id, err := a.store.AddNode(c.Context(), c.Params("id"), &node)
		if err != nil {
			return a.fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Get("/workflows/:id/nodes", func(c fiber.Ctx) error {
		nodes, err := a.store.ListNodes(c.Context(), c.Params("id"))
		if err != nil {
			return a.fail(c, err)
		}
		return c.JSON(nodes)
	})

	app.Get("/workflows/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		n, err := a.store.GetNode(c.Context(), c.Params("id"), c.Params("nodeID"))
		if err != nil {
			return a.fail(c, err)
		}
		if n == nil {
			return c.Status(404).JSON(fiber.Map{"error": "node not found"})
		}
		return c.JSON(n)
	})

	app.Put("/workflows/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		var node workflow.Node
		if err := c.Bind().JSON(&node); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		node.ID = c.Params("nodeID")
		if err := a.store.UpdateNode(c.Context(), c.Params("id"), &node); err != nil {
			return a.fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Delete("/workflows/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		if err := a.store.DeleteNode(c.Context(), c.Params("id"), c.Params("nodeID")); err != nil {
			return a.fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/workflows/:id/edges", func(c fiber.Ctx) error {
		var edge workflow.Edge
		if err := c.Bind().JSON(&edge); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		id, err := a.store.AddEdge(c.Context(), c.Params("id"), &edge)
		if err != nil {
			return a.fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Get("/workflows/:id/edges", func(c fiber.Ctx) error {
		edges, err := a.store.ListEdges(c.Context(), c.Params("id"))
		if err != nil {
			return a.fail(c, err)
		}
		return c.JSON(edges)
	})

	app.Get("/workflows/:id/edges/:edgeID", func(c fiber.Ctx) error {
		e, err := a.store.GetEdge(c.Context(), c.Params("id"), c.Params("edgeID"))
		if err != nil {
			return a.fail(c, err)
		}
		if e == nil {
			return c.Status(404).JSON(fiber.Map{"error": "edge not found"})
		}
		return c.JSON(e)
	})

	app.Put("/workflows/:id/edges/:edgeID", func(c fiber.Ctx) error {
		var edge workflow.Edge
		if err := c.Bind().JSON(&edge); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		edge.ID = c.Params("edgeID")
		if err := a.store.UpdateEdge(c.Context(), c.Params("id"), &edge); err != nil {
			return a.fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Delete("/workflows/:id/edges/:edgeID", func(c fiber.Ctx) error {
		if err := a.store.DeleteEdge(c.Context(), c.Params("id"), c.Params("edgeID")); err != nil {
			return a.fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Templates ─────────────────────────────────────────────────────
	app.Post("/workflows/:id/compile", func(c fiber.Ctx) error {
		w, err := a.store.GetWorkflow(c.Context(), c.Params("id"))
		if err != nil {
			return a.fail(c, err)
		}
		if w == nil {
			return c.Status(404).JSON(fiber.Map{"error": "workflow not found"})
		}
		tmpl, err := workflow.CompileWorkflow(w, a.compiler...)
		if err != nil {
			return a.fail(c, err)
		}
		if err := a.store.SaveTemplate(c.Context(), w.ID, tmpl); err != nil {
			return a.fail(c, err)
		}
		a.log.Info("workflow compiled",
			zap.String("workflow", w.ID),
			zap.Int("steps", tmpl.Steps.Len()),
			zap.Int("groups", len(tmpl.ExecutionPlan)),
		)
		return a.sendTemplate(c, 201, tmpl)
	})

	app.Get("/workflows/:id/template", func(c fiber.Ctx) error {
		tmpl, err := a.store.GetTemplate(c.Context(), c.Params("id"))
		if err != nil {
			return a.fail(c, err)
		}
		return a.sendTemplate(c, 200, tmpl)
	})

	return app
}

// sendTemplate writes the template with its fingerprint in a header.
func (a *api) sendTemplate(c fiber.Ctx, status int, tmpl *workflow.Template) error {
	fp, err := tmpl.Fingerprint()
	if err != nil {
		return a.fail(c, err)
	}
	c.Set("X-Template-Fingerprint", fp)
	return c.Status(status).JSON(tmpl)
}

// fail maps store and compiler errors to HTTP responses.
func (a *api) fail(c fiber.Ctx, err error) error {
	var cycle *workflow.CycleError
	switch {
	case errors.As(err, &cycle):
		return c.Status(422).JSON(fiber.Map{"error": "cycle detected", "remaining": cycle.Remaining})
	case errors.Is(err, workflow.ErrCycleDetected):
		return c.Status(422).JSON(fiber.Map{"error": "cycle detected"})
	case errors.Is(err, workflow.ErrWorkflowNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "workflow not found"})
	case errors.Is(err, workflow.ErrNodeNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	case errors.Is(err, workflow.ErrEdgeNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "edge not found"})
	case errors.Is(err, workflow.ErrTemplateNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "template not found"})
	case errors.Is(err, workflow.ErrDuplicateID):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	}
	a.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(500).JSON(fiber.Map{"error": err.Error()})
}
