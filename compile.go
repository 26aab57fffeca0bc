package workflow

import (
	"go.uber.org/zap"
)

type options struct {
	entryID string
	name    string
	logger  *zap.Logger
}

// Option configures a Compiler.
type Option func(*options)

// WithEntryID sets the id of the entry marker node. Default is DefaultEntryID.
func WithEntryID(id string) Option {
	return func(o *options) { o.entryID = id }
}

// WithName sets the name of the compiled template.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger used to report dropped nodes and edges.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Compiler turns diagrams into templates. It holds configuration only and is
// safe for concurrent use.
type Compiler struct {
	opts options
}

// New returns a Compiler with the given options applied.
func New(opts ...Option) *Compiler {
	o := options{entryID: DefaultEntryID, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Compiler{opts: o}
}

// Compile normalizes the diagram, schedules its steps and returns the template.
// It returns a *CycleError when the steps cannot be ordered.
func (c *Compiler) Compile(nodes []Node, edges []Edge) (*Template, error) {
	steps := c.Normalize(nodes, edges)
	plan, err := Schedule(steps)
	if err != nil {
		c.opts.logger.Debug("compile failed", zap.String("name", c.opts.name), zap.Error(err))
		return nil, err
	}

	c.opts.logger.Debug("compiled workflow",
		zap.String("name", c.opts.name),
		zap.Int("steps", steps.Len()),
		zap.Int("groups", len(plan)),
	)
	return &Template{Name: c.opts.name, Steps: steps, ExecutionPlan: plan}, nil
}

// Compile is a shorthand for New(opts...).Compile(nodes, edges).
func Compile(nodes []Node, edges []Edge, opts ...Option) (*Template, error) {
	return New(opts...).Compile(nodes, edges)
}

// CompileWorkflow compiles a stored diagram. The template is named after the
// workflow unless WithName is given.
func CompileWorkflow(w *Workflow, opts ...Option) (*Template, error) {
	name := w.Name
	if name == "" {
		name = w.ID
	}
	return Compile(w.Nodes, w.Edges, append([]Option{WithName(name)}, opts...)...)
}
