// Package workflow compiles workflow diagrams into executable templates.
//
// A diagram is a list of nodes and edges drawn on a canvas, anchored by an
// entry node that only marks where the workflow starts. Compile turns every
// other node into a Step, wires each edge into a dependency, and builds an
// execution plan of Sequential and Parallel groups. Each step gets a
// placeholder input for the output of every step it depends on; the engine
// that runs the template resolves those at run time.
//
// Compilation is pure and deterministic: the same nodes and edges, in the
// same order, always produce byte-identical JSON.
package workflow
