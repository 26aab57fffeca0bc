package workflow

import (
	"slices"

	"go.uber.org/zap"
)

// OutputKey returns the key under which step id publishes its result.
func OutputKey(id string) string { return id + "_result" }

// PlaceholderKey returns the input key a dependent step uses for the output of dep.
func PlaceholderKey(dep string) string { return dep + "_output" }

// Normalize turns diagram nodes and edges into a step map with dependencies.
//
// The entry node is dropped along with every edge leaving it. Edges whose
// source or target is not a step are dropped, and so are repeated edges.
// Nothing here fails: bad payloads fall back to defaults.
func (c *Compiler) Normalize(nodes []Node, edges []Edge) StepMap {
	log := c.opts.logger
	var steps StepMap

	for _, n := range nodes {
		if n.ID == c.opts.entryID {
			continue
		}
		if n.ID == "" {
			log.Debug("node without id dropped")
			continue
		}
		data, err := DecodeNodeData(n.Data)
		if err != nil {
			log.Debug("node payload defaulted", zap.String("node", n.ID), zap.Error(err))
		}
		s := &Step{
			ID:           n.ID,
			TemplateType: data.TemplateType(),
			Inputs:       data.Inputs(),
			Dependencies: []string{},
			OutputKey:    OutputKey(n.ID),
			Metadata:     data.Metadata(),
		}
		if !steps.Add(s) {
			log.Debug("duplicate node dropped", zap.String("node", n.ID))
		}
	}

	for _, e := range edges {
		if e.Source == c.opts.entryID {
			continue
		}
		target, ok := steps.Get(e.Target)
		if !ok {
			log.Debug("edge dropped: unknown target",
				zap.String("source", e.Source), zap.String("target", e.Target))
			continue
		}
		if !steps.Has(e.Source) {
			log.Debug("edge dropped: unknown source",
				zap.String("source", e.Source), zap.String("target", e.Target))
			continue
		}
		if slices.Contains(target.Dependencies, e.Source) {
			continue
		}
		target.Dependencies = append(target.Dependencies, e.Source)
	}

	return steps
}
