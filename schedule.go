package workflow

import "slices"

// Schedule computes the execution plan for steps and then adds a placeholder
// input to every step for each of its dependencies.
//
// Steps with no dependencies form the first group. After that each pass takes
// the steps whose dependencies are all scheduled. A ready step may share a
// Parallel group only if it has no edge to, and no common dependency with,
// any other unscheduled step. Everything else gets its own Sequential group.
func Schedule(steps StepMap) ([]ExecutionGroup, error) {
	plan, err := buildPlan(steps)
	if err != nil {
		return nil, err
	}
	injectPlaceholders(steps)
	return plan, nil
}

func buildPlan(steps StepMap) ([]ExecutionGroup, error) {
	all := steps.Steps()
	plan := []ExecutionGroup{}
	processed := make(map[string]bool, len(all))

	var seeds []string
	for _, s := range all {
		if len(s.Dependencies) == 0 {
			seeds = append(seeds, s.ID)
			processed[s.ID] = true
		}
	}
	switch len(seeds) {
	case 0:
	case 1:
		plan = append(plan, ExecutionGroup{Mode: Sequential, Steps: seeds})
	default:
		plan = append(plan, ExecutionGroup{Mode: Parallel, Steps: seeds})
	}

	for len(processed) < len(all) {
		var pending, ready []*Step
		for _, s := range all {
			if processed[s.ID] {
				continue
			}
			pending = append(pending, s)
			if dependenciesDone(s, processed) {
				ready = append(ready, s)
			}
		}
		if len(ready) == 0 {
			remaining := make([]string, 0, len(pending))
			for _, s := range pending {
				remaining = append(remaining, s.ID)
			}
			return nil, &CycleError{Remaining: remaining}
		}

		var parallel []string
		for _, s := range ready {
			if independentOfAll(s, pending) {
				parallel = append(parallel, s.ID)
			}
		}
		if len(parallel) > 1 {
			plan = append(plan, ExecutionGroup{Mode: Parallel, Steps: parallel})
			for _, id := range parallel {
				processed[id] = true
			}
		}

		for _, s := range ready {
			if processed[s.ID] {
				continue
			}
			plan = append(plan, ExecutionGroup{Mode: Sequential, Steps: []string{s.ID}})
			processed[s.ID] = true
		}
	}

	return plan, nil
}

func dependenciesDone(s *Step, processed map[string]bool) bool {
	for _, dep := range s.Dependencies {
		if !processed[dep] {
			return false
		}
	}
	return true
}

// independentOfAll reports whether s conflicts with none of the other pending steps.
func independentOfAll(s *Step, pending []*Step) bool {
	for _, other := range pending {
		if other.ID == s.ID {
			continue
		}
		if !independent(s, other) {
			return false
		}
	}
	return true
}

// independent reports whether a and b have no edge between them and no
// dependency in common.
func independent(a, b *Step) bool {
	if slices.Contains(a.Dependencies, b.ID) || slices.Contains(b.Dependencies, a.ID) {
		return false
	}
	for _, dep := range a.Dependencies {
		if slices.Contains(b.Dependencies, dep) {
			return false
		}
	}
	return true
}

func injectPlaceholders(steps StepMap) {
	for _, s := range steps.Steps() {
		if len(s.Dependencies) > 0 && s.Inputs == nil {
			s.Inputs = make(map[string]StepInput, len(s.Dependencies))
		}
		for _, dep := range s.Dependencies {
			key := OutputKey(dep)
			if d, ok := steps.Get(dep); ok {
				key = d.OutputKey
			}
			s.Inputs[PlaceholderKey(dep)] = Placeholder(dep, key)
		}
	}
}
