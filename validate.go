package workflow

// Validate checks the invariants of a compiled template:
//
//   - every step appears in exactly one group and every group step exists
//   - Sequential groups hold one step, Parallel groups at least two
//   - every dependency is scheduled in an earlier group
//   - members of a Parallel group share no edge and no dependency
//   - every dependency has a matching placeholder input
//
// It is used on templates loaded from storage, where nothing guarantees they
// came out of Compile unchanged.
func Validate(t *Template) error {
	if t == nil {
		return invalidf("coverage", "nil template")
	}

	groupOf := make(map[string]int, t.Steps.Len())
	for i, g := range t.ExecutionPlan {
		switch g.Mode {
		case Sequential:
			if len(g.Steps) != 1 {
				return invalidf("group_size", "sequential group %d has %d steps", i, len(g.Steps))
			}
		case Parallel:
			if len(g.Steps) < 2 {
				return invalidf("group_size", "parallel group %d has %d steps", i, len(g.Steps))
			}
		default:
			return invalidf("group_size", "group %d has unknown mode %q", i, g.Mode)
		}
		for _, id := range g.Steps {
			if !t.Steps.Has(id) {
				return invalidf("dangling_reference", "group %d names unknown step %q", i, id)
			}
			if prev, dup := groupOf[id]; dup {
				return invalidf("coverage", "step %q scheduled in groups %d and %d", id, prev, i)
			}
			groupOf[id] = i
		}
	}

	for _, s := range t.Steps.Steps() {
		gi, ok := groupOf[s.ID]
		if !ok {
			return invalidf("coverage", "step %q is not scheduled", s.ID)
		}
		for _, dep := range s.Dependencies {
			d, ok := t.Steps.Get(dep)
			if !ok {
				return invalidf("dangling_reference", "step %q depends on unknown step %q", s.ID, dep)
			}
			if groupOf[dep] >= gi {
				return invalidf("order", "step %q is scheduled before its dependency %q", s.ID, dep)
			}
			in, ok := s.Inputs[PlaceholderKey(dep)]
			if !ok || in.Ref == nil {
				return invalidf("placeholder", "step %q has no placeholder for %q", s.ID, dep)
			}
			if *in.Ref != (StepOutputRef{Source: dep, Key: d.OutputKey, Kind: PlaceholderKind}) {
				return invalidf("placeholder", "step %q placeholder for %q points at %s/%s", s.ID, dep, in.Ref.Source, in.Ref.Key)
			}
		}
		for key, in := range s.Inputs {
			if in.Ref != nil && !t.Steps.Has(in.Ref.Source) {
				return invalidf("dangling_reference", "step %q input %q refers to unknown step %q", s.ID, key, in.Ref.Source)
			}
		}
	}

	for i, g := range t.ExecutionPlan {
		if g.Mode != Parallel {
			continue
		}
		for a := 0; a < len(g.Steps); a++ {
			for b := a + 1; b < len(g.Steps); b++ {
				sa, _ := t.Steps.Get(g.Steps[a])
				sb, _ := t.Steps.Get(g.Steps[b])
				if !independent(sa, sb) {
					return invalidf("parallel_conflict", "group %d: %q and %q are not independent", i, sa.ID, sb.ID)
				}
			}
		}
	}

	return nil
}
