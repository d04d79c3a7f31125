package steps

import "fmt"

// SkipReason says why a planned step will not execute.
type SkipReason int

const (
	// SkipNone: the step executes.
	SkipNone SkipReason = iota
	// SkipByFlag: the user passed --skip-<id>.
	SkipByFlag
	// SkipNotSelected: an --only selection excluded the step.
	SkipNotSelected
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return ""
	case SkipByFlag:
		return "skipped by flag"
	case SkipNotSelected:
		return "not selected"
	default:
		return "invalid"
	}
}

// Selection is the user's choice of which steps to run.
type Selection struct {
	skip map[string]bool
	only ID
}

// NewSelection selects every step.
func NewSelection() Selection {
	return Selection{skip: make(map[string]bool)}
}

// WithSkip returns a copy that excludes the given steps.
func (s Selection) WithSkip(ids ...ID) Selection {
	skip := make(map[string]bool, len(s.skip)+len(ids))
	for k := range s.skip {
		skip[k] = true
	}
	for _, id := range ids {
		skip[id.String()] = true
	}
	s.skip = skip
	return s
}

// WithOnly returns a copy restricted to id and its transitive
// prerequisites.
func (s Selection) WithOnly(id ID) Selection {
	s.only = id
	return s
}

// PlannedStep is one entry of a resolved plan: the step, in execution
// order, with its skip marker.
type PlannedStep struct {
	Step Step
	Skip SkipReason
}

// Selected reports whether the step will execute.
func (p PlannedStep) Selected() bool {
	return p.Skip == SkipNone
}

// Plan is the resolved, ordered list of steps for one run. Skipped
// steps keep their position so the order of what does run never
// changes.
type Plan struct {
	steps []PlannedStep
}

// Resolve orders the graph and applies the selection. Skipped
// prerequisites do not block their dependents.
func Resolve(g *Graph, sel Selection) (*Plan, error) {
	sorted, err := g.Sort()
	if err != nil {
		return nil, err
	}

	var within map[string]bool
	if !sel.only.IsZero() {
		within, err = g.TransitiveRequires(sel.only)
		if err != nil {
			return nil, fmt.Errorf("unknown step in selection: %w", err)
		}
	}

	plan := &Plan{steps: make([]PlannedStep, 0, len(sorted))}
	for _, step := range sorted {
		ps := PlannedStep{Step: step}
		id := step.ID().String()
		switch {
		case sel.skip[id]:
			ps.Skip = SkipByFlag
		case within != nil && !within[id]:
			ps.Skip = SkipNotSelected
		}
		plan.steps = append(plan.steps, ps)
	}
	return plan, nil
}

// Steps returns every planned step in execution order.
func (p *Plan) Steps() []PlannedStep {
	out := make([]PlannedStep, len(p.steps))
	copy(out, p.steps)
	return out
}

// Selected returns only the steps that will execute, in order.
func (p *Plan) Selected() []Step {
	var out []Step
	for _, ps := range p.steps {
		if ps.Selected() {
			out = append(out, ps.Step)
		}
	}
	return out
}

// Order returns the IDs of every planned step in execution order,
// including skipped ones. This is what the session journal records.
func (p *Plan) Order() []ID {
	out := make([]ID, len(p.steps))
	for i, ps := range p.steps {
		out[i] = ps.Step.ID()
	}
	return out
}

// Get returns the planned step with the given ID.
func (p *Plan) Get(id ID) (PlannedStep, bool) {
	for _, ps := range p.steps {
		if ps.Step.ID() == id {
			return ps, true
		}
	}
	return PlannedStep{}, false
}

// Len returns the number of planned steps.
func (p *Plan) Len() int {
	return len(p.steps)
}
