package steps

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errors for Graph operations.
var (
	ErrDuplicateStep    = errors.New("step with this ID already exists")
	ErrCyclicDependency = errors.New("cyclic dependency detected")
	ErrMissingPrereq    = errors.New("step requires nonexistent step")
)

// Graph is a directed acyclic graph of steps. Declaration order is
// significant: it breaks ties in the topological sort, so two
// invocations over the same graph always produce the same plan.
type Graph struct {
	steps    map[string]Step
	order    []string            // insertion order, for deterministic ties
	requires map[string][]string // step ID -> prerequisite IDs
	enables  map[string][]string // step ID -> steps that require it
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		steps:    make(map[string]Step),
		requires: make(map[string][]string),
		enables:  make(map[string][]string),
	}
}

// Len returns the number of steps in the graph.
func (g *Graph) Len() int {
	return len(g.steps)
}

// Add adds a step to the graph. Returns ErrDuplicateStep if a step
// with the same ID was already added.
func (g *Graph) Add(step Step) error {
	id := step.ID().String()
	if _, exists := g.steps[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStep, id)
	}

	g.steps[id] = step
	g.order = append(g.order, id)

	reqs := step.Requires()
	reqIDs := make([]string, len(reqs))
	for i, req := range reqs {
		reqID := req.String()
		reqIDs[i] = reqID
		g.enables[reqID] = append(g.enables[reqID], id)
	}
	g.requires[id] = reqIDs
	return nil
}

// Get retrieves a step by ID.
func (g *Graph) Get(id ID) (Step, bool) {
	step, ok := g.steps[id.String()]
	return step, ok
}

// Validate checks that every prerequisite names a step in the graph.
func (g *Graph) Validate() error {
	for _, id := range g.order {
		for _, reqID := range g.requires[id] {
			if _, exists := g.steps[reqID]; !exists {
				return fmt.Errorf("%w: step %q requires %q", ErrMissingPrereq, id, reqID)
			}
		}
	}
	return nil
}

// Sort returns the steps in dependency order. Among steps whose
// prerequisites are all satisfied, declaration order decides. Returns
// ErrCyclicDependency naming the steps involved if the graph has a
// cycle, and ErrMissingPrereq for dangling prerequisites.
func (g *Graph) Sort() ([]Step, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, len(g.steps))
	for _, id := range g.order {
		inDegree[id] = len(g.requires[id])
	}

	sorted := make([]Step, 0, len(g.steps))
	done := make(map[string]bool, len(g.steps))

	for len(sorted) < len(g.steps) {
		// First declared step with no unsatisfied prerequisites.
		next := ""
		for _, id := range g.order {
			if !done[id] && inDegree[id] == 0 {
				next = id
				break
			}
		}
		if next == "" {
			return nil, fmt.Errorf("%w: involving %s", ErrCyclicDependency,
				strings.Join(g.unsortedIDs(done), ", "))
		}

		done[next] = true
		sorted = append(sorted, g.steps[next])
		for _, dependent := range g.enables[next] {
			inDegree[dependent]--
		}
	}

	return sorted, nil
}

// TransitiveRequires returns the IDs of id plus everything it
// transitively requires.
func (g *Graph) TransitiveRequires(id ID) (map[string]bool, error) {
	root := id.String()
	if _, ok := g.steps[root]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingPrereq, root)
	}

	closure := make(map[string]bool)
	stack := []string{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if closure[cur] {
			continue
		}
		closure[cur] = true
		stack = append(stack, g.requires[cur]...)
	}
	return closure, nil
}

func (g *Graph) unsortedIDs(done map[string]bool) []string {
	var ids []string
	for _, id := range g.order {
		if !done[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
