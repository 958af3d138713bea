package story

import (
	"errors"
	"fmt"
	"sort"

	"moral-torture-machine/internal/models"
)

// Validate checks the structure of a flow: the start node exists, every
// pointer resolves or is empty, leaves have no successors and no cycle is
// reachable from the start. All problems are joined into one error.
func Validate(flow *models.StoryFlow) error {
	if flow == nil {
		return fmt.Errorf("%w: nil flow", models.ErrInvalidStory)
	}
	var errs []error
	if _, ok := flow.Nodes[models.StartNodeID]; !ok {
		errs = append(errs, fmt.Errorf("start node %q missing", models.StartNodeID))
	}

	ids := make([]string, 0, len(flow.Nodes))
	for id := range flow.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := flow.Nodes[id]
		if n.IsLeaf && (n.NextNodeOnFirst != "" || n.NextNodeOnSecond != "") {
			errs = append(errs, fmt.Errorf("leaf node %q has successors", id))
		}
		for _, next := range []string{n.NextNodeOnFirst, n.NextNodeOnSecond} {
			if next == "" {
				continue
			}
			if _, ok := flow.Nodes[next]; !ok {
				errs = append(errs, fmt.Errorf("node %q points to missing node %q", id, next))
			}
		}
	}

	if len(errs) == 0 {
		if cyc := findCycle(flow); cyc != "" {
			errs = append(errs, fmt.Errorf("cycle reachable from start through node %q", cyc))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", models.ErrInvalidStory, errors.Join(errs...))
	}
	return nil
}

func findCycle(flow *models.StoryFlow) string {
	const (
		unvisited = iota
		inStack
		done
	)
	state := make(map[string]int, len(flow.Nodes))
	var visit func(id string) string
	visit = func(id string) string {
		switch state[id] {
		case inStack:
			return id
		case done:
			return ""
		}
		state[id] = inStack
		n := flow.Nodes[id]
		for _, next := range []string{n.NextNodeOnFirst, n.NextNodeOnSecond} {
			if next == "" {
				continue
			}
			if _, ok := flow.Nodes[next]; !ok {
				continue
			}
			if c := visit(next); c != "" {
				return c
			}
		}
		state[id] = done
		return ""
	}
	return visit(models.StartNodeID)
}
