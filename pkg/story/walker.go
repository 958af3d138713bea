// Package story walks branching story flows and resolves story votes.
package story

import (
	"errors"
	"fmt"

	"moral-torture-machine/internal/models"
)

// ErrChoicePending is returned by Choose when the current node was already answered.
var ErrChoicePending = errors.New("choice already made for current node")

// ErrNoChoice is returned by Advance before any choice on the current node.
var ErrNoChoice = errors.New("no choice made for current node")

// Step is the outcome of answering one node.
type Step struct {
	NodeID     string
	Node       *models.StoryNode
	First      bool
	Tease      string
	NextNodeID string
	NextNode   *models.StoryNode
	Complete   bool
}

// Walker tracks a player's path through a flow.
type Walker struct {
	flow      *models.StoryFlow
	currentID string
	pending   *Step
	complete  bool
	history   []models.DilemmaWithChoice
	answers   []models.TraitVector
	path      []string
}

// NewWalker starts a walk at the start node.
func NewWalker(flow *models.StoryFlow) (*Walker, error) {
	if flow == nil {
		return nil, fmt.Errorf("%w: nil flow", models.ErrInvalidStory)
	}
	if _, ok := flow.Node(models.StartNodeID); !ok {
		return nil, fmt.Errorf("%w: start node %q", models.ErrNodeNotFound, models.StartNodeID)
	}
	return &Walker{flow: flow, currentID: models.StartNodeID}, nil
}

// Flow returns the flow being walked.
func (w *Walker) Flow() *models.StoryFlow { return w.flow }

// Current returns the id and node the player is looking at.
func (w *Walker) Current() (string, *models.StoryNode) {
	n, _ := w.flow.Node(w.currentID)
	return w.currentID, n
}

// Done reports whether the walk has finished.
func (w *Walker) Done() bool { return w.complete }

// Choose answers the current node. The chosen trait vector and the node are
// recorded; the walk is complete when the node is a leaf or the next id does
// not resolve.
func (w *Walker) Choose(first bool) (Step, error) {
	if w.complete {
		return Step{}, models.ErrStoryComplete
	}
	if w.pending != nil {
		return Step{}, ErrChoicePending
	}
	id, node := w.Current()
	if node == nil {
		return Step{}, fmt.Errorf("%w: %q", models.ErrNodeNotFound, id)
	}

	step := Step{
		NodeID:     id,
		Node:       node,
		First:      first,
		Tease:      node.Tease(first),
		NextNodeID: node.Next(first),
	}
	step.NextNode, _ = w.flow.Node(step.NextNodeID)
	step.Complete = node.IsLeaf || step.NextNode == nil

	chosen := node.Choice(first)
	w.answers = append(w.answers, chosen)
	w.history = append(w.history, models.DilemmaWithChoice{
		Dilemma:      node.Dilemma,
		FirstAnswer:  node.FirstAnswer,
		SecondAnswer: node.SecondAnswer,
		ChosenAnswer: node.Answer(first),
		ChosenValues: chosen.Map(),
	})
	w.path = append(w.path, id)
	w.pending = &step
	return step, nil
}

// Advance moves to the node resolved by the last choice.
func (w *Walker) Advance() error {
	if w.complete {
		return models.ErrStoryComplete
	}
	if w.pending == nil {
		return ErrNoChoice
	}
	step := w.pending
	w.pending = nil
	if step.Complete {
		w.complete = true
		return models.ErrStoryComplete
	}
	w.currentID = step.NextNodeID
	return nil
}

// History returns the answered nodes in order, ready for results analysis.
func (w *Walker) History() []models.DilemmaWithChoice {
	out := make([]models.DilemmaWithChoice, len(w.history))
	copy(out, w.history)
	return out
}

// Answers returns the chosen trait vectors in order.
func (w *Walker) Answers() []models.TraitVector {
	out := make([]models.TraitVector, len(w.answers))
	copy(out, w.answers)
	return out
}

// Path returns the ids of the answered nodes.
func (w *Walker) Path() []string {
	out := make([]string, len(w.path))
	copy(out, w.path)
	return out
}
