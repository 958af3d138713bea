package models

import "time"

// StartNodeID is the id of the first node of every story flow.
const StartNodeID = "1"

// Story vote values accepted by POST /story-node-vote.
const (
	StoryVoteFirst  = "first"
	StoryVoteSecond = "second"
)

// StoryNode is one dilemma inside a branching story.
type StoryNode struct {
	Dilemma          string `json:"dilemma"`
	FirstAnswer      string `json:"firstAnswer"`
	SecondAnswer     string `json:"secondAnswer"`
	TeaseOption1     string `json:"teaseOption1"`
	TeaseOption2     string `json:"teaseOption2"`
	NextNodeOnFirst  string `json:"nextNodeOnFirst,omitempty"`
	NextNodeOnSecond string `json:"nextNodeOnSecond,omitempty"`
	IsLeaf           bool   `json:"isLeaf"`
	Depth            int    `json:"depth"`

	FirstAnswerEmpathy         float64 `json:"firstAnswerEmpathy"`
	FirstAnswerIntegrity       float64 `json:"firstAnswerIntegrity"`
	FirstAnswerResponsibility  float64 `json:"firstAnswerResponsibility"`
	FirstAnswerJustice         float64 `json:"firstAnswerJustice"`
	FirstAnswerAltruism        float64 `json:"firstAnswerAltruism"`
	FirstAnswerHonesty         float64 `json:"firstAnswerHonesty"`
	SecondAnswerEmpathy        float64 `json:"secondAnswerEmpathy"`
	SecondAnswerIntegrity      float64 `json:"secondAnswerIntegrity"`
	SecondAnswerResponsibility float64 `json:"secondAnswerResponsibility"`
	SecondAnswerJustice        float64 `json:"secondAnswerJustice"`
	SecondAnswerAltruism       float64 `json:"secondAnswerAltruism"`
	SecondAnswerHonesty        float64 `json:"secondAnswerHonesty"`
}

// Choice returns the trait scores of the chosen side.
func (n *StoryNode) Choice(first bool) TraitVector {
	if first {
		return TraitVector{
			Empathy:        n.FirstAnswerEmpathy,
			Integrity:      n.FirstAnswerIntegrity,
			Responsibility: n.FirstAnswerResponsibility,
			Justice:        n.FirstAnswerJustice,
			Altruism:       n.FirstAnswerAltruism,
			Honesty:        n.FirstAnswerHonesty,
		}
	}
	return TraitVector{
		Empathy:        n.SecondAnswerEmpathy,
		Integrity:      n.SecondAnswerIntegrity,
		Responsibility: n.SecondAnswerResponsibility,
		Justice:        n.SecondAnswerJustice,
		Altruism:       n.SecondAnswerAltruism,
		Honesty:        n.SecondAnswerHonesty,
	}
}

// Tease returns the reaction text for the chosen side.
func (n *StoryNode) Tease(first bool) string {
	if first {
		return n.TeaseOption1
	}
	return n.TeaseOption2
}

// Answer returns the label of the chosen side.
func (n *StoryNode) Answer(first bool) string {
	if first {
		return n.FirstAnswer
	}
	return n.SecondAnswer
}

// Next returns the node id reached by the chosen side. Empty means none.
func (n *StoryNode) Next(first bool) string {
	if first {
		return n.NextNodeOnFirst
	}
	return n.NextNodeOnSecond
}

// StoryFlow is a complete branching story in one language.
type StoryFlow struct {
	ID          string               `json:"_id" db:"id"`
	BaseID      string               `json:"baseId" db:"base_id"`
	Language    string               `json:"language" db:"language"`
	Title       string               `json:"title" db:"title"`
	Description string               `json:"description" db:"description"`
	Nodes       map[string]StoryNode `json:"nodes" db:"nodes"`
	CreatedAt   time.Time            `json:"-" db:"created_at"`
}

// Node looks a node up by id.
func (f *StoryFlow) Node(id string) (*StoryNode, bool) {
	if id == "" {
		return nil, false
	}
	n, ok := f.Nodes[id]
	if !ok {
		return nil, false
	}
	return &n, true
}

// StoryVoteResult is the response of POST /story-node-vote.
type StoryVoteResult struct {
	CurrentNode *StoryNode `json:"currentNode"`
	NextNodeID  *string    `json:"nextNodeId"`
	NextNode    *StoryNode `json:"nextNode"`
	IsComplete  bool       `json:"isComplete"`
}

// StoryNodeStats is the community split on a story node.
type StoryNodeStats struct {
	FlowID      string `json:"flowId" db:"flow_id"`
	NodeID      string `json:"nodeId" db:"node_id"`
	FirstCount  int64  `json:"firstCount" db:"first_count"`
	SecondCount int64  `json:"secondCount" db:"second_count"`
}
