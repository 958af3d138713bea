package story

import (
	"fmt"
	"strings"

	"moral-torture-machine/internal/models"
)

// ParseVote converts "first"/"second" (any case) into a side.
func ParseVote(vote string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(vote)) {
	case models.StoryVoteFirst:
		return true, nil
	case models.StoryVoteSecond:
		return false, nil
	}
	return false, fmt.Errorf("%w: vote must be 'first' or 'second'", models.ErrInvalidVote)
}

// ResolveVote answers node nodeID of flow with vote. NextNodeID keeps the raw
// pointer even when it does not resolve; the result is complete when the node
// is a leaf or there is no next node.
func ResolveVote(flow *models.StoryFlow, nodeID, vote string) (*models.StoryVoteResult, error) {
	first, err := ParseVote(vote)
	if err != nil {
		return nil, err
	}
	node, ok := flow.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrNodeNotFound, nodeID)
	}

	res := &models.StoryVoteResult{CurrentNode: node}
	if next := node.Next(first); next != "" {
		res.NextNodeID = &next
		res.NextNode, _ = flow.Node(next)
	}
	res.IsComplete = node.IsLeaf || res.NextNode == nil
	return res, nil
}
