package handler

import (
	"net/http"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/pkg/story"

	"github.com/gin-gonic/gin"
)

func (h *APIHandler) getStoryFlow(c *gin.Context) {
	lang, ok := h.language(c)
	if !ok {
		return
	}

	flow, err := h.stories.GetFlow(c.Request.Context(), lang, c.Query("flowId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	h.track(c, models.ActionStoryFlowFetched, lang, gin.H{
		"flow_id":    flow.ID,
		"flow_title": flow.Title,
		"language":   lang,
	})
	c.JSON(http.StatusOK, flow)
}

func (h *APIHandler) storyNodeVote(c *gin.Context) {
	lang, ok := h.language(c)
	if !ok {
		return
	}
	var req storyNodeVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.stories.Vote(c.Request.Context(), req.FlowID, req.NodeID, req.Vote)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	isLeaf := res.CurrentNode != nil && res.CurrentNode.IsLeaf
	vote := models.StoryVoteSecond
	if first, _ := story.ParseVote(req.Vote); first {
		vote = models.StoryVoteFirst
	}
	h.track(c, models.ActionStoryNodeVote, lang, gin.H{
		"flow_id":      req.FlowID,
		"node_id":      req.NodeID,
		"vote":         vote,
		"next_node_id": res.NextNodeID,
		"is_leaf":      isLeaf,
	})
	c.JSON(http.StatusOK, res)
}

func (h *APIHandler) storyNodeStats(c *gin.Context) {
	stats, err := h.stories.Stats(c.Request.Context(), c.Query("flowId"), c.Query("nodeId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
