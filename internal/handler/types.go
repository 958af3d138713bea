package handler

import "moral-torture-machine/internal/models"

type voteRequest struct {
	ID   string `json:"_id"`
	Vote string `json:"vote"`
}

type voteResponse struct {
	Message string           `json:"message"`
	Updated map[string]int64 `json:"updated"`
}

type analyzeRequest struct {
	Answers             []map[string]float64       `json:"answers"`
	DilemmasWithChoices []models.DilemmaWithChoice `json:"dilemmasWithChoices"`
}

type storyNodeVoteRequest struct {
	FlowID string `json:"flowId"`
	NodeID string `json:"nodeId"`
	Vote   string `json:"vote"`
}

type importResponse struct {
	Language string `json:"language"`
	Imported int    `json:"imported"`
}

type deleteResponse struct {
	Language string `json:"language,omitempty"`
	Deleted  int64  `json:"deleted"`
}
