package handler

import (
	"fmt"
	"net/http"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StoredDilemmaHeader carries the id of a generated dilemma that was saved.
const StoredDilemmaHeader = "X-Stored-Dilemma-Id"

func (h *APIHandler) getDilemma(c *gin.Context) {
	lang, ok := h.language(c)
	if !ok {
		return
	}
	exclude := service.ParseExcludeList(c.Query("exclude"))

	d, err := h.dilemmas.RandomDilemma(c.Request.Context(), lang, exclude)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	h.track(c, models.ActionDilemmaFetched, lang, gin.H{"dilemma_id": d.ID, "source": "database"})
	c.JSON(http.StatusOK, d)
}

func (h *APIHandler) vote(c *gin.Context) {
	lang, ok := h.language(c)
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tally, err := h.dilemmas.Vote(c.Request.Context(), req.ID, req.Vote)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	// Vote already accepted req.Vote, so it parses here.
	yes, _ := service.ParseVote(req.Vote)
	vote, updated := models.VoteNo, map[string]int64{"noCount": tally.NoCount}
	if yes {
		vote, updated = models.VoteYes, map[string]int64{"yesCount": tally.YesCount}
	}

	h.track(c, models.ActionVoteCast, lang, gin.H{"dilemma_id": req.ID, "vote_type": vote})
	c.JSON(http.StatusOK, voteResponse{
		Message: fmt.Sprintf("Successfully recorded your '%s' vote.", vote),
		Updated: updated,
	})
}

func (h *APIHandler) generateDilemma(c *gin.Context) {
	lang, ok := h.language(c)
	if !ok {
		return
	}

	res, err := h.generator.Generate(c.Request.Context(), lang)
	if err != nil {
		h.logger.Warn("Dilemma generation failed", zap.String("language", lang), zap.Error(err))
		handleServiceError(c, err)
		return
	}

	if res.StoredID != "" {
		c.Header(StoredDilemmaHeader, res.StoredID)
	}
	h.track(c, models.ActionDilemmaGenerated, lang, gin.H{"source": "ai_generated", "model": service.ModelOf(res.Completion)})
	c.JSON(http.StatusOK, res.Completion.Response)
}

func (h *APIHandler) analyzeResults(c *gin.Context) {
	lang, ok := h.language(c)
	if !ok {
		return
	}
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.analysis.Analyze(c.Request.Context(), lang, req.Answers, req.DilemmasWithChoices)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	h.track(c, models.ActionResultsAnalyzed, lang, gin.H{"num_dilemmas": len(req.Answers), "averages": res.Averages})
	c.JSON(http.StatusOK, res)
}
