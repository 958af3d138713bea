package handler

import (
	"net/http"

	"moral-torture-machine/internal/middleware"
	"moral-torture-machine/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *APIHandler) adminLog(c *gin.Context, msg string, fields ...zap.Field) {
	if claims, ok := middleware.ClaimsFrom(c); ok {
		fields = append(fields, zap.String("admin", claims.Subject))
	}
	h.logger.Info(msg, fields...)
}

func (h *APIHandler) importDilemmas(c *gin.Context) {
	lang, ok := h.language(c)
	if !ok {
		return
	}
	var dilemmas []models.Dilemma
	if err := c.ShouldBindJSON(&dilemmas); err != nil {
		badRequest(c, err)
		return
	}

	n, err := h.admin.ImportDilemmas(c.Request.Context(), lang, dilemmas)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.adminLog(c, "Dilemmas imported", zap.String("language", lang), zap.Int("count", n))
	c.JSON(http.StatusOK, importResponse{Language: lang, Imported: n})
}

func (h *APIHandler) importStoryFlows(c *gin.Context) {
	lang, ok := h.language(c)
	if !ok {
		return
	}
	var flows []models.StoryFlow
	if err := c.ShouldBindJSON(&flows); err != nil {
		badRequest(c, err)
		return
	}

	n, err := h.admin.ImportStoryFlows(c.Request.Context(), lang, flows)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.adminLog(c, "Story flows imported", zap.String("language", lang), zap.Int("count", n))
	c.JSON(http.StatusOK, importResponse{Language: lang, Imported: n})
}

// deleteDilemmas clears every language when no language is given.
func (h *APIHandler) deleteDilemmas(c *gin.Context) {
	lang := c.Query("language")
	n, err := h.admin.DeleteDilemmas(c.Request.Context(), lang)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.adminLog(c, "Dilemmas deleted", zap.String("language", lang), zap.Int64("count", n))
	c.JSON(http.StatusOK, deleteResponse{Language: lang, Deleted: n})
}

func (h *APIHandler) deleteStoryFlows(c *gin.Context) {
	lang := c.Query("language")
	n, err := h.admin.DeleteStoryFlows(c.Request.Context(), lang)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.adminLog(c, "Story flows deleted", zap.String("language", lang), zap.Int64("count", n))
	c.JSON(http.StatusOK, deleteResponse{Language: lang, Deleted: n})
}
