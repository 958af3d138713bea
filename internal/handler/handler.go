package handler

import (
	"net/http"

	"moral-torture-machine/internal/live"
	"moral-torture-machine/internal/middleware"
	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the services behind the HTTP API. Hub and Verifier are optional:
// without a hub /ws/tally is not served, without a verifier the admin routes
// are not registered.
type Deps struct {
	Dilemmas  service.DilemmaService
	Generator service.GeneratorService
	Analysis  service.AnalysisService
	Stories   service.StoryService
	Admin     service.AdminService
	Tracker   service.AnalyticsTracker
	Health    *service.HealthService
	Hub       *live.Hub
	Verifier  middleware.TokenVerifier
}

// APIHandler serves the public game API and the admin routes.
type APIHandler struct {
	dilemmas  service.DilemmaService
	generator service.GeneratorService
	analysis  service.AnalysisService
	stories   service.StoryService
	admin     service.AdminService
	tracker   service.AnalyticsTracker
	health    *service.HealthService
	hub       *live.Hub
	verifier  middleware.TokenVerifier
	logger    *zap.Logger
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(deps Deps, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		dilemmas:  deps.Dilemmas,
		generator: deps.Generator,
		analysis:  deps.Analysis,
		stories:   deps.Stories,
		admin:     deps.Admin,
		tracker:   deps.Tracker,
		health:    deps.Health,
		hub:       deps.Hub,
		verifier:  deps.Verifier,
		logger:    logger.Named("APIHandler"),
	}
}

// RegisterRoutes registers every route. aiLimiter guards the endpoints that
// call the language model.
func (h *APIHandler) RegisterRoutes(router *gin.Engine, aiLimiter gin.HandlerFunc) {
	router.GET("/", h.root)
	router.GET("/health", h.healthCheck)
	router.HEAD("/health", h.healthCheck)

	router.GET("/get-dilemma", h.getDilemma)
	router.POST("/vote", h.vote)
	router.POST("/generate-dilemma", aiLimiter, h.generateDilemma)
	router.POST("/analyze-results", aiLimiter, h.analyzeResults)

	router.GET("/get-story-flow", h.getStoryFlow)
	router.POST("/story-node-vote", h.storyNodeVote)
	router.GET("/story-node-stats", h.storyNodeStats)

	if h.hub != nil {
		router.GET("/ws/tally", gin.WrapF(h.hub.ServeWS))
	}

	if h.verifier == nil {
		h.logger.Warn("No admin token verifier configured, admin routes disabled")
		return
	}
	admin := router.Group("/admin", middleware.AdminAuth(h.verifier, h.logger, models.RoleAdmin))
	{
		admin.POST("/dilemmas", h.importDilemmas)
		admin.DELETE("/dilemmas", h.deleteDilemmas)
		admin.POST("/story-flows", h.importStoryFlows)
		admin.DELETE("/story-flows", h.deleteStoryFlows)
	}
}

func (h *APIHandler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Moral Torture Machine API"})
}

func (h *APIHandler) healthCheck(c *gin.Context) {
	report := h.health.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status == service.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// language reads and validates the language query parameter, answering 400
// itself when it is invalid.
func (h *APIHandler) language(c *gin.Context) (string, bool) {
	lang := c.DefaultQuery("language", service.DefaultLanguage)
	if err := service.ValidateLanguage(lang); err != nil {
		handleServiceError(c, err)
		return "", false
	}
	return lang, true
}

// track publishes an analytics event for the current request.
func (h *APIHandler) track(c *gin.Context, actionType, language string, data any) {
	if h.tracker == nil {
		return
	}
	meta := service.RequestMeta{
		SessionID: middleware.SessionID(c),
		UserAgent: c.Request.UserAgent(),
		ClientIP:  c.ClientIP(),
	}
	h.tracker.Track(c.Request.Context(), meta, actionType, language, data)
}
