package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/banking/sar-intelligence/internal/domain"
	"github.com/banking/sar-intelligence/internal/service"
	"github.com/labstack/echo/v4"
)

type ScoringHandler struct {
	scoringService      *service.ScoringService
	intelligenceService *service.IntelligenceService
}

func NewScoringHandler(scoringService *service.ScoringService, intelligenceService *service.IntelligenceService) *ScoringHandler {
	return &ScoringHandler{
		scoringService:      scoringService,
		intelligenceService: intelligenceService,
	}
}

// AnalyzeCaseRisk handles POST /scoring/cases/:case_ref/risk
func (h *ScoringHandler) AnalyzeCaseRisk(c echo.Context) error {
	caseRef := c.Param("case_ref")

	profile, err := h.scoringService.AnalyzeCaseRisk(c.Request().Context(), caseRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "case not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "risk analysis failed"})
	}

	return c.JSON(http.StatusOK, profile)
}

// DetectTypologies handles POST /scoring/sars/:sar_ref/typologies
func (h *ScoringHandler) DetectTypologies(c echo.Context) error {
	sarRef := c.Param("sar_ref")

	detections, err := h.scoringService.DetectTypologies(c.Request().Context(), sarRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "sar not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "typology detection failed"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"sar_ref":    sarRef,
		"detections": detections,
	})
}

// SimulateReview handles POST /scoring/sars/:sar_ref/simulate
func (h *ScoringHandler) SimulateReview(c echo.Context) error {
	sarRef := c.Param("sar_ref")

	assessment, err := h.scoringService.SimulateRegulatoryReview(c.Request().Context(), sarRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "sar not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "regulatory simulation failed"})
	}

	return c.JSON(http.StatusOK, assessment)
}

// GetImprovementPlan handles GET /scoring/sars/:sar_ref/improvement-plan
func (h *ScoringHandler) GetImprovementPlan(c echo.Context) error {
	sarRef := c.Param("sar_ref")

	plan, err := h.scoringService.BuildImprovementPlan(c.Request().Context(), sarRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "sar not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "improvement plan failed"})
	}

	return c.JSON(http.StatusOK, plan)
}

// CalculateCQI handles POST /scoring/sars/:sar_ref/cqi
func (h *ScoringHandler) CalculateCQI(c echo.Context) error {
	sarRef := c.Param("sar_ref")

	score, err := h.scoringService.CalculateCQI(c.Request().Context(), sarRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "sar not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "cqi calculation failed"})
	}

	return c.JSON(http.StatusOK, score)
}

// SearchNarratives handles GET /scoring/narratives/search
func (h *ScoringHandler) SearchNarratives(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing query parameter 'q'"})
	}

	from, _ := strconv.Atoi(c.QueryParam("from"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size == 0 {
		size = 20
	}

	refs, total, err := h.scoringService.SearchNarratives(c.Request().Context(), query, from, size)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "search failed"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total":    total,
		"sar_refs": refs,
	})
}

// GenerateIntelligence handles POST /scoring/intelligence/reports
func (h *ScoringHandler) GenerateIntelligence(c echo.Context) error {
	report, err := h.intelligenceService.GenerateReport(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "intelligence generation failed"})
	}

	return c.JSON(http.StatusOK, report)
}

// RegisterRoutes registers the API routes
func (h *ScoringHandler) RegisterRoutes(e *echo.Group) {
	e.POST("/cases/:case_ref/risk", h.AnalyzeCaseRisk)
	e.POST("/sars/:sar_ref/typologies", h.DetectTypologies)
	e.POST("/sars/:sar_ref/simulate", h.SimulateReview)
	e.GET("/sars/:sar_ref/improvement-plan", h.GetImprovementPlan)
	e.POST("/sars/:sar_ref/cqi", h.CalculateCQI)
	e.GET("/narratives/search", h.SearchNarratives)
	e.POST("/intelligence/reports", h.GenerateIntelligence)
}
