package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/couchcryptid/marine-report-insights/internal/adapter/postgres"
	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/pipeline"
	"github.com/gin-gonic/gin"
)

const maxPreviewBody = 1 << 20

type insightsResponse struct {
	ReportID string                `json:"report_id"`
	Changed  bool                  `json:"changed"`
	Insights domain.ReportInsights `json:"insights"`
	Payload  domain.ReportPayload  `json:"payload"`
}

type previewResponse struct {
	Payload           domain.ReportPayload         `json:"payload"`
	Issues            []string                     `json:"issues"`
	SafetyAnalysis    domain.SafetyAnalysisResult  `json:"safety_analysis"`
	EnvironmentalData domain.EnvironmentalInsights `json:"environmental_data"`
}

func (s *Server) handleReportInsights(c *gin.Context) {
	id := c.Param("id")

	res, err := s.deps.Insights.Enrich(c.Request.Context(), id)
	switch {
	case errors.Is(err, postgres.ErrReportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	case err != nil:
		s.logger.Error("build report insights failed", "report_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build report insights"})
		return
	}

	c.JSON(http.StatusOK, insightsResponse{
		ReportID: id,
		Changed:  res.Changed,
		Insights: res.Insights,
		Payload:  res.Payload,
	})
}

// handleSafetyPreview scores an unsaved payload against live conditions.
// Nothing is persisted and no AI narrative is requested.
func (s *Server) handleSafetyPreview(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPreviewBody+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}
	if len(body) > maxPreviewBody {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload is not valid JSON"})
		return
	}

	norm := domain.Normalize(body)
	payload := norm.Payload

	var env domain.EnvironmentalInsights
	if payload.HasValidCoordinates() {
		env = s.deps.Environment.FetchEnvironmentalInsights(c.Request.Context(), pipeline.EnvironmentQuery{
			Lat:              payload.Location.Coordinates.Latitude,
			Lon:              payload.Location.Coordinates.Longitude,
			WarningStationID: payload.Location.WeatherStationID,
		})
	} else {
		env = domain.EmptyInsights(s.deps.Clock.Now())
	}

	issues := norm.Issues
	if issues == nil {
		issues = []string{}
	}
	c.JSON(http.StatusOK, previewResponse{
		Payload:           payload,
		Issues:            issues,
		SafetyAnalysis:    domain.AnalyzeSafety(payload, env.Snapshot()),
		EnvironmentalData: env,
	})
}
