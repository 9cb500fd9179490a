package api

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/handoff"
	"github.com/ascvd-risk-mcp-server/internal/middleware"
	"github.com/ascvd-risk-mcp-server/internal/service"
)

// inputRequest accepts either a typed input or the raw form under "form"
type inputRequest struct {
	domain.InputPayload
	Form *domain.FormInput `json:"form,omitempty"`
}

func (r inputRequest) clinicalInput() (domain.ClinicalInput, error) {
	if r.Form != nil {
		return domain.ParseClinicalInput(*r.Form)
	}
	return r.InputPayload.ClinicalInput()
}

type classifyResponse struct {
	Classification  domain.ClassificationResult `json:"classification"`
	TierInfo        domain.TierInfo             `json:"tier_info"`
	Rule            service.RuleDescriptor      `json:"rule"`
	RiskFactorCount int                         `json:"risk_factor_count"`
}

type recommendRequest struct {
	Tier domain.RiskTier `json:"tier" binding:"required"`
	LDL  *float64        `json:"ldl"`
}

type simulateResponse struct {
	BeforeTier  domain.RiskTier                 `json:"before_tier"`
	Projections []domain.InterventionProjection `json:"projections"`
}

type assessmentResponse struct {
	*domain.Assessment
	Error *domain.APIError `json:"error,omitempty"`
}

type handoffEncodeRequest struct {
	RecordID string               `json:"record_id"`
	Input    *domain.InputPayload `json:"input"`
}

type handoffDecodeRequest struct {
	Blob string `json:"blob" binding:"required"`
}

type handoffDecodeResponse struct {
	Envelope       *handoff.Envelope               `json:"envelope"`
	TierInfo       domain.TierInfo                 `json:"tier_info"`
	Recommendation domain.RecommendationResult     `json:"recommendation"`
	Projections    []domain.InterventionProjection `json:"projections"`
}

func (s *Server) respondError(c *gin.Context, status int, code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, c.GetString(middleware.CorrelationIDKey)))
}

// bindInput reads and validates a clinical input from the request body
func (s *Server) bindInput(c *gin.Context) (domain.ClinicalInput, bool) {
	var req inputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid request body", err)
		return domain.ClinicalInput{}, false
	}

	input, err := req.clinicalInput()
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrValidation, "Input validation failed", err)
		return domain.ClinicalInput{}, false
	}
	return input, true
}

func (s *Server) handleClassify(c *gin.Context) {
	input, ok := s.bindInput(c)
	if !ok {
		return
	}

	result := service.Classify(input)
	c.JSON(http.StatusOK, classifyResponse{
		Classification:  result,
		TierInfo:        result.Info(),
		Rule:            service.MatchedRule(input),
		RiskFactorCount: service.RiskFactorCount(input),
	})
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid request body", err)
		return
	}

	ldl := math.NaN()
	if req.LDL != nil {
		ldl = *req.LDL
	}
	c.JSON(http.StatusOK, service.Recommend(req.Tier.Info(), ldl))
}

func (s *Server) handleSimulate(c *gin.Context) {
	input, ok := s.bindInput(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, simulateResponse{
		BeforeTier:  service.Classify(input).Tier,
		Projections: service.Simulate(input),
	})
}

func (s *Server) handleEvaluate(c *gin.Context) {
	input, ok := s.bindInput(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, s.service.Evaluate(c.Request.Context(), input))
}

func (s *Server) handleRules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": service.Rules()})
}

func (s *Server) handleCreateAssessment(c *gin.Context) {
	input, ok := s.bindInput(c)
	if !ok {
		return
	}

	assessment, err := s.service.Assess(c.Request.Context(), input)
	if err != nil {
		// the evaluation is still valid, only saving failed
		c.JSON(http.StatusOK, assessmentResponse{
			Assessment: assessment,
			Error: domain.NewAPIError(domain.ErrPersistenceErr, "Assessment could not be saved",
				err.Error(), c.GetString(middleware.CorrelationIDKey)),
		})
		return
	}

	c.JSON(http.StatusCreated, assessmentResponse{Assessment: assessment})
}

func (s *Server) handleListAssessments(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}

	records, err := s.service.History(c.Request.Context(), limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load history")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to load history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":       len(records),
		"assessments": records,
	})
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	record, err := s.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondRecordError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleReplayAssessment(c *gin.Context) {
	assessment, err := s.service.Replay(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondRecordError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) respondRecordError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		s.respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Assessment not found", nil)
		return
	}
	s.logger.WithError(err).Error("Failed to load assessment")
	s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to load assessment", err)
}

func (s *Server) handleClearAssessments(c *gin.Context) {
	if err := s.service.ClearHistory(c.Request.Context()); err != nil {
		s.logger.WithError(err).Error("Failed to clear history")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to clear history", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportAssessments(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.service.ExportHistory(c.Request.Context(), &buf); err != nil {
		s.logger.WithError(err).Error("Failed to export history")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to export history", err)
		return
	}

	filename := fmt.Sprintf("ascvd-history-%s.json", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

func (s *Server) handleImportAssessments(c *gin.Context) {
	imported, skipped, err := s.service.ImportHistory(c.Request.Context(), c.Request.Body)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Failed to import history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"skipped":  skipped,
	})
}

func (s *Server) handleSyncStatus(c *gin.Context) {
	if s.syncer == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrSyncError, "Remote sync is not configured", nil)
		return
	}

	status, err := s.syncer.Status(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to read sync status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleSync(c *gin.Context) {
	if s.syncer == nil || !s.syncer.Enabled() {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrSyncError, "Remote sync is not configured", nil)
		return
	}

	report, err := s.syncer.SyncOnce(c.Request.Context())
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrSyncUnavailable) {
			status = http.StatusServiceUnavailable
		}
		s.respondError(c, status, domain.ErrSyncError, "Remote sync failed", err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"pushed":         report.Pushed,
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
	}).Info("Manual sync completed")
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleHandoffEncode(c *gin.Context) {
	var req handoffEncodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid request body", err)
		return
	}

	var env handoff.Envelope
	switch {
	case req.RecordID != "":
		record, err := s.service.Get(c.Request.Context(), req.RecordID)
		if err != nil {
			s.respondRecordError(c, err)
			return
		}
		env = handoff.FromRecord(record)
	case req.Input != nil:
		input, err := req.Input.ClinicalInput()
		if err != nil {
			s.respondError(c, http.StatusBadRequest, domain.ErrValidation, "Input validation failed", err)
			return
		}
		env = handoff.Envelope{
			Input:     input,
			Result:    service.Classify(input),
			CreatedAt: time.Now().UTC(),
		}
	default:
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "record_id or input is required", nil)
		return
	}

	blob, err := handoff.Encode(env)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "Failed to encode hand-off", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blob": blob})
}

func (s *Server) handleHandoffDecode(c *gin.Context) {
	var req handoffDecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid request body", err)
		return
	}

	env, err := handoff.Decode(req.Blob)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid hand-off payload", err)
		return
	}

	info := env.Result.Info()
	c.JSON(http.StatusOK, handoffDecodeResponse{
		Envelope:       env,
		TierInfo:       info,
		Recommendation: service.Recommend(info, env.Input.LDL),
		Projections:    service.Simulate(env.Input),
	})
}
