package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medguard-interaction-server/internal/domain"
)

// handleHealth reports liveness and the active rule set version.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"timestamp":        time.Now().UTC(),
		"rule_set_version": s.ruleStore.Version(),
		"history_enabled":  s.historyStore != nil,
	})
}

// handleEvaluate runs a full safety evaluation over the posted medication
// list and patient profile.
func (s *Server) handleEvaluate(c *gin.Context) {
	var req domain.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, domain.CodeInvalidInput, "invalid request body: "+err.Error())
		return
	}

	result, err := s.evaluator.Evaluate(c.Request.Context(), &req)
	if err != nil {
		if domain.IsInvalidInput(err) {
			s.writeError(c, http.StatusBadRequest, domain.CodeInvalidInput, err.Error())
			return
		}
		s.logger.WithError(err).Error("Evaluation failed")
		s.writeError(c, http.StatusInternalServerError, domain.CodeInternalServer, "evaluation failed")
		return
	}

	// History persistence is best-effort; a storage failure must not turn a
	// completed evaluation into an error for the caller.
	if s.historyStore != nil {
		if err := s.historyStore.Save(c.Request.Context(), result); err != nil {
			s.logger.WithError(err).WithField("evaluation_id", result.ID).
				Warn("Failed to persist evaluation to history")
		}
	}

	c.JSON(http.StatusOK, result)
}

// handleGetDrug returns the dictionary identity for a drug name.
func (s *Server) handleGetDrug(c *gin.Context) {
	name := c.Param("name")

	identity, ok := s.resolver.Lookup(name)
	if !ok {
		s.writeError(c, http.StatusNotFound, domain.CodeInvalidInput, "drug not found in dictionary: "+name)
		return
	}

	c.JSON(http.StatusOK, identity)
}

// handleListEvaluations returns stored evaluation summaries, newest first.
func (s *Server) handleListEvaluations(c *gin.Context) {
	if s.historyStore == nil {
		s.writeError(c, http.StatusServiceUnavailable, domain.CodeHistoryError, "evaluation history is disabled")
		return
	}

	limit := parseQueryInt(c, "limit", 20)
	offset := parseQueryInt(c, "offset", 0)
	if limit < 1 || limit > 200 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.historyStore.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list evaluations")
		s.writeError(c, http.StatusInternalServerError, domain.CodeHistoryError, "failed to list evaluations")
		return
	}

	count, err := s.historyStore.Count(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to count evaluations")
		s.writeError(c, http.StatusInternalServerError, domain.CodeHistoryError, "failed to count evaluations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"evaluations": records,
		"total":       count,
		"limit":       limit,
		"offset":      offset,
	})
}

// handleGetEvaluation returns one stored evaluation by ID.
func (s *Server) handleGetEvaluation(c *gin.Context) {
	if s.historyStore == nil {
		s.writeError(c, http.StatusServiceUnavailable, domain.CodeHistoryError, "evaluation history is disabled")
		return
	}

	id := c.Param("id")
	result, err := s.historyStore.Get(c.Request.Context(), id)
	if err != nil {
		s.logger.WithError(err).WithField("evaluation_id", id).Error("Failed to load evaluation")
		s.writeError(c, http.StatusInternalServerError, domain.CodeHistoryError, "failed to load evaluation")
		return
	}
	if result == nil {
		s.writeError(c, http.StatusNotFound, domain.CodeInvalidInput, "evaluation not found: "+id)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleResolverStats exposes resolution cache statistics.
func (s *Server) handleResolverStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.resolver.GetStats())
}

// writeError renders a structured error response.
func (s *Server) writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"timestamp": time.Now().UTC(),
		},
	})
}

// parseQueryInt reads an integer query parameter with a fallback.
func parseQueryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
