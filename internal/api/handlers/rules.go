package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fintrack/recon-backend/internal/api/dto"
	"github.com/fintrack/recon-backend/internal/application/service"
	"github.com/fintrack/recon-backend/internal/domain/rules"
)

// RulesHandler exposes learned classification rules.
type RulesHandler struct {
	ruleService *service.RuleService
}

// NewRulesHandler creates a new rules handler.
func NewRulesHandler(ruleService *service.RuleService) *RulesHandler {
	return &RulesHandler{ruleService: ruleService}
}

// Learn records a classification correction as a rule.
func (h *RulesHandler) Learn(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		return
	}
	var req dto.LearnRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	rule, err := h.ruleService.LearnFromCorrection(c.Request.Context(), userID, req.Narration, rules.Enrichment{
		Vendor:       req.Vendor,
		Category:     req.Category,
		TaxTreatment: req.TaxTreatment,
	})
	if err != nil {
		WriteServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// List returns the caller's rules in lookup order. ?active=1 filters to
// active rules only.
func (h *RulesHandler) List(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		return
	}
	activeOnly := c.Query("active") == "1" || c.Query("active") == "true"
	list, err := h.ruleService.ListRules(c.Request.Context(), userID, activeOnly)
	if err != nil {
		WriteServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": list, "count": len(list)})
}

// Delete removes a rule; ?deactivate=1 soft-disables instead.
func (h *RulesHandler) Delete(c *gin.Context) {
	if _, ok := UserID(c); !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ValidationError("invalid rule id"))
		return
	}
	if c.Query("deactivate") == "1" {
		if err := h.ruleService.DeactivateRule(c.Request.Context(), id); err != nil {
			WriteServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deactivated": true})
		return
	}
	if err := h.ruleService.DeleteRule(c.Request.Context(), id); err != nil {
		WriteServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
