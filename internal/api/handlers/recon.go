package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fintrack/recon-backend/internal/api/dto"
	"github.com/fintrack/recon-backend/internal/application/service"
	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

// ReconHandler exposes the reconciliation engine's operations.
type ReconHandler struct {
	recon  *service.ReconService
	repair *service.RepairService
}

// NewReconHandler creates a new reconciliation handler.
func NewReconHandler(recon *service.ReconService, repair *service.RepairService) *ReconHandler {
	return &ReconHandler{recon: recon, repair: repair}
}

// Candidates generates ranked match candidates for a date range. With
// "apply": true the resolved assignment is written and the applied count
// returned instead.
func (h *ReconHandler) Candidates(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		return
	}
	var req dto.CandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	from, ok := ParseDate(c, "from", req.From)
	if !ok {
		return
	}
	to, ok := ParseDate(c, "to", req.To)
	if !ok {
		return
	}

	ledgerTypes := make([]storage.LedgerType, 0, len(req.LedgerTypes))
	for _, lt := range req.LedgerTypes {
		ledgerTypes = append(ledgerTypes, storage.LedgerType(lt))
	}

	candidates, err := h.recon.GenerateCandidates(c.Request.Context(), userID, from, to, req.AccountID, ledgerTypes)
	if err != nil {
		WriteServiceError(c, err)
		return
	}

	if req.Apply {
		applied, err := h.recon.ApplyCandidates(c.Request.Context(), userID, candidates)
		if err != nil {
			WriteServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.AppliedResponse{Applied: applied})
		return
	}

	c.JSON(http.StatusOK, dto.CandidatesResponse{Candidates: candidates, Count: len(candidates)})
}

// Match records one 1:1 match.
func (h *ReconHandler) Match(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		return
	}
	var req dto.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	if err := h.recon.MatchOne(c.Request.Context(), userID, req.BankID, req.LedgerID); err != nil {
		WriteServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MatchedResponse{Matched: true})
}

// MatchMany creates a many-to-many match group.
func (h *ReconHandler) MatchMany(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		return
	}
	var req dto.MatchManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	groupID, err := h.recon.MatchMany(c.Request.Context(), userID, req.BankIDs, req.LedgerIDs)
	if err != nil {
		WriteServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.GroupCreatedResponse{GroupID: groupID})
}

// Unmatch clears a bank record's match.
func (h *ReconHandler) Unmatch(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		return
	}
	var req dto.UnmatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	found, err := h.recon.UnmatchBank(c.Request.Context(), userID, req.BankID)
	if err != nil {
		WriteServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UnmatchedResponse{Found: found})
}

// UnmatchLedger clears a ledger record's match. Accepts synthetic advance
// ids ("adv:<parent>").
func (h *ReconHandler) UnmatchLedger(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		return
	}
	var req dto.UnmatchLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	found, err := h.recon.UnmatchLedger(c.Request.Context(), userID, req.LedgerID)
	if err != nil {
		WriteServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UnmatchedResponse{Found: found})
}

// GetGroup returns a match group with its member records.
func (h *ReconHandler) GetGroup(c *gin.Context) {
	if _, ok := UserID(c); !ok {
		return
	}
	detail, err := h.recon.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// DeleteGroup dissolves a match group, unmatching every member.
func (h *ReconHandler) DeleteGroup(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		return
	}
	found, err := h.recon.UnmatchGroup(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		WriteServiceError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, dto.NotFoundError("group not found"))
		return
	}
	c.JSON(http.StatusOK, dto.UnmatchedResponse{Found: true})
}

// Repair runs the consistency repair pass for the caller.
func (h *ReconHandler) Repair(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		return
	}
	result, err := h.repair.Repair(c.Request.Context(), userID)
	if err != nil {
		WriteServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Orphans reports consistency violations without fixing them.
func (h *ReconHandler) Orphans(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		return
	}
	orphans, err := h.repair.FindOrphans(c.Request.Context(), userID)
	if err != nil {
		WriteServiceError(c, err)
		return
	}
	if orphans == nil {
		orphans = []service.Orphan{}
	}
	c.JSON(http.StatusOK, gin.H{"orphans": orphans, "count": len(orphans)})
}
