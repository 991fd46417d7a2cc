package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ArowuTest/draft-lottery-backend/internal/handlers/request"
	"github.com/ArowuTest/draft-lottery-backend/internal/middleware"
	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/internal/services"
)

// LotteryHandler handles lottery session HTTP requests
type LotteryHandler struct {
	lotteryService services.LotteryService
}

// NewLotteryHandler creates a new LotteryHandler
func NewLotteryHandler(lotteryService services.LotteryService) *LotteryHandler {
	return &LotteryHandler{lotteryService: lotteryService}
}

// sessionParams resolves the caller and the :id path parameter. It writes the error
// response itself and reports false when the request cannot continue.
func sessionParams(c *gin.Context) (models.Actor, primitive.ObjectID, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return models.Actor{}, primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return models.Actor{}, primitive.NilObjectID, false
	}
	return actor, id, true
}

// CreateLottery handles POST /lotteries
func (h *LotteryHandler) CreateLottery(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req request.CreateLotteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.lotteryService.CreateSession(c.Request.Context(), actor, req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// ListLotteries handles GET /lotteries, the sessions the caller administers
func (h *LotteryHandler) ListLotteries(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	sessions, err := h.lotteryService.ListAdminSessions(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	// the combination table is large; clients fetch it through the CSV export
	for _, s := range sessions {
		s.Combinations = nil
	}
	c.JSON(http.StatusOK, gin.H{"lotteries": sessions})
}

// GetLottery handles GET /lotteries/:id. Any signed-in observer may read a session.
func (h *LotteryHandler) GetLottery(c *gin.Context) {
	_, id, ok := sessionParams(c)
	if !ok {
		return
	}
	session, err := h.lotteryService.GetSession(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("combinations") != "true" {
		session.Combinations = nil
	}
	c.JSON(http.StatusOK, session)
}

// UpdateTeam handles PUT /lotteries/:id/teams/:teamId
func (h *LotteryHandler) UpdateTeam(c *gin.Context) {
	actor, id, ok := sessionParams(c)
	if !ok {
		return
	}
	var req request.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.lotteryService.UpdateTeam(c.Request.Context(), actor, id, c.Param("teamId"), req.ToUpdate())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// OpenVerification handles POST /lotteries/:id/verification
func (h *LotteryHandler) OpenVerification(c *gin.Context) {
	actor, id, ok := sessionParams(c)
	if !ok {
		return
	}
	session, err := h.lotteryService.OpenVerification(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": session.Status})
}

// AddVerifier handles POST /lotteries/:id/verifiers; the caller signs in as a witness
func (h *LotteryHandler) AddVerifier(c *gin.Context) {
	actor, id, ok := sessionParams(c)
	if !ok {
		return
	}
	added, err := h.lotteryService.AddVerifier(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// Allocate handles POST /lotteries/:id/allocation
func (h *LotteryHandler) Allocate(c *gin.Context) {
	actor, id, ok := sessionParams(c)
	if !ok {
		return
	}
	combos, err := h.lotteryService.Allocate(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	assigned := 0
	for _, combo := range combos {
		if !combo.IsDead() {
			assigned++
		}
	}
	c.JSON(http.StatusOK, gin.H{"total": len(combos), "assigned": assigned, "dead": len(combos) - assigned})
}

// StartDrawing handles POST /lotteries/:id/drawing
func (h *LotteryHandler) StartDrawing(c *gin.Context) {
	actor, id, ok := sessionParams(c)
	if !ok {
		return
	}
	session, err := h.lotteryService.StartDrawing(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": session.Status})
}

// DrawNextPick handles POST /lotteries/:id/picks/next
func (h *LotteryHandler) DrawNextPick(c *gin.Context) {
	actor, id, ok := sessionParams(c)
	if !ok {
		return
	}
	result, err := h.lotteryService.DrawNextPick(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DrawRemaining handles POST /lotteries/:id/picks
func (h *LotteryHandler) DrawRemaining(c *gin.Context) {
	actor, id, ok := sessionParams(c)
	if !ok {
		return
	}
	picks, err := h.lotteryService.DrawRemaining(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"picks": picks})
}

// ComposeDraftOrder handles POST /lotteries/:id/draft-order
func (h *LotteryHandler) ComposeDraftOrder(c *gin.Context) {
	actor, id, ok := sessionParams(c)
	if !ok {
		return
	}
	order, err := h.lotteryService.ComposeDraftOrder(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draftOrder": order})
}

// Complete handles POST /lotteries/:id/complete
func (h *LotteryHandler) Complete(c *gin.Context) {
	actor, id, ok := sessionParams(c)
	if !ok {
		return
	}
	session, err := h.lotteryService.MarkComplete(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": session.Status, "completedAt": session.CompletedAt})
}

// Reveal handles GET /lotteries/:id/reveal
func (h *LotteryHandler) Reveal(c *gin.Context) {
	_, id, ok := sessionParams(c)
	if !ok {
		return
	}
	sequence, err := h.lotteryService.RevealSequence(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sequence": sequence})
}

// ExportCombinations handles GET /lotteries/:id/combinations.csv
func (h *LotteryHandler) ExportCombinations(c *gin.Context) {
	_, id, ok := sessionParams(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.lotteryService.ExportCombinations(c.Request.Context(), id, &buf); err != nil {
		respondError(c, err)
		return
	}
	sendCSV(c, fmt.Sprintf("lottery-%s-combinations.csv", id.Hex()), buf.Bytes())
}

// ExportDraftOrder handles GET /lotteries/:id/draft-order.csv
func (h *LotteryHandler) ExportDraftOrder(c *gin.Context) {
	_, id, ok := sessionParams(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.lotteryService.ExportDraftOrder(c.Request.Context(), id, &buf); err != nil {
		respondError(c, err)
		return
	}
	sendCSV(c, fmt.Sprintf("lottery-%s-draft-order.csv", id.Hex()), buf.Bytes())
}

func sendCSV(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
