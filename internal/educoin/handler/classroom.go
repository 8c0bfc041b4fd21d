package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/educoin/internal/auth"
	"github.com/jmerrifield20/educoin/internal/educoin/service"
	"go.uber.org/zap"
)

// RewardRequest is the body of POST /rewards.
type RewardRequest struct {
	Student string `json:"student"`
	Amount  int64  `json:"amount"`
	Teacher string `json:"teacher,omitempty"` // ignored when teacher auth is enabled
}

// TransferRequest is the body of POST /transfers.
type TransferRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  int64  `json:"amount"`
	Teacher string `json:"teacher,omitempty"`
}

// ClassroomHandler handles rewards, transfers, balances and histories.
type ClassroomHandler struct {
	svc    *service.ClassroomService
	tokens *auth.TokenIssuer // nil = rewards open to any caller
	logger *zap.Logger
}

// NewClassroomHandler creates a new ClassroomHandler.
// tokens may be nil to leave the reward endpoint unauthenticated.
func NewClassroomHandler(svc *service.ClassroomService, tokens *auth.TokenIssuer, logger *zap.Logger) *ClassroomHandler {
	return &ClassroomHandler{svc: svc, tokens: tokens, logger: logger}
}

// requireTeacher returns the RequireTeacher middleware when teacher auth is
// configured, or a no-op middleware for open mode.
func (h *ClassroomHandler) requireTeacher() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return auth.RequireTeacher(h.tokens)
}

// Register mounts the classroom routes on the given router group.
func (h *ClassroomHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/rewards", h.requireTeacher(), h.Reward)
	rg.POST("/transfers", h.Transfer)

	rg.GET("/balances", h.ListBalances)
	rg.GET("/balances/:participant", h.GetBalance)
	rg.GET("/leaderboard", h.Leaderboard)

	hist := rg.Group("/history")
	{
		hist.GET("/rewards", h.RewardHistory)
		hist.GET("/transfers", h.TransferHistory)
	}
}

// Reward handles POST /rewards: the teacher awards EduCoin to a student.
func (h *ClassroomHandler) Reward(c *gin.Context) {
	var req RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": CodeBadRequest})
		return
	}

	teacher := req.Teacher
	if claims := auth.TeacherFromCtx(c); claims != nil {
		teacher = claims.Teacher
	}

	b, err := h.svc.Reward(c.Request.Context(), teacher, req.Student, req.Amount)
	if err != nil {
		writeSubmitError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"block": b})
}

// Transfer handles POST /transfers: one student sends EduCoin to another.
func (h *ClassroomHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": CodeBadRequest})
		return
	}

	b, err := h.svc.Transfer(c.Request.Context(), req.From, req.To, req.Amount, req.Teacher)
	if err != nil {
		writeSubmitError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"block": b})
}

// ListBalances handles GET /balances.
func (h *ClassroomHandler) ListBalances(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"balances": h.svc.Balances()})
}

// GetBalance handles GET /balances/:participant. Unknown participants hold 0.
func (h *ClassroomHandler) GetBalance(c *gin.Context) {
	p := c.Param("participant")
	c.JSON(http.StatusOK, gin.H{"participant": p, "balance": h.svc.Balance(p)})
}

// Leaderboard handles GET /leaderboard?limit=N.
func (h *ClassroomHandler) Leaderboard(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer", "code": CodeBadRequest})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"standings": h.svc.Leaderboard(limit)})
}

// RewardHistory handles GET /history/rewards.
func (h *ClassroomHandler) RewardHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rewards": h.svc.Rewards()})
}

// TransferHistory handles GET /history/transfers.
func (h *ClassroomHandler) TransferHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transfers": h.svc.Transfers()})
}
