package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/educoin/internal/educoin/service"
	"github.com/jmerrifield20/educoin/internal/feed"
	"github.com/jmerrifield20/educoin/internal/ledger"
	"go.uber.org/zap"
)

// LedgerHandler exposes read-only explorer endpoints for the chain.
type LedgerHandler struct {
	svc    *service.ClassroomService
	hub    *feed.Hub // nil = no live block stream
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc *service.ClassroomService, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, logger: logger}
}

// SetFeed enables GET /blocks/stream backed by hub.
func (h *LedgerHandler) SetFeed(hub *feed.Hub) {
	h.hub = hub
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/chain", h.Overview)
	rg.GET("/chain/verify", h.Verify)

	b := rg.Group("/blocks")
	{
		b.GET("", h.ListBlocks)
		if h.hub != nil {
			b.GET("/stream", h.Stream)
		}
		b.GET("/:index", h.GetBlock)
	}
}

// Overview handles GET /chain and reports the chain summary.
func (h *LedgerHandler) Overview(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

// Verify handles GET /chain/verify and walks the full chain.
func (h *LedgerHandler) Verify(c *gin.Context) {
	if err := h.svc.Verify(); err != nil {
		h.logger.Warn("chain integrity check failed", zap.Error(err))
		resp := gin.H{"valid": false, "error": err.Error()}
		var ce *ledger.ChainError
		if errors.As(err, &ce) {
			resp["index"] = ce.Index
		}
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// ListBlocks handles GET /blocks and returns the whole chain.
// ?order=desc lists the newest block first.
func (h *LedgerHandler) ListBlocks(c *gin.Context) {
	order := c.DefaultQuery("order", "asc")
	if order != "asc" && order != "desc" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order must be asc or desc", "code": CodeBadRequest})
		return
	}
	blocks := h.svc.Chain(order == "desc")
	c.JSON(http.StatusOK, gin.H{"blocks": blocks, "length": len(blocks)})
}

// GetBlock handles GET /blocks/:index and returns a single block.
func (h *LedgerHandler) GetBlock(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a positive integer", "code": CodeBadRequest})
		return
	}

	b, err := h.svc.Block(idx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}
	c.JSON(http.StatusOK, b)
}

// Stream handles GET /blocks/stream by upgrading to a WebSocket that receives
// every block sealed from now on.
func (h *LedgerHandler) Stream(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}
