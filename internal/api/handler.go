package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poolLens/internal/auth"
	"poolLens/internal/chain"
	"poolLens/internal/model"
	"poolLens/internal/pools"
)

// PoolService is the read and admin surface the handlers call.
type PoolService interface {
	Supports(chainID uint64) bool
	Upcoming(ctx context.Context, chainID uint64) ([]model.PoolItem, error)
	Past(ctx context.Context, chainID uint64) ([]model.PoolItem, error)
	Pool(ctx context.Context, chainID, poolID uint64) (model.PoolItem, error)
	UserPools(ctx context.Context, chainID uint64, user common.Address) ([]model.PoolItem, error)
	Participants(ctx context.Context, chainID, poolID uint64) ([]model.Participant, error)
	Winner(ctx context.Context, chainID, poolID uint64, winner common.Address) (model.WinnerDetail, error)
	Drafts(ctx context.Context, chainID uint64) ([]model.PoolItem, error)
	CreateDraft(ctx context.Context, chainID uint64, meta model.PoolMetadata) (model.PoolMetadata, error)
	UpdateMetadata(ctx context.Context, chainID, poolID uint64, meta model.PoolMetadata) (model.PoolMetadata, error)
	Invalidate(ctx context.Context, chainID, poolID uint64)
}

// Access authenticates callers and checks privileged operations.
type Access interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
	IsAdmin(ctx context.Context, chainID uint64, id auth.Identity) bool
	RequireAdmin(ctx context.Context, chainID uint64, id auth.Identity) error
	CanManagePool(ctx context.Context, chainID, poolID uint64, id auth.Identity) error
}

// Handler serves the pool HTTP API.
type Handler struct {
	pools        PoolService
	access       Access
	secureCookie bool
	logger       *zap.Logger
}

type metadataRequest struct {
	DraftID     string `json:"draftId"`
	Image       string `json:"image"`
	SoftCap     int    `json:"softCap"`
	Description string `json:"description"`
}

func (r metadataRequest) toModel() model.PoolMetadata {
	return model.PoolMetadata{
		DraftID:     strings.TrimSpace(r.DraftID),
		ImageURL:    strings.TrimSpace(r.Image),
		SoftCap:     r.SoftCap,
		Description: r.Description,
	}
}

func (h *Handler) upcoming(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	items, err := h.pools.Upcoming(c.Request.Context(), chainID)
	if err != nil {
		h.fail(c, err, "Failed to fetch upcoming pools")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) past(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	items, err := h.pools.Past(c.Request.Context(), chainID)
	if err != nil {
		h.fail(c, err, "Failed to fetch past pools")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) pool(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	item, err := h.pools.Pool(c.Request.Context(), chainID, poolID)
	if err != nil {
		h.fail(c, err, "Failed to fetch pool")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) participants(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	participants, err := h.pools.Participants(c.Request.Context(), chainID, poolID)
	if err != nil {
		h.fail(c, err, "Failed to fetch participants")
		return
	}
	c.JSON(http.StatusOK, participants)
}

func (h *Handler) winner(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	addr, ok := addressParam(c)
	if !ok {
		return
	}
	detail, err := h.pools.Winner(c.Request.Context(), chainID, poolID, addr)
	if err != nil {
		h.fail(c, err, "Failed to fetch winner detail")
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) userPools(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	addr, ok := addressParam(c)
	if !ok {
		return
	}
	items, err := h.pools.UserPools(c.Request.Context(), chainID, addr)
	if err != nil {
		h.fail(c, err, "Failed to fetch user pools")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) refresh(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	h.pools.Invalidate(c.Request.Context(), chainID, poolID)
	c.Status(http.StatusNoContent)
}

// adminCheck never fails: unauthenticated callers and lookup errors report false.
func (h *Handler) adminCheck(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	id, err := h.access.Authenticate(c.Request.Context(), bearerToken(c))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"isAdmin": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isAdmin": h.access.IsAdmin(c.Request.Context(), chainID, id)})
}

func (h *Handler) drafts(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	if err := h.access.RequireAdmin(c.Request.Context(), chainID, identity(c)); err != nil {
		h.fail(c, err, "Failed to fetch drafts")
		return
	}
	items, err := h.pools.Drafts(c.Request.Context(), chainID)
	if err != nil {
		h.fail(c, err, "Failed to fetch drafts")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) createDraft(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	if err := h.access.RequireAdmin(c.Request.Context(), chainID, identity(c)); err != nil {
		h.fail(c, err, "Failed to create draft")
		return
	}
	req, ok := bindMetadata(c)
	if !ok {
		return
	}
	draft, err := h.pools.CreateDraft(c.Request.Context(), chainID, req.toModel())
	if err != nil {
		h.fail(c, err, "Failed to create draft")
		return
	}
	c.JSON(http.StatusCreated, draft)
}

func (h *Handler) updateMetadata(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}
	poolID, ok := poolIDParam(c)
	if !ok {
		return
	}
	if err := h.access.CanManagePool(c.Request.Context(), chainID, poolID, identity(c)); err != nil {
		h.fail(c, err, "Failed to update pool metadata")
		return
	}
	req, ok := bindMetadata(c)
	if !ok {
		return
	}
	saved, err := h.pools.UpdateMetadata(c.Request.Context(), chainID, poolID, req.toModel())
	if err != nil {
		h.fail(c, err, "Failed to update pool metadata")
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) chainID(c *gin.Context) (uint64, bool) {
	raw := strings.TrimSpace(c.Query("chainId"))
	if raw == "" {
		badRequest(c, "chainId is required")
		return 0, false
	}
	chainID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		badRequest(c, "Invalid chainId")
		return 0, false
	}
	if !h.pools.Supports(chainID) {
		badRequest(c, "Unsupported chainId")
		return 0, false
	}
	return chainID, true
}

func poolIDParam(c *gin.Context) (uint64, bool) {
	poolID, err := strconv.ParseUint(c.Param("poolId"), 10, 64)
	if err != nil || poolID == 0 {
		badRequest(c, "Invalid pool id")
		return 0, false
	}
	return poolID, true
}

func addressParam(c *gin.Context) (common.Address, bool) {
	addr, err := chain.ParseAddress(c.Param("address"))
	if err != nil {
		badRequest(c, "Invalid address")
		return common.Address{}, false
	}
	return addr, true
}

func bindMetadata(c *gin.Context) (metadataRequest, bool) {
	var req metadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return req, false
	}
	if req.SoftCap < 0 {
		badRequest(c, "softCap must not be negative")
		return req, false
	}
	return req, true
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": message})
}

// fail maps service errors to status codes; anything unexpected is a 500.
func (h *Handler) fail(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, chain.ErrUnsupportedChain):
		badRequest(c, "Unsupported chainId")
	case errors.Is(err, pools.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Pool not found"})
	case errors.Is(err, auth.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
	case errors.Is(err, auth.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Not allowed"})
	default:
		h.logger.Error(message,
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": message})
	}
}
