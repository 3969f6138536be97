package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"xlytics-backend/internal/sync/domain"
	"xlytics-backend/internal/sync/usecase"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	syncUsecase usecase.SyncUsecase
}

func NewSyncHandler(syncUsecase usecase.SyncUsecase) *SyncHandler {
	return &SyncHandler{
		syncUsecase: syncUsecase,
	}
}

// POST /api/sync/:handle?days=30
func (h *SyncHandler) SyncPosts(c *gin.Context) {
	handle := c.Param("handle")

	days := 30
	if daysStr := c.Query("days"); daysStr != "" {
		if parsed, err := strconv.Atoi(daysStr); err == nil && parsed > 0 {
			days = parsed
		}
	}

	result, err := h.syncUsecase.SyncPosts(c.Request.Context(), handle, days)
	if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":          result,
		"reauth_required": errors.Is(err, domain.ErrReauthRequired),
	})
}

// GET /api/subjects/:handle
func (h *SyncHandler) GetSubject(c *gin.Context) {
	handle := c.Param("handle")

	subject, err := h.syncUsecase.ResolveSubject(c.Request.Context(), handle)
	if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if subject == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subject not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subject":         subject,
		"reauth_required": errors.Is(err, domain.ErrReauthRequired),
	})
}

// GET /api/subjects/:id/posts?force=true
func (h *SyncHandler) GetPosts(c *gin.Context) {
	subjectID := c.Param("id")
	force := c.Query("force") == "true"

	posts, err := h.syncUsecase.RecentPosts(c.Request.Context(), subjectID, force)
	if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":           posts,
		"count":           len(posts),
		"reauth_required": errors.Is(err, domain.ErrReauthRequired),
	})
}

// GET /api/subjects/:id/followers and /api/subjects/:id/following
func (h *SyncHandler) GetConnections(relation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID := c.Param("id")
		force := c.Query("force") == "true"

		conns, err := h.syncUsecase.Connections(c.Request.Context(), subjectID, relation, force)
		if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"connections":     conns,
			"count":           len(conns),
			"reauth_required": errors.Is(err, domain.ErrReauthRequired),
		})
	}
}

// GET /api/subjects/:id/reconciliation?force=true
func (h *SyncHandler) GetReconciliation(c *gin.Context) {
	subjectID := c.Param("id")
	force := c.Query("force") == "true"

	result, err := h.syncUsecase.Reconcile(c.Request.Context(), subjectID, force)
	if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reconciliation":  result,
		"reauth_required": errors.Is(err, domain.ErrReauthRequired),
	})
}

// GET /api/subjects/:id/summary?force=true
func (h *SyncHandler) GetSummary(c *gin.Context) {
	subjectID := c.Param("id")
	force := c.Query("force") == "true"

	summary, err := h.syncUsecase.Summary(c.Request.Context(), subjectID, force)
	if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":         summary,
		"reauth_required": errors.Is(err, domain.ErrReauthRequired),
	})
}

// GET /api/subjects/:id/search?q=term
func (h *SyncHandler) SearchPosts(c *gin.Context) {
	subjectID := c.Param("id")
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	posts, err := h.syncUsecase.SearchStoredPosts(c.Request.Context(), subjectID, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

// GET /api/search?q=term&max=50
func (h *SyncHandler) SearchLive(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	max := 50
	if maxStr := c.Query("max"); maxStr != "" {
		if parsed, err := strconv.Atoi(maxStr); err == nil && parsed > 0 {
			max = parsed
		}
	}

	posts, err := h.syncUsecase.SearchLive(c.Request.Context(), query, max)
	if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":           posts,
		"count":           len(posts),
		"reauth_required": errors.Is(err, domain.ErrReauthRequired),
	})
}

// POST /api/subjects/:id/archive {"dir": "/path/to/export/data"}
func (h *SyncHandler) IngestArchive(c *gin.Context) {
	subjectID := c.Param("id")

	var req struct {
		Dir string `json:"dir" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dir is required"})
		return
	}

	result, err := h.syncUsecase.IngestArchive(c.Request.Context(), subjectID, req.Dir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
