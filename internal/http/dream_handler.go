package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dream-journal/internal/domain"
	"dream-journal/internal/repository"
	"dream-journal/internal/service"
)

// DreamHandler expone el diario: alta, edición, borrado, detalle, lista y estadísticas.
type DreamHandler struct {
	logger *zap.Logger
	dreams *service.DreamService
	stats  *service.StatsService
}

func NewDreamHandler(logger *zap.Logger, dreams *service.DreamService, stats *service.StatsService) *DreamHandler {
	return &DreamHandler{logger: logger, dreams: dreams, stats: stats}
}

type dreamRequest struct {
	Date      domain.Date      `json:"date"`
	StartTime domain.TimeOfDay `json:"start_time"`
	EndTime   domain.TimeOfDay `json:"end_time"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Tags      []string         `json:"tags"`
	IsLucid   bool             `json:"is_lucid"`
}

func (r dreamRequest) toDream(id int64) domain.Dream {
	date := r.Date
	if date.IsZero() {
		date = domain.DateOf(time.Now())
	}
	return domain.Dream{
		ID:        id,
		Date:      date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Title:     r.Title,
		Content:   r.Content,
		Tags:      r.Tags,
		IsLucid:   r.IsLucid,
	}
}

type dreamResponse struct {
	domain.Dream
	DurationMinutes int64  `json:"duration_minutes"`
	Duration        string `json:"duration"`
}

func newDreamResponse(d domain.Dream) dreamResponse {
	duration := d.Duration()
	return dreamResponse{
		Dream:           d,
		DurationMinutes: int64(duration / time.Minute),
		Duration:        service.FormatDuration(duration),
	}
}

func (h *DreamHandler) CloudEnabled() bool {
	return h.dreams.CloudEnabled()
}

// List maneja GET /dreams.
func (h *DreamHandler) List(c *gin.Context) {
	dreams, err := h.dreams.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list dreams failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list dreams"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dreams": dreams})
}

// Get maneja GET /dreams/:id.
func (h *DreamHandler) Get(c *gin.Context) {
	id, ok := dreamID(c)
	if !ok {
		return
	}
	dream, err := h.dreams.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get dream failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dream": newDreamResponse(dream)})
}

// Create maneja POST /dreams.
func (h *DreamHandler) Create(c *gin.Context) {
	var req dreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create dream request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	dream, err := h.dreams.Add(c.Request.Context(), sessionFrom(c), req.toDream(0))
	if err != nil {
		h.writeError(c, "create dream failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"dream": newDreamResponse(dream)})
}

// Update maneja PUT /dreams/:id.
func (h *DreamHandler) Update(c *gin.Context) {
	id, ok := dreamID(c)
	if !ok {
		return
	}
	var req dreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update dream request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	dream, err := h.dreams.Update(c.Request.Context(), sessionFrom(c), req.toDream(id))
	if err != nil {
		h.writeError(c, "update dream failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dream": newDreamResponse(dream)})
}

// Delete maneja DELETE /dreams/:id.
func (h *DreamHandler) Delete(c *gin.Context) {
	id, ok := dreamID(c)
	if !ok {
		return
	}
	if err := h.dreams.Delete(c.Request.Context(), sessionFrom(c), id); err != nil {
		h.writeError(c, "delete dream failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream maneja GET /dreams/stream: una instantánea SSE por cada cambio del diario.
func (h *DreamHandler) Stream(c *gin.Context) {
	updates, err := h.dreams.Subscribe(c.Request.Context())
	if err != nil {
		h.logger.Error("subscribe dreams failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not stream dreams"})
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(_ io.Writer) bool {
		dreams, ok := <-updates
		if !ok {
			return false
		}
		c.SSEvent("dreams", dreams)
		return true
	})
}

// Stats maneja GET /stats.
func (h *DreamHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Compute(c.Request.Context())
	if err != nil {
		h.logger.Error("compute stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *DreamHandler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, repository.ErrDreamNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "dream not found"})
	case errors.Is(err, domain.ErrDreamTitleRequired),
		errors.Is(err, domain.ErrDreamContentRequired),
		errors.Is(err, domain.ErrDreamDateRequired),
		errors.Is(err, domain.ErrInvalidTimeOfDay):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func dreamID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dream id"})
		return 0, false
	}
	return id, true
}
