package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dream-journal/internal/service"
)

// SettingsHandler expone las preferencias del recordatorio.
type SettingsHandler struct {
	logger   *zap.Logger
	settings *service.SettingsService
}

func NewSettingsHandler(logger *zap.Logger, settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{logger: logger, settings: settings}
}

// Get maneja GET /settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.logger.Error("get settings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// SetNotifications maneja PUT /settings/notifications.
func (h *SettingsHandler) SetNotifications(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid notifications request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	settings, err := h.settings.SetNotificationsEnabled(c.Request.Context(), *req.Enabled)
	if err != nil {
		h.logger.Error("set notifications failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// SetNotificationTime maneja PUT /settings/notification-time.
func (h *SettingsHandler) SetNotificationTime(c *gin.Context) {
	var req struct {
		Hour   *int `json:"hour" binding:"required"`
		Minute *int `json:"minute" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid notification time request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	settings, err := h.settings.SetNotificationTime(c.Request.Context(), *req.Hour, *req.Minute)
	if err != nil {
		if errors.Is(err, service.ErrInvalidNotificationTime) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("set notification time failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}
