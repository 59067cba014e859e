package connect

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opsai/onboarding-backend/internal/onboarding"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the connection flow routes. The callback endpoint
// lives at the top level because the OAuth popup posts to it directly.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	integrations := r.Group("/onboarding/sessions/:id/integrations/:provider")
	{
		integrations.POST("/connect", h.Connect)
		integrations.POST("/popup-closed", h.PopupClosed)
	}
	r.POST("/oauth/callback", h.Callback)
}

func (h *Handler) Connect(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	provider := c.Param("provider")

	authSession, err := h.service.Connect(c.Request.Context(), sessionID, provider)
	if err != nil {
		switch {
		case errors.Is(err, onboarding.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrConnectionInFlight), errors.Is(err, ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, authSession)
}

func (h *Handler) PopupClosed(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	if err := h.service.ReportPopupClosed(sessionID, c.Param("provider")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Callback(c *gin.Context) {
	var msg CallbackMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.HandleCallback(c.Request.Context(), c.GetHeader("Origin"), msg)
	if err != nil {
		switch {
		case errors.Is(err, ErrOriginNotAllowed):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, ErrNoAttempt), errors.Is(err, ErrStateMismatch):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.Status(http.StatusAccepted)
}
