package onboarding

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opsai/onboarding-backend/internal/auth"
	"github.com/opsai/onboarding-backend/internal/catalog"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers wizard routes. Sessions are anonymous, so only
// save attaches the optional-auth middleware.
func (h *Handler) RegisterRoutes(r *gin.Engine, authSvc *auth.Service) {
	sessions := r.Group("/onboarding/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.PATCH("/:id", h.PatchSession)
		sessions.POST("/:id/advance", h.Advance)
		sessions.POST("/:id/retreat", h.Retreat)
		sessions.POST("/:id/analyze", h.Analyze)
		sessions.POST("/:id/launch", h.Launch)
		sessions.POST("/:id/save", auth.OptionalAuth(authSvc), h.Save)
	}
	r.GET("/integrations/catalog", h.Catalog)
}

type createSessionRequest struct {
	WebsiteURL string `json:"website_url" binding:"required,url"`
}

// sessionResponse is the wire shape for a session with its aggregate.
type sessionResponse struct {
	ID       uuid.UUID `json:"id"`
	TenantID string    `json:"tenant_id"`
	State    State     `json:"state"`
	Step     Step      `json:"step"`
	// CanProceed mirrors the active step's gate so clients can enable the
	// continue button without re-deriving the rule.
	CanProceed bool `json:"can_proceed"`
}

func respond(sess *Session, state State) sessionResponse {
	return sessionResponse{
		ID:         sess.ID,
		TenantID:   sess.TenantID,
		State:      state,
		Step:       state.Step(),
		CanProceed: state.CanProceed(),
	}
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.service.StartSession(req.WebsiteURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, respond(sess, sess.State()))
}

func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, respond(sess, sess.State()))
}

func (h *Handler) PatchSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var patch Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state := sess.ApplyClientPatch(patch)
	c.JSON(http.StatusOK, respond(sess, state))
}

func (h *Handler) Advance(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	moved := sess.Advance()
	state := sess.State()
	if !moved {
		c.JSON(http.StatusConflict, gin.H{
			"error": "current step is not complete",
			"step":  state.Step(),
		})
		return
	}
	c.JSON(http.StatusOK, respond(sess, state))
}

func (h *Handler) Retreat(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	moved := sess.Retreat()
	state := sess.State()
	if !moved {
		reason := "already at the first step"
		if state.IsDeploying {
			reason = "cannot go back while deployment is in progress"
		}
		c.JSON(http.StatusConflict, gin.H{"error": reason, "step": state.Step()})
		return
	}
	c.JSON(http.StatusOK, respond(sess, state))
}

func (h *Handler) Analyze(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	state, err := h.service.Analyze(c.Request.Context(), sess.ID)
	if err != nil {
		if errors.Is(err, ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "state": state})
		return
	}

	c.JSON(http.StatusOK, respond(sess, state))
}

func (h *Handler) Launch(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	state, err := h.service.Launch(c.Request.Context(), sess.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrWrongStep):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "state": state})
		}
		return
	}

	c.JSON(http.StatusOK, respond(sess, state))
}

func (h *Handler) Save(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	app, err := h.service.Save(c.Request.Context(), sess.ID, auth.UserID(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrSignupRequired):
			// Clients key off the code to open the signup sub-flow.
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "signup_required"})
		case errors.Is(err, ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, app)
}

func (h *Handler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"integrations": catalog.Entries()})
}

func (h *Handler) lookup(c *gin.Context) (*Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return nil, false
	}
	sess, err := h.service.Store().Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return sess, true
}
