package feedback

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/randyrahmani/CareLogG8/internal/access"
	"github.com/randyrahmani/CareLogG8/internal/identity"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

// Handlers contains HTTP handlers for the feedback workflow
type Handlers struct {
	service *Service
	auth    gin.HandlerFunc
	logger  *logger.Logger
}

// NewHandlers creates new feedback HTTP handlers
func NewHandlers(service *Service, auth gin.HandlerFunc, log *logger.Logger) *Handlers {
	return &Handlers{service: service, auth: auth, logger: log}
}

// RegisterRoutes registers feedback routes with the router
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	fb := v1.Group("/feedback")
	fb.Use(h.auth)
	{
		fb.POST("/:noteId/request", identity.RequireRole(types.RolePatient), h.RequestFeedback)
		fb.GET("/pending", identity.RequireRole(types.RoleClinician, types.RoleAdmin), h.ListPending)
		fb.POST("/:noteId/approve", identity.RequireRole(types.RoleClinician, types.RoleAdmin), h.ApproveFeedback)
		fb.POST("/:noteId/reject", identity.RequireRole(types.RoleClinician, types.RoleAdmin), h.RejectFeedback)
	}
}

// RequestFeedback generates feedback for one of the caller's notes and
// attaches it pending review
func (h *Handlers) RequestFeedback(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	viewer := access.Viewer{Username: claims.Username, Role: claims.Role}

	fb, err := h.service.Request(c.Request.Context(), claims.HospitalID, c.Param("noteId"), viewer)
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"feedback": fb})
}

// ListPending lists the notes with feedback awaiting the caller's review
func (h *Handlers) ListPending(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	viewer := access.Viewer{Username: claims.Username, Role: claims.Role}

	notes, err := h.service.Pending(claims.HospitalID, viewer)
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// ApproveFeedback approves a note's feedback, optionally with edited text
func (h *Handlers) ApproveFeedback(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)

	// The body is optional: an empty text keeps the generated wording.
	var req struct {
		Text string `json:"text"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}

	viewer := access.Viewer{Username: claims.Username, Role: claims.Role}
	if err := h.service.Approve(claims.HospitalID, c.Param("noteId"), req.Text, viewer); err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feedback approved"})
}

// RejectFeedback deletes a note's feedback entry
func (h *Handlers) RejectFeedback(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	viewer := access.Viewer{Username: claims.Username, Role: claims.Role}
	if err := h.service.Reject(claims.HospitalID, c.Param("noteId"), viewer); err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feedback rejected"})
}
