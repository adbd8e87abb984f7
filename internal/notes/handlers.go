package notes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/randyrahmani/CareLogG8/internal/access"
	"github.com/randyrahmani/CareLogG8/internal/identity"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

// Handlers contains HTTP handlers for note and alert operations
type Handlers struct {
	service *Service
	auth    gin.HandlerFunc
	logger  *logger.Logger
}

// NewHandlers creates new note HTTP handlers
func NewHandlers(service *Service, auth gin.HandlerFunc, log *logger.Logger) *Handlers {
	return &Handlers{service: service, auth: auth, logger: log}
}

// RegisterRoutes registers note and alert routes with the router
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		notes := v1.Group("/notes")
		notes.Use(h.auth)
		{
			notes.POST("", h.AddNote)
			notes.GET("/patient/:username", h.ListForPatient)
			notes.GET("/patient/:username/search", h.Search)
			notes.PUT("/:id", h.UpdateNote)
			notes.DELETE("/:id", h.DeleteNote)
		}

		alerts := v1.Group("/alerts")
		alerts.Use(h.auth, identity.RequireRole(types.RoleClinician, types.RoleAdmin))
		{
			alerts.GET("", h.ListAlerts)
			alerts.DELETE("/:id", h.DismissAlert)
		}
	}
}

// AddNote creates a note authored by the caller
func (h *Handlers) AddNote(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)

	var req struct {
		PatientID string `json:"patient_id"`
		Mood      int    `json:"mood"`
		Pain      int    `json:"pain"`
		Appetite  int    `json:"appetite"`
		Notes     string `json:"notes"`
		Diagnoses string `json:"diagnoses"`
		IsPrivate bool   `json:"is_private"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	var source types.NoteSource
	switch claims.Role {
	case types.RolePatient:
		source = types.SourcePatient
		req.PatientID = claims.Username
	case types.RoleClinician:
		source = types.SourceClinician
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Only patients and clinicians may author notes"})
		return
	}

	note, err := h.service.AddNote(&NewNoteRequest{
		HospitalID: claims.HospitalID,
		PatientID:  req.PatientID,
		AuthorID:   claims.Username,
		Mood:       req.Mood,
		Pain:       req.Pain,
		Appetite:   req.Appetite,
		Notes:      req.Notes,
		Diagnoses:  req.Diagnoses,
		Source:     source,
		IsPrivate:  req.IsPrivate,
	})
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note": note})
}

// ListForPatient returns one patient's notes visible to the caller
func (h *Handlers) ListForPatient(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	viewer := access.Viewer{Username: claims.Username, Role: claims.Role}

	notes, err := h.service.NotesForPatient(claims.HospitalID, c.Param("username"), viewer)
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// Search returns the caller-visible notes of a patient matching the term
func (h *Handlers) Search(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	viewer := access.Viewer{Username: claims.Username, Role: claims.Role}

	notes, err := h.service.SearchNotes(claims.HospitalID, c.Param("username"), c.Query("q"), viewer)
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// UpdateNote merges changes into a note the caller owns
func (h *Handlers) UpdateNote(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	noteID := c.Param("id")

	var updates types.NoteUpdates
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	viewer := access.Viewer{Username: claims.Username, Role: claims.Role}
	allowed, err := h.service.CanModify(claims.HospitalID, noteID, viewer)
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to modify this note"})
		return
	}

	if err := h.service.UpdateNote(claims.HospitalID, noteID, &updates); err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note updated"})
}

// DeleteNote removes a note the caller owns
func (h *Handlers) DeleteNote(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	noteID := c.Param("id")

	viewer := access.Viewer{Username: claims.Username, Role: claims.Role}
	allowed, err := h.service.CanModify(claims.HospitalID, noteID, viewer)
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to delete this note"})
		return
	}

	if err := h.service.DeleteNote(claims.HospitalID, noteID); err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note deleted"})
}

// ListAlerts returns the hospital's active pain alerts
func (h *Handlers) ListAlerts(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	alerts, err := h.service.PainAlerts(claims.HospitalID)
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// DismissAlert removes a pain alert
func (h *Handlers) DismissAlert(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	if err := h.service.DismissAlert(claims.HospitalID, c.Param("id")); err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alert dismissed"})
}
