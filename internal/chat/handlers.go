package chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/randyrahmani/CareLogG8/internal/identity"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

// Handlers contains HTTP handlers for chat operations
type Handlers struct {
	service *Service
	auth    gin.HandlerFunc
	logger  *logger.Logger
}

// NewHandlers creates new chat HTTP handlers
func NewHandlers(service *Service, auth gin.HandlerFunc, log *logger.Logger) *Handlers {
	return &Handlers{service: service, auth: auth, logger: log}
}

// RegisterRoutes registers chat routes with the router
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	chat := v1.Group("/chat")
	chat.Use(h.auth)
	{
		chat.GET("/general", identity.RequireRole(types.RoleClinician, types.RoleAdmin), h.ListGeneralThreads)
		chat.GET("/general/:patient", h.GetGeneral)
		chat.POST("/general/:patient", h.PostGeneral)

		chat.GET("/direct", identity.RequireRole(types.RoleClinician), h.ListDirectThreads)
		chat.GET("/direct/:patient/:clinician", h.GetDirect)
		chat.POST("/direct/:patient/:clinician", h.PostDirect)
	}
}

type messageRequest struct {
	Text string `json:"text" binding:"required"`
}

// PostGeneral appends a message to a patient's general thread
func (h *Handlers) PostGeneral(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	patient := c.Param("patient")
	if !h.canTouchGeneral(claims, patient) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this thread"})
		return
	}

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	msg, err := h.service.SendGeneral(claims.HospitalID, patient, claims.Username, claims.Role, req.Text)
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetGeneral returns a patient's general thread, oldest first
func (h *Handlers) GetGeneral(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	patient := c.Param("patient")
	if !h.canTouchGeneral(claims, patient) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this thread"})
		return
	}

	msgs, err := h.service.GeneralMessages(claims.HospitalID, patient, limitQuery(c))
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ListGeneralThreads lists the patients with general-thread activity
func (h *Handlers) ListGeneralThreads(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	patients, err := h.service.GeneralPatients(claims.HospitalID)
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients})
}

// PostDirect appends a message to a patient-clinician thread
func (h *Handlers) PostDirect(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	patient := c.Param("patient")
	clinician := c.Param("clinician")
	if !h.canTouchDirect(claims, patient, clinician) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this thread"})
		return
	}

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	msg, err := h.service.SendDirect(claims.HospitalID, patient, clinician, claims.Username, claims.Role, req.Text)
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetDirect returns one patient-clinician thread, oldest first
func (h *Handlers) GetDirect(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	patient := c.Param("patient")
	clinician := c.Param("clinician")
	if !h.canTouchDirect(claims, patient, clinician) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this thread"})
		return
	}

	msgs, err := h.service.DirectMessages(claims.HospitalID, patient, clinician, limitQuery(c))
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ListDirectThreads lists the patients holding a direct thread with the caller
func (h *Handlers) ListDirectThreads(c *gin.Context) {
	claims := identity.ClaimsFromContext(c)
	patients, err := h.service.DirectThreadsForClinician(claims.HospitalID, claims.Username)
	if err != nil {
		identity.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients})
}

// canTouchGeneral restricts a general thread to the patient it belongs to
// and the hospital's staff.
func (h *Handlers) canTouchGeneral(claims *identity.SessionClaims, patient string) bool {
	switch claims.Role {
	case types.RolePatient:
		return claims.Username == patient
	case types.RoleClinician, types.RoleAdmin:
		return true
	}
	return false
}

// canTouchDirect restricts a direct thread to its two participants; admins
// may read for oversight.
func (h *Handlers) canTouchDirect(claims *identity.SessionClaims, patient, clinician string) bool {
	switch claims.Role {
	case types.RolePatient:
		return claims.Username == patient
	case types.RoleClinician:
		return claims.Username == clinician
	case types.RoleAdmin:
		return true
	}
	return false
}

func limitQuery(c *gin.Context) int {
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}
