package identity

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/randyrahmani/CareLogG8/internal/access"
	"github.com/randyrahmani/CareLogG8/internal/store"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

const claimsContextKey = "session_claims"

// Handlers contains HTTP handlers for identity operations
type Handlers struct {
	service *Service
	tokens  *TokenManager
	store   *store.Store
	logger  *logger.Logger
}

// NewHandlers creates new identity HTTP handlers
func NewHandlers(service *Service, tokens *TokenManager, st *store.Store, log *logger.Logger) *Handlers {
	return &Handlers{service: service, tokens: tokens, store: st, logger: log}
}

// RegisterRoutes registers identity routes with the router
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
		}

		users := v1.Group("/users")
		users.Use(h.AuthMiddleware())
		{
			users.GET("", RequireRole(types.RoleAdmin), h.ListUsers)
			users.POST("/:username/approve", RequireRole(types.RoleAdmin), h.ApproveUser)
			users.DELETE("/:username", RequireRole(types.RoleAdmin), h.DeleteUser)
		}

		profile := v1.Group("/profile")
		profile.Use(h.AuthMiddleware())
		{
			profile.PUT("", h.UpdateProfile)
		}

		patients := v1.Group("/patients")
		patients.Use(h.AuthMiddleware())
		{
			patients.GET("", h.ListPatients)
			patients.GET("/:username/clinicians", h.ListAssignedClinicians)
			patients.POST("/:username/clinicians", RequireRole(types.RoleAdmin), h.AssignClinician)
			patients.DELETE("/:username/clinicians/:clinician", RequireRole(types.RoleAdmin), h.UnassignClinician)
		}

		export := v1.Group("/admin/export")
		export.Use(h.AuthMiddleware(), RequireRole(types.RoleAdmin))
		{
			export.GET("/users.csv", h.ExportUsersCSV)
			export.GET("/notes.csv", h.ExportNotesCSV)
			export.GET("/report", h.ExportNotesReport)
		}
	}
}

// Register handles account registration
func (h *Handlers) Register(c *gin.Context) {
	var req types.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid registration request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	outcome, err := h.service.Register(&req)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	switch outcome {
	case types.RegistrationInvalid, types.RegistrationWeakPassword:
		status = http.StatusBadRequest
	case types.RegistrationAlreadyExists:
		status = http.StatusConflict
	case types.RegistrationHospitalNotFound:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"outcome": outcome})
}

// Login handles authentication and issues an access token
func (h *Handlers) Login(c *gin.Context) {
	var creds types.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		h.logger.Error("Invalid login request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	result, err := h.service.Login(&creds)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	switch result.Outcome {
	case types.LoginOK:
		token, err := h.tokens.Issue(creds.HospitalID, result.User.Username, result.User.Role)
		if err != nil {
			HandleError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"outcome": result.Outcome, "token": token, "user": result.User})
	case types.LoginPending:
		c.JSON(http.StatusForbidden, gin.H{"outcome": result.Outcome, "message": "account is awaiting approval"})
	case types.LoginIntegrityError:
		c.JSON(http.StatusInternalServerError, gin.H{"outcome": result.Outcome, "message": "stored credentials are unreadable"})
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"outcome": result.Outcome, "message": "invalid credentials"})
	}
}

// ListUsers lists every account of the caller's hospital
func (h *Handlers) ListUsers(c *gin.Context) {
	claims := ClaimsFromContext(c)
	users, err := h.service.Users(claims.HospitalID)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ApproveUser flips a pending account to approved
func (h *Handlers) ApproveUser(c *gin.Context) {
	claims := ClaimsFromContext(c)
	role := types.Role(c.Query("role"))
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid role query parameter is required"})
		return
	}

	if err := h.service.Approve(claims.HospitalID, c.Param("username"), role); err != nil {
		HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account approved"})
}

// DeleteUser removes an account and its dependent data
func (h *Handlers) DeleteUser(c *gin.Context) {
	claims := ClaimsFromContext(c)
	role := types.Role(c.Query("role"))
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid role query parameter is required"})
		return
	}

	actor := access.Viewer{Username: claims.Username, Role: claims.Role}
	deleted, err := h.service.Delete(claims.HospitalID, actor, c.Param("username"), role)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "no matching account was deleted"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

// UpdateProfile updates the caller's profile and optionally rotates the password
func (h *Handlers) UpdateProfile(c *gin.Context) {
	claims := ClaimsFromContext(c)

	var req struct {
		Profile     types.Profile `json:"profile"`
		NewPassword string        `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.service.UpdateProfile(claims.HospitalID, claims.Username, claims.Role, req.Profile, req.NewPassword); err != nil {
		HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// ListPatients returns the patient roster visible to the caller
func (h *Handlers) ListPatients(c *gin.Context) {
	claims := ClaimsFromContext(c)
	viewer := access.Viewer{Username: claims.Username, Role: claims.Role}

	patients, err := h.service.Patients(claims.HospitalID, viewer)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients})
}

// ListAssignedClinicians returns the clinicians assigned to a patient
func (h *Handlers) ListAssignedClinicians(c *gin.Context) {
	claims := ClaimsFromContext(c)
	clinicians, err := h.service.AssignedClinicians(claims.HospitalID, c.Param("username"))
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clinicians": clinicians})
}

// AssignClinician adds a clinician to a patient's care team
func (h *Handlers) AssignClinician(c *gin.Context) {
	claims := ClaimsFromContext(c)

	var req struct {
		Clinician string `json:"clinician" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.service.AssignClinician(claims.HospitalID, c.Param("username"), req.Clinician); err != nil {
		HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Clinician assigned"})
}

// UnassignClinician removes a clinician from a patient's care team
func (h *Handlers) UnassignClinician(c *gin.Context) {
	claims := ClaimsFromContext(c)
	if err := h.service.UnassignClinician(claims.HospitalID, c.Param("username"), c.Param("clinician")); err != nil {
		HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Clinician unassigned"})
}

// ExportUsersCSV streams the hospital's account list as CSV
func (h *Handlers) ExportUsersCSV(c *gin.Context) {
	claims := ClaimsFromContext(c)
	ds, err := h.store.HospitalDataset(claims.HospitalID)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	out, err := store.RenderUsersCSV(ds)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="users.csv"`)
	c.Data(http.StatusOK, "text/csv", []byte(out))
}

// ExportNotesCSV streams the hospital's notes as CSV
func (h *Handlers) ExportNotesCSV(c *gin.Context) {
	claims := ClaimsFromContext(c)
	ds, err := h.store.HospitalDataset(claims.HospitalID)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	out, err := store.RenderNotesCSV(ds)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="notes.csv"`)
	c.Data(http.StatusOK, "text/csv", []byte(out))
}

// ExportNotesReport streams the hospital's plain-text notes report
func (h *Handlers) ExportNotesReport(c *gin.Context) {
	claims := ClaimsFromContext(c)
	ds, err := h.store.HospitalDataset(claims.HospitalID)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	out := store.RenderNotesReport(ds, time.Now())
	c.Header("Content-Disposition", `attachment; filename="notes_report.txt"`)
	c.Data(http.StatusOK, "text/plain", []byte(out))
}

// AuthMiddleware validates the bearer token and stores its claims in the
// request context.
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := h.tokens.Validate(token)
		if err != nil {
			h.logger.Security("token_rejected", "", "")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// RequireRole restricts a route to callers holding one of the given roles.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
		c.Abort()
	}
}

// ClaimsFromContext returns the session claims stored by AuthMiddleware, or
// nil on an unauthenticated request.
func ClaimsFromContext(c *gin.Context) *SessionClaims {
	if v, exists := c.Get(claimsContextKey); exists {
		if claims, ok := v.(*SessionClaims); ok {
			return claims
		}
	}
	return nil
}

// HandleError writes a structured error response, mapping the error type to
// an HTTP status code.
func HandleError(c *gin.Context, log *logger.Logger, err error) {
	if clErr, ok := err.(*types.CareLogError); ok {
		c.JSON(statusCodeFor(clErr.Type), gin.H{"error": clErr.Code, "message": clErr.Message})
		return
	}

	log.Error("Internal server error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": types.ErrCodeInternalError, "message": "An internal error occurred"})
}

func statusCodeFor(errorType types.ErrorType) int {
	switch errorType {
	case types.ErrorTypeValidation:
		return http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypeAuthorization:
		return http.StatusForbidden
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
