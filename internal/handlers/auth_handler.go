package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ratehub/ratehub/internal/audit"
	"github.com/ratehub/ratehub/internal/httperr"
	"github.com/ratehub/ratehub/internal/metrics"
	"github.com/ratehub/ratehub/internal/middleware"
	"github.com/ratehub/ratehub/internal/models"
	"github.com/ratehub/ratehub/internal/password"
	"github.com/ratehub/ratehub/internal/token"
	"github.com/ratehub/ratehub/internal/validators"
)

type AuthHandler struct {
	db     *gorm.DB
	hasher *password.Hasher
	issuer *token.Issuer
	audit  *audit.Dispatcher

	// Swappable so tests do not depend on DNS.
	domainCheck func(string) bool
}

func NewAuthHandler(
	db *gorm.DB,
	hasher *password.Hasher,
	issuer *token.Issuer,
	auditDispatcher *audit.Dispatcher,
) *AuthHandler {
	return &AuthHandler{
		db:          db,
		hasher:      hasher,
		issuer:      issuer,
		audit:       auditDispatcher,
		domainCheck: validators.IsEmailDomainValid,
	}
}

// --------- Requests ---------

type SignupRequest struct {
	Name     string `json:"name" binding:"required,min=20,max=60"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,password"`
	Address  string `json:"address" binding:"required,max=400"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,password"`
}

// --------- Handlers ---------

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "validation_error", err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !h.domainCheck(email) {
		httperr.BadRequest(c, "invalid_email_domain", "The email domain does not appear to exist.")
		return
	}

	var count int64
	if err := h.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		httperr.Internal(c, "persistence_error", "Failed to check existing accounts.")
		return
	}
	if count > 0 {
		httperr.BadRequest(c, httperr.CodeEmailTaken, "An account with this email already exists.")
		return
	}

	hashed, err := h.hasher.Hash(req.Password)
	if err != nil {
		httperr.Internal(c, "failed_to_hash_password", "Failed to process credentials.")
		return
	}

	user := models.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hashed,
		Address:      req.Address,
		Role:         models.RoleNormalUser,
	}

	if err := h.db.Create(&user).Error; err != nil {
		httperr.Internal(c, "failed_to_create_user", "Failed to create the account.")
		return
	}

	tok, err := h.issuer.Issue(user.ID, user.Role)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Failed to issue a session token.")
		return
	}

	metrics.Signups.Inc()
	h.audit.Dispatch(audit.Event{
		ActorID:  &user.ID,
		Action:   "user_signed_up",
		Entity:   "user",
		EntityID: &user.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"user":  publicUser(&user),
		"token": tok,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "validation_error", err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Unknown email and wrong password answer identically so the endpoint
	// cannot be used to enumerate accounts.
	var user models.User
	if err := h.db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			metrics.Logins.WithLabelValues("rejected").Inc()
			httperr.Unauthorized(c, "invalid_credentials", "Invalid email or password.")
			return
		}
		httperr.Internal(c, "persistence_error", "Failed to load the account.")
		return
	}

	if !h.hasher.Verify(req.Password, user.PasswordHash) {
		metrics.Logins.WithLabelValues("rejected").Inc()
		httperr.Unauthorized(c, "invalid_credentials", "Invalid email or password.")
		return
	}

	tok, err := h.issuer.Issue(user.ID, user.Role)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Failed to issue a session token.")
		return
	}

	metrics.Logins.WithLabelValues("accepted").Inc()

	c.JSON(http.StatusOK, gin.H{
		"user":  publicUser(&user),
		"token": tok,
	})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "validation_error", err.Error())
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httperr.Internal(c, "user_not_found", "Failed to load the account.")
		return
	}

	if !h.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
		httperr.BadRequest(c, "invalid_current_password", "The current password is incorrect.")
		return
	}

	hashed, err := h.hasher.Hash(req.NewPassword)
	if err != nil {
		httperr.Internal(c, "failed_to_hash_password", "Failed to process credentials.")
		return
	}

	user.PasswordHash = hashed
	if err := h.db.Save(&user).Error; err != nil {
		httperr.Internal(c, "failed_to_update_password", "Failed to update the password.")
		return
	}

	h.audit.Dispatch(audit.Event{
		ActorID:  &user.ID,
		Action:   "password_changed",
		Entity:   "user",
		EntityID: &user.ID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully."})
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httperr.Internal(c, "user_not_found", "Failed to load the account.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": publicUser(&user)})
}

// --------- Helpers ---------

func publicUser(u *models.User) gin.H {
	return gin.H{
		"id":      u.ID,
		"name":    u.Name,
		"email":   u.Email,
		"address": u.Address,
		"role":    u.Role,
	}
}
