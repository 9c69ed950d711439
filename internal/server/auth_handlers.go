package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/unigest/unigest/internal/auth"
	"github.com/unigest/unigest/internal/models"
)

// RegisterRequest represents a self-registration request
type RegisterRequest struct {
	Email     string      `json:"email" binding:"required,email"`
	Password  string      `json:"password" binding:"required"`
	FirstName string      `json:"first_name" binding:"required"`
	LastName  string      `json:"last_name" binding:"required"`
	Role      models.Role `json:"role" binding:"required"`
	Phone     string      `json:"phone"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token string              `json:"token"`
	User  *models.UserProfile `json:"user"`
}

// VerifyPasswordRequest asks the server to re-check the current user's password
type VerifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest represents a request to create a staff account
type CreateUserRequest struct {
	RegisterRequest
	Status models.AccountStatus `json:"status"`
}

// @Summary Register
// @Description Creates a staff account. The first account becomes an active Admin;
// @Description later self-registrations are created inactive until an Admin enables them.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Register request"
// @Success 201 {object} models.UserProfile
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := models.AccountInactif
	if count == 0 {
		req.Role = models.RoleAdmin
		status = models.AccountActif
	}

	user, ok := s.insertUser(c, req, status)
	if !ok {
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Str("status", string(status)).Msg("User registered")
	c.JSON(http.StatusCreated, user.Profile())
}

// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe invalide"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe invalide"})
		return
	}

	if user.Status != models.AccountActif {
		c.JSON(http.StatusForbidden, gin.H{"error": "Compte inactif"})
		return
	}

	token, err := s.tokens.GenerateToken(&user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")

	profile := user.Profile()
	c.JSON(http.StatusOK, LoginResponse{Token: token, User: &profile})
}

// @Summary Verify password
// @Description Re-check the current user's password before a sensitive action.
// @Description A mismatch answers 401 without invalidating the session.
// @Tags auth
// @Accept json
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/verify-password [post]
func (s *Server) verifyPassword(c *gin.Context) {
	var req VerifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionData, _ := GetSessionData(c)

	var user models.User
	if err := s.db.Where("id = ?", sessionData.UserID).First(&user).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Mot de passe incorrect"})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Logout
// @Description Tokens are stateless; the endpoint records the logout and lets clients drop their credentials.
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Router /api/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	s.logger.Info().Str("user_id", sessionData.UserID).Msg("User logged out")
	c.Status(http.StatusNoContent)
}

// @Summary Get current user
// @Description Get information about the currently authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserProfile
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", sessionData.UserID).First(&user).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, user.Profile())
}

// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserProfile
// @Failure 403 {object} map[string]interface{}
// @Router /api/users [get]
func (s *Server) listUsers(c *gin.Context) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	profiles := make([]models.UserProfile, len(users))
	for i := range users {
		profiles[i] = users[i].Profile()
	}

	c.JSON(http.StatusOK, profiles)
}

// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "Create user request"
// @Success 201 {object} models.UserProfile
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/users [post]
func (s *Server) createUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := req.Status
	if status != models.AccountInactif {
		status = models.AccountActif
	}

	user, ok := s.insertUser(c, req.RegisterRequest, status)
	if !ok {
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().
		Str("user_id", user.ID).
		Str("email", user.Email).
		Str("created_by", sessionData.UserID).
		Msg("User created")

	c.JSON(http.StatusCreated, user.Profile())
}

// insertUser validates, hashes and stores a new account. It writes the error
// response itself and reports false when the handler must stop.
func (s *Server) insertUser(c *gin.Context, req RegisterRequest, status models.AccountStatus) (*models.User, bool) {
	if !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rôle inconnu"})
		return nil, false
	}

	var existing int64
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to look up email")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email déjà utilisé"})
		return nil, false
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		Status:       status,
		Phone:        req.Phone,
	}

	if err := s.db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return nil, false
	}

	return user, true
}
