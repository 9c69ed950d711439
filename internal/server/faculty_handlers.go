package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unigest/unigest/internal/models"
)

// CreateFacultyRequest represents a new faculty
type CreateFacultyRequest struct {
	Code string `json:"code" binding:"required,alphanum,max=16"`
	Name string `json:"name" binding:"required"`
	Dean string `json:"dean"`
}

// @Summary List faculties
// @Tags faculties
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Faculty
// @Router /api/faculties [get]
func (s *Server) listFaculties(c *gin.Context) {
	var faculties []models.Faculty
	if err := s.db.Order("code ASC").Find(&faculties).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list faculties")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, faculties)
}

// @Summary Create faculty
// @Tags faculties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateFacultyRequest true "Faculty"
// @Success 201 {object} models.Faculty
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/faculties [post]
func (s *Server) createFaculty(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	if !sessionData.Role.CanManageUsers() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
		return
	}

	var req CreateFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code := strings.ToUpper(req.Code)

	var existing int64
	if err := s.db.Model(&models.Faculty{}).Where("code = ?", code).Count(&existing).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to look up faculty code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Code de faculté déjà utilisé"})
		return
	}

	faculty := models.Faculty{Code: code, Name: req.Name, Dean: req.Dean}
	if err := s.db.Create(&faculty).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create faculty")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create faculty"})
		return
	}

	c.JSON(http.StatusCreated, faculty)
}
