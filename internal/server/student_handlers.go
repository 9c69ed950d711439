package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/unigest/unigest/internal/models"
)

// CreateGradeRequest represents a new course result
type CreateGradeRequest struct {
	Course       string  `json:"course" validate:"required,max=120"`
	Credits      int     `json:"credits" validate:"required,min=1,max=60"`
	Score        float64 `json:"score" validate:"min=0,max=20"`
	AcademicYear string  `json:"academic_year" validate:"required,academicyear"`
	Session      string  `json:"session" validate:"omitempty,oneof=normale rattrapage"`
}

// @Summary List students
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param faculty_id query string false "Filter by faculty"
// @Param q query string false "Search by name or matricule"
// @Success 200 {array} models.Student
// @Router /api/students [get]
func (s *Server) listStudents(c *gin.Context) {
	query := s.db.Order("last_name ASC, first_name ASC")

	if facultyID := c.Query("faculty_id"); facultyID != "" {
		query = query.Where("faculty_id = ?", facultyID)
	}
	if q := c.Query("q"); q != "" {
		like := "%" + q + "%"
		query = query.Where("matricule LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like)
	}

	var students []models.Student
	if err := query.Find(&students).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list students")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, students)
}

// @Summary Create student
// @Description Free-text enumerations (blood group, sex, status) are normalized; unknown values are stored as null or the default status.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.StudentInput true "Student"
// @Success 201 {object} models.Student
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/students [post]
func (s *Server) createStudent(c *gin.Context) {
	var input models.StudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	student := models.NormalizeStudent(input)

	if student.FacultyID != nil {
		if err := s.db.Select("id").Where("id = ?", *student.FacultyID).First(&models.Faculty{}).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Faculté inconnue"})
			return
		}
	}

	var existing int64
	if err := s.db.Model(&models.Student{}).Where("matricule = ?", student.Matricule).Count(&existing).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to look up matricule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Matricule déjà attribué"})
		return
	}

	if err := s.db.Create(&student).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create student")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create student"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().
		Str("student_id", student.ID).
		Str("matricule", student.Matricule).
		Str("created_by", sessionData.UserID).
		Msg("Student created")

	c.JSON(http.StatusCreated, student)
}

// @Summary Get student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} models.Student
// @Failure 404 {object} map[string]interface{}
// @Router /api/students/{id} [get]
func (s *Server) getStudent(c *gin.Context) {
	student, ok := s.findStudent(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, student)
}

// @Summary List grades of a student
// @Tags grades
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {array} models.Grade
// @Router /api/students/{id}/grades [get]
func (s *Server) listGrades(c *gin.Context) {
	student, ok := s.findStudent(c, c.Param("id"))
	if !ok {
		return
	}

	var grades []models.Grade
	if err := s.db.Where("student_id = ?", student.ID).Order("academic_year ASC, course ASC").Find(&grades).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list grades")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, grades)
}

// @Summary Record a grade
// @Tags grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param request body CreateGradeRequest true "Grade"
// @Success 201 {object} models.Grade
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/students/{id}/grades [post]
func (s *Server) createGrade(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	if sessionData.Role == models.RoleSecretaire {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
		return
	}

	var req CreateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	student, ok := s.findStudent(c, c.Param("id"))
	if !ok {
		return
	}

	session := req.Session
	if session == "" {
		session = "normale"
	}

	grade := models.Grade{
		StudentID:    student.ID,
		Course:       req.Course,
		Credits:      req.Credits,
		Score:        req.Score,
		AcademicYear: req.AcademicYear,
		Session:      session,
	}
	if err := s.db.Create(&grade).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create grade")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create grade"})
		return
	}

	c.JSON(http.StatusCreated, grade)
}

// findStudent loads a student or writes a 404/500 response
func (s *Server) findStudent(c *gin.Context, id string) (*models.Student, bool) {
	var student models.Student
	if err := s.db.Where("id = ?", id).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Étudiant introuvable"})
			return nil, false
		}
		s.logger.Error().Err(err).Str("student_id", id).Msg("Failed to find student")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	return &student, true
}
