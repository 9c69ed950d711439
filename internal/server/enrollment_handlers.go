package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unigest/unigest/internal/models"
)

// CreateEnrollmentRequest registers a student in a faculty
type CreateEnrollmentRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	FacultyID    string `json:"faculty_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required,academicyear"`
	Level        string `json:"level" validate:"required,oneof=L1 L2 L3 M1 M2 D"`
}

// CreateExpenseRequest records a fee or a payment for a student
type CreateExpenseRequest struct {
	StudentID   string     `json:"student_id" validate:"required"`
	Label       string     `json:"label" validate:"required,max=120"`
	AmountCents int64      `json:"amount_cents" validate:"required,gt=0"`
	PaidAt      *time.Time `json:"paid_at"`
}

// @Summary List enrollments
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param student_id query string false "Filter by student"
// @Param academic_year query string false "Filter by academic year"
// @Success 200 {array} models.Enrollment
// @Router /api/enrollments [get]
func (s *Server) listEnrollments(c *gin.Context) {
	query := s.db.Order("created_at DESC")
	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if year := c.Query("academic_year"); year != "" {
		query = query.Where("academic_year = ?", year)
	}

	var enrollments []models.Enrollment
	if err := query.Find(&enrollments).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list enrollments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, enrollments)
}

// @Summary Enroll a student
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateEnrollmentRequest true "Enrollment"
// @Success 201 {object} models.Enrollment
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/enrollments [post]
func (s *Server) createEnrollment(c *gin.Context) {
	var req CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	student, ok := s.findStudent(c, req.StudentID)
	if !ok {
		return
	}
	if err := s.db.Select("id").Where("id = ?", req.FacultyID).First(&models.Faculty{}).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Faculté inconnue"})
		return
	}

	var existing int64
	if err := s.db.Model(&models.Enrollment{}).
		Where("student_id = ? AND academic_year = ?", student.ID, req.AcademicYear).
		Count(&existing).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to look up enrollment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Étudiant déjà inscrit pour cette année"})
		return
	}

	enrollment := models.Enrollment{
		StudentID:    student.ID,
		FacultyID:    req.FacultyID,
		AcademicYear: req.AcademicYear,
		Level:        req.Level,
	}
	if err := s.db.Create(&enrollment).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create enrollment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create enrollment"})
		return
	}

	// Keep the student's current faculty in sync with the latest enrollment
	if err := s.db.Model(student).Update("faculty_id", req.FacultyID).Error; err != nil {
		s.logger.Warn().Err(err).Str("student_id", student.ID).Msg("Failed to update student faculty")
	}

	c.JSON(http.StatusCreated, enrollment)
}

// @Summary List expenses
// @Tags expenses
// @Produce json
// @Security BearerAuth
// @Param student_id query string false "Filter by student"
// @Success 200 {array} models.Expense
// @Router /api/expenses [get]
func (s *Server) listExpenses(c *gin.Context) {
	query := s.db.Order("created_at DESC")
	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}

	var expenses []models.Expense
	if err := query.Find(&expenses).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list expenses")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, expenses)
}

// @Summary Record an expense
// @Tags expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateExpenseRequest true "Expense"
// @Success 201 {object} models.Expense
// @Failure 400 {object} map[string]interface{}
// @Router /api/expenses [post]
func (s *Server) createExpense(c *gin.Context) {
	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	student, ok := s.findStudent(c, req.StudentID)
	if !ok {
		return
	}

	expense := models.Expense{
		StudentID:   student.ID,
		Label:       req.Label,
		AmountCents: req.AmountCents,
		PaidAt:      req.PaidAt,
	}
	if err := s.db.Create(&expense).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create expense")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create expense"})
		return
	}

	c.JSON(http.StatusCreated, expense)
}
