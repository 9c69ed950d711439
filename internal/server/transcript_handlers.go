package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unigest/unigest/internal/models"
)

// @Summary Download transcript
// @Description Returns the transcript artifact as an attachment; the suggested filename is in Content-Disposition.
// @Tags documents
// @Produce text/csv
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]interface{}
// @Router /api/students/{id}/transcript [get]
func (s *Server) downloadTranscript(c *gin.Context) {
	student, ok := s.findStudent(c, c.Param("id"))
	if !ok {
		return
	}

	var grades []models.Grade
	if err := s.db.Where("student_id = ?", student.ID).Order("academic_year ASC, course ASC").Find(&grades).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load grades for transcript")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="releve_%s.csv"`, student.Matricule))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	w.Write([]string{"matricule", "nom", "prenom", "annee", "cours", "credits", "note", "session"})
	for _, g := range grades {
		w.Write([]string{
			student.Matricule,
			student.LastName,
			student.FirstName,
			g.AcademicYear,
			g.Course,
			strconv.Itoa(g.Credits),
			strconv.FormatFloat(g.Score, 'f', 2, 64),
			g.Session,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		s.logger.Error().Err(err).Str("student_id", student.ID).Msg("Failed to write transcript")
	}
}
