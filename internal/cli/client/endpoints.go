package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/unigest/unigest/internal/models"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token string             `json:"token" validate:"required"`
	User  models.UserProfile `json:"user"`
}

// RegisterRequest represents a staff self-registration
type RegisterRequest struct {
	Email     string      `json:"email" validate:"required,email"`
	Password  string      `json:"password" validate:"required,min=8"`
	FirstName string      `json:"first_name" validate:"required"`
	LastName  string      `json:"last_name" validate:"required"`
	Role      models.Role `json:"role" validate:"required"`
	Phone     string      `json:"phone,omitempty"`
}

// VerifyPasswordRequest re-checks the current user's password
type VerifyPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// StudentFilter narrows ListStudents
type StudentFilter struct {
	FacultyID string
	Query     string
}

// EnrollmentRequest registers a student in a faculty for a year
type EnrollmentRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	FacultyID    string `json:"faculty_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required,len=9"`
	Level        string `json:"level" validate:"required,oneof=L1 L2 L3 M1 M2 D"`
}

// NotificationRequest asks the server to mail someone
type NotificationRequest struct {
	Recipient string `json:"recipient" validate:"required,email"`
	Subject   string `json:"subject" validate:"required,max=255"`
	Body      string `json:"body" validate:"required"`
}

// call validates body (when set), sends the request and decodes into out
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	if body != nil {
		if err := c.validate.Struct(body); err != nil {
			return fmt.Errorf("invalid request: %w", err)
		}
	}

	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.Do(req, out)
}

// Login authenticates the user and returns a bearer token
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", &LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(resp); err != nil {
		return nil, fmt.Errorf("invalid login response: %w", err)
	}
	return &resp, nil
}

// Register creates a staff account
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", &req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// VerifyPassword checks the current user's password. A mismatch returns an
// *APIError with status 401 and leaves the session alone.
func (c *Client) VerifyPassword(ctx context.Context, password string) error {
	return c.call(ctx, http.MethodPost, "/api/auth/verify-password", &VerifyPasswordRequest{Password: password}, nil)
}

// Me returns the profile of the user owning the stored token
func (c *Client) Me(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Logout tells the server the user signed out
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// ListStudents returns students matching filter
func (c *Client) ListStudents(ctx context.Context, filter StudentFilter) ([]models.Student, error) {
	q := url.Values{}
	if filter.FacultyID != "" {
		q.Set("faculty_id", filter.FacultyID)
	}
	if filter.Query != "" {
		q.Set("q", filter.Query)
	}

	path := "/api/students"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var students []models.Student
	if err := c.call(ctx, http.MethodGet, path, nil, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// GetStudent returns one student
func (c *Client) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := c.call(ctx, http.MethodGet, "/api/students/"+url.PathEscape(id), nil, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// CreateStudent creates a student; the server normalizes the input
func (c *Client) CreateStudent(ctx context.Context, input models.StudentInput) (*models.Student, error) {
	var student models.Student
	if err := c.call(ctx, http.MethodPost, "/api/students", &input, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListFaculties returns all faculties
func (c *Client) ListFaculties(ctx context.Context) ([]models.Faculty, error) {
	var faculties []models.Faculty
	if err := c.call(ctx, http.MethodGet, "/api/faculties", nil, &faculties); err != nil {
		return nil, err
	}
	return faculties, nil
}

// ListEnrollments returns enrollments, optionally for one student
func (c *Client) ListEnrollments(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	path := "/api/enrollments"
	if studentID != "" {
		path += "?" + url.Values{"student_id": {studentID}}.Encode()
	}

	var enrollments []models.Enrollment
	if err := c.call(ctx, http.MethodGet, path, nil, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// CreateEnrollment enrolls a student
func (c *Client) CreateEnrollment(ctx context.Context, req EnrollmentRequest) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := c.call(ctx, http.MethodPost, "/api/enrollments", &req, &enrollment); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListGrades returns the grades of a student
func (c *Client) ListGrades(ctx context.Context, studentID string) ([]models.Grade, error) {
	var grades []models.Grade
	if err := c.call(ctx, http.MethodGet, "/api/students/"+url.PathEscape(studentID)+"/grades", nil, &grades); err != nil {
		return nil, err
	}
	return grades, nil
}

// ListExpenses returns expenses, optionally for one student
func (c *Client) ListExpenses(ctx context.Context, studentID string) ([]models.Expense, error) {
	path := "/api/expenses"
	if studentID != "" {
		path += "?" + url.Values{"student_id": {studentID}}.Encode()
	}

	var expenses []models.Expense
	if err := c.call(ctx, http.MethodGet, path, nil, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// SendNotification queues a mail on the server
func (c *Client) SendNotification(ctx context.Context, req NotificationRequest) error {
	return c.call(ctx, http.MethodPost, "/api/notifications", &req, nil)
}
