package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Role is the administrative role of a staff account
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleProfesseur Role = "Professeur"
	RoleSecretaire Role = "Secretaire"
	RoleDirecteur  Role = "Directeur"
	RoleDoyen      Role = "Doyen"
)

// Roles lists every assignable role, in display order
var Roles = []Role{RoleAdmin, RoleProfesseur, RoleSecretaire, RoleDirecteur, RoleDoyen}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// CanManageUsers reports whether the role may create or list staff accounts
func (r Role) CanManageUsers() bool {
	return r == RoleAdmin || r == RoleDoyen
}

// AccountStatus is the activation state of a staff account
type AccountStatus string

const (
	AccountActif   AccountStatus = "Actif"
	AccountInactif AccountStatus = "Inactif"
)

// User represents a staff account (secretariat, professors, deans...)
type User struct {
	BaseModel
	Email        string        `json:"email" gorm:"not null;uniqueIndex"`
	PasswordHash string        `json:"-" gorm:"not null"`
	FirstName    string        `json:"first_name" gorm:"not null"`
	LastName     string        `json:"last_name" gorm:"not null"`
	Role         Role          `json:"role" gorm:"type:varchar(16);not null"`
	Status       AccountStatus `json:"status" gorm:"type:varchar(16);not null;default:Actif"`
	Phone        string        `json:"phone"`
}

// Profile returns the read-only snapshot of the user sent to clients
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Status:    u.Status,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

// UserProfile is the wire representation of a User
type UserProfile struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Role      Role          `json:"role"`
	Status    AccountStatus `json:"status"`
	Phone     string        `json:"phone,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// FullName returns "First Last"
func (p UserProfile) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Faculty is a teaching unit (UFR) students enroll into
type Faculty struct {
	BaseModel
	Code string `json:"code" gorm:"not null;uniqueIndex"`
	Name string `json:"name" gorm:"not null"`
	Dean string `json:"dean"`
}

// Student is the normalized student record stored in the database.
// Build it through NormalizeStudent rather than by hand.
type Student struct {
	BaseModel
	Matricule  string        `json:"matricule" gorm:"not null;uniqueIndex"`
	FirstName  string        `json:"first_name" gorm:"not null"`
	LastName   string        `json:"last_name" gorm:"not null"`
	Email      string        `json:"email"`
	Phone      string        `json:"phone"`
	Address    string        `json:"address"`
	BirthDate  *time.Time    `json:"birth_date"`
	BloodGroup *BloodGroup   `json:"blood_group" gorm:"type:varchar(3)"`
	Sex        *Sex          `json:"sex" gorm:"type:varchar(1)"`
	Status     StudentStatus `json:"status" gorm:"type:varchar(16);not null;default:Actif"`
	FacultyID  *string       `json:"faculty_id" gorm:"type:varchar(26);index"`

	// Relationships
	Enrollments []Enrollment `json:"enrollments,omitempty" gorm:"foreignKey:StudentID"`
	Grades      []Grade      `json:"grades,omitempty" gorm:"foreignKey:StudentID"`
}

// Enrollment registers a student in a faculty for one academic year
type Enrollment struct {
	BaseModel
	StudentID    string `json:"student_id" gorm:"type:varchar(26);not null;index"`
	FacultyID    string `json:"faculty_id" gorm:"type:varchar(26);not null;index"`
	AcademicYear string `json:"academic_year" gorm:"not null"` // e.g. 2025-2026
	Level        string `json:"level" gorm:"not null"`         // L1..L3, M1, M2, D
}

// Grade is one course result of a student
type Grade struct {
	BaseModel
	StudentID    string  `json:"student_id" gorm:"type:varchar(26);not null;index"`
	Course       string  `json:"course" gorm:"not null"`
	Credits      int     `json:"credits" gorm:"not null"`
	Score        float64 `json:"score" gorm:"not null"` // out of 20
	AcademicYear string  `json:"academic_year" gorm:"not null"`
	Session      string  `json:"session"` // normale, rattrapage
}

// Expense is a fee or payment line attached to a student
type Expense struct {
	BaseModel
	StudentID   string     `json:"student_id" gorm:"type:varchar(26);not null;index"`
	Label       string     `json:"label" gorm:"not null"`
	AmountCents int64      `json:"amount_cents" gorm:"not null"`
	PaidAt      *time.Time `json:"paid_at"`
}

// AutoMigrate creates or updates every table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Faculty{},
		&Student{},
		&Enrollment{},
		&Grade{},
		&Expense{},
	)
}
