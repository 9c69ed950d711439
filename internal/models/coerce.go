package models

import (
	"strings"
	"time"
)

// BloodGroup is an ABO/Rh blood group
type BloodGroup string

// Sex as recorded on the civil status
type Sex string

// StudentStatus is the administrative status of a student
type StudentStatus string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"

	StudentActif    StudentStatus = "Actif"
	StudentInactif  StudentStatus = "Inactif"
	StudentDiplome  StudentStatus = "Diplômé"
	StudentSuspendu StudentStatus = "Suspendu"

	// DefaultStudentStatus is used when the input status is missing or unknown
	DefaultStudentStatus = StudentActif
)

var bloodGroups = map[string]BloodGroup{
	"A+": "A+", "A-": "A-",
	"B+": "B+", "B-": "B-",
	"AB+": "AB+", "AB-": "AB-",
	"O+": "O+", "O-": "O-",
}

var sexAliases = map[string]Sex{
	"m": SexMale, "h": SexMale, "male": SexMale, "masculin": SexMale, "homme": SexMale,
	"f": SexFemale, "female": SexFemale, "féminin": SexFemale, "feminin": SexFemale, "femme": SexFemale,
}

var studentStatuses = map[string]StudentStatus{
	"actif":    StudentActif,
	"inactif":  StudentInactif,
	"diplômé":  StudentDiplome,
	"diplome":  StudentDiplome,
	"suspendu": StudentSuspendu,
}

// StudentInput is the loosely typed student payload accepted from forms and
// imports. Every free-text enumeration is mapped by NormalizeStudent.
type StudentInput struct {
	Matricule  string  `json:"matricule" binding:"required" validate:"required"`
	FirstName  string  `json:"first_name" binding:"required" validate:"required"`
	LastName   string  `json:"last_name" binding:"required" validate:"required"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	BirthDate  *string `json:"birth_date"` // YYYY-MM-DD
	BloodGroup *string `json:"blood_group"`
	Sex        *string `json:"sex"`
	Status     *string `json:"status"`
	FacultyID  *string `json:"faculty_id"`
}

// NormalizeStudent maps a StudentInput to a Student ready to persist.
// It never fails: unknown enumerations degrade to nil (or to the default
// status) and absent optional strings become "".
func NormalizeStudent(in StudentInput) Student {
	return Student{
		Matricule:  strings.TrimSpace(in.Matricule),
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      optional(in.Email),
		Phone:      optional(in.Phone),
		Address:    optional(in.Address),
		BirthDate:  ParseBirthDate(optional(in.BirthDate)),
		BloodGroup: ParseBloodGroup(optional(in.BloodGroup)),
		Sex:        ParseSex(optional(in.Sex)),
		Status:     ParseStudentStatus(optional(in.Status)),
		FacultyID:  optionalID(in.FacultyID),
	}
}

// ParseBloodGroup returns nil for anything outside the eight valid groups
func ParseBloodGroup(raw string) *BloodGroup {
	key := strings.ToUpper(strings.ReplaceAll(raw, " ", ""))
	if bg, ok := bloodGroups[key]; ok {
		return &bg
	}
	return nil
}

// ParseSex accepts the usual French and English spellings, nil otherwise
func ParseSex(raw string) *Sex {
	if s, ok := sexAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return &s
	}
	return nil
}

// ParseStudentStatus falls back to DefaultStudentStatus
func ParseStudentStatus(raw string) StudentStatus {
	if s, ok := studentStatuses[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return DefaultStudentStatus
}

// ParseBirthDate accepts YYYY-MM-DD and DD/MM/YYYY
func ParseBirthDate(raw string) *time.Time {
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func optionalID(s *string) *string {
	v := optional(s)
	if v == "" {
		return nil
	}
	return &v
}
