package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Controlled vocabularies for student fields.
var (
	GradeLevels = []string{
		"Pre-K", "K", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12",
	}
	ELLStatuses = []string{
		"Active ELL", "Exited", "Monitoring", "Never ELL", "Refused Services",
	}
	CompositeLevels = []string{
		"Beginning", "Early Intermediate", "Intermediate",
		"Early Advanced", "Advanced", "Proficient",
	}
	Genders      = []string{"Male", "Female", "Non-binary", "Other", "Prefer not to say"}
	Designations = []string{"ELL", "RFEP", "IFEP", "EO", "TBD"}
)

// Field length limits.
const (
	MaxNameLength     = 100
	MaxSchoolLength   = 150
	MaxLocationLength = 100
	MaxLanguageLength = 50
	MaxGeneralLength  = 100
)

var minDateOfBirth = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Student is a record in the ELL program.
type Student struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	FullName       string             `json:"fullName" bson:"fullName"`
	School         string             `json:"school,omitempty" bson:"school,omitempty"`
	StudentID      string             `json:"studentId,omitempty" bson:"studentId,omitempty"`
	Teacher        string             `json:"teacher,omitempty" bson:"teacher,omitempty"`
	DateOfBirth    *time.Time         `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	Gender         string             `json:"gender,omitempty" bson:"gender,omitempty"`
	Race           string             `json:"race,omitempty" bson:"race,omitempty"`
	GradeLevel     string             `json:"gradeLevel,omitempty" bson:"gradeLevel,omitempty"`
	NativeLanguage string             `json:"nativeLanguage,omitempty" bson:"nativeLanguage,omitempty"`
	CityOfBirth    string             `json:"cityOfBirth,omitempty" bson:"cityOfBirth,omitempty"`
	CountryOfBirth string             `json:"countryOfBirth,omitempty" bson:"countryOfBirth,omitempty"`
	ELLStatus      string             `json:"ellStatus,omitempty" bson:"ellStatus,omitempty"`
	CompositeLevel string             `json:"compositeLevel,omitempty" bson:"compositeLevel,omitempty"`
	Active         bool               `json:"active" bson:"active"`
	Designation    string             `json:"designation,omitempty" bson:"designation,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// NewStudent returns an empty, active student.
func NewStudent() *Student {
	return &Student{Active: true}
}

// DocID returns the record identifier.
func (s *Student) DocID() primitive.ObjectID { return s.ID }

// SetDocID sets the record identifier.
func (s *Student) SetDocID(id primitive.ObjectID) { s.ID = id }

// Stamp sets the timestamps. created is only applied when non-zero.
func (s *Student) Stamp(created, updated time.Time) {
	if !created.IsZero() {
		s.CreatedAt = created
	}
	s.UpdatedAt = updated
}

// Normalize trims all free-text fields.
func (s *Student) Normalize() {
	for _, f := range []*string{
		&s.FullName, &s.School, &s.StudentID, &s.Teacher, &s.Gender, &s.Race,
		&s.GradeLevel, &s.NativeLanguage, &s.CityOfBirth, &s.CountryOfBirth,
		&s.ELLStatus, &s.CompositeLevel, &s.Designation,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// Validate normalizes the record and returns every field violation, in
// field declaration order.
func (s *Student) Validate() []FieldViolation {
	s.Normalize()

	var vs []FieldViolation
	add := func(field, msg string) {
		vs = append(vs, FieldViolation{Field: field, Message: msg})
	}
	maxLen := func(field, value string, limit int, label string) {
		if utf8.RuneCountInString(value) > limit {
			add(field, fmt.Sprintf("%s cannot exceed %d characters", label, limit))
		}
	}
	oneOf := func(field, value string, allowed []string, label string) {
		if value != "" && !slices.Contains(allowed, value) {
			add(field, fmt.Sprintf("%s must be one of: %s", label, strings.Join(allowed, ", ")))
		}
	}

	if s.FullName == "" {
		add("fullName", "Full name is required")
	}
	maxLen("fullName", s.FullName, MaxNameLength, "Name")
	maxLen("school", s.School, MaxSchoolLength, "School name")
	maxLen("teacher", s.Teacher, MaxNameLength, "Teacher name")
	if s.DateOfBirth != nil {
		if s.DateOfBirth.Before(minDateOfBirth) || s.DateOfBirth.After(time.Now()) {
			add("dateOfBirth", "Date of birth must be between 1900 and today")
		}
	}
	oneOf("gender", s.Gender, Genders, "Gender")
	maxLen("race", s.Race, MaxGeneralLength, "Race")
	oneOf("gradeLevel", s.GradeLevel, GradeLevels, "Grade level")
	maxLen("nativeLanguage", s.NativeLanguage, MaxLanguageLength, "Language")
	maxLen("cityOfBirth", s.CityOfBirth, MaxLocationLength, "City")
	maxLen("countryOfBirth", s.CountryOfBirth, MaxLocationLength, "Country")
	oneOf("ellStatus", s.ELLStatus, ELLStatuses, "ELL status")
	oneOf("compositeLevel", s.CompositeLevel, CompositeLevels, "Composite level")
	oneOf("designation", s.Designation, Designations, "Designation")

	return vs
}
