package service

import (
	"context"
	"strings"
	"time"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/storage"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// MaxPageSize caps list and search results.
const MaxPageSize = 100

// StudentService handles student records.
type StudentService struct {
	students storage.Collection[*domain.Student]
	logger   logger.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(students storage.Collection[*domain.Student], log logger.Logger) *StudentService {
	if log == nil {
		log = logger.Nop()
	}
	return &StudentService{students: students, logger: log}
}

// StudentInput carries the writable student fields. Nil fields are left
// untouched on update.
type StudentInput struct {
	FullName       *string
	School         *string
	StudentID      *string
	Teacher        *string
	DateOfBirth    *time.Time
	Gender         *string
	Race           *string
	GradeLevel     *string
	NativeLanguage *string
	CityOfBirth    *string
	CountryOfBirth *string
	ELLStatus      *string
	CompositeLevel *string
	Active         *bool
	Designation    *string
}

// Set returns the non-nil fields keyed by their stored names.
func (in StudentInput) Set() map[string]any {
	set := make(map[string]any)
	str := func(key string, v *string) {
		if v != nil {
			set[key] = strings.TrimSpace(*v)
		}
	}
	str("fullName", in.FullName)
	str("school", in.School)
	str("studentId", in.StudentID)
	str("teacher", in.Teacher)
	if in.DateOfBirth != nil {
		set["dateOfBirth"] = in.DateOfBirth.UTC()
	}
	str("gender", in.Gender)
	str("race", in.Race)
	str("gradeLevel", in.GradeLevel)
	str("nativeLanguage", in.NativeLanguage)
	str("cityOfBirth", in.CityOfBirth)
	str("countryOfBirth", in.CountryOfBirth)
	str("ellStatus", in.ELLStatus)
	str("compositeLevel", in.CompositeLevel)
	if in.Active != nil {
		set["active"] = *in.Active
	}
	str("designation", in.Designation)
	return set
}

// Apply copies the non-nil fields onto s.
func (in StudentInput) Apply(s *domain.Student) {
	assign := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	assign(&s.FullName, in.FullName)
	assign(&s.School, in.School)
	assign(&s.StudentID, in.StudentID)
	assign(&s.Teacher, in.Teacher)
	if in.DateOfBirth != nil {
		dob := in.DateOfBirth.UTC()
		s.DateOfBirth = &dob
	}
	assign(&s.Gender, in.Gender)
	assign(&s.Race, in.Race)
	assign(&s.GradeLevel, in.GradeLevel)
	assign(&s.NativeLanguage, in.NativeLanguage)
	assign(&s.CityOfBirth, in.CityOfBirth)
	assign(&s.CountryOfBirth, in.CountryOfBirth)
	assign(&s.ELLStatus, in.ELLStatus)
	assign(&s.CompositeLevel, in.CompositeLevel)
	if in.Active != nil {
		s.Active = *in.Active
	}
	assign(&s.Designation, in.Designation)
}

// ListStudentsRequest contains the list filters and paging.
type ListStudentsRequest struct {
	School     string
	GradeLevel string
	ELLStatus  string
	Active     *bool
	Limit      int // 0 = no limit, capped at MaxPageSize
	Offset     int
}

// ============================================================================
// Queries
// ============================================================================

// List returns students matching req, newest first.
func (s *StudentService) List(ctx context.Context, req ListStudentsRequest) ([]*domain.Student, error) {
	filter := storage.Filter{}
	if req.School != "" {
		filter["school"] = req.School
	}
	if req.GradeLevel != "" {
		filter["gradeLevel"] = req.GradeLevel
	}
	if req.ELLStatus != "" {
		filter["ellStatus"] = req.ELLStatus
	}
	if req.Active != nil {
		filter["active"] = *req.Active
	}

	return s.students.Find(ctx, storage.Query{
		Filter:   filter,
		SortBy:   storage.DefaultSortField,
		SortDesc: true,
		Skip:     int64(max(req.Offset, 0)),
		Limit:    clampLimit(req.Limit),
	})
}

// Get returns the student with the given ID.
func (s *StudentService) Get(ctx context.Context, id string) (*domain.Student, error) {
	if !domain.IsObjectIDHex(id) {
		return nil, domain.ErrInvalidStudentID
	}
	st, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, domain.ErrStudentNotFound
	}
	return st, nil
}

// GetMany returns the existing students among ids in one storage call.
// It is the batch function behind the per-request student loader.
func (s *StudentService) GetMany(ctx context.Context, ids []string) ([]*domain.Student, error) {
	return s.students.FindByIDs(ctx, ids)
}

// Search returns students whose full name contains every word of term,
// ordered by name.
func (s *StudentService) Search(ctx context.Context, term string, limit int) ([]*domain.Student, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, domain.NewValidationError("Search term is required")
	}
	return s.students.Find(ctx, storage.Query{
		Search:      term,
		SearchField: "fullName",
		SortBy:      "fullName",
		Limit:       clampLimit(limit),
	})
}

// Count returns the number of students matching the list filters.
func (s *StudentService) Count(ctx context.Context, filter storage.Filter) (int64, error) {
	return s.students.Count(ctx, filter)
}

// ============================================================================
// Mutations
// ============================================================================

// Create stores a new student built from in.
func (s *StudentService) Create(ctx context.Context, in StudentInput) (*domain.Student, error) {
	st := domain.NewStudent()
	in.Apply(st)

	created, err := s.students.Create(ctx, st)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student created", "student_id", created.ID.Hex())
	return created, nil
}

// Update applies the non-nil fields of in to the student.
func (s *StudentService) Update(ctx context.Context, id string, in StudentInput) (*domain.Student, error) {
	st, err := s.students.FindByIDAndUpdate(ctx, id, in.Set())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, domain.ErrStudentNotFound
	}
	return st, nil
}

// Delete removes the student.
func (s *StudentService) Delete(ctx context.Context, id string) (bool, error) {
	if !domain.IsObjectIDHex(id) {
		return false, domain.ErrInvalidStudentID
	}
	st, err := s.students.FindOneAndDelete(ctx, storage.Filter{storage.IDField: id})
	if err != nil {
		return false, err
	}
	if st == nil {
		return false, domain.ErrStudentNotFound
	}
	s.logger.Info("student deleted", "student_id", id)
	return true, nil
}

// ToggleActive flips the student's active flag.
func (s *StudentService) ToggleActive(ctx context.Context, id string) (*domain.Student, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, id, StudentInput{Active: ptr(!current.Active)})
}

func clampLimit(limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return int64(min(limit, MaxPageSize))
}

func ptr[T any](v T) *T { return &v }
