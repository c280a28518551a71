package class_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/user"
	dummydb "github.com/trezcool/sundayschool/storage/database/dummy"
	testutil "github.com/trezcool/sundayschool/tests"
)

func newValidate() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	class.InitValidators(validate, translator)
	return validate
}

func setup(t *testing.T) (*class.Service, class.Repository, user.Repository) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewClassRepository(db)
	userRepo := dummydb.NewUserRepository(db)
	return class.NewService(repo, userRepo), repo, userRepo
}

func TestNewClass_Validate(t *testing.T) {
	validate := newValidate()
	class.NowFunc = func() time.Time { return time.Date(2026, 9, 6, 10, 0, 0, 0, time.UTC) }
	defer func() { class.NowFunc = time.Now }()

	nc := class.NewClass{Name: "  Lambs ", GradeLevel: "K"}
	require.NoError(t, nc.Validate(validate))
	assert.Equal(t, "Lambs", nc.Name)
	assert.Equal(t, "2026", nc.AcademicYear)
	assert.Equal(t, class.DefaultMaxCapacity, nc.MaxCapacity)
	assert.Equal(t, class.DefaultScheduleDay, nc.ScheduleDay)
	assert.Equal(t, class.DefaultScheduleTime, nc.ScheduleTime)

	tests := []struct {
		name string
		nc   class.NewClass
	}{
		{"missing name", class.NewClass{GradeLevel: "K"}},
		{"missing grade level", class.NewClass{Name: "Lambs"}},
		{"negative capacity", class.NewClass{Name: "Lambs", GradeLevel: "K", MaxCapacity: -1}},
		{"bad weekday", class.NewClass{Name: "Lambs", GradeLevel: "K", ScheduleDay: "Funday"}},
		{"bad time", class.NewClass{Name: "Lambs", GradeLevel: "K", ScheduleTime: "25:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.nc.Validate(validate))
		})
	}
}

func TestUpdateClass_Validate(t *testing.T) {
	validate := newValidate()
	cls := class.Class{CurrentEnrollment: 5}

	uc := class.UpdateClass{
		Name: "Lambs", GradeLevel: "K", AcademicYear: "2026", MaxCapacity: 4,
		ScheduleDay: "Sunday", ScheduleTime: "9:30 AM",
	}
	assert.Equal(t, class.ErrCapacityBelowEnrollment, uc.Validate(cls, validate))

	uc.MaxCapacity = 5
	assert.NoError(t, uc.Validate(cls, validate))

	assert.Equal(t, class.ErrMissingIsActive, class.UpdateStatus{}.Validate())
}

func TestService_CRUD(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	inactive := false
	lambs, err := svc.Create(ctx, class.NewClass{Name: "Lambs", GradeLevel: "K", AcademicYear: "2026", MaxCapacity: 2, ScheduleDay: "Sunday", ScheduleTime: "10:00 AM"})
	require.NoError(t, err)
	assert.True(t, lambs.IsActive)
	assert.Zero(t, lambs.CurrentEnrollment)

	_, err = svc.Create(ctx, class.NewClass{Name: "Lions", GradeLevel: "1", AcademicYear: "2026", MaxCapacity: 20, ScheduleDay: "Sunday", ScheduleTime: "10:00 AM", IsActive: &inactive})
	require.NoError(t, err)
	_, err = svc.Create(ctx, class.NewClass{Name: "Doves", GradeLevel: "1", AcademicYear: "2025", MaxCapacity: 20, ScheduleDay: "Sunday", ScheduleTime: "10:00 AM"})
	require.NoError(t, err)

	// default ordering: grade level then name
	classes, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(classes))
	for _, c := range classes {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Doves", "Lions", "Lambs"}, names)

	filter := &class.QueryFilter{IsActive: "true", AcademicYear: "2026"}
	filter.Clean()
	classes, err = svc.Query(ctx, filter, nil)
	require.NoError(t, err)
	if assert.Len(t, classes, 1) {
		assert.Equal(t, lambs.ID, classes[0].ID)
	}

	// the counter survives updates
	require.NoError(t, repo.IncrementEnrollment(ctx, lambs.ID))
	lambs, err = svc.GetByID(ctx, lambs.ID)
	require.NoError(t, err)
	updated, err := svc.Update(ctx, lambs, class.UpdateClass{
		Name: "Little Lambs", GradeLevel: "K", AcademicYear: "2026", MaxCapacity: 3,
		ScheduleDay: "Saturday", ScheduleTime: "9:00 AM",
	})
	require.NoError(t, err)
	assert.Equal(t, "Little Lambs", updated.Name)
	assert.Equal(t, 1, updated.CurrentEnrollment)

	deactivated, err := svc.SetStatus(ctx, updated, false)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
	assert.Equal(t, 1, deactivated.CurrentEnrollment)

	require.NoError(t, svc.Delete(ctx, lambs.ID))
	_, err = svc.GetByID(ctx, lambs.ID)
	assert.Equal(t, class.ErrNotFound, errors.Cause(err))
	assert.Equal(t, class.ErrNotFound, errors.Cause(svc.Delete(ctx, lambs.ID)))
}

func TestService_AssignTeachers(t *testing.T) {
	svc, repo, userRepo := setup(t)
	ctx := context.Background()

	cls := testutil.CreateClass(t, repo, "Lambs", "K", 10, true)
	jane := testutil.CreateUser(t, userRepo, "Jane", "jane@example.com", "", user.RoleTeacher, true)
	john := testutil.CreateUser(t, userRepo, "John", "john@example.com", "", user.RoleTeacher, true)
	kid := testutil.CreateUser(t, userRepo, "Kid", "kid@example.com", "", user.RoleStudent, true)

	results, err := svc.AssignTeachers(ctx, cls.ID, []int{jane.ID, kid.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, []class.AssignResult{
		{TeacherID: jane.ID, Created: true},
		{TeacherID: kid.ID, Error: "User is not a teacher"},
		{TeacherID: 999, Error: user.ErrNotFound.Error()},
	}, results)

	// assigning again finds the existing assignment
	results, err = svc.AssignTeachers(ctx, cls.ID, []int{jane.ID, john.ID})
	require.NoError(t, err)
	assert.Equal(t, []class.AssignResult{
		{TeacherID: jane.ID, Created: false},
		{TeacherID: john.ID, Created: true},
	}, results)

	teachers, err := svc.ListTeachers(ctx, cls.ID)
	require.NoError(t, err)
	assert.Len(t, teachers, 2)

	_, err = svc.AssignTeachers(ctx, 999, []int{jane.ID})
	assert.Equal(t, class.ErrNotFound, errors.Cause(err))
	_, err = svc.ListTeachers(ctx, 999)
	assert.Equal(t, class.ErrNotFound, errors.Cause(err))
}
