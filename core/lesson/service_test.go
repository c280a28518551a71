package lesson_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sundayschool/core/lesson"
	"github.com/trezcool/sundayschool/core/user"
	dummydb "github.com/trezcool/sundayschool/storage/database/dummy"
	testutil "github.com/trezcool/sundayschool/tests"
)

func input(classID int) lesson.LessonInput {
	return lesson.LessonInput{
		Title:         "The Good Samaritan",
		Description:   "Loving your neighbour",
		Scripture:     "Luke 10:25-37",
		Objectives:    "Show mercy",
		Content:       "A man was going down from Jerusalem...",
		ClassID:       classID,
		ScheduledDate: time.Date(2026, 10, 25, 10, 0, 0, 0, time.UTC),
	}
}

func TestService(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	classRepo := dummydb.NewClassRepository(db)
	userRepo := dummydb.NewUserRepository(db)
	svc := lesson.NewService(dummydb.NewLessonRepository(db), classRepo, userRepo)
	ctx := context.Background()

	cls := testutil.CreateClass(t, classRepo, "Lambs", "K", 10, true)
	teacher := testutil.CreateUser(t, userRepo, "Teacher", "teacher@example.com", "", user.RoleTeacher, true)
	colleague := testutil.CreateUser(t, userRepo, "Colleague", "colleague@example.com", "", user.RoleTeacher, true)
	admin := testutil.CreateUser(t, userRepo, "Admin", "admin@example.com", "", user.RoleAdmin, true)
	parent := testutil.CreateUser(t, userRepo, "Parent", "parent@example.com", "", user.RoleParent, true)

	l, err := svc.Create(ctx, teacher, input(cls.ID))
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, l.TeacherID)
	assert.Equal(t, lesson.DefaultDuration, l.Duration)
	assert.Equal(t, lesson.StatusDraft, l.Status)
	assert.Equal(t, "Lambs", l.ClassName)
	assert.Equal(t, "Teacher", l.TeacherName)

	bad := input(999)
	_, err = svc.Create(ctx, teacher, bad)
	assert.Equal(t, lesson.ErrInvalidClass, errors.Cause(err))

	bad = input(cls.ID)
	bad.TeacherID = parent.ID
	_, err = svc.Create(ctx, admin, bad)
	assert.Equal(t, lesson.ErrInvalidTeacher, errors.Cause(err))

	in := input(cls.ID)
	in.Title = "The Prodigal Son"
	_, err = svc.Update(ctx, colleague, l.ID, in)
	assert.Equal(t, lesson.ErrUpdateForbidden, errors.Cause(err))

	updated, err := svc.Update(ctx, teacher, l.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "The Prodigal Son", updated.Title)
	assert.Equal(t, teacher.ID, updated.TeacherID)

	_, err = svc.SetStatus(ctx, colleague, l.ID, lesson.StatusPublished)
	assert.Equal(t, lesson.ErrUpdateForbidden, errors.Cause(err))
	published, err := svc.SetStatus(ctx, admin, l.ID, lesson.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, lesson.StatusPublished, published.Status)

	lessons, err := svc.Query(ctx, &lesson.QueryFilter{Status: lesson.StatusPublished}, nil)
	require.NoError(t, err)
	assert.Len(t, lessons, 1)

	assert.Equal(t, lesson.ErrDeleteForbidden, errors.Cause(svc.Delete(ctx, teacher, l.ID)))
	require.NoError(t, svc.Delete(ctx, admin, l.ID))
	assert.Equal(t, lesson.ErrNotFound, errors.Cause(svc.Delete(ctx, admin, l.ID)))
}

func TestUpdateStatus_Validate(t *testing.T) {
	us := lesson.UpdateStatus{Status: " Archived "}
	require.NoError(t, us.Validate())
	assert.Equal(t, lesson.StatusArchived, us.Status)

	assert.Equal(t, lesson.ErrInvalidStatus, (&lesson.UpdateStatus{Status: "done"}).Validate())
}
