package lessonplan_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/lessonplan"
	"github.com/trezcool/sundayschool/core/user"
	dummydb "github.com/trezcool/sundayschool/storage/database/dummy"
	testutil "github.com/trezcool/sundayschool/tests"
)

type fixture struct {
	svc       *lessonplan.Service
	classRepo class.Repository
	userRepo  user.Repository
}

func setup(t *testing.T) fixture {
	db, err := dummydb.Open()
	require.NoError(t, err)
	classRepo := dummydb.NewClassRepository(db)
	return fixture{
		svc:       lessonplan.NewService(db, dummydb.NewLessonPlanRepository(db), classRepo),
		classRepo: classRepo,
		userRepo:  dummydb.NewUserRepository(db),
	}
}

func newPlan(classID int) lessonplan.NewLessonPlan {
	nlp := lessonplan.NewLessonPlan{
		Title:          "Creation",
		Description:    "Genesis 1",
		Content:        "In the beginning...",
		ClassID:        classID,
		BibleReference: "Genesis 1:1-31",
		Objectives:     "Know the days of creation",
	}
	_ = nlp.Validate(validator.New())
	return nlp
}

func TestNewLessonPlan_Validate(t *testing.T) {
	validate := validator.New()

	nlp := newPlan(1)
	require.NoError(t, nlp.Validate(validate))
	assert.Equal(t, lessonplan.DefaultDuration, nlp.Duration)
	assert.Equal(t, lessonplan.StatusDraft, nlp.Status)
	assert.Equal(t, []string{}, nlp.KeyPoints)

	nlp.Status = "pending"
	assert.Error(t, nlp.Validate(validate))

	assert.Error(t, (&lessonplan.NewLessonPlan{Title: "No body"}).Validate(validate))

	nm := lessonplan.NewMaterial{Title: "Slides", Type: "Spreadsheet", URL: "https://example.com/s"}
	assert.Equal(t, lessonplan.ErrInvalidMaterialType, nm.Validate(validate))
	nm.Type = " VIDEO "
	assert.NoError(t, nm.Validate(validate))
	assert.Equal(t, lessonplan.MaterialVideo, nm.Type)
}

func TestService_Ownership(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cls := testutil.CreateClass(t, f.classRepo, "Lambs", "K", 10, true)
	other := testutil.CreateClass(t, f.classRepo, "Lions", "1", 10, true)
	author := testutil.CreateUser(t, f.userRepo, "Author", "author@example.com", "", user.RoleTeacher, true)
	colleague := testutil.CreateUser(t, f.userRepo, "Colleague", "colleague@example.com", "", user.RoleTeacher, true)
	admin := testutil.CreateUser(t, f.userRepo, "Admin", "admin@example.com", "", user.RoleAdmin, true)

	_, err := f.svc.Create(ctx, author, newPlan(999))
	assert.Equal(t, lessonplan.ErrInvalidClass, errors.Cause(err))

	lp, err := f.svc.Create(ctx, author, newPlan(cls.ID))
	require.NoError(t, err)
	assert.Equal(t, author.ID, lp.CreatedBy)

	_, err = f.svc.Update(ctx, colleague, lp.ID, lessonplan.UpdateLessonPlan{Title: "Hijacked"})
	assert.Equal(t, lessonplan.ErrUpdateForbidden, errors.Cause(err))
	_, err = f.svc.AddMaterial(ctx, colleague, lp.ID, lessonplan.NewMaterial{Title: "x", Type: "link", URL: "https://example.com"})
	assert.Equal(t, lessonplan.ErrMaterialForbidden, errors.Cause(err))
	assert.Equal(t, lessonplan.ErrDeleteForbidden, errors.Cause(f.svc.Delete(ctx, colleague, lp.ID)))

	_, err = f.svc.Update(ctx, author, lp.ID, lessonplan.UpdateLessonPlan{ClassID: 999})
	assert.Equal(t, lessonplan.ErrInvalidClass, errors.Cause(err))

	updated, err := f.svc.Update(ctx, admin, lp.ID, lessonplan.UpdateLessonPlan{Title: "Creation, part 1", ClassID: other.ID, Status: lessonplan.StatusPublished})
	require.NoError(t, err)
	assert.Equal(t, "Creation, part 1", updated.Title)
	assert.Equal(t, other.ID, updated.ClassID)
	assert.Equal(t, lessonplan.StatusPublished, updated.Status)
	assert.Equal(t, "Genesis 1:1-31", updated.BibleReference)

	plans, err := f.svc.Query(ctx, &lessonplan.QueryFilter{ClassID: other.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	require.NoError(t, f.svc.Delete(ctx, author, lp.ID))
	_, err = f.svc.GetByID(ctx, lp.ID)
	assert.Equal(t, lessonplan.ErrNotFound, errors.Cause(err))
}

func TestService_Materials(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cls := testutil.CreateClass(t, f.classRepo, "Lambs", "K", 10, true)
	author := testutil.CreateUser(t, f.userRepo, "Author", "author@example.com", "", user.RoleTeacher, true)
	lp, err := f.svc.Create(ctx, author, newPlan(cls.ID))
	require.NoError(t, err)

	first, err := f.svc.AddMaterial(ctx, author, lp.ID, lessonplan.NewMaterial{Title: "Video", Type: "video", URL: "https://example.com/v"})
	require.NoError(t, err)
	assert.Equal(t, 0, first.SortOrder)

	second, err := f.svc.AddMaterial(ctx, author, lp.ID, lessonplan.NewMaterial{Title: "Song", Type: "audio", URL: "https://example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.SortOrder)

	zero := 0
	pinned, err := f.svc.AddMaterial(ctx, author, lp.ID, lessonplan.NewMaterial{Title: "Intro", Type: "document", URL: "https://example.com/d", SortOrder: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, pinned.SortOrder)

	materials, err := f.svc.ListMaterials(ctx, lp.ID)
	require.NoError(t, err)
	require.Len(t, materials, 3)
	assert.Equal(t, 1, materials[2].SortOrder)

	got, err := f.svc.GetByID(ctx, lp.ID)
	require.NoError(t, err)
	assert.Len(t, got.Materials, 3)

	_, err = f.svc.ListMaterials(ctx, 999)
	assert.Equal(t, lessonplan.ErrNotFound, errors.Cause(err))
	_, err = f.svc.AddMaterial(ctx, author, 999, lessonplan.NewMaterial{Title: "x", Type: "link", URL: "https://example.com"})
	assert.Equal(t, lessonplan.ErrNotFound, errors.Cause(err))
}
