package quiz_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/quiz"
	"github.com/trezcool/sundayschool/core/user"
	dummydb "github.com/trezcool/sundayschool/storage/database/dummy"
	testutil "github.com/trezcool/sundayschool/tests"
)

func newQuiz(classID int) quiz.NewQuiz {
	return quiz.NewQuiz{
		Title:   "Genesis",
		ClassID: classID,
		Questions: []quiz.NewQuestion{
			{QuestionText: "What was made on day one?", Options: []string{"Light", "Land", "Fish"}, CorrectAnswer: "Light"},
			{QuestionText: "Who built the ark?", Options: []string{"Moses", "Noah"}, CorrectAnswer: "Noah"},
		},
	}
}

func TestNewQuiz_Validate(t *testing.T) {
	validate := validator.New()

	nq := newQuiz(1)
	assert.NoError(t, nq.Validate(validate))

	nq.Questions[1].CorrectAnswer = "Abraham"
	assert.Equal(t, quiz.ErrAnswerNotInOptions, nq.Validate(validate))

	nq = newQuiz(1)
	nq.Questions[0].Options = []string{"Light"}
	assert.Error(t, nq.Validate(validate))

	nq = newQuiz(1)
	nq.Questions = nil
	assert.Error(t, nq.Validate(validate))

	assert.Error(t, (&quiz.NewSubmission{Answers: []string{"Light"}}).Validate(validate))
}

func TestService(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	classRepo := dummydb.NewClassRepository(db)
	userRepo := dummydb.NewUserRepository(db)
	enrollmentRepo := dummydb.NewEnrollmentRepository(db)
	svc := quiz.NewService(db, dummydb.NewQuizRepository(db), classRepo, enrollmentRepo)
	ctx := context.Background()

	cls := testutil.CreateClass(t, classRepo, "Lambs", "K", 10, true)
	teacher := testutil.CreateUser(t, userRepo, "Teacher", "teacher@example.com", "", user.RoleTeacher, true)
	alice := testutil.CreateUser(t, userRepo, "Alice", "alice@example.com", "", user.RoleStudent, true)
	bob := testutil.CreateUser(t, userRepo, "Bob", "bob@example.com", "", user.RoleStudent, true)
	carol := testutil.CreateUser(t, userRepo, "Carol", "carol@example.com", "", user.RoleStudent, true)
	testutil.Enroll(t, enrollmentRepo, classRepo, alice.ID, cls.ID)
	dropped := testutil.Enroll(t, enrollmentRepo, classRepo, carol.ID, cls.ID)
	dropped.Status = enrollment.StatusDropped
	_, err = enrollmentRepo.UpdateEnrollment(ctx, dropped)
	require.NoError(t, err)

	_, err = svc.Create(ctx, teacher, newQuiz(999))
	assert.Equal(t, quiz.ErrInvalidClass, errors.Cause(err))

	qz, err := svc.Create(ctx, teacher, newQuiz(cls.ID))
	require.NoError(t, err)
	require.Len(t, qz.Questions, 2)
	assert.Equal(t, 0, qz.Questions[0].Position)
	assert.Equal(t, 1, qz.Questions[1].Position)

	// answers are hidden from quiz takers only
	got, err := svc.GetByID(ctx, teacher, qz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Light", got.Questions[0].CorrectAnswer)
	got, err = svc.GetByID(ctx, alice, qz.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 2)
	for _, q := range got.Questions {
		assert.Empty(t, q.CorrectAnswer)
		assert.NotEmpty(t, q.Options)
	}

	score := 50.0
	sub, err := svc.Submit(ctx, alice, qz.ID, quiz.NewSubmission{Answers: []string{"Light", "Moses"}, Score: &score})
	require.NoError(t, err)
	assert.Equal(t, 50.0, sub.Score)
	if assert.NotNil(t, sub.Student) {
		assert.Equal(t, "Alice", sub.Student.Name)
	}

	_, err = svc.Submit(ctx, alice, qz.ID, quiz.NewSubmission{Answers: []string{"Light", "Noah"}, Score: &score})
	assert.Equal(t, quiz.ErrAlreadySubmitted, errors.Cause(err))
	_, err = svc.Submit(ctx, bob, qz.ID, quiz.NewSubmission{Answers: []string{"Light"}, Score: &score})
	assert.Equal(t, quiz.ErrNotEnrolled, errors.Cause(err))
	_, err = svc.Submit(ctx, carol, qz.ID, quiz.NewSubmission{Answers: []string{"Light"}, Score: &score})
	assert.Equal(t, quiz.ErrNotEnrolled, errors.Cause(err))
	_, err = svc.Submit(ctx, alice, 999, quiz.NewSubmission{Answers: []string{"Light"}, Score: &score})
	assert.Equal(t, quiz.ErrNotFound, errors.Cause(err))

	subs, err := svc.ListSubmissions(ctx, qz.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	quizzes, err := svc.Query(ctx, &quiz.QueryFilter{ClassID: cls.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, quizzes, 1)
}
