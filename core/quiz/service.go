package quiz

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("Quiz not found")
	ErrInvalidClass       = core.NewValidationError(errors.New("Invalid class ID"))
	ErrAlreadySubmitted   = core.NewConflictError("Quiz already submitted")
	ErrNotEnrolled        = core.NewForbiddenError("You are not enrolled in this class")
	ErrAnswerNotInOptions = core.NewValidationError(
		errors.New("Invalid fields"),
		core.FieldError{Field: "correctAnswer", Error: "must be one of the options"},
	)
)

type (
	Repository interface {
		CreateQuiz(ctx context.Context, q Quiz, exec ...core.DBExecutor) (Quiz, error)
		CreateQuestion(ctx context.Context, q Question, exec ...core.DBExecutor) (Question, error)
		QueryQuizzes(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Quiz, error)
		GetQuizByID(ctx context.Context, id int, exec ...core.DBExecutor) (Quiz, error)
		// QueryQuestions returns the questions of a quiz ordered by position.
		QueryQuestions(ctx context.Context, quizID int, exec ...core.DBExecutor) ([]Question, error)
		// CreateSubmission returns ErrAlreadySubmitted on a duplicate (quizId, studentId) pair.
		CreateSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
		// QuerySubmissions embeds the student summaries.
		QuerySubmissions(ctx context.Context, quizID int, exec ...core.DBExecutor) ([]Submission, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.User, nq NewQuiz) (Quiz, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Quiz, error)
		GetByID(ctx context.Context, actor user.User, id int) (Quiz, error)
		Submit(ctx context.Context, actor user.User, id int, ns NewSubmission) (Submission, error)
		ListSubmissions(ctx context.Context, id int) ([]Submission, error)
	}

	Service struct {
		db             core.Transactor
		repo           Repository
		classRepo      class.Repository
		enrollmentRepo enrollment.Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.Transactor, repo Repository, classRepo class.Repository, enrollmentRepo enrollment.Repository) *Service {
	return &Service{db: db, repo: repo, classRepo: classRepo, enrollmentRepo: enrollmentRepo}
}

func (svc *Service) Create(ctx context.Context, actor user.User, nq NewQuiz) (Quiz, error) {
	if _, err := svc.classRepo.GetClassByID(ctx, nq.ClassID); err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return Quiz{}, ErrInvalidClass
		}
		return Quiz{}, err
	}

	var qz Quiz
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		now := NowFunc().UTC()
		var err error
		qz, err = svc.repo.CreateQuiz(ctx, Quiz{
			Title:     nq.Title,
			ClassID:   nq.ClassID,
			CreatedBy: actor.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}, exec)
		if err != nil {
			return err
		}

		qz.Questions = make([]Question, 0, len(nq.Questions))
		for i, nqn := range nq.Questions {
			qn, err := svc.repo.CreateQuestion(ctx, Question{
				QuizID:        qz.ID,
				Position:      i,
				QuestionText:  nqn.QuestionText,
				Options:       nqn.Options,
				CorrectAnswer: nqn.CorrectAnswer,
				CreatedAt:     now,
				UpdatedAt:     now,
			}, exec)
			if err != nil {
				return err
			}
			qz.Questions = append(qz.Questions, qn)
		}
		return nil
	})
	if err != nil {
		return Quiz{}, err
	}
	return qz, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Quiz, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryQuizzes(ctx, filter, ordering)
}

// GetByID returns the quiz with its questions. Students and parents do not see the correct answers.
func (svc *Service) GetByID(ctx context.Context, actor user.User, id int) (Quiz, error) {
	qz, err := svc.repo.GetQuizByID(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if qz.Questions, err = svc.repo.QueryQuestions(ctx, id); err != nil {
		return Quiz{}, err
	}
	if actor.IsStudent() || actor.IsParent() {
		qz.hideAnswers()
	}
	return qz, nil
}

// Submit stores the actor's answers. The actor must hold an active enrollment in the quiz's class.
func (svc *Service) Submit(ctx context.Context, actor user.User, id int, ns NewSubmission) (Submission, error) {
	qz, err := svc.repo.GetQuizByID(ctx, id)
	if err != nil {
		return Submission{}, err
	}

	enr, err := svc.enrollmentRepo.GetEnrollmentByStudentAndClass(ctx, actor.ID, qz.ClassID)
	if err != nil {
		if errors.Cause(err) == enrollment.ErrNotFound {
			return Submission{}, ErrNotEnrolled
		}
		return Submission{}, err
	}
	if !enr.IsActive() {
		return Submission{}, ErrNotEnrolled
	}

	sub, err := svc.repo.CreateSubmission(ctx, Submission{
		QuizID:      qz.ID,
		StudentID:   actor.ID,
		Answers:     ns.Answers,
		Score:       *ns.Score,
		SubmittedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Submission{}, err
	}
	sub.Student = actor.Summary()
	return sub, nil
}

func (svc *Service) ListSubmissions(ctx context.Context, id int) ([]Submission, error) {
	if _, err := svc.repo.GetQuizByID(ctx, id); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubmissions(ctx, id)
}
