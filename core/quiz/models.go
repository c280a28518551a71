package quiz

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

// NowFunc is mockable.
var NowFunc = time.Now

type Quiz struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	ClassID   int        `json:"classId"`
	CreatedBy int        `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Questions []Question `json:"questions,omitempty"`
}

// hideAnswers strips the correct answers, for quiz takers.
func (q *Quiz) hideAnswers() {
	for i := range q.Questions {
		q.Questions[i].CorrectAnswer = ""
	}
}

type Question struct {
	ID            int       `json:"id"`
	QuizID        int       `json:"quizId"`
	Position      int       `json:"position"`
	QuestionText  string    `json:"questionText"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correctAnswer,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Submission holds a student's answers. Score is computed by the client and stored as given.
type Submission struct {
	ID          int           `json:"id"`
	QuizID      int           `json:"quizId"`
	StudentID   int           `json:"studentId"`
	Answers     []string      `json:"answers"`
	Score       float64       `json:"score"`
	SubmittedAt time.Time     `json:"submittedAt"`
	Student     *user.Summary `json:"student,omitempty"`
}

type NewQuestion struct {
	QuestionText  string   `json:"questionText" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
}

// NewQuiz contains information needed to create a Quiz with its questions.
type NewQuiz struct {
	Title     string        `json:"title" validate:"required"`
	ClassID   int           `json:"classId" validate:"required"`
	Questions []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	for i := range nq.Questions {
		q := &nq.Questions[i]
		q.QuestionText = core.CleanString(q.QuestionText)
		q.CorrectAnswer = core.CleanString(q.CorrectAnswer)
		for j := range q.Options {
			q.Options[j] = core.CleanString(q.Options[j])
		}
	}
	if err := validate.Struct(nq); err != nil {
		return err
	}

	for _, q := range nq.Questions {
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return ErrAnswerNotInOptions
		}
	}
	return nil
}

type NewSubmission struct {
	Answers []string `json:"answers" validate:"required"`
	Score   *float64 `json:"score" validate:"required,min=0"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

type QueryFilter struct {
	ClassID int `query:"classId"`
}
