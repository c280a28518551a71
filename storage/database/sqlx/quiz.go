package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/quiz"
	"github.com/trezcool/sundayschool/core/user"
)

// options and answers are stored as JSON arrays in TEXT columns
func encodeStrings(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	return string(b), errors.Wrap(err, "encoding strings")
}

func decodeStrings(s string) []string {
	ss := make([]string, 0)
	_ = json.Unmarshal([]byte(s), &ss)
	return ss
}

type quizRow struct {
	ID        int       `db:"id"`
	Title     string    `db:"title"`
	ClassID   int       `db:"class_id"`
	CreatedBy int       `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const quizColumns = "id, title, class_id, created_by, created_at, updated_at"

func (r quizRow) toQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID:        r.ID,
		Title:     r.Title,
		ClassID:   r.ClassID,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type questionRow struct {
	ID            int       `db:"id"`
	QuizID        int       `db:"quiz_id"`
	Position      int       `db:"position"`
	QuestionText  string    `db:"question_text"`
	Options       string    `db:"options"`
	CorrectAnswer string    `db:"correct_answer"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const questionColumns = "id, quiz_id, position, question_text, options, correct_answer, created_at, updated_at"

func (r questionRow) toQuestion() quiz.Question {
	return quiz.Question{
		ID:            r.ID,
		QuizID:        r.QuizID,
		Position:      r.Position,
		QuestionText:  r.QuestionText,
		Options:       decodeStrings(r.Options),
		CorrectAnswer: r.CorrectAnswer,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type submissionRow struct {
	ID          int       `db:"id"`
	QuizID      int       `db:"quiz_id"`
	StudentID   int       `db:"student_id"`
	Answers     string    `db:"answers"`
	Score       float64   `db:"score"`
	SubmittedAt time.Time `db:"submitted_at"`

	StudentName  null.String `db:"student_name"`
	StudentEmail null.String `db:"student_email"`
}

const submissionColumns = "id, quiz_id, student_id, answers, score, submitted_at"

func (r submissionRow) toSubmission() quiz.Submission {
	s := quiz.Submission{
		ID:          r.ID,
		QuizID:      r.QuizID,
		StudentID:   r.StudentID,
		Answers:     decodeStrings(r.Answers),
		Score:       r.Score,
		SubmittedAt: r.SubmittedAt.UTC(),
	}
	if r.StudentName.Valid {
		s.Student = &user.Summary{ID: r.StudentID, Name: r.StudentName.String, Email: r.StudentEmail.String}
	}
	return s
}

var quizOrdering = map[string]string{
	"id":         "id",
	"title":      "title",
	"created_at": "created_at",
}

type quizRepository struct {
	baseRepository
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(exec core.DBExecutor) *quizRepository {
	return &quizRepository{baseRepository{exec: exec}}
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	var row quizRow
	query := `
		INSERT INTO quizzes (title, class_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + quizColumns
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query,
		q.Title, q.ClassID, q.CreatedBy, q.CreatedAt.UTC(), q.UpdatedAt.UTC())
	if err != nil {
		return quiz.Quiz{}, translate(err, "inserting quiz", map[string]error{
			"quizzes_class_id_fkey": quiz.ErrInvalidClass,
		})
	}
	return row.toQuiz(), nil
}

func (repo *quizRepository) CreateQuestion(ctx context.Context, q quiz.Question, exec ...core.DBExecutor) (quiz.Question, error) {
	options, err := encodeStrings(q.Options)
	if err != nil {
		return quiz.Question{}, err
	}
	var row questionRow
	query := `
		INSERT INTO quiz_questions (quiz_id, position, question_text, options, correct_answer, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING ` + questionColumns
	err = sqlx.GetContext(ctx, repo.getExec(exec), &row, query,
		q.QuizID, q.Position, q.QuestionText, options, q.CorrectAnswer, q.CreatedAt.UTC(), q.UpdatedAt.UTC())
	if err != nil {
		return quiz.Question{}, translate(err, "inserting question", nil)
	}
	return row.toQuestion(), nil
}

func (repo *quizRepository) QueryQuizzes(ctx context.Context, filter *quiz.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]quiz.Quiz, error) {
	var w where
	if filter != nil && filter.ClassID != 0 {
		w.add("class_id = ?", filter.ClassID)
	}

	query := "SELECT " + quizColumns + " FROM quizzes" + w.String() + orderBy(ordering, quizOrdering)
	var rows []quizRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, rebind(query), w.args...); err != nil {
		return nil, translate(err, "querying quizzes", nil)
	}
	quizzes := make([]quiz.Quiz, 0, len(rows))
	for _, r := range rows {
		quizzes = append(quizzes, r.toQuiz())
	}
	return quizzes, nil
}

func (repo *quizRepository) GetQuizByID(ctx context.Context, id int, exec ...core.DBExecutor) (quiz.Quiz, error) {
	var row quizRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, "SELECT "+quizColumns+" FROM quizzes WHERE id = $1", id); err != nil {
		return quiz.Quiz{}, rowError(err, "fetching quiz", quiz.ErrNotFound, nil)
	}
	return row.toQuiz(), nil
}

func (repo *quizRepository) QueryQuestions(ctx context.Context, quizID int, exec ...core.DBExecutor) ([]quiz.Question, error) {
	var rows []questionRow
	query := "SELECT " + questionColumns + " FROM quiz_questions WHERE quiz_id = $1 ORDER BY position, id"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, quizID); err != nil {
		return nil, translate(err, "querying questions", nil)
	}
	questions := make([]quiz.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.toQuestion())
	}
	return questions, nil
}

func (repo *quizRepository) CreateSubmission(ctx context.Context, s quiz.Submission, exec ...core.DBExecutor) (quiz.Submission, error) {
	answers, err := encodeStrings(s.Answers)
	if err != nil {
		return quiz.Submission{}, err
	}
	var row submissionRow
	query := `
		INSERT INTO quiz_submissions (quiz_id, student_id, answers, score, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5, $5) RETURNING ` + submissionColumns
	err = sqlx.GetContext(ctx, repo.getExec(exec), &row, query,
		s.QuizID, s.StudentID, answers, s.Score, s.SubmittedAt.UTC())
	if err != nil {
		return quiz.Submission{}, translate(err, "inserting submission", map[string]error{
			"quiz_submissions_quiz_student_key": quiz.ErrAlreadySubmitted,
			"quiz_submissions_quiz_id_fkey":     quiz.ErrNotFound,
		})
	}
	return row.toSubmission(), nil
}

func (repo *quizRepository) QuerySubmissions(ctx context.Context, quizID int, exec ...core.DBExecutor) ([]quiz.Submission, error) {
	var rows []submissionRow
	query := `
		SELECT s.id, s.quiz_id, s.student_id, s.answers, s.score, s.submitted_at,
			u.name AS student_name, u.email AS student_email
		FROM quiz_submissions s
		LEFT JOIN users u ON u.id = s.student_id
		WHERE s.quiz_id = $1
		ORDER BY s.submitted_at DESC`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, quizID); err != nil {
		return nil, translate(err, "querying submissions", nil)
	}
	subs := make([]quiz.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toSubmission())
	}
	return subs, nil
}
