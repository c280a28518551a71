package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

var quizFields = map[string]func(a, b quiz.Quiz) int{
	"id":         func(a, b quiz.Quiz) int { return a.ID - b.ID },
	"title":      func(a, b quiz.Quiz) int { return strings.Compare(a.Title, b.Title) },
	"created_at": func(a, b quiz.Quiz) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (repo *quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz, _ ...core.DBExecutor) (quiz.Quiz, error) {
	repo.db.quiz.Lock()
	defer repo.db.quiz.Unlock()

	q.ID = repo.db.quiz.nextID()
	q.Questions = nil
	repo.db.quiz.rows[q.ID] = q
	return q, nil
}

func (repo *quizRepository) CreateQuestion(_ context.Context, q quiz.Question, _ ...core.DBExecutor) (quiz.Question, error) {
	repo.db.question.Lock()
	defer repo.db.question.Unlock()

	q.ID = repo.db.question.nextID()
	q.Options = append([]string(nil), q.Options...)
	repo.db.question.rows[q.ID] = q
	return q, nil
}

func (repo *quizRepository) QueryQuizzes(_ context.Context, filter *quiz.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]quiz.Quiz, error) {
	quizzes := repo.db.quiz.snapshot()
	if filter != nil && filter.ClassID != 0 {
		quizzes = filterRows(quizzes, func(q quiz.Quiz) bool { return q.ClassID == filter.ClassID })
	}
	sortRows(quizzes, ordering, quizFields)
	return quizzes, nil
}

func (repo *quizRepository) GetQuizByID(_ context.Context, id int, _ ...core.DBExecutor) (quiz.Quiz, error) {
	if q, ok := repo.db.quiz.get(id); ok {
		return q, nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo *quizRepository) QueryQuestions(_ context.Context, quizID int, _ ...core.DBExecutor) ([]quiz.Question, error) {
	questions := filterRows(repo.db.question.snapshot(), func(q quiz.Question) bool { return q.QuizID == quizID })
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	return questions, nil
}

func (repo *quizRepository) CreateSubmission(_ context.Context, s quiz.Submission, _ ...core.DBExecutor) (quiz.Submission, error) {
	repo.db.submission.Lock()
	defer repo.db.submission.Unlock()

	for _, sub := range repo.db.submission.rows {
		if sub.QuizID == s.QuizID && sub.StudentID == s.StudentID {
			return quiz.Submission{}, quiz.ErrAlreadySubmitted
		}
	}
	s.ID = repo.db.submission.nextID()
	s.Student = nil
	repo.db.submission.rows[s.ID] = s
	return s, nil
}

func (repo *quizRepository) QuerySubmissions(_ context.Context, quizID int, _ ...core.DBExecutor) ([]quiz.Submission, error) {
	subs := filterRows(repo.db.submission.snapshot(), func(s quiz.Submission) bool { return s.QuizID == quizID })
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	for i := range subs {
		subs[i].Student = repo.db.userSummary(subs[i].StudentID)
	}
	return subs, nil
}
