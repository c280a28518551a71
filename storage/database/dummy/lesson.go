package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/lesson"
)

type lessonRepository struct {
	db *DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) *lessonRepository {
	return &lessonRepository{db: db}
}

var lessonFields = map[string]func(a, b lesson.Lesson) int{
	"id":             func(a, b lesson.Lesson) int { return a.ID - b.ID },
	"title":          func(a, b lesson.Lesson) int { return strings.Compare(a.Title, b.Title) },
	"status":         func(a, b lesson.Lesson) int { return strings.Compare(a.Status, b.Status) },
	"scheduled_date": func(a, b lesson.Lesson) int { return a.ScheduledDate.Compare(b.ScheduledDate) },
	"created_at":     func(a, b lesson.Lesson) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (repo *lessonRepository) embed(l lesson.Lesson) lesson.Lesson {
	l.ClassName, l.TeacherName = "", ""
	if cls, ok := repo.db.class.get(l.ClassID); ok {
		l.ClassName = cls.Name
	}
	if usr, ok := repo.db.user.get(l.TeacherID); ok {
		l.TeacherName = usr.Name
	}
	return l
}

func (repo *lessonRepository) CreateLesson(_ context.Context, l lesson.Lesson, _ ...core.DBExecutor) (lesson.Lesson, error) {
	repo.db.lesson.Lock()
	l.ID = repo.db.lesson.nextID()
	repo.db.lesson.rows[l.ID] = l
	repo.db.lesson.Unlock()

	return repo.embed(l), nil
}

func (repo *lessonRepository) QueryLessons(_ context.Context, filter *lesson.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]lesson.Lesson, error) {
	lessons := repo.db.lesson.snapshot()

	if filter != nil {
		if filter.ClassID != 0 {
			lessons = filterRows(lessons, func(l lesson.Lesson) bool { return l.ClassID == filter.ClassID })
		}
		if filter.TeacherID != 0 {
			lessons = filterRows(lessons, func(l lesson.Lesson) bool { return l.TeacherID == filter.TeacherID })
		}
		if filter.Status != "" {
			lessons = filterRows(lessons, func(l lesson.Lesson) bool { return l.Status == filter.Status })
		}
	}

	sortRows(lessons, ordering, lessonFields)
	for i := range lessons {
		lessons[i] = repo.embed(lessons[i])
	}
	return lessons, nil
}

func (repo *lessonRepository) GetLessonByID(_ context.Context, id int, _ ...core.DBExecutor) (lesson.Lesson, error) {
	if l, ok := repo.db.lesson.get(id); ok {
		return repo.embed(l), nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) UpdateLesson(_ context.Context, l lesson.Lesson, _ ...core.DBExecutor) (lesson.Lesson, error) {
	repo.db.lesson.Lock()
	if _, ok := repo.db.lesson.rows[l.ID]; !ok {
		repo.db.lesson.Unlock()
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	repo.db.lesson.rows[l.ID] = l
	repo.db.lesson.Unlock()

	return repo.embed(l), nil
}

func (repo *lessonRepository) DeleteLesson(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.lesson.Lock()
	defer repo.db.lesson.Unlock()

	if _, ok := repo.db.lesson.rows[id]; !ok {
		return lesson.ErrNotFound
	}
	delete(repo.db.lesson.rows, id)
	return nil
}
