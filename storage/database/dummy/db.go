// Package dummydb is an in-memory storage used by tests and local runs without postgres.
// It keeps the same unique constraints as the SQL schema but has no rollback:
// services check everything that can fail before their first write.
package dummydb

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/attendance"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/lesson"
	"github.com/trezcool/sundayschool/core/lessonplan"
	"github.com/trezcool/sundayschool/core/quiz"
	"github.com/trezcool/sundayschool/core/relationship"
	"github.com/trezcool/sundayschool/core/user"
	"github.com/trezcool/sundayschool/core/verse"
)

type (
	DB struct {
		txMu sync.Mutex

		user         *table[user.User]
		class        *table[class.Class]
		assignment   *table[class.Assignment]
		enrollment   *table[enrollment.Enrollment]
		relationship *table[relationship.Relationship]
		lessonPlan   *table[lessonplan.LessonPlan]
		material     *table[lessonplan.Material]
		lesson       *table[lesson.Lesson]
		quiz         *table[quiz.Quiz]
		question     *table[quiz.Question]
		submission   *table[quiz.Submission]
		attendance   *table[attendance.Attendance]
		verse        *table[verse.Verse]
	}

	// table holds rows by primary key. Callers hold the lock.
	table[T any] struct {
		sync.RWMutex
		rows  map[int]T
		pkSeq int
	}
)

var _ core.Transactor = (*DB)(nil)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int]T)}
}

func (t *table[T]) nextID() int {
	t.pkSeq++
	return t.pkSeq
}

// all returns the rows ordered by primary key.
func (t *table[T]) all() []T {
	ids := make([]int, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	rows := make([]T, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, t.rows[id])
	}
	return rows
}

// get returns a copy of the row under a read lock.
func (t *table[T]) get(id int) (T, bool) {
	t.RLock()
	defer t.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

// snapshot returns a copy of all rows under a read lock.
func (t *table[T]) snapshot() []T {
	t.RLock()
	defer t.RUnlock()
	return t.all()
}

func filterRows[T any](rows []T, keep func(T) bool) []T {
	filtered := make([]T, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// sortRows sorts rows the way ORDER BY would, using a comparator per known field.
// Unknown fields are ignored.
func sortRows[T any](rows []T, ordering []core.DBOrdering, fields map[string]func(a, b T) int) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			cmpFn, ok := fields[ord.Field]
			if !ok {
				continue
			}
			c := cmpFn(rows[i], rows[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func Open() (*DB, error) {
	db := &DB{
		user:         newTable[user.User](),
		class:        newTable[class.Class](),
		assignment:   newTable[class.Assignment](),
		enrollment:   newTable[enrollment.Enrollment](),
		relationship: newTable[relationship.Relationship](),
		lessonPlan:   newTable[lessonplan.LessonPlan](),
		material:     newTable[lessonplan.Material](),
		lesson:       newTable[lesson.Lesson](),
		quiz:         newTable[quiz.Quiz](),
		question:     newTable[quiz.Question](),
		submission:   newTable[quiz.Submission](),
		attendance:   newTable[attendance.Attendance](),
		verse:        newTable[verse.Verse](),
	}
	return db, nil
}

// InTx serializes fn against every other transaction. There is no rollback.
func (db *DB) InTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	return fn(nil)
}

// AddVerse stores a verse; the SQL store is seeded by its migrations instead.
func (db *DB) AddVerse(v verse.Verse) verse.Verse {
	db.verse.Lock()
	defer db.verse.Unlock()
	v.ID = db.verse.nextID()
	if v.Language == "" {
		v.Language = "English"
	}
	db.verse.rows[v.ID] = v
	return v
}

func (db *DB) userSummary(id int) *user.Summary {
	if usr, ok := db.user.get(id); ok {
		return usr.Summary()
	}
	return nil
}

// deleteWhere removes the matching rows and returns their ids.
func deleteWhere[T any](t *table[T], match func(T) bool) []int {
	t.Lock()
	defer t.Unlock()
	var ids []int
	for id, row := range t.rows {
		if match(row) {
			delete(t.rows, id)
			ids = append(ids, id)
		}
	}
	return ids
}

// cascadeUser mimics the ON DELETE CASCADE foreign keys referencing users.
func (db *DB) cascadeUser(id int) {
	deleteWhere(db.assignment, func(a class.Assignment) bool { return a.UserID == id })
	deleteWhere(db.enrollment, func(e enrollment.Enrollment) bool { return e.StudentID == id })
	deleteWhere(db.relationship, func(r relationship.Relationship) bool { return r.ParentID == id || r.ChildID == id })
	deleteWhere(db.submission, func(s quiz.Submission) bool { return s.StudentID == id })
	deleteWhere(db.attendance, func(a attendance.Attendance) bool { return a.StudentID == id || a.MarkedBy == id })
	deleteWhere(db.lesson, func(l lesson.Lesson) bool { return l.TeacherID == id })
	for _, lpID := range deleteWhere(db.lessonPlan, func(lp lessonplan.LessonPlan) bool { return lp.CreatedBy == id }) {
		db.cascadeLessonPlan(lpID)
	}
	for _, qID := range deleteWhere(db.quiz, func(q quiz.Quiz) bool { return q.CreatedBy == id }) {
		db.cascadeQuiz(qID)
	}
}

// cascadeClass mimics the ON DELETE CASCADE foreign keys referencing classes.
func (db *DB) cascadeClass(id int) {
	deleteWhere(db.assignment, func(a class.Assignment) bool { return a.ClassID == id })
	deleteWhere(db.enrollment, func(e enrollment.Enrollment) bool { return e.ClassID == id })
	deleteWhere(db.attendance, func(a attendance.Attendance) bool { return a.ClassID == id })
	deleteWhere(db.lesson, func(l lesson.Lesson) bool { return l.ClassID == id })
	for _, lpID := range deleteWhere(db.lessonPlan, func(lp lessonplan.LessonPlan) bool { return lp.ClassID == id }) {
		db.cascadeLessonPlan(lpID)
	}
	for _, qID := range deleteWhere(db.quiz, func(q quiz.Quiz) bool { return q.ClassID == id }) {
		db.cascadeQuiz(qID)
	}
}

func (db *DB) cascadeLessonPlan(id int) {
	deleteWhere(db.material, func(m lessonplan.Material) bool { return m.LessonID == id })
}

func (db *DB) cascadeQuiz(id int) {
	deleteWhere(db.question, func(q quiz.Question) bool { return q.QuizID == id })
	deleteWhere(db.submission, func(s quiz.Submission) bool { return s.QuizID == id })
}
