package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/relationship"
	"github.com/trezcool/sundayschool/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(t *testing.T, repo class.Repository, name, gradeLevel string, maxCapacity int, isActive bool) class.Class {
	t.Helper()
	now := time.Now().UTC()
	cls, err := repo.CreateClass(context.Background(), class.Class{
		Name:         name,
		GradeLevel:   gradeLevel,
		AcademicYear: "2026",
		MaxCapacity:  maxCapacity,
		ScheduleDay:  class.DefaultScheduleDay,
		ScheduleTime: class.DefaultScheduleTime,
		IsActive:     isActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

// Enroll creates an active enrollment and takes a seat, like the enrollment service does.
func Enroll(t *testing.T, repo enrollment.Repository, classRepo class.Repository, studentID, classID int) enrollment.Enrollment {
	t.Helper()
	ctx := context.Background()
	if err := classRepo.IncrementEnrollment(ctx, classID); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	now := time.Now().UTC()
	enr, err := repo.CreateEnrollment(ctx, enrollment.Enrollment{
		StudentID:      studentID,
		ClassID:        classID,
		EnrollmentDate: now,
		Status:         enrollment.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func LinkParent(t *testing.T, repo relationship.Repository, parentID, childID int, isPrimary bool) relationship.Relationship {
	t.Helper()
	now := time.Now().UTC()
	rel, err := repo.CreateRelationship(context.Background(), relationship.Relationship{
		ParentID:     parentID,
		ChildID:      childID,
		Relationship: "parent",
		IsPrimary:    isPrimary,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("LinkParent() failed: %v", err)
	}
	return rel
}

// Mailer records the messages it is asked to send.
type Mailer struct {
	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*Mailer)(nil)

func (m *Mailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		m.sent = append(m.sent, *msg)
	}
}

func (m *Mailer) Sent() []core.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.EmailMessage(nil), m.sent...)
}

// NopLogger discards everything but Fatal, which fails the test.
type NopLogger struct {
	T *testing.T
}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}

func (l NopLogger) Fatal(msg string, args ...interface{}) {
	if l.T != nil {
		l.T.Fatalf("%s %v", msg, args)
	}
}
