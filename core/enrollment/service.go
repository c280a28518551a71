package enrollment

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/authz"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/user"
)

const instrumentationName = "github.com/trezcool/sundayschool/core/enrollment"

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("Enrollment not found")
	ErrAlreadyEnrolled = core.NewConflictError("Student is already enrolled in this class")
	ErrInvalidStudent  = core.NewValidationError(errors.New("Invalid student ID"))
	ErrInvalidClass    = core.NewValidationError(errors.New("Invalid class ID"))
)

type (
	Repository interface {
		// CreateEnrollment returns ErrAlreadyEnrolled on a duplicate (studentId, classId) pair.
		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		// QueryEnrollments applies AND operation on available QueryFilter fields
		// and embeds the student and class summaries.
		QueryEnrollments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id int, exec ...core.DBExecutor) (Enrollment, error)
		// GetEnrollmentForUpdate locks the enrollment row until the end of the transaction.
		GetEnrollmentForUpdate(ctx context.Context, id int, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollmentByStudentAndClass(ctx context.Context, studentID, classID int, exec ...core.DBExecutor) (Enrollment, error)
		// UpdateEnrollment writes status, grade and attendance count.
		UpdateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error
		CountActive(ctx context.Context, classID int, exec ...core.DBExecutor) (int, error)
		// AdjustAttendanceCount adds delta to the attendance count, floored at 0.
		AdjustAttendanceCount(ctx context.Context, id, delta int, exec ...core.DBExecutor) error
	}

	// Family resolves parent and child links.
	Family interface {
		QueryChildIDs(ctx context.Context, parentID int, exec ...core.DBExecutor) ([]int, error)
		// GetPrimaryParent returns user.ErrNotFound when the child has no primary parent.
		GetPrimaryParent(ctx context.Context, childID int, exec ...core.DBExecutor) (user.User, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, ne NewEnrollment) (Enrollment, error)
		Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Enrollment, error)
		GetByID(ctx context.Context, actor user.User, id int) (Enrollment, error)
		UpdateStatus(ctx context.Context, id int, us UpdateStatus) (Enrollment, error)
		Delete(ctx context.Context, id int) error
		WithdrawStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) error
		Roster(ctx context.Context, classID int) ([]Enrollment, error)
		EnrollStudents(ctx context.Context, classID int, studentIDs []int) ([]EnrollResult, error)
		Reconcile(ctx context.Context, classID int) (ReconcileResult, error)
		ReconcileAll(ctx context.Context) ([]ReconcileResult, error)
	}

	Service struct {
		db        core.Transactor
		repo      Repository
		classRepo class.Repository
		userRepo  user.Repository
		family    Family
		mailSvc   core.EmailService
		logger    core.Logger

		tracer   trace.Tracer
		created  metric.Int64Counter
		rejected metric.Int64Counter
	}

	enrollmentMailData struct {
		StudentName  string
		ClassName    string
		GradeLevel   string
		AcademicYear string
		ScheduleDay  string
		ScheduleTime string
	}
)

var (
	_ ServiceInterface = (*Service)(nil)
	_ user.Withdrawer   = (*Service)(nil)
)

func NewService(
	db core.Transactor,
	repo Repository,
	classRepo class.Repository,
	userRepo user.Repository,
	family Family,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	meter := otel.Meter(instrumentationName)
	created, err := meter.Int64Counter("enrollments.created", metric.WithDescription("Enrollments created"))
	if err != nil {
		created = noop.Int64Counter{}
	}
	rejected, err := meter.Int64Counter("enrollments.rejected", metric.WithDescription("Enrollments rejected"))
	if err != nil {
		rejected = noop.Int64Counter{}
	}

	return &Service{
		db:        db,
		repo:      repo,
		classRepo: classRepo,
		userRepo:  userRepo,
		family:    family,
		mailSvc:   mailSvc,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		created:   created,
		rejected:  rejected,
	}
}

// applyTransition moves the class counter for a status change, within exec's transaction.
func (svc *Service) applyTransition(ctx context.Context, exec core.DBExecutor, classID int, prev, next string) error {
	switch CounterDelta(prev, next) {
	case 1:
		return svc.classRepo.IncrementEnrollment(ctx, classID, exec)
	case -1:
		return svc.classRepo.DecrementEnrollment(ctx, classID, exec)
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if ne.Status == "" {
		ne.Status = StatusActive
	}
	ctx, span := svc.tracer.Start(ctx, "enrollment.Create", trace.WithAttributes(
		attribute.Int("class.id", ne.ClassID),
		attribute.Int("student.id", ne.StudentID),
		attribute.String("enrollment.status", ne.Status),
	))
	defer span.End()

	var (
		enr     Enrollment
		student user.User
		cls     class.Class
	)
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		student, err = svc.userRepo.GetUserByID(ctx, ne.StudentID, exec)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return ErrInvalidStudent
			}
			return err
		}
		if !student.IsStudent() {
			return ErrInvalidStudent
		}

		cls, err = svc.classRepo.GetClassByID(ctx, ne.ClassID, exec)
		if err != nil {
			if errors.Cause(err) == class.ErrNotFound {
				return ErrInvalidClass
			}
			return err
		}
		if !cls.IsActive {
			return class.ErrInactive
		}

		_, err = svc.repo.GetEnrollmentByStudentAndClass(ctx, ne.StudentID, ne.ClassID, exec)
		if err == nil {
			return ErrAlreadyEnrolled
		}
		if errors.Cause(err) != ErrNotFound {
			return err
		}

		if err = svc.applyTransition(ctx, exec, cls.ID, "", ne.Status); err != nil {
			return err
		}

		now := NowFunc().UTC()
		enr, err = svc.repo.CreateEnrollment(ctx, Enrollment{
			StudentID:      ne.StudentID,
			ClassID:        ne.ClassID,
			EnrollmentDate: now,
			Status:         ne.Status,
			Grade:          ne.Grade,
			CreatedAt:      now,
			UpdatedAt:      now,
		}, exec)
		return err
	})
	if err != nil {
		svc.reject(ctx, span, err)
		return Enrollment{}, err
	}

	svc.created.Add(ctx, 1, metric.WithAttributes(attribute.String("status", enr.Status)))
	enr.Student = student.Summary()
	enr.Class = cls.Summary()
	if enr.IsActive() {
		svc.notifyPrimaryParent(ctx, student, cls)
	}
	return enr, nil
}

func (svc *Service) reject(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var reason string
	switch errors.Cause(err) {
	case class.ErrFull:
		reason = "full"
	case ErrAlreadyEnrolled:
		reason = "duplicate"
	case class.ErrInactive:
		reason = "inactive_class"
	case ErrInvalidStudent:
		reason = "invalid_student"
	case ErrInvalidClass:
		reason = "invalid_class"
	default:
		reason = "error"
	}
	svc.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// notifyPrimaryParent queues the enrollment email to the student's primary parent, if any.
func (svc *Service) notifyPrimaryParent(ctx context.Context, student user.User, cls class.Class) {
	parent, err := svc.family.GetPrimaryParent(ctx, student.ID)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			svc.logger.Error(fmt.Sprintf("finding primary parent of student %d: %v", student.ID, err), err)
		}
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: parent.Name, Address: parent.Email}},
		Subject:      fmt.Sprintf("%s has been enrolled in %s", student.Name, cls.Name),
		TemplateName: "enrollment_created",
		TemplateData: enrollmentMailData{
			StudentName:  student.Name,
			ClassName:    cls.Name,
			GradeLevel:   cls.GradeLevel,
			AcademicYear: cls.AcademicYear,
			ScheduleDay:  cls.ScheduleDay,
			ScheduleTime: cls.ScheduleTime,
		},
	})
}

// StudentScope resolves whose student-owned rows actor may read.
// all is true for unrestricted roles; otherwise ids lists the visible students and may be empty.
func StudentScope(ctx context.Context, family Family, actor user.User) (ids []int, all bool, err error) {
	switch authz.RowScope(actor.Role) {
	case authz.ScopeAll:
		return nil, true, nil
	case authz.ScopeOwn:
		return []int{actor.ID}, false, nil
	case authz.ScopeChildren:
		ids, err = family.QueryChildIDs(ctx, actor.ID)
		if err != nil {
			return nil, false, err
		}
		return ids, false, nil
	default:
		return nil, false, nil
	}
}

// scope narrows filter to the rows actor may see. ok is false when actor may see no rows at all.
func (svc *Service) scope(ctx context.Context, actor user.User, filter *QueryFilter) (bool, error) {
	ids, all, err := StudentScope(ctx, svc.family, actor)
	if err != nil || all {
		return all, err
	}
	if len(ids) == 0 {
		return false, nil
	}
	if actor.IsStudent() {
		filter.StudentID = actor.ID
	} else {
		filter.StudentIDs = ids
	}
	return true, nil
}

func (svc *Service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Enrollment, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	ok, err := svc.scope(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Enrollment{}, nil
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "enrollment_date"}}
	}
	return svc.repo.QueryEnrollments(ctx, filter, ordering)
}

// GetByID returns ErrNotFound for rows outside actor's scope.
func (svc *Service) GetByID(ctx context.Context, actor user.User, id int) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	ids, all, err := StudentScope(ctx, svc.family, actor)
	if err != nil {
		return Enrollment{}, err
	}
	if !all && !core.ContainsInt(ids, enr.StudentID) {
		return Enrollment{}, ErrNotFound
	}
	return enr, nil
}

// UpdateStatus changes the status of an enrollment and moves the class counter in the same transaction.
func (svc *Service) UpdateStatus(ctx context.Context, id int, us UpdateStatus) (Enrollment, error) {
	ctx, span := svc.tracer.Start(ctx, "enrollment.UpdateStatus", trace.WithAttributes(
		attribute.Int("enrollment.id", id),
		attribute.String("enrollment.status", us.Status),
	))
	defer span.End()

	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		enr, err := svc.repo.GetEnrollmentForUpdate(ctx, id, exec)
		if err != nil {
			return err
		}
		if err = svc.applyTransition(ctx, exec, enr.ClassID, enr.Status, us.Status); err != nil {
			return err
		}

		enr.Status = us.Status
		if us.Grade.Valid {
			enr.Grade = us.Grade
		}
		enr.UpdatedAt = NowFunc().UTC()
		_, err = svc.repo.UpdateEnrollment(ctx, enr, exec)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Enrollment{}, err
	}
	return svc.repo.GetEnrollmentByID(ctx, id)
}

// Delete removes an enrollment; removing an active one frees its seat.
func (svc *Service) Delete(ctx context.Context, id int) error {
	ctx, span := svc.tracer.Start(ctx, "enrollment.Delete", trace.WithAttributes(attribute.Int("enrollment.id", id)))
	defer span.End()

	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		enr, err := svc.repo.GetEnrollmentForUpdate(ctx, id, exec)
		if err != nil {
			return err
		}
		if err = svc.applyTransition(ctx, exec, enr.ClassID, enr.Status, ""); err != nil {
			return err
		}
		return svc.repo.DeleteEnrollment(ctx, id, exec)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// WithdrawStudent deletes every enrollment of a student, freeing the seats of the active ones.
// It joins the transaction in exec when given: user.Service.Delete runs it right before the account goes.
func (svc *Service) WithdrawStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) error {
	ctx, span := svc.tracer.Start(ctx, "enrollment.WithdrawStudent", trace.WithAttributes(attribute.Int("student.id", studentID)))
	defer span.End()

	withdraw := func(exec core.DBExecutor) error {
		enrs, err := svc.repo.QueryEnrollments(ctx, &QueryFilter{StudentID: studentID}, nil, exec)
		if err != nil {
			return err
		}
		for _, e := range enrs {
			enr, err := svc.repo.GetEnrollmentForUpdate(ctx, e.ID, exec)
			if err != nil {
				return err
			}
			if err = svc.applyTransition(ctx, exec, enr.ClassID, enr.Status, ""); err != nil {
				return err
			}
			if err = svc.repo.DeleteEnrollment(ctx, enr.ID, exec); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if len(exec) > 0 {
		err = withdraw(exec[0])
	} else {
		err = svc.db.InTx(ctx, withdraw)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Roster lists the active enrollments of a class.
func (svc *Service) Roster(ctx context.Context, classID int) ([]Enrollment, error) {
	if _, err := svc.classRepo.GetClassByID(ctx, classID); err != nil {
		return nil, err
	}
	filter := &QueryFilter{ClassID: classID, Status: StatusActive}
	return svc.repo.QueryEnrollments(ctx, filter, []core.DBOrdering{{Field: "enrollment_date", Ascending: true}})
}

// EnrollStudents finds or creates an active enrollment per student.
// Rejections are reported per item instead of failing the batch.
func (svc *Service) EnrollStudents(ctx context.Context, classID int, studentIDs []int) ([]EnrollResult, error) {
	if _, err := svc.classRepo.GetClassByID(ctx, classID); err != nil {
		return nil, err
	}

	results := make([]EnrollResult, 0, len(studentIDs))
	for _, id := range studentIDs {
		res := EnrollResult{StudentID: id}

		enr, err := svc.Create(ctx, NewEnrollment{StudentID: id, ClassID: classID, Status: StatusActive})
		switch errors.Cause(err) {
		case nil:
			res.Created = true
			res.Enrollment = &enr
		case ErrAlreadyEnrolled:
			existing, err := svc.repo.GetEnrollmentByStudentAndClass(ctx, id, classID)
			if err != nil {
				return nil, err
			}
			res.Enrollment = &existing
		case ErrInvalidStudent, ErrInvalidClass, class.ErrFull, class.ErrInactive:
			res.Error = err.Error()
		default:
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Reconcile recomputes the class counter from its active enrollments.
func (svc *Service) Reconcile(ctx context.Context, classID int) (ReconcileResult, error) {
	ctx, span := svc.tracer.Start(ctx, "enrollment.Reconcile", trace.WithAttributes(attribute.Int("class.id", classID)))
	defer span.End()

	res := ReconcileResult{ClassID: classID}
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		cls, err := svc.classRepo.GetClassForUpdate(ctx, classID, exec)
		if err != nil {
			return err
		}
		count, err := svc.repo.CountActive(ctx, classID, exec)
		if err != nil {
			return err
		}
		res.Before, res.After = cls.CurrentEnrollment, count
		if !res.Drifted() {
			return nil
		}
		if count > cls.MaxCapacity {
			return errors.Errorf("class %d has %d active enrollments, over its capacity of %d", classID, count, cls.MaxCapacity)
		}
		return svc.classRepo.SetEnrollment(ctx, classID, count, exec)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ReconcileResult{}, err
	}
	return res, nil
}

func (svc *Service) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	classes, err := svc.classRepo.QueryClasses(ctx, nil, []core.DBOrdering{{Field: "id", Ascending: true}})
	if err != nil {
		return nil, err
	}
	results := make([]ReconcileResult, 0, len(classes))
	for _, cls := range classes {
		res, err := svc.Reconcile(ctx, cls.ID)
		if err != nil {
			return results, errors.Wrapf(err, "reconciling class %d", cls.ID)
		}
		results = append(results, res)
	}
	return results, nil
}
