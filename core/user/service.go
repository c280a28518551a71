package user

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sundayschool/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("User not found")
	ErrEmailExists        = core.NewConflictError("Email already in use")
	ErrInvalidCredentials = core.NewValidationError(errors.New("Invalid credentials"))
	ErrAccountDeactivated = core.NewForbiddenError("Account deactivated")
	ErrDeleteSelf         = core.NewForbiddenError("You cannot delete your own account")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (User, error)
		// GetUserForUpdate locks the user row until the end of the transaction in exec.
		GetUserForUpdate(ctx context.Context, id int, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUser(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		Delete(ctx context.Context, actor User, id int) error
	}

	// Withdrawer frees the class seats of a student, within exec's transaction when given.
	Withdrawer interface {
		WithdrawStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) error
	}

	Service struct {
		db         core.Transactor
		repo       Repository
		withdrawer Withdrawer
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.Transactor, repo Repository, withdrawer Withdrawer) *Service {
	return &Service{db: db, repo: repo, withdrawer: withdrawer}
}

func (svc *Service) CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	return svc.repo.CheckEmailUniqueness(ctx, email, exclUsers)
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	nu.Profile.apply(&usr)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Authenticate checks the credentials and records the login time.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr.LastLoginAt = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = uu.Role
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	uu.Profile.apply(&usr)
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Delete removes a user. Say No to Suicide! actor cannot delete themselves.
// The user row stays locked from the withdrawal to the delete, so an enrollment
// racing in for the same student fails on its foreign key instead of holding a seat.
func (svc *Service) Delete(ctx context.Context, actor User, id int) error {
	if actor.ID == id {
		return ErrDeleteSelf
	}
	return svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetUserForUpdate(ctx, id, exec); err != nil {
			return err
		}
		if err := svc.withdrawer.WithdrawStudent(ctx, id, exec); err != nil {
			return errors.Wrap(err, "withdrawing student")
		}
		return svc.repo.DeleteUser(ctx, id, exec)
	})
}
