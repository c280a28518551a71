package relationship

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/authz"
	"github.com/trezcool/sundayschool/core/user"
)

var (
	// errors
	ErrNotFound                = core.NewNotFoundError("Relationship not found")
	ErrExists                  = core.NewConflictError("Relationship already exists")
	ErrInvalidParent           = core.NewValidationError(errors.New("Parent must be a user with role PARENT"))
	ErrInvalidChild            = core.NewValidationError(errors.New("Child must be a user with role STUDENT"))
	ErrNeitherParentNorStudent = core.NewValidationError(errors.New("User is neither a parent nor a student"))
	ErrFamilyForbidden         = core.NewForbiddenError("Not authorized to view these relationships")
)

type (
	Repository interface {
		// CreateRelationship returns ErrExists on a duplicate (parentId, childId) pair.
		CreateRelationship(ctx context.Context, rel Relationship, exec ...core.DBExecutor) (Relationship, error)
		// QueryRelationships embeds the parent and child summaries.
		QueryRelationships(ctx context.Context, exec ...core.DBExecutor) ([]Relationship, error)
		GetRelationshipByID(ctx context.Context, id int, exec ...core.DBExecutor) (Relationship, error)
		GetRelationshipByPair(ctx context.Context, parentID, childID int, exec ...core.DBExecutor) (Relationship, error)
		UpdateRelationship(ctx context.Context, rel Relationship, exec ...core.DBExecutor) (Relationship, error)
		DeleteRelationship(ctx context.Context, id int, exec ...core.DBExecutor) error

		// LockChild serializes primary flag maintenance of a child until the end of the transaction.
		LockChild(ctx context.Context, childID int, exec ...core.DBExecutor) error
		// ClearPrimary unsets the primary flag on every relationship of the child except exceptID.
		ClearPrimary(ctx context.Context, childID, exceptID int, exec ...core.DBExecutor) error

		QueryChildren(ctx context.Context, parentID int, exec ...core.DBExecutor) ([]Member, error)
		QueryParents(ctx context.Context, childID int, exec ...core.DBExecutor) ([]Member, error)
		QueryChildIDs(ctx context.Context, parentID int, exec ...core.DBExecutor) ([]int, error)
		// GetPrimaryParent returns user.ErrNotFound when the child has no primary parent.
		GetPrimaryParent(ctx context.Context, childID int, exec ...core.DBExecutor) (user.User, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nr NewRelationship) (Relationship, error)
		QueryAll(ctx context.Context) ([]Relationship, error)
		GetByID(ctx context.Context, id int) (Relationship, error)
		Update(ctx context.Context, id int, ur UpdateRelationship) (Relationship, error)
		Delete(ctx context.Context, id int) error
		// Family returns a *ParentView or a *ChildView depending on the target's role.
		Family(ctx context.Context, actor user.User, targetID int) (interface{}, error)
	}

	Service struct {
		db       core.Transactor
		repo     Repository
		userRepo user.Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.Transactor, repo Repository, userRepo user.Repository) *Service {
	return &Service{db: db, repo: repo, userRepo: userRepo}
}

func (svc *Service) checkRole(ctx context.Context, id int, role string, errInvalid error, exec core.DBExecutor) error {
	usr, err := svc.userRepo.GetUserByID(ctx, id, exec)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errInvalid
		}
		return err
	}
	if usr.Role != role {
		return errInvalid
	}
	return nil
}

// Create links a parent to a child. A primary link demotes the child's previous primary.
func (svc *Service) Create(ctx context.Context, nr NewRelationship) (Relationship, error) {
	var rel Relationship
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.checkRole(ctx, nr.ParentID, user.RoleParent, ErrInvalidParent, exec); err != nil {
			return err
		}
		if err := svc.checkRole(ctx, nr.ChildID, user.RoleStudent, ErrInvalidChild, exec); err != nil {
			return err
		}
		if err := svc.repo.LockChild(ctx, nr.ChildID, exec); err != nil {
			return err
		}

		_, err := svc.repo.GetRelationshipByPair(ctx, nr.ParentID, nr.ChildID, exec)
		if err == nil {
			return ErrExists
		}
		if errors.Cause(err) != ErrNotFound {
			return err
		}

		if nr.IsPrimary {
			if err = svc.repo.ClearPrimary(ctx, nr.ChildID, 0, exec); err != nil {
				return err
			}
		}

		now := NowFunc().UTC()
		rel, err = svc.repo.CreateRelationship(ctx, Relationship{
			ParentID:     nr.ParentID,
			ChildID:      nr.ChildID,
			Relationship: nr.Relationship,
			IsPrimary:    nr.IsPrimary,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, exec)
		return err
	})
	if err != nil {
		return Relationship{}, err
	}
	return rel, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Relationship, error) {
	return svc.repo.QueryRelationships(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Relationship, error) {
	return svc.repo.GetRelationshipByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id int, ur UpdateRelationship) (Relationship, error) {
	var rel Relationship
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		rel, err = svc.repo.GetRelationshipByID(ctx, id, exec)
		if err != nil {
			return err
		}
		if err = svc.repo.LockChild(ctx, rel.ChildID, exec); err != nil {
			return err
		}

		if ur.Relationship != "" {
			rel.Relationship = ur.Relationship
		}
		if ur.IsPrimary != nil {
			if *ur.IsPrimary {
				if err = svc.repo.ClearPrimary(ctx, rel.ChildID, rel.ID, exec); err != nil {
					return err
				}
			}
			rel.IsPrimary = *ur.IsPrimary
		}
		rel.UpdatedAt = NowFunc().UTC()
		rel, err = svc.repo.UpdateRelationship(ctx, rel, exec)
		return err
	})
	if err != nil {
		return Relationship{}, err
	}
	return rel, nil
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteRelationship(ctx, id)
}

func (svc *Service) Family(ctx context.Context, actor user.User, targetID int) (interface{}, error) {
	if !authz.CanViewFamily(actor, targetID) {
		return nil, ErrFamilyForbidden
	}
	target, err := svc.userRepo.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	switch target.Role {
	case user.RoleParent:
		children, err := svc.repo.QueryChildren(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		return &ParentView{ParentID: target.ID, ParentName: target.Name, Children: children}, nil
	case user.RoleStudent:
		parents, err := svc.repo.QueryParents(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		return &ChildView{ChildID: target.ID, ChildName: target.Name, Parents: parents}, nil
	default:
		return nil, ErrNeitherParentNorStudent
	}
}
