package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/relationship"
	"github.com/trezcool/sundayschool/core/user"
)

type relationshipRepository struct {
	db *DB
}

var (
	// interface compliance checks
	_ relationship.Repository = (*relationshipRepository)(nil)
	_ enrollment.Family       = (*relationshipRepository)(nil)
)

func NewRelationshipRepository(db *DB) *relationshipRepository {
	return &relationshipRepository{db: db}
}

func (repo *relationshipRepository) embed(rel relationship.Relationship) relationship.Relationship {
	rel.Parent = repo.db.userSummary(rel.ParentID)
	rel.Child = repo.db.userSummary(rel.ChildID)
	return rel
}

// hasOtherPrimary reports whether the child already has a primary relationship other than exceptID.
// Callers hold the lock.
func (repo *relationshipRepository) hasOtherPrimary(childID, exceptID int) bool {
	for _, r := range repo.db.relationship.rows {
		if r.ChildID == childID && r.IsPrimary && r.ID != exceptID {
			return true
		}
	}
	return false
}

func (repo *relationshipRepository) CreateRelationship(_ context.Context, rel relationship.Relationship, _ ...core.DBExecutor) (relationship.Relationship, error) {
	repo.db.relationship.Lock()
	defer repo.db.relationship.Unlock()

	for _, r := range repo.db.relationship.rows {
		if r.ParentID == rel.ParentID && r.ChildID == rel.ChildID {
			return relationship.Relationship{}, relationship.ErrExists
		}
	}
	if rel.IsPrimary && repo.hasOtherPrimary(rel.ChildID, 0) {
		return relationship.Relationship{}, relationship.ErrExists
	}
	rel.ID = repo.db.relationship.nextID()
	rel.Parent, rel.Child = nil, nil
	repo.db.relationship.rows[rel.ID] = rel
	return rel, nil
}

func (repo *relationshipRepository) QueryRelationships(_ context.Context, _ ...core.DBExecutor) ([]relationship.Relationship, error) {
	rels := repo.db.relationship.snapshot()
	sortRows(rels, []core.DBOrdering{{Field: "created_at"}}, map[string]func(a, b relationship.Relationship) int{
		"created_at": func(a, b relationship.Relationship) int { return a.CreatedAt.Compare(b.CreatedAt) },
	})
	for i := range rels {
		rels[i] = repo.embed(rels[i])
	}
	return rels, nil
}

func (repo *relationshipRepository) GetRelationshipByID(_ context.Context, id int, _ ...core.DBExecutor) (relationship.Relationship, error) {
	if rel, ok := repo.db.relationship.get(id); ok {
		return repo.embed(rel), nil
	}
	return relationship.Relationship{}, relationship.ErrNotFound
}

func (repo *relationshipRepository) GetRelationshipByPair(_ context.Context, parentID, childID int, _ ...core.DBExecutor) (relationship.Relationship, error) {
	repo.db.relationship.RLock()
	defer repo.db.relationship.RUnlock()

	for _, r := range repo.db.relationship.rows {
		if r.ParentID == parentID && r.ChildID == childID {
			return r, nil
		}
	}
	return relationship.Relationship{}, relationship.ErrNotFound
}

func (repo *relationshipRepository) UpdateRelationship(_ context.Context, rel relationship.Relationship, _ ...core.DBExecutor) (relationship.Relationship, error) {
	repo.db.relationship.Lock()
	defer repo.db.relationship.Unlock()

	orig, ok := repo.db.relationship.rows[rel.ID]
	if !ok {
		return relationship.Relationship{}, relationship.ErrNotFound
	}
	if rel.IsPrimary && repo.hasOtherPrimary(orig.ChildID, rel.ID) {
		return relationship.Relationship{}, relationship.ErrExists
	}
	orig.Relationship = rel.Relationship
	orig.IsPrimary = rel.IsPrimary
	orig.UpdatedAt = rel.UpdatedAt
	repo.db.relationship.rows[rel.ID] = orig
	return repo.embed(orig), nil
}

func (repo *relationshipRepository) DeleteRelationship(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.relationship.Lock()
	defer repo.db.relationship.Unlock()

	if _, ok := repo.db.relationship.rows[id]; !ok {
		return relationship.ErrNotFound
	}
	delete(repo.db.relationship.rows, id)
	return nil
}

// LockChild is a no-op: InTx already serializes every transaction.
func (repo *relationshipRepository) LockChild(context.Context, int, ...core.DBExecutor) error {
	return nil
}

func (repo *relationshipRepository) ClearPrimary(_ context.Context, childID, exceptID int, _ ...core.DBExecutor) error {
	repo.db.relationship.Lock()
	defer repo.db.relationship.Unlock()

	for id, r := range repo.db.relationship.rows {
		if r.ChildID == childID && r.ID != exceptID && r.IsPrimary {
			r.IsPrimary = false
			repo.db.relationship.rows[id] = r
		}
	}
	return nil
}

func (repo *relationshipRepository) members(match func(r relationship.Relationship) bool, other func(r relationship.Relationship) int) []relationship.Member {
	rels := filterRows(repo.db.relationship.snapshot(), match)
	members := make([]relationship.Member, 0, len(rels))
	for _, r := range rels {
		usr, ok := repo.db.user.get(other(r))
		if !ok {
			continue
		}
		members = append(members, relationship.Member{
			ID:           usr.ID,
			Name:         usr.Name,
			Email:        usr.Email,
			Relationship: r.Relationship,
			IsPrimary:    r.IsPrimary,
		})
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members
}

func (repo *relationshipRepository) QueryChildren(_ context.Context, parentID int, _ ...core.DBExecutor) ([]relationship.Member, error) {
	return repo.members(
		func(r relationship.Relationship) bool { return r.ParentID == parentID },
		func(r relationship.Relationship) int { return r.ChildID },
	), nil
}

func (repo *relationshipRepository) QueryParents(_ context.Context, childID int, _ ...core.DBExecutor) ([]relationship.Member, error) {
	return repo.members(
		func(r relationship.Relationship) bool { return r.ChildID == childID },
		func(r relationship.Relationship) int { return r.ParentID },
	), nil
}

func (repo *relationshipRepository) QueryChildIDs(_ context.Context, parentID int, _ ...core.DBExecutor) ([]int, error) {
	ids := make([]int, 0)
	for _, r := range repo.db.relationship.snapshot() {
		if r.ParentID == parentID {
			ids = append(ids, r.ChildID)
		}
	}
	return ids, nil
}

func (repo *relationshipRepository) GetPrimaryParent(_ context.Context, childID int, _ ...core.DBExecutor) (user.User, error) {
	for _, r := range repo.db.relationship.snapshot() {
		if r.ChildID == childID && r.IsPrimary {
			if usr, ok := repo.db.user.get(r.ParentID); ok {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}
