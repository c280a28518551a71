package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/relationship"
	"github.com/trezcool/sundayschool/core/user"
)

type relationshipRow struct {
	ID           int       `db:"id"`
	ParentID     int       `db:"parent_id"`
	ChildID      int       `db:"child_id"`
	Relationship string    `db:"relationship"`
	IsPrimary    bool      `db:"is_primary"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`

	ParentName  null.String `db:"parent_name"`
	ParentEmail null.String `db:"parent_email"`
	ChildName   null.String `db:"child_name"`
	ChildEmail  null.String `db:"child_email"`
}

const relationshipColumns = "id, parent_id, child_id, relationship, is_primary, created_at, updated_at"

const relationshipJoinedSelect = `
	SELECT r.id, r.parent_id, r.child_id, r.relationship, r.is_primary, r.created_at, r.updated_at,
		p.name AS parent_name, p.email AS parent_email,
		c.name AS child_name, c.email AS child_email
	FROM parent_child_relationships r
	LEFT JOIN users p ON p.id = r.parent_id
	LEFT JOIN users c ON c.id = r.child_id`

var relationshipConstraints = map[string]error{
	"parent_child_relationships_parent_child_key": relationship.ErrExists,
	"parent_child_relationships_one_primary_idx":  relationship.ErrExists,
	"parent_child_relationships_parent_id_fkey":   relationship.ErrInvalidParent,
	"parent_child_relationships_child_id_fkey":    relationship.ErrInvalidChild,
}

func (r relationshipRow) toRelationship() relationship.Relationship {
	rel := relationship.Relationship{
		ID:           r.ID,
		ParentID:     r.ParentID,
		ChildID:      r.ChildID,
		Relationship: r.Relationship,
		IsPrimary:    r.IsPrimary,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.ParentName.Valid {
		rel.Parent = &user.Summary{ID: r.ParentID, Name: r.ParentName.String, Email: r.ParentEmail.String}
	}
	if r.ChildName.Valid {
		rel.Child = &user.Summary{ID: r.ChildID, Name: r.ChildName.String, Email: r.ChildEmail.String}
	}
	return rel
}

type relationshipRepository struct {
	baseRepository
	users *userRepository
}

var (
	// interface compliance checks
	_ relationship.Repository = (*relationshipRepository)(nil)
	_ enrollment.Family       = (*relationshipRepository)(nil)
)

func NewRelationshipRepository(exec core.DBExecutor) *relationshipRepository {
	return &relationshipRepository{
		baseRepository: baseRepository{exec: exec},
		users:          NewUserRepository(exec),
	}
}

func (repo *relationshipRepository) CreateRelationship(ctx context.Context, rel relationship.Relationship, exec ...core.DBExecutor) (relationship.Relationship, error) {
	var row relationshipRow
	query := `
		INSERT INTO parent_child_relationships (parent_id, child_id, relationship, is_primary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + relationshipColumns
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query,
		rel.ParentID, rel.ChildID, rel.Relationship, rel.IsPrimary, rel.CreatedAt.UTC(), rel.UpdatedAt.UTC())
	if err != nil {
		return relationship.Relationship{}, translate(err, "inserting relationship", relationshipConstraints)
	}
	return row.toRelationship(), nil
}

func (repo *relationshipRepository) QueryRelationships(ctx context.Context, exec ...core.DBExecutor) ([]relationship.Relationship, error) {
	var rows []relationshipRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, relationshipJoinedSelect+" ORDER BY r.created_at DESC"); err != nil {
		return nil, translate(err, "querying relationships", nil)
	}
	rels := make([]relationship.Relationship, 0, len(rows))
	for _, r := range rows {
		rels = append(rels, r.toRelationship())
	}
	return rels, nil
}

func (repo *relationshipRepository) GetRelationshipByID(ctx context.Context, id int, exec ...core.DBExecutor) (relationship.Relationship, error) {
	var row relationshipRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, relationshipJoinedSelect+" WHERE r.id = $1", id); err != nil {
		return relationship.Relationship{}, rowError(err, "fetching relationship", relationship.ErrNotFound, nil)
	}
	return row.toRelationship(), nil
}

func (repo *relationshipRepository) GetRelationshipByPair(ctx context.Context, parentID, childID int, exec ...core.DBExecutor) (relationship.Relationship, error) {
	var row relationshipRow
	query := "SELECT " + relationshipColumns + " FROM parent_child_relationships WHERE parent_id = $1 AND child_id = $2"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, parentID, childID); err != nil {
		return relationship.Relationship{}, rowError(err, "fetching relationship", relationship.ErrNotFound, nil)
	}
	return row.toRelationship(), nil
}

func (repo *relationshipRepository) UpdateRelationship(ctx context.Context, rel relationship.Relationship, exec ...core.DBExecutor) (relationship.Relationship, error) {
	e := repo.getExec(exec)
	res, err := e.ExecContext(ctx,
		"UPDATE parent_child_relationships SET relationship = $1, is_primary = $2, updated_at = $3 WHERE id = $4",
		rel.Relationship, rel.IsPrimary, rel.UpdatedAt.UTC(), rel.ID)
	if err != nil {
		return relationship.Relationship{}, translate(err, "updating relationship", relationshipConstraints)
	}
	if err = affected(res, relationship.ErrNotFound); err != nil {
		return relationship.Relationship{}, err
	}
	return repo.GetRelationshipByID(ctx, rel.ID, e)
}

func (repo *relationshipRepository) DeleteRelationship(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM parent_child_relationships WHERE id = $1", id)
	if err != nil {
		return translate(err, "deleting relationship", nil)
	}
	return affected(res, relationship.ErrNotFound)
}

// LockChild locks the child's user row; concurrent primary changes of the same child queue behind it.
func (repo *relationshipRepository) LockChild(ctx context.Context, childID int, exec ...core.DBExecutor) error {
	var id int
	err := sqlx.GetContext(ctx, repo.getExec(exec), &id, "SELECT id FROM users WHERE id = $1 FOR UPDATE", childID)
	return rowError(err, "locking child", relationship.ErrInvalidChild, nil)
}

func (repo *relationshipRepository) ClearPrimary(ctx context.Context, childID, exceptID int, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `
		UPDATE parent_child_relationships SET is_primary = FALSE, updated_at = NOW()
		WHERE child_id = $1 AND id <> $2 AND is_primary`, childID, exceptID)
	return translate(err, "clearing primary relationship", nil)
}

func (repo *relationshipRepository) members(ctx context.Context, exec core.DBExecutor, query string, id int) ([]relationship.Member, error) {
	members := make([]relationship.Member, 0)
	var rows []struct {
		ID           int    `db:"id"`
		Name         string `db:"name"`
		Email        string `db:"email"`
		Relationship string `db:"relationship"`
		IsPrimary    bool   `db:"is_primary"`
	}
	if err := sqlx.SelectContext(ctx, exec, &rows, query, id); err != nil {
		return nil, translate(err, "querying family members", nil)
	}
	for _, r := range rows {
		members = append(members, relationship.Member{
			ID:           r.ID,
			Name:         r.Name,
			Email:        r.Email,
			Relationship: r.Relationship,
			IsPrimary:    r.IsPrimary,
		})
	}
	return members, nil
}

func (repo *relationshipRepository) QueryChildren(ctx context.Context, parentID int, exec ...core.DBExecutor) ([]relationship.Member, error) {
	return repo.members(ctx, repo.getExec(exec), `
		SELECT u.id, u.name, u.email, r.relationship, r.is_primary
		FROM parent_child_relationships r
		JOIN users u ON u.id = r.child_id
		WHERE r.parent_id = $1
		ORDER BY u.name`, parentID)
}

func (repo *relationshipRepository) QueryParents(ctx context.Context, childID int, exec ...core.DBExecutor) ([]relationship.Member, error) {
	return repo.members(ctx, repo.getExec(exec), `
		SELECT u.id, u.name, u.email, r.relationship, r.is_primary
		FROM parent_child_relationships r
		JOIN users u ON u.id = r.parent_id
		WHERE r.child_id = $1
		ORDER BY u.name`, childID)
}

func (repo *relationshipRepository) QueryChildIDs(ctx context.Context, parentID int, exec ...core.DBExecutor) ([]int, error) {
	ids := make([]int, 0)
	query := "SELECT child_id FROM parent_child_relationships WHERE parent_id = $1 ORDER BY child_id"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &ids, query, parentID); err != nil {
		return nil, translate(err, "querying child ids", nil)
	}
	return ids, nil
}

func (repo *relationshipRepository) GetPrimaryParent(ctx context.Context, childID int, exec ...core.DBExecutor) (user.User, error) {
	e := repo.getExec(exec)
	var parentID int
	query := "SELECT parent_id FROM parent_child_relationships WHERE child_id = $1 AND is_primary"
	if err := sqlx.GetContext(ctx, e, &parentID, query, childID); err != nil {
		return user.User{}, rowError(err, "fetching primary parent", user.ErrNotFound, nil)
	}
	return repo.users.GetUserByID(ctx, parentID, e)
}
