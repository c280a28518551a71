package relationship_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sundayschool/core/relationship"
	"github.com/trezcool/sundayschool/core/user"
	dummydb "github.com/trezcool/sundayschool/storage/database/dummy"
	testutil "github.com/trezcool/sundayschool/tests"
)

func setup(t *testing.T) (*relationship.Service, relationship.Repository, user.Repository) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewRelationshipRepository(db)
	userRepo := dummydb.NewUserRepository(db)
	return relationship.NewService(db, repo, userRepo), repo, userRepo
}

func TestService_Create(t *testing.T) {
	svc, _, userRepo := setup(t)
	ctx := context.Background()

	mom := testutil.CreateUser(t, userRepo, "Mom", "mom@example.com", "", user.RoleParent, true)
	kid := testutil.CreateUser(t, userRepo, "Kid", "kid@example.com", "", user.RoleStudent, true)
	teacher := testutil.CreateUser(t, userRepo, "Teacher", "teacher@example.com", "", user.RoleTeacher, true)

	rel, err := svc.Create(ctx, relationship.NewRelationship{ParentID: mom.ID, ChildID: kid.ID, Relationship: "mother", IsPrimary: true})
	require.NoError(t, err)
	assert.True(t, rel.IsPrimary)
	assert.Equal(t, "mother", rel.Relationship)

	tests := []struct {
		name    string
		nr      relationship.NewRelationship
		wantErr error
	}{
		{"duplicate pair", relationship.NewRelationship{ParentID: mom.ID, ChildID: kid.ID, Relationship: "mother"}, relationship.ErrExists},
		{"parent is not a parent", relationship.NewRelationship{ParentID: teacher.ID, ChildID: kid.ID, Relationship: "uncle"}, relationship.ErrInvalidParent},
		{"child is not a student", relationship.NewRelationship{ParentID: mom.ID, ChildID: teacher.ID, Relationship: "mother"}, relationship.ErrInvalidChild},
		{"unknown parent", relationship.NewRelationship{ParentID: 999, ChildID: kid.ID, Relationship: "father"}, relationship.ErrInvalidParent},
		{"unknown child", relationship.NewRelationship{ParentID: mom.ID, ChildID: 999, Relationship: "mother"}, relationship.ErrInvalidChild},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.nr)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}
}

func TestService_OnePrimaryPerChild(t *testing.T) {
	svc, repo, userRepo := setup(t)
	ctx := context.Background()

	mom := testutil.CreateUser(t, userRepo, "Mom", "mom@example.com", "", user.RoleParent, true)
	dad := testutil.CreateUser(t, userRepo, "Dad", "dad@example.com", "", user.RoleParent, true)
	gran := testutil.CreateUser(t, userRepo, "Gran", "gran@example.com", "", user.RoleParent, true)
	kid := testutil.CreateUser(t, userRepo, "Kid", "kid@example.com", "", user.RoleStudent, true)

	momRel, err := svc.Create(ctx, relationship.NewRelationship{ParentID: mom.ID, ChildID: kid.ID, Relationship: "mother", IsPrimary: true})
	require.NoError(t, err)
	dadRel, err := svc.Create(ctx, relationship.NewRelationship{ParentID: dad.ID, ChildID: kid.ID, Relationship: "father", IsPrimary: true})
	require.NoError(t, err)
	granRel, err := svc.Create(ctx, relationship.NewRelationship{ParentID: gran.ID, ChildID: kid.ID, Relationship: "grandmother"})
	require.NoError(t, err)

	primaries := func() []int {
		var ids []int
		for _, id := range []int{momRel.ID, dadRel.ID, granRel.ID} {
			rel, err := repo.GetRelationshipByID(ctx, id)
			require.NoError(t, err)
			if rel.IsPrimary {
				ids = append(ids, rel.ID)
			}
		}
		return ids
	}
	assert.Equal(t, []int{dadRel.ID}, primaries())

	isPrimary := true
	updated, err := svc.Update(ctx, granRel.ID, relationship.UpdateRelationship{IsPrimary: &isPrimary, Relationship: "grandma"})
	require.NoError(t, err)
	assert.True(t, updated.IsPrimary)
	assert.Equal(t, "grandma", updated.Relationship)
	assert.Equal(t, []int{granRel.ID}, primaries())

	primary, err := repo.GetPrimaryParent(ctx, kid.ID)
	require.NoError(t, err)
	assert.Equal(t, gran.ID, primary.ID)

	isPrimary = false
	_, err = svc.Update(ctx, granRel.ID, relationship.UpdateRelationship{IsPrimary: &isPrimary})
	require.NoError(t, err)
	assert.Empty(t, primaries())

	// an empty update keeps the current values
	same, err := svc.Update(ctx, momRel.ID, relationship.UpdateRelationship{})
	require.NoError(t, err)
	assert.Equal(t, "mother", same.Relationship)

	_, err = svc.Update(ctx, 999, relationship.UpdateRelationship{})
	assert.Equal(t, relationship.ErrNotFound, errors.Cause(err))

	require.NoError(t, svc.Delete(ctx, momRel.ID))
	assert.Equal(t, relationship.ErrNotFound, errors.Cause(svc.Delete(ctx, momRel.ID)))

	all, err := svc.QueryAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_Family(t *testing.T) {
	svc, _, userRepo := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, userRepo, "Admin", "admin@example.com", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, userRepo, "Teacher", "teacher@example.com", "", user.RoleTeacher, true)
	mom := testutil.CreateUser(t, userRepo, "Mom", "mom@example.com", "", user.RoleParent, true)
	stranger := testutil.CreateUser(t, userRepo, "Stranger", "stranger@example.com", "", user.RoleParent, true)
	anna := testutil.CreateUser(t, userRepo, "Anna", "anna@example.com", "", user.RoleStudent, true)
	ben := testutil.CreateUser(t, userRepo, "Ben", "ben@example.com", "", user.RoleStudent, true)

	_, err := svc.Create(ctx, relationship.NewRelationship{ParentID: mom.ID, ChildID: ben.ID, Relationship: "mother"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, relationship.NewRelationship{ParentID: mom.ID, ChildID: anna.ID, Relationship: "mother", IsPrimary: true})
	require.NoError(t, err)

	view, err := svc.Family(ctx, mom, mom.ID)
	require.NoError(t, err)
	parentView, ok := view.(*relationship.ParentView)
	require.True(t, ok)
	assert.Equal(t, "Mom", parentView.ParentName)
	if assert.Len(t, parentView.Children, 2) {
		assert.Equal(t, "Anna", parentView.Children[0].Name)
		assert.True(t, parentView.Children[0].IsPrimary)
		assert.Equal(t, "Ben", parentView.Children[1].Name)
	}

	view, err = svc.Family(ctx, teacher, anna.ID)
	require.NoError(t, err)
	childView, ok := view.(*relationship.ChildView)
	require.True(t, ok)
	if assert.Len(t, childView.Parents, 1) {
		assert.Equal(t, mom.ID, childView.Parents[0].ID)
		assert.Equal(t, "mother", childView.Parents[0].Relationship)
	}

	_, err = svc.Family(ctx, stranger, anna.ID)
	assert.Equal(t, relationship.ErrFamilyForbidden, errors.Cause(err))
	_, err = svc.Family(ctx, anna, ben.ID)
	assert.Equal(t, relationship.ErrFamilyForbidden, errors.Cause(err))

	// the permission check runs before the lookup
	_, err = svc.Family(ctx, stranger, 999)
	assert.Equal(t, relationship.ErrFamilyForbidden, errors.Cause(err))
	_, err = svc.Family(ctx, admin, 999)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	_, err = svc.Family(ctx, admin, teacher.ID)
	assert.Equal(t, relationship.ErrNeitherParentNorStudent, errors.Cause(err))
}
