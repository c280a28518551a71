package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/sundayschool/core/relationship"
	"github.com/trezcool/sundayschool/core/user"
	testutil "github.com/trezcool/sundayschool/tests"
)

func Test_relationshipApi_relationshipCreate(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	mom := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.cd", "", user.RoleParent, true)
	dad := testutil.CreateUser(t, usrRepo, "Dad", "dad@test.cd", "", user.RoleParent, true)
	tim := testutil.CreateUser(t, usrRepo, "Tim", "tim@test.cd", "", user.RoleStudent, true)
	adminToken := getToken(t, admin)

	link := func(parentID, childID int, isPrimary bool) []byte {
		return marchallObj(t, relationship.NewRelationship{ParentID: parentID, ChildID: childID, Relationship: "parent", IsPrimary: isPrimary})
	}

	runHTTPTests(t, app, []httpTest{
		{
			name: "Admin required", method: http.MethodPost, path: "/api/relationships", token: getToken(t, mom),
			body: link(mom.ID, tim.ID, true), wantCode: http.StatusForbidden, wantData: errBody(t, "Not authorized to create relationships"),
		},
		{
			name: "Parent must be a PARENT", method: http.MethodPost, path: "/api/relationships", token: adminToken,
			body: link(admin.ID, tim.ID, true), wantCode: http.StatusBadRequest, wantData: errBody(t, "Parent must be a user with role PARENT"),
		},
		{
			name: "Child must be a STUDENT", method: http.MethodPost, path: "/api/relationships", token: adminToken,
			body: link(mom.ID, dad.ID, true), wantCode: http.StatusBadRequest, wantData: errBody(t, "Child must be a user with role STUDENT"),
		},
		{name: "Mom", method: http.MethodPost, path: "/api/relationships", token: adminToken, body: link(mom.ID, tim.ID, true), wantCode: http.StatusCreated},
		{
			name: "Duplicate", method: http.MethodPost, path: "/api/relationships", token: adminToken,
			body: link(mom.ID, tim.ID, false), wantCode: http.StatusConflict, wantData: errBody(t, "Relationship already exists"),
		},
		// a new primary demotes the previous one
		{name: "Dad", method: http.MethodPost, path: "/api/relationships", token: adminToken, body: link(dad.ID, tim.ID, true), wantCode: http.StatusCreated},
	})

	req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/api/relationships?userId=%d", tim.ID), adminToken)
	app.ServeHTTP(rec, req)
	if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
		return
	}
	var view relationship.ChildView
	unmarshal(t, rec, &view)
	assert.Equal(t, tim.ID, view.ChildID)
	assert.Equal(t, tim.Name, view.ChildName)
	primaries := make(map[int]bool)
	for _, p := range view.Parents {
		primaries[p.ID] = p.IsPrimary
	}
	assert.Equal(t, map[int]bool{mom.ID: false, dad.ID: true}, primaries)
}

func Test_relationshipApi_relationshipFamily(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	mom := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.cd", "", user.RoleParent, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other@test.cd", "", user.RoleParent, true)
	tim := testutil.CreateUser(t, usrRepo, "Tim", "tim@test.cd", "", user.RoleStudent, true)
	rel := testutil.LinkParent(t, relRepo, mom.ID, tim.ID, true)
	rel.Parent, rel.Child = mom.Summary(), tim.Summary()

	family := func(id int) string { return fmt.Sprintf("/api/relationships?userId=%d", id) }
	momView := relationship.ParentView{
		ParentID:   mom.ID,
		ParentName: mom.Name,
		Children:   []relationship.Member{{ID: tim.ID, Name: tim.Name, Email: tim.Email, Relationship: "parent", IsPrimary: true}},
	}

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/api/relationships", wantCode: http.StatusUnauthorized},
		{name: "Own family", path: family(mom.ID), token: getToken(t, mom), wantData: marchallObj(t, momView)},
		{name: "Teacher may look", path: family(mom.ID), token: getToken(t, teacher), wantData: marchallObj(t, momView)},
		{
			name: "Other family", path: family(mom.ID), token: getToken(t, other),
			wantCode: http.StatusForbidden, wantData: errBody(t, "Not authorized to view these relationships"),
		},
		// forbidden is decided before existence
		{
			name: "Other unknown user", path: family(999), token: getToken(t, other),
			wantCode: http.StatusForbidden, wantData: errBody(t, "Not authorized to view these relationships"),
		},
		{name: "Unknown user", path: family(999), token: getToken(t, admin), wantCode: http.StatusNotFound, wantData: errBody(t, "User not found")},
		{name: "Malformed user", path: "/api/relationships?userId=abc", token: getToken(t, admin), wantCode: http.StatusNotFound},
		{
			name: "Neither parent nor student", path: family(teacher.ID), token: getToken(t, admin),
			wantCode: http.StatusBadRequest, wantData: errBody(t, "User is neither a parent nor a student"),
		},
		{
			name: "All requires admin", path: "/api/relationships", token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: errBody(t, "Not authorized to view these relationships"),
		},
		{name: "All", path: "/api/relationships", token: getToken(t, admin), wantData: marchallList(t, rel)},
	})
}

func Test_relationshipApi_relationshipUpdateDestroy(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	mom := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.cd", "", user.RoleParent, true)
	dad := testutil.CreateUser(t, usrRepo, "Dad", "dad@test.cd", "", user.RoleParent, true)
	tim := testutil.CreateUser(t, usrRepo, "Tim", "tim@test.cd", "", user.RoleStudent, true)
	momRel := testutil.LinkParent(t, relRepo, mom.ID, tim.ID, true)
	dadRel := testutil.LinkParent(t, relRepo, dad.ID, tim.ID, false)
	adminToken := getToken(t, admin)

	runHTTPTests(t, app, []httpTest{
		{name: "Not found", method: http.MethodPut, path: "/api/relationships/999", token: adminToken, body: []byte(`{"isPrimary": true}`), wantCode: http.StatusNotFound},
		{name: "Dad becomes primary", method: http.MethodPut, path: fmt.Sprintf("/api/relationships/%d", dadRel.ID), token: adminToken, body: []byte(`{"isPrimary": true, "relationship": "father"}`)},
	})

	momRel, err := relRepo.GetRelationshipByID(context.Background(), momRel.ID)
	if assert.NoError(t, err) {
		assert.False(t, momRel.IsPrimary)
	}
	dadRel, err = relRepo.GetRelationshipByID(context.Background(), dadRel.ID)
	if assert.NoError(t, err) {
		assert.True(t, dadRel.IsPrimary)
		assert.Equal(t, "father", dadRel.Relationship)
	}

	runHTTPTests(t, app, []httpTest{
		{name: "Deleted", method: http.MethodDelete, path: fmt.Sprintf("/api/relationships/%d", momRel.ID), token: adminToken, wantCode: http.StatusNoContent},
		{name: "Delete again", method: http.MethodDelete, path: fmt.Sprintf("/api/relationships/%d", momRel.ID), token: adminToken, wantCode: http.StatusNotFound},
	})
}
