package relationship

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

// NowFunc is mockable.
var NowFunc = time.Now

// Relationship links a PARENT user to a STUDENT user.
// At most one relationship per child is primary.
type Relationship struct {
	ID           int           `json:"id"`
	ParentID     int           `json:"parentId"`
	ChildID      int           `json:"childId"`
	Relationship string        `json:"relationship"`
	IsPrimary    bool          `json:"isPrimary"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	Parent       *user.Summary `json:"parent,omitempty"`
	Child        *user.Summary `json:"child,omitempty"`
}

// Member is a relative as seen from the other side of a relationship.
type Member struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Relationship string `json:"relationship"`
	IsPrimary    bool   `json:"isPrimary"`
}

type ParentView struct {
	ParentID   int      `json:"parentId"`
	ParentName string   `json:"parentName"`
	Children   []Member `json:"children"`
}

type ChildView struct {
	ChildID   int      `json:"childId"`
	ChildName string   `json:"childName"`
	Parents   []Member `json:"parents"`
}

type NewRelationship struct {
	ParentID     int    `json:"parentId" validate:"required"`
	ChildID      int    `json:"childId" validate:"required"`
	Relationship string `json:"relationship" validate:"required,max=64"`
	IsPrimary    bool   `json:"isPrimary"`
}

func (nr *NewRelationship) Validate(validate *validator.Validate) error {
	nr.Relationship = core.CleanString(nr.Relationship)
	return validate.Struct(nr)
}

// UpdateRelationship defines what may change on an existing Relationship.
// Empty fields keep their current value.
type UpdateRelationship struct {
	Relationship string `json:"relationship" validate:"omitempty,max=64"`
	IsPrimary    *bool  `json:"isPrimary"`
}

func (ur *UpdateRelationship) Validate(validate *validator.Validate) error {
	ur.Relationship = core.CleanString(ur.Relationship)
	return validate.Struct(ur)
}
