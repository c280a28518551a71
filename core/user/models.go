package user

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/sundayschool/core"
)

// Roles
const (
	RoleStudent = "STUDENT"
	RoleTeacher = "TEACHER"
	RoleParent  = "PARENT"
	RoleAdmin   = "ADMIN"
)

var AllRoles = []string{RoleStudent, RoleTeacher, RoleParent, RoleAdmin}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         string      `json:"role"`
	Phone        null.String `json:"phone"`
	Address      null.String `json:"address"`
	City         null.String `json:"city"`
	State        null.String `json:"state"`
	ZipCode      null.String `json:"zipCode"`
	DateOfBirth  null.Time   `json:"dateOfBirth"`
	IsActive     bool        `json:"isActive"`
	PasswordHash []byte      `json:"-"`
	LastLoginAt  null.Time   `json:"lastLoginAt"`
	CreatedAt    time.Time   `json:"createdAt"` // UTC
	UpdatedAt    time.Time   `json:"updatedAt"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent }
func (u User) IsParent() bool  { return u.Role == RoleParent }

func (u User) StringID() string { return strconv.Itoa(u.ID) }

func (u User) Summary() *Summary {
	return &Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Summary is the public subset of a User embedded in other resources.
type Summary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Profile struct {
	Phone       null.String `json:"phone" validate:"omitempty,max=32"`
	Address     null.String `json:"address" validate:"omitempty,max=255"`
	City        null.String `json:"city" validate:"omitempty,max=128"`
	State       null.String `json:"state" validate:"omitempty,max=64"`
	ZipCode     null.String `json:"zipCode" validate:"omitempty,max=16"`
	DateOfBirth null.Time   `json:"dateOfBirth"`
}

func (p Profile) apply(usr *User) {
	if p.Phone.Valid {
		usr.Phone = p.Phone
	}
	if p.Address.Valid {
		usr.Address = p.Address
	}
	if p.City.Valid {
		usr.City = p.City
	}
	if p.State.Valid {
		usr.State = p.State
	}
	if p.ZipCode.Valid {
		usr.ZipCode = p.ZipCode
	}
	if p.DateOfBirth.Valid {
		usr.DateOfBirth = p.DateOfBirth
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,userrole"`
	Profile
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"omitempty,userrole"`
	IsActive *bool  `json:"isActive"`
	Password string `json:"password"`
	Profile
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if role := core.CleanString(uu.Role); role != "" {
		uu.Role = role
	} else {
		uu.Role = origUsr.Role
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Email, origUsr)
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive string   `query:"isActive"`

	isActive *bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	switch core.CleanString(qf.IsActive, true /* lower */) {
	case "true", "1":
		t := true
		qf.isActive = &t
	case "false", "0":
		f := false
		qf.isActive = &f
	}
}

// Active returns the parsed isActive filter, nil when unset.
func (qf *QueryFilter) Active() *bool { return qf.isActive }

func (qf *QueryFilter) SetActive(active bool) { qf.isActive = &active }
