package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

type userRow struct {
	ID           int         `db:"id"`
	Name         string      `db:"name"`
	Email        string      `db:"email"`
	PasswordHash []byte      `db:"password_hash"`
	Role         string      `db:"role"`
	Phone        null.String `db:"phone"`
	Address      null.String `db:"address"`
	City         null.String `db:"city"`
	State        null.String `db:"state"`
	ZipCode      null.String `db:"zip_code"`
	DateOfBirth  null.Time   `db:"date_of_birth"`
	IsActive     bool        `db:"is_active"`
	LastLoginAt  null.Time   `db:"last_login_at"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

const userColumns = `id, name, email, password_hash, role, phone, address, city, state, zip_code,
	date_of_birth, is_active, last_login_at, created_at, updated_at`

// userWritable are the columns set on insert and update, in userRow.args order.
var userWritable = []string{
	"name", "email", "password_hash", "role", "phone", "address", "city", "state", "zip_code",
	"date_of_birth", "is_active", "last_login_at", "created_at", "updated_at",
}

var userOrdering = map[string]string{
	"id":         "id",
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

var userConstraints = map[string]error{
	"users_email_key": user.ErrEmailExists,
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		Role:         usr.Role,
		Phone:        usr.Phone,
		Address:      usr.Address,
		City:         usr.City,
		State:        usr.State,
		ZipCode:      usr.ZipCode,
		DateOfBirth:  usr.DateOfBirth,
		IsActive:     usr.IsActive,
		LastLoginAt:  usr.LastLoginAt,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
}

func (r userRow) args() []interface{} {
	return []interface{}{
		r.Name, r.Email, r.PasswordHash, r.Role, r.Phone, r.Address, r.City, r.State, r.ZipCode,
		r.DateOfBirth, r.IsActive, r.LastLoginAt, r.CreatedAt, r.UpdatedAt,
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         r.Role,
		Phone:        r.Phone,
		Address:      r.Address,
		City:         r.City,
		State:        r.State,
		ZipCode:      r.ZipCode,
		DateOfBirth:  r.DateOfBirth,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		LastLoginAt:  r.LastLoginAt,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{baseRepository{exec: exec}}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	query := "SELECT COUNT(*) FROM users WHERE email = ?"
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]int64, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, int64(u.ID))
		}
		query += " AND NOT (id = ANY(?))"
		args = append(args, pq.Int64Array(ids))
	}

	var count int
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &count, rebind(query), args...); err != nil {
		return translate(err, "checking email uniqueness", nil)
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	query := fmt.Sprintf(
		"INSERT INTO users (%s) VALUES (%s) RETURNING %s",
		strings.Join(userWritable, ", "),
		strmangle.Placeholders(true, len(userWritable), 1, 1),
		userColumns,
	)
	var row userRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, toUserRow(usr).args()...); err != nil {
		return user.User{}, translate(err, "inserting user", userConstraints)
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			w.add("(name ILIKE ? OR email ILIKE ?)", pattern, pattern)
		}
		if len(filter.Roles) > 0 {
			roles := make([]string, 0, len(filter.Roles))
			for _, r := range filter.Roles {
				roles = append(roles, strings.ToUpper(r))
			}
			w.add("role = ANY(?)", pq.StringArray(roles))
		}
		if active := filter.Active(); active != nil {
			w.add("is_active = ?", *active)
		}
	}

	query := "SELECT " + userColumns + " FROM users" + w.String() + orderBy(ordering, userOrdering)
	var rows []userRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, rebind(query), w.args...); err != nil {
		return nil, translate(err, "querying users", nil)
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) getBy(ctx context.Context, exec core.DBExecutor, col string, arg interface{}) (user.User, error) {
	var row userRow
	query := "SELECT " + userColumns + " FROM users WHERE " + col + " = $1"
	if err := sqlx.GetContext(ctx, exec, &row, query, arg); err != nil {
		return user.User{}, rowError(err, "fetching user", user.ErrNotFound, nil)
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (user.User, error) {
	return repo.getBy(ctx, repo.getExec(exec), "id", id)
}

func (repo *userRepository) GetUserForUpdate(ctx context.Context, id int, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	query := "SELECT " + userColumns + " FROM users WHERE id = $1 FOR UPDATE"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, id); err != nil {
		return user.User{}, rowError(err, "locking user", user.ErrNotFound, nil)
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	return repo.getBy(ctx, repo.getExec(exec), "email", email)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.UpdatedAt.IsZero() {
		usr.UpdatedAt = time.Now().UTC()
	}
	row := toUserRow(usr)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strmangle.SetParamNames(`"`, `"`, 1, userWritable),
		len(userWritable)+1,
		userColumns,
	)
	args := append(row.args(), usr.ID)

	var updated userRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &updated, query, args...); err != nil {
		return user.User{}, rowError(err, "updating user", user.ErrNotFound, userConstraints)
	}
	return updated.toUser(), nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return translate(err, "deleting user", nil)
	}
	return affected(res, user.ErrNotFound)
}
