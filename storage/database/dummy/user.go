package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

var userFields = map[string]func(a, b user.User) int{
	"id":         func(a, b user.User) int { return a.ID - b.ID },
	"name":       func(a, b user.User) int { return strings.Compare(a.Name, b.Name) },
	"email":      func(a, b user.User) int { return strings.Compare(a.Email, b.Email) },
	"role":       func(a, b user.User) int { return strings.Compare(a.Role, b.Role) },
	"created_at": func(a, b user.User) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at": func(a, b user.User) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	for _, usr := range repo.db.user.rows {
		if usr.Email == email && !isExcluded(usr, excludedUsers) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	for _, u := range repo.db.user.rows {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.ID = repo.db.user.nextID()
	repo.db.user.rows[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	users := repo.db.user.snapshot()

	if filter != nil {
		// users with search keyword matching any Name or Email ?
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			users = filterRows(users, func(u user.User) bool {
				return strings.Contains(strings.ToLower(u.Name), search) ||
					strings.Contains(strings.ToLower(u.Email), search)
			})
		}
		// users with any of the specified roles
		if len(filter.Roles) > 0 {
			users = filterRows(users, func(u user.User) bool {
				for _, r := range filter.Roles {
					if strings.EqualFold(u.Role, r) {
						return true
					}
				}
				return false
			})
		}
		if active := filter.Active(); active != nil {
			users = filterRows(users, func(u user.User) bool { return u.IsActive == *active })
		}
	}

	sortRows(users, ordering, userFields)
	return users, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int, _ ...core.DBExecutor) (user.User, error) {
	if usr, ok := repo.db.user.get(id); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

// GetUserForUpdate relies on DB.InTx serializing transactions.
func (repo *userRepository) GetUserForUpdate(ctx context.Context, id int, exec ...core.DBExecutor) (user.User, error) {
	return repo.GetUserByID(ctx, id, exec...)
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	for _, usr := range repo.db.user.rows {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	if _, ok := repo.db.user.rows[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	for _, u := range repo.db.user.rows {
		if u.ID != usr.ID && u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	if usr.UpdatedAt.IsZero() {
		usr.UpdatedAt = time.Now().UTC()
	}
	repo.db.user.rows[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.user.Lock()
	if _, ok := repo.db.user.rows[id]; !ok {
		repo.db.user.Unlock()
		return user.ErrNotFound
	}
	delete(repo.db.user.rows, id)
	repo.db.user.Unlock()

	repo.db.cascadeUser(id)
	return nil
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, u := range excludedUsers {
		if u.ID == usr.ID {
			return true
		}
	}
	return false
}
