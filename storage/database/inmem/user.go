package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) all() []user.User {
	users := make([]user.User, 0, len(repo.db.tbl(tblUsers).rows))
	repo.db.tbl(tblUsers).each(func(v interface{}) {
		users = append(users, v.(user.User))
	})
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	exclUsrsLen := len(excludedUsers)
	if exclUsrsLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}

	for _, usr := range repo.all() {
		if username != "" && usr.Username == username && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()

	usr.ID = newID()
	repo.db.tbl(tblUsers).put(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, page core.Page) ([]user.User, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.all() {
		if filter == nil || filter.IsEmpty() || matchUser(usr, filter) {
			users = append(users, usr)
		}
	}

	orderRows(users, core.AllowedOrdering(ordering, user.OrderingFields), func(i int, field string) interface{} {
		usr := users[i]
		switch field {
		case "name":
			return usr.Name
		case "username":
			return usr.Username
		case "email":
			return usr.Email
		case "is_active":
			return usr.IsActive
		case "updated_at":
			return usr.UpdatedAt
		case "last_login":
			return usr.LastLogin
		default:
			return usr.CreatedAt
		}
	})

	start, end := page.Window(len(users))
	return users[start:end], len(users), nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" &&
		!containsFold(usr.Name, filter.Search) &&
		!containsFold(usr.Username, filter.Search) &&
		!containsFold(usr.Email, filter.Search) {
		return false
	}
	if filter.Roles != nil && !hasAnyRole(usr, filter.Roles) {
		return false
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func hasAnyRole(usr user.User, roles []string) bool {
	for _, have := range usr.Roles {
		for _, want := range roles {
			if strings.HasPrefix(have, want) {
				return true
			}
		}
	}
	return false
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if v, ok := repo.db.tbl(tblUsers).get(filter.ID); ok {
			return v.(user.User), nil
		}
		return user.User{}, user.ErrNotFound
	}

	for _, usr := range repo.all() {
		switch {
		case filter.Username != "":
			if usr.Username == filter.Username {
				return usr, nil
			}
		case filter.Email != "":
			if usr.Email == filter.Email {
				return usr, nil
			}
		case filter.UsernameOrEmail != "":
			if usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblUsers).get(usr.ID); !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.tbl(tblUsers).put(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	defer repo.db.lock(ctx)()

	var deleted int
	for _, id := range ids {
		if repo.db.tbl(tblUsers).del(id) {
			deleted++
			repo.deleteUserRows(id)
		}
	}
	return deleted, nil
}

// deleteUserRows mirrors the ON DELETE CASCADE of the tables referencing users.
func (repo *userRepository) deleteUserRows(userID string) {
	deleteWhere(repo.db.tbl(tblSubscriptions), func(v interface{}) bool { return subscriptionUserID(v) == userID })
	deleteWhere(repo.db.tbl(tblWorkoutLogs), func(v interface{}) bool { return workoutLogUserID(v) == userID })
	deleteWhere(repo.db.tbl(tblFoodEntries), func(v interface{}) bool { return foodEntryUserID(v) == userID })
	deleteWhere(repo.db.tbl(tblMeasurements), func(v interface{}) bool { return measurementUserID(v) == userID })
	deleteWhere(repo.db.tbl(tblUserAchievements), func(v interface{}) bool { return userAchievementUserID(v) == userID })
}

func isExcluded(usr user.User, excludedUsers []user.User, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excludedUsers[i].ID >= usr.ID })
	return idx < n && excludedUsers[idx].ID == usr.ID
}
