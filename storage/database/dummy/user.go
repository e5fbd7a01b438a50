package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ceresdev/academico/core/user"
)

type userRepository struct {
	db     *userTable
	groups *groupTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user, groups: db.group}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, repo.withGroups(*u))
	}
	return users
}

func (repo *userRepository) withGroups(usr user.User) user.User {
	repo.groups.RLock()
	defer repo.groups.RUnlock()

	var names []string
	for name := range repo.groups.membership[usr.ID] {
		names = append(names, name)
	}
	sort.Strings(names)
	usr.Groups = names
	return usr
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}

	for _, usr := range repo.db.table {
		if excluded[usr.ID] {
			continue
		}
		if usr.Username == username {
			return user.ErrUsernameExists
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = uuid.New().String()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return repo.withGroups(*usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Username == username {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if (usr.Username == uname) || (usr.Email == uname) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdatePassword(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	orig.PasswordHash = usr.PasswordHash
	orig.UpdatedAt = time.Now().UTC()
	return repo.withGroups(*orig), nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	orig.LastLogin = usr.LastLogin
	return repo.withGroups(*orig), nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if usr.ID == "" {
		now := time.Now().UTC()
		if usr.CreatedAt.IsZero() {
			usr.CreatedAt = now
		}
		usr.UpdatedAt = now
		usr.ID = uuid.New().String()
		repo.db.table[usr.ID] = &usr
		return usr, nil
	}

	orig, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	orig.Name = usr.Name
	orig.Username = usr.Username
	orig.Email = usr.Email
	orig.IsActive = usr.IsActive
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	orig.UpdatedAt = time.Now().UTC()
	return repo.withGroups(*orig), nil
}

type groupRepository struct {
	db *groupTable
}

var _ user.GroupRepository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) user.GroupRepository {
	return &groupRepository{db: db.group}
}

func (repo *groupRepository) GetGroupByName(ctx context.Context, name string) (user.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if grp, ok := repo.db.table[name]; ok {
		return *grp, nil
	}
	return user.Group{}, user.ErrGroupNotFound
}

func (repo *groupRepository) QueryAllGroups(ctx context.Context) ([]user.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	groups := make([]user.Group, 0, len(repo.db.table))
	for _, grp := range repo.db.table {
		groups = append(groups, *grp)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *groupRepository) AddUserToGroup(ctx context.Context, userID string, grp user.Group) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[grp.Name]; !ok {
		return user.ErrGroupNotFound
	}
	if repo.db.membership[userID] == nil {
		repo.db.membership[userID] = make(map[string]bool)
	}
	repo.db.membership[userID][grp.Name] = true
	return nil
}
