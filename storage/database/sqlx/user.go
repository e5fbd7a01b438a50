package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ceresdev/academico/core/user"
)

// psql builds queries with postgres placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var userColumns = []string{"id", "name", "username", "email", "is_active", "password_hash", "created_at", "updated_at", "last_login"}

type dbUser struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	IsActive     null.Bool `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (u dbUser) domain(groups []string) user.User {
	return user.User{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.Username,
		Email:        u.Email,
		IsActive:     u.IsActive.Ptr(),
		Groups:       groups,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin.Time,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo userRepository) getUser(ctx context.Context, pred interface{}) (user.User, error) {
	query, args, err := psql.Select(userColumns...).From(`"user"`).Where(pred).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user query")
	}

	var u dbUser
	if err := repo.db.GetContext(ctx, &u, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}

	groups, err := repo.userGroups(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	return u.domain(groups), nil
}

func (repo userRepository) userGroups(ctx context.Context, userID string) ([]string, error) {
	query, args, err := psql.
		Select("g.name").
		From(`"group" g`).
		Join("user_group ug ON ug.group_id = g.id").
		Where(sq.Eq{"ug.user_id": userID}).
		OrderBy("g.name").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building groups query")
	}

	var groups []string
	if err := repo.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, errors.Wrap(err, "finding user groups")
	}
	return groups, nil
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	check := func(pred sq.Eq, existsErr error) error {
		b := psql.Select("true").From(`"user"`).Where(pred)
		if len(excludedUsers) > 0 {
			ids := make([]string, 0, len(excludedUsers))
			for _, u := range excludedUsers {
				ids = append(ids, u.ID)
			}
			b = b.Where(sq.NotEq{"id": ids})
		}
		query, args, err := b.Limit(1).ToSql()
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}

		var exists bool
		if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return errors.Wrap(err, "checking user uniqueness")
		}
		return existsErr
	}

	if err := check(sq.Eq{"username": username}, user.ErrUsernameExists); err != nil {
		return err
	}
	return check(sq.Eq{"email": email}, user.ErrEmailExists)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()

	query, args, err := psql.
		Insert(`"user"`).
		Columns(userColumns...).
		Values(
			usr.ID,
			usr.Name,
			usr.Username,
			usr.Email,
			null.BoolFromPtr(usr.IsActive),
			usr.PasswordHash,
			usr.CreatedAt,
			usr.UpdatedAt,
			null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
		).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.getUser(ctx, sq.Eq{"id": id})
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, sq.Eq{"username": username})
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, sq.Eq{"email": email})
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	return repo.getUser(ctx, sq.Or{sq.Eq{"username": uname}, sq.Eq{"email": uname}})
}

func (repo userRepository) UpdatePassword(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.
		Update(`"user"`).
		Set("password_hash", usr.PasswordHash).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": usr.ID}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building password update")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "updating password")
	}
	return usr, nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.
		Update(`"user"`).
		Set("last_login", usr.LastLogin).
		Where(sq.Eq{"id": usr.ID}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building last_login update")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "updating last_login")
	}
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		now := time.Now().UTC()
		if usr.CreatedAt.IsZero() {
			usr.CreatedAt = now
		}
		usr.UpdatedAt = now
		return repo.CreateUser(ctx, usr)
	}

	query, args, err := psql.
		Update(`"user"`).
		Set("name", usr.Name).
		Set("username", usr.Username).
		Set("email", usr.Email).
		Set("is_active", null.BoolFromPtr(usr.IsActive)).
		Set("password_hash", usr.PasswordHash).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": usr.ID}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user update")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

type groupRepository struct {
	db *sqlx.DB
}

var _ user.GroupRepository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) user.GroupRepository {
	return &groupRepository{db: db}
}

func (repo groupRepository) GetGroupByName(ctx context.Context, name string) (user.Group, error) {
	query, args, err := psql.Select("id", "name").From(`"group"`).Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return user.Group{}, errors.Wrap(err, "building group query")
	}

	var grp user.Group
	if err := repo.db.GetContext(ctx, &grp, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.Group{}, user.ErrGroupNotFound
		}
		return user.Group{}, errors.Wrap(err, "finding group")
	}
	return grp, nil
}

func (repo groupRepository) QueryAllGroups(ctx context.Context) ([]user.Group, error) {
	query, args, err := psql.Select("id", "name").From(`"group"`).OrderBy("name").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building groups query")
	}

	var groups []user.Group
	if err := repo.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	return groups, nil
}

func (repo groupRepository) AddUserToGroup(ctx context.Context, userID string, grp user.Group) error {
	// membership is a set
	query, args, err := psql.
		Insert("user_group").
		Columns("user_id", "group_id").
		Values(userID, grp.ID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building membership insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "adding user to group")
	}
	return nil
}
