package user

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrGroupNotFound  = errors.New("group not found")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when
		// another user already holds the username or email.
		CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		UpdatePassword(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
	}

	// GroupRepository is the lookup table for role groups and the
	// membership writer.
	GroupRepository interface {
		GetGroupByName(ctx context.Context, name string) (Group, error)
		QueryAllGroups(ctx context.Context) ([]Group, error)
		AddUserToGroup(ctx context.Context, userID string, grp Group) error
	}
)
