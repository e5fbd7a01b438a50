package main

import (
	"context"

	"github.com/ceresdev/academico/core"
	"github.com/ceresdev/academico/core/user"
)

// addUser updates or creates a user.User; the Admins group is only ever
// granted here, never through provisioning.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	var usr user.User
	var err error
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if usr, err = cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname); err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username: uname,
			Email:    email,
		}
	}
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	if err != nil {
		return err
	}

	if isAdmin {
		grp, err := cli.groupRepo.GetGroupByName(ctx, user.GroupAdmins)
		if err != nil {
			return err
		}
		if err := cli.groupRepo.AddUserToGroup(ctx, usr.ID, grp); err != nil {
			return err
		}
	}
	return nil
}
