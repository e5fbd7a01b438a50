package main

import (
	"context"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdatePassword(ctx, usr); err != nil {
		return err
	}
	return nil
}
