package main

import (
	"context"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(ctx context.Context, uname, email, pwd string, isAdmin bool) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if core.IsNotFound(err) {
		usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	}
	create := core.IsNotFound(err)
	if err != nil && !create {
		return err
	}

	now := core.NowFunc().UTC()
	if create {
		usr = user.User{Name: uname, Username: uname, Email: email, Roles: []string{user.RoleMember}, CreatedAt: now}
	}
	if isAdmin {
		usr.Roles = []string{user.RoleAdminOwner}
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if create {
		if err := cli.usrRepo.CheckUsernameUniqueness(ctx, uname, email); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	if err != nil {
		return err
	}
	cli.printf("User %q saved.\n", uname)
	return nil
}
