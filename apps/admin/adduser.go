package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/user"
)

type newAccount struct {
	username, email     string
	firstName, lastName string
	role                user.Role
	password            string
}

// addUser creates the user, or reactivates and updates the one holding the username.
func (cli *commandLine) addUser(acc newAccount) error {
	ctx := context.Background()
	uname := core.CleanString(acc.username, true /* lower */)
	email := core.CleanString(acc.email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	found := err == nil
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return err
	}
	if !found {
		usr = user.User{ID: uuid.NewString(), Username: uname, CreatedAt: now}
	}

	if email != "" {
		if err := cli.usrRepo.CheckUniqueness(ctx, "", email, usr); err != nil {
			return err
		}
	}
	usr.Email = email
	usr.FirstName = core.CleanString(acc.firstName)
	usr.LastName = core.CleanString(acc.lastName)
	usr.Role = acc.role
	usr.IsActive = true
	usr.MustChangePassword = false
	usr.UpdatedAt = now
	if err := usr.SetPassword(acc.password); err != nil {
		return err
	}

	if found {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
