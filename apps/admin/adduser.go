package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

var errInvalidRole = errors.New("invalid role")

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	role = strings.ToUpper(core.CleanString(role))
	if !user.IsValidRole(role) {
		return errInvalidRole
	}

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	creating := false
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		creating = true
		usr = user.User{Email: email, CreatedAt: now}
	}
	usr.Name = name
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if creating {
		usr, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		usr, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	if err != nil {
		return err
	}
	action := "updated"
	if creating {
		action = "created"
	}
	fmt.Fprintf(cli.out, "%s %s (%s, id %d)\n", action, usr.Email, usr.Role, usr.ID)
	return nil
}
