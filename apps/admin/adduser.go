package main

import (
	"fmt"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
	inmemdb "github.com/rainbowkidsrealm/jaja2-sub000/storage/database/inmem"
)

// addUser creates an active account and saves it with the other users of dir.
func (cli *commandLine) addUser(dir, name, email, role, pwd, confirm string) error {
	db, err := openFixtures(dir)
	if err != nil {
		return err
	}
	svc := user.NewService(inmemdb.NewUserRepository(db))

	nu := user.NewUser{
		Name:            name,
		Email:           email,
		Role:            user.Role(role),
		Password:        pwd,
		PasswordConfirm: confirm,
	}
	if r, ok := user.ParseRole(role); ok {
		nu.Role = r
	}
	if err = nu.Validate(cli.validate, svc); err != nil {
		return err
	}
	usr, err := svc.Create(nu)
	if err != nil {
		return err
	}
	if err = saveUsers(db, dir); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Added %s %s <%s> (%s)\n", usr.Role, usr.Name, usr.Email, usr.ID)
	return nil
}
