package main

import (
	"fmt"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
	inmemdb "github.com/rainbowkidsrealm/jaja2-sub000/storage/database/inmem"
)

func (cli *commandLine) resetPassword(dir, email, pwd string) error {
	db, err := openFixtures(dir)
	if err != nil {
		return err
	}
	svc := user.NewService(inmemdb.NewUserRepository(db))

	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	rp := user.ResetPassword{Password: pwd, Name: usr.Name, Email: usr.Email}
	if err = rp.Validate(cli.validate); err != nil {
		return err
	}
	if _, err = svc.ResetPassword(usr, rp); err != nil {
		return err
	}
	if err = saveUsers(db, dir); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Password of %s has been reset.\n", usr.Email)
	return nil
}
