package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/access"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/session"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
)

func (cli *commandLine) login(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("login")
	email := fs.String("email", "", "Your email address. The password will be prompted next.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		fs.Usage()
		return errHelp
	}

	pwd, err := cli.prompt("Enter password")
	if err != nil {
		return err
	}
	if pwd == "" {
		fs.Usage()
		return errHelp
	}

	sess, err := cli.store.Login(ctx, *email, pwd)
	if err != nil {
		return errors.Wrap(err, "login failed")
	}
	fmt.Fprintf(cli.out, "Logged in as %s <%s> (%s)\n", sess.User.Name, sess.User.Email, sess.User.Role)
	return nil
}

func (cli *commandLine) logout() error {
	if err := cli.store.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Logged out")
	return nil
}

func (cli *commandLine) whoami(sess session.Session) error {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", sess.User.Name)
	fmt.Fprintf(w, "Email:\t%s\n", sess.User.Email)
	fmt.Fprintf(w, "Role:\t%s\n", sess.User.Role)
	switch p := sess.Profile.(type) {
	case session.AdminProfile:
		fmt.Fprintf(w, "Department:\t%s\n", p.Department)
	case session.TeacherProfile:
		fmt.Fprintf(w, "Qualification:\t%s\n", p.Qualification)
		fmt.Fprintf(w, "Experience:\t%d years\n", p.ExperienceYears)
	case session.ParentProfile:
		fmt.Fprintf(w, "Occupation:\t%s\n", p.Occupation)
	}
	return w.Flush()
}

func (cli *commandLine) refresh(ctx context.Context) error {
	if _, err := cli.store.Refresh(ctx, cli.client); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Session refreshed")
	return nil
}

// nav prints the screens of the role in navigation order, with the actions offered on each.
func (cli *commandLine) nav(sess session.Session) error {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCREEN\tPATH\tACTIONS")
	for _, c := range access.Capabilities(sess.User.Role) {
		acts := access.Actions(sess.User.Role, c.Target)
		names := make([]string, 0, len(acts))
		for _, a := range acts {
			names = append(names, string(a))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Label, c.Target, strings.Join(names, ", "))
	}
	return w.Flush()
}

func (cli *commandLine) passwd(ctx context.Context, sess session.Session) error {
	old, err := cli.prompt("Current password")
	if err != nil {
		return err
	}
	pwd, err := cli.prompt("New password")
	if err != nil {
		return err
	}
	confirm, err := cli.prompt("Confirm new password")
	if err != nil {
		return err
	}

	form := user.ChangePassword{
		OldPassword:     old,
		Password:        pwd,
		PasswordConfirm: confirm,
		Name:            sess.User.Name,
		Email:           sess.User.Email,
	}
	if err = form.Validate(cli.validate); err != nil {
		return err
	}
	if err = cli.client.ChangePassword(ctx, form.OldPassword, form.Password, form.PasswordConfirm); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Password has been changed.")
	return nil
}
