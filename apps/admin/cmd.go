package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/rainbowkidsrealm/jaja2-sub000/assets"
	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	inmemdb "github.com/rainbowkidsrealm/jaja2-sub000/storage/database/inmem"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  checkfixtures [-dir DIR] [-strict] - report the seed records the portal cannot show")
	fmt.Fprintln(cli.out, "  adduser -dir DIR -name NAME -email EMAIL -role ROLE - add an account to DIR/users.json; the password is prompted next")
	fmt.Fprintln(cli.out, "  resetpassword -dir DIR -email EMAIL - reset the password of an account in DIR/users.json; the password is prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "checkfixtures":
		fs := cli.newFlagSet("checkfixtures")
		dir := fs.String("dir", cli.conf.FixturesDir, "The fixtures directory; the embedded fixtures when empty.")
		strict := fs.Bool("strict", false, "Fail when a record cannot be shown.")
		if err := parse(fs, args[2:]); err != nil {
			return err
		}
		return cli.checkFixtures(*dir, *strict)

	case "adduser":
		fs := cli.newFlagSet("adduser")
		dir := fs.String("dir", cli.conf.FixturesDir, "The fixtures directory holding users.json.")
		name := fs.String("name", "", "The user's full name.")
		email := fs.String("email", "", "The user's email.")
		role := fs.String("role", "", "admin, teacher or parent.")
		if err := parse(fs, args[2:]); err != nil {
			return err
		}
		if *dir == "" || *email == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.prompt("Enter password")
		if err != nil {
			return err
		}
		confirm, err := cli.prompt("Confirm password")
		if err != nil {
			return err
		}
		if pwd == "" {
			fs.Usage()
			return errHelp
		}
		return cli.addUser(*dir, *name, *email, *role, pwd, confirm)

	case "resetpassword":
		fs := cli.newFlagSet("resetpassword")
		dir := fs.String("dir", cli.conf.FixturesDir, "The fixtures directory holding users.json.")
		email := fs.String("email", "", "The user's email. The password will be prompted next.")
		if err := parse(fs, args[2:]); err != nil {
			return err
		}
		if *dir == "" || *email == "" {
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
		return cli.resetPassword(*dir, *email, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprintf(cli.out, "%s:", label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", pkgerrors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}

// openFixtures loads the fixtures of dir into a fresh database.
func openFixtures(dir string) (*inmemdb.DB, error) {
	db := inmemdb.Open()
	if err := db.Seed(assets.Fixtures(dir)); err != nil {
		return nil, pkgerrors.Wrap(err, "loading fixtures")
	}
	return db, nil
}

// saveUsers writes the accounts of db back to DIR/users.json.
func saveUsers(db *inmemdb.DB, dir string) error {
	data, err := db.UsersFixture()
	if err != nil {
		return err
	}
	return pkgerrors.Wrap(ioutil.WriteFile(filepath.Join(dir, "users.json"), data, 0o600), "saving users")
}

// describe renders an error for the terminal, one line per invalid field.
func (cli *commandLine) describe(err error) string {
	fldErrs := core.FieldErrors(err, cli.translator)
	if len(fldErrs) == 0 {
		return err.Error()
	}
	fields := make([]string, 0, len(fldErrs))
	for f := range fldErrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString("invalid input:")
	for _, f := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", f, fldErrs[f])
	}
	return b.String()
}
