package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/session"
	"github.com/rainbowkidsrealm/jaja2-sub000/services/gateway"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotLoggedIn = errors.New("not logged in: run `portal login -email EMAIL` first")
	errForbidden   = errors.New("permission denied")
)

type commandLine struct {
	conf       *core.Config
	logger     core.Logger
	store      *session.Store
	client     *gateway.Client
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
	now        func() time.Time
}

var usage = []struct{ cmd, help string }{
	{"login -email EMAIL", "log in; the password is prompted next"},
	{"logout", "log out and forget the saved session"},
	{"whoami", "show the logged in user"},
	{"refresh", "renew the access token of the saved session"},
	{"nav", "list the screens and actions available to your role"},
	{"list RESOURCE [-search S] [-ordering F] [-match FIELD=VALUE] [-strict] [-json]", "list students, teachers, parents, classes, subjects, marks, attendance, homework or messages"},
	{"report [-strict]", "show the dashboard statistics"},
	{"add-mark -student ID -subject ID -class ID -exam TYPE -obtained N -total N [-date YYYY-MM-DD] [-remarks R]", "record a mark"},
	{"mark-attendance -student ID -class ID -section ID -status present|absent|late [-date YYYY-MM-DD] [-remarks R]", "record attendance"},
	{"send-message -to USER_ID -subject S -body B", "send a message"},
	{"passwd", "change your password; passwords are prompted"},
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	for _, u := range usage {
		fmt.Fprintf(cli.out, "  portal %s\n      %s\n", u.cmd, u.help)
	}
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "login":
		return cli.login(ctx, args[2:])
	case "logout":
		return cli.logout()
	}

	sess := cli.store.Rehydrate()
	if !sess.Authenticated {
		return errNotLoggedIn
	}

	switch args[1] {
	case "whoami":
		return cli.whoami(sess)
	case "refresh":
		return cli.refresh(ctx)
	case "nav":
		return cli.nav(sess)
	case "list":
		return cli.list(ctx, sess, args[2:])
	case "report":
		return cli.report(ctx, sess, args[2:])
	case "add-mark":
		return cli.addMark(ctx, sess, args[2:])
	case "mark-attendance":
		return cli.markAttendance(ctx, sess, args[2:])
	case "send-message":
		return cli.sendMessage(ctx, sess, args[2:])
	case "passwd":
		return cli.passwd(ctx, sess)
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

// parse parses the flags; asking for help is reported as errHelp.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

// prompt reads a secret from the terminal without echoing it.
func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprintf(cli.out, "%s:", label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", pkgerrors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}

// describe renders an error for the terminal, one line per invalid field.
func (cli *commandLine) describe(err error) string {
	if fldErrs := core.FieldErrors(err, cli.translator); len(fldErrs) > 0 {
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

	var gErr *gateway.Error
	if pkgerrors.As(err, &gErr) && len(gErr.Fields) > 0 {
		fields := make([]string, 0, len(gErr.Fields))
		for f := range gErr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		var b strings.Builder
		b.WriteString("rejected by the server:")
		for _, f := range fields {
			fmt.Fprintf(&b, "\n  %s: %s", f, gErr.Fields[f])
		}
		return b.String()
	}
	return err.Error()
}
