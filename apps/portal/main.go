// Command portal is the terminal client of the school portal.
// It keeps the session in a file between runs and talks to the API over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/session"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
	"github.com/rainbowkidsrealm/jaja2-sub000/services/gateway"
	logsvc "github.com/rainbowkidsrealm/jaja2-sub000/services/logger"
	"github.com/rainbowkidsrealm/jaja2-sub000/storage/keystore"
)

func main() {
	conf := core.NewConfig()

	// logs go to stderr, the output of the commands to stdout
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "PORTAL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := newCommandLine(conf, logger, keystore.NewFileStore(conf.Client.SessionFile), os.Stdout)
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "error: %s\n", cli.describe(err))
		}
		stop()
		os.Exit(1)
	}
}

// newCommandLine wires the session store and the API client around storage.
func newCommandLine(conf *core.Config, logger core.Logger, storage session.Storage, out io.Writer) *commandLine {
	client := gateway.NewClient(conf.Client.APIBaseURL, conf.Client.RequestTimeout, nil)
	store := session.NewStore(storage, client, logger)
	client.SetTokenSource(store)

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	return &commandLine{
		conf:       conf,
		logger:     logger,
		store:      store,
		client:     client,
		validate:   validate,
		translator: translator,
		out:        out,
		now:        time.Now,
	}
}
