// Command admin maintains the seed data of the reference API.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
	logsvc "github.com/rainbowkidsrealm/jaja2-sub000/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:       conf,
		logger:     logger,
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("admin %v failed", os.Args[1:]), err)
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", cli.describe(err))
		}
		os.Exit(1)
	}
}
