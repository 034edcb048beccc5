// Command api is the reference school API the portal talks to.
// It keeps its records in memory, seeded from the embedded fixtures.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	echoapi "github.com/rainbowkidsrealm/jaja2-sub000/apps/api/echo"
	"github.com/rainbowkidsrealm/jaja2-sub000/assets"
	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/registry"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
	emailsvc "github.com/rainbowkidsrealm/jaja2-sub000/services/email"
	logsvc "github.com/rainbowkidsrealm/jaja2-sub000/services/logger"
	inmemdb "github.com/rainbowkidsrealm/jaja2-sub000/storage/database/inmem"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db := inmemdb.Open()
	if err := db.Seed(assets.Fixtures(conf.FixturesDir)); err != nil {
		logger.Fatal(fmt.Sprintf("seeding database: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, os.Stdout, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(inmemdb.NewUserRepository(db))
	regSvc := registry.NewService(inmemdb.NewRecordRepository(db), usrSvc, mailSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf, logger)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		UserSvc:     usrSvc,
		RegistrySvc: regSvc,
		Validate:    validate,
		Translator:  translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
