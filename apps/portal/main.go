// Command portal is the terminal client of the school portal: it signs in
// against the identity backend (or the demo directory), keeps the session
// across runs and drives the fee checkout flow.
package main

import (
	"log"
	"os"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/payment"
	"github.com/trezcool/shule/core/session"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
	"github.com/trezcool/shule/storage/localfs"
)

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "PORTAL : ", log.LstdFlags),
		conf,
	)
	logger.Enable(!conf.Debug)

	// the remote backend owns session persistence when configured; the local
	// snapshot only serves mock mode
	var snaps session.Snapshots = localfs.NewSnapshotFile(conf.Session.SnapshotPath)
	if conf.IdentityConfigured() {
		snaps = session.NoSnapshots{}
	}
	store := session.NewStore(snaps, logger)
	adapter := auth.NewAdapter(auth.NewAuthenticator(conf, logger), store, logger)

	mailSvc := emailsvc.NewConsoleService(conf, logger)
	paySvc, err := setUpPayments(conf, mailSvc, logger)
	if err != nil {
		logger.Fatal("setting up payments", err)
	}

	core.ParseEmailTemplates(logger)

	cli := commandLine{
		conf:    conf,
		logger:  logger,
		adapter: adapter,
		paySvc:  paySvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		os.Exit(1)
	}
}

// setUpPayments wires the payment service: PostgreSQL repositories and the
// hosted gateway when configured, seeded in-memory ones and the sandbox stub
// otherwise (demo mode).
func setUpPayments(conf *core.Config, mailSvc core.EmailService, logger core.Logger) (*payment.Service, error) {
	var plans payment.PlanRepository
	var recs payment.RecordRepository
	var usrRepo user.Repository

	if conf.Database.User == "" {
		db, err := dummydb.Open()
		if err != nil {
			return nil, err
		}
		dummydb.SeedDemoUsers(db)
		dummydb.SeedDemoPlans(db)
		plans = dummydb.NewPlanRepository(db)
		recs = dummydb.NewRecordRepository(db)
		usrRepo = dummydb.NewUserRepository(db)
	} else {
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		plans = sqlxrepos.NewPlanRepository(db)
		recs = sqlxrepos.NewRecordRepository(db)
		usrRepo = sqlxrepos.NewUserRepository(db)
	}

	var gw payment.Gateway
	if conf.GatewayConfigured() {
		gw = payment.NewHTTPGateway(conf)
	} else {
		gw = &payment.StubGateway{}
	}

	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	return payment.NewService(plans, recs, gw, mailSvc, conf).WithUserLookup(usrSvc), nil
}
