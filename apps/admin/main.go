package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/emailtmpl"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/core/tracking"
	"github.com/trezcool/forma/core/user"
	emailsvc "github.com/trezcool/forma/services/email"
	logsvc "github.com/trezcool/forma/services/logger"
	"github.com/trezcool/forma/storage/database"
	sqlxrepos "github.com/trezcool/forma/storage/database/sqlx"
)

var build = "develop"

func main() {
	conf, err := core.NewConfig(build)
	if err != nil {
		zap.S().Fatal(err)
	}
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		zap.S().Fatal(err)
	}
	zl = zl.Named("ADMIN")
	logger := logsvc.NewZapLogger(zl)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		zl.Fatal("creating database", zap.Error(err))
	}
	db, err := database.Open(conf)
	if err != nil {
		zl.Fatal("opening database", zap.Error(err))
	}
	defer db.Close()

	// set up services
	tx := database.NewTransactor(db)
	mailSvc := emailsvc.NewConsoleService(conf, logger)
	tmplSvc := emailtmpl.NewService(sqlxrepos.NewEmailTemplateRepository(db), conf)
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, tmplSvc, conf, logger)

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: usrRepo,
		trackSvc: tracking.NewService(tracking.Deps{
			Repo:          sqlxrepos.NewTrackingRepository(db),
			Tx:            tx,
			Users:         usrSvc,
			Ingredients:   nutrition.NewService(sqlxrepos.NewNutritionRepository(db), tx),
			Subscriptions: membership.NewService(sqlxrepos.NewMembershipRepository(db), tx, usrSvc, mailSvc, tmplSvc, logger),
			MailSvc:       mailSvc,
			Composer:      tmplSvc,
			Logger:        logger,
		}),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			zl.Error("command failed", zap.Error(err))
		}
		_ = db.Close()
		os.Exit(1)
	}
}
