package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/forma/apps/api/echo"
	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/content"
	"github.com/trezcool/forma/core/emailtmpl"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/core/tracking"
	"github.com/trezcool/forma/core/training"
	"github.com/trezcool/forma/core/user"
	emailsvc "github.com/trezcool/forma/services/email"
	logsvc "github.com/trezcool/forma/services/logger"
	videosvc "github.com/trezcool/forma/services/video"
	"github.com/trezcool/forma/storage/database"
	inmemdb "github.com/trezcool/forma/storage/database/inmem"
	sqlxrepos "github.com/trezcool/forma/storage/database/sqlx"
)

// set with -ldflags "-X main.build=..."
var build = "develop"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type repositories struct {
	tx          core.Transactor
	users       user.Repository
	memberships membership.Repository
	training    training.Repository
	nutrition   nutrition.Repository
	content     content.Repository
	templates   emailtmpl.Repository
	tracking    tracking.Repository
	close       func() error
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig(build)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		return errors.Wrap(err, "building logger")
	}
	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewZapLogger(zl.Named("API"))
	} else {
		rl := logsvc.NewRollbarLogger(zl.Named("API"), conf)
		rl.Enable(conf.RollbarToken != "")
		defer rl.Close()
		logger = rl
	}

	repos, err := setUpRepositories(conf, zl.Named("DB"))
	if err != nil {
		return errors.Wrap(err, "setting up database")
	}
	defer func() {
		if err := repos.close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridAPIKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	tmplSvc := emailtmpl.NewService(repos.templates, conf)
	usrSvc := user.NewService(repos.users, mailSvc, tmplSvc, conf, logger)
	mbrSvc := membership.NewService(repos.memberships, repos.tx, usrSvc, mailSvc, tmplSvc, logger)
	nutSvc := nutrition.NewService(repos.nutrition, repos.tx)
	trackSvc := tracking.NewService(tracking.Deps{
		Repo:          repos.tracking,
		Tx:            repos.tx,
		Users:         usrSvc,
		Ingredients:   nutSvc,
		Subscriptions: mbrSvc,
		MailSvc:       mailSvc,
		Composer:      tmplSvc,
		Logger:        logger,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		MembershipSvc: mbrSvc,
		TrainingSvc:   training.NewService(repos.training, repos.tx),
		NutritionSvc:  nutSvc,
		ContentSvc:    content.NewService(repos.content, repos.tx, videosvc.NewBunnySigner(conf)),
		TemplateSvc:   tmplSvc,
		TrackingSvc:   trackSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		return errors.Wrap(err, "server error")

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err := server.Close(); err != nil {
				return errors.Wrap(err, "could not force stop server")
			}
		}
	}
	return nil
}

// setUpRepositories opens postgres, creating and migrating the database if needed.
// The "memory" engine keeps everything in process, for demos and local development.
func setUpRepositories(conf *core.Config, dbLog *zap.Logger) (*repositories, error) {
	if conf.Database.Engine == "memory" {
		dbLog.Warn("using the in-memory store: data is lost on exit")
		db := inmemdb.Open()
		return &repositories{
			tx:          db,
			users:       inmemdb.NewUserRepository(db),
			memberships: inmemdb.NewMembershipRepository(db),
			training:    inmemdb.NewTrainingRepository(db),
			nutrition:   inmemdb.NewNutritionRepository(db),
			content:     inmemdb.NewContentRepository(db),
			templates:   inmemdb.NewEmailTemplateRepository(db),
			tracking:    inmemdb.NewTrackingRepository(db),
			close:       func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	dbLog.Info("database ready", zap.String("host", conf.Database.Address()), zap.String("name", conf.Database.Name))

	return &repositories{
		tx:          database.NewTransactor(db),
		users:       sqlxrepos.NewUserRepository(db),
		memberships: sqlxrepos.NewMembershipRepository(db),
		training:    sqlxrepos.NewTrainingRepository(db),
		nutrition:   sqlxrepos.NewNutritionRepository(db),
		content:     sqlxrepos.NewContentRepository(db),
		templates:   sqlxrepos.NewEmailTemplateRepository(db),
		tracking:    sqlxrepos.NewTrackingRepository(db),
		close:       db.Close,
	}, nil
}
