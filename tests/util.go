// Package testutil wires the services on the in-memory store and creates fixtures for tests.
package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/content"
	"github.com/trezcool/forma/core/emailtmpl"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/core/tracking"
	"github.com/trezcool/forma/core/training"
	"github.com/trezcool/forma/core/user"
	"github.com/trezcool/forma/services/email"
	"github.com/trezcool/forma/services/logger"
	"github.com/trezcool/forma/services/video"
	"github.com/trezcool/forma/storage/database/inmem"
)

func Config() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		Debug:                     true,
		TestMode:                  true,
		AppName:                   "Forma",
		SecretKey:                 "test-secret",
		DefaultFromEmail:          mail.Address{Name: "Forma", Address: "noreply@forma.test"},
		FrontendBaseURL:           "https://forma.test",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Bunny: core.BunnyConfig{
			LibraryID: "4242",
			TokenKey:  "bunny-key",
			URLTTL:    time.Hour,
		},
	}
}

func Logger() core.Logger {
	return logsvc.NewZapLogger(zap.NewNop())
}

// App holds every service wired on a fresh in-memory store.
type App struct {
	Conf   *core.Config
	DB     *inmemdb.DB
	Mail   *emailsvc.ConsoleServiceMock
	Logger core.Logger

	UserRepo       user.Repository
	MembershipRepo membership.Repository
	TrainingRepo   training.Repository
	NutritionRepo  nutrition.Repository
	ContentRepo    content.Repository
	TemplateRepo   emailtmpl.Repository
	TrackingRepo   tracking.Repository

	UserSvc       user.Service
	MembershipSvc membership.Service
	TrainingSvc   training.Service
	NutritionSvc  nutrition.Service
	ContentSvc    content.Service
	TemplateSvc   emailtmpl.Service
	TrackingSvc   tracking.Service
}

func NewApp() *App {
	conf := Config()
	lg := Logger()
	db := inmemdb.Open()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, lg)

	app := &App{
		Conf:           conf,
		DB:             db,
		Mail:           mailSvc,
		Logger:         lg,
		UserRepo:       inmemdb.NewUserRepository(db),
		MembershipRepo: inmemdb.NewMembershipRepository(db),
		TrainingRepo:   inmemdb.NewTrainingRepository(db),
		NutritionRepo:  inmemdb.NewNutritionRepository(db),
		ContentRepo:    inmemdb.NewContentRepository(db),
		TemplateRepo:   inmemdb.NewEmailTemplateRepository(db),
		TrackingRepo:   inmemdb.NewTrackingRepository(db),
	}

	app.TemplateSvc = emailtmpl.NewService(app.TemplateRepo, conf)
	app.UserSvc = user.NewService(app.UserRepo, mailSvc, app.TemplateSvc, conf, lg)
	app.MembershipSvc = membership.NewService(app.MembershipRepo, db, app.UserSvc, mailSvc, app.TemplateSvc, lg)
	app.TrainingSvc = training.NewService(app.TrainingRepo, db)
	app.NutritionSvc = nutrition.NewService(app.NutritionRepo, db)
	app.ContentSvc = content.NewService(app.ContentRepo, db, videosvc.NewBunnySigner(conf))
	app.TrackingSvc = tracking.NewService(tracking.Deps{
		Repo:          app.TrackingRepo,
		Tx:            db,
		Users:         app.UserSvc,
		Ingredients:   app.NutritionSvc,
		Subscriptions: app.MembershipSvc,
		MailSvc:       mailSvc,
		Composer:      app.TemplateSvc,
		Logger:        lg,
	})
	return app
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateMembership(t *testing.T, svc membership.Service, name string, priceCents int64, days int) membership.Membership {
	m, err := svc.Create(context.Background(), membership.NewMembership{
		Name:         name,
		PriceCents:   priceCents,
		DurationDays: days,
		IsActive:     core.BoolPtr(true),
	})
	if err != nil {
		t.Fatalf("CreateMembership() failed: %v", err)
	}
	return m
}

func CreateExercise(t *testing.T, svc training.Service, name, muscleGroup string) training.Exercise {
	e, err := svc.CreateExercise(context.Background(), training.NewExercise{Name: name, MuscleGroup: muscleGroup})
	if err != nil {
		t.Fatalf("CreateExercise() failed: %v", err)
	}
	return e
}

func CreateIngredient(t *testing.T, svc nutrition.Service, name string, per100g nutrition.Macros) nutrition.Ingredient {
	i, err := svc.CreateIngredient(context.Background(), nutrition.NewIngredient{Name: name, Per100g: per100g})
	if err != nil {
		t.Fatalf("CreateIngredient() failed: %v", err)
	}
	return i
}

// ErrorFields returns the names of the fields err reports as invalid, or nil when err is no validation error.
func ErrorFields(err error) []string {
	var fields []string
	var vErrs validator.ValidationErrors
	var verr *core.ValidationError
	switch {
	case errors.As(err, &vErrs):
		for _, fe := range vErrs {
			fields = append(fields, fe.Field())
		}
	case errors.As(err, &verr):
		for _, fe := range verr.Fields {
			fields = append(fields, fe.Field)
		}
	}
	return fields
}
