package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/content"
	"github.com/trezcool/forma/core/emailtmpl"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/core/tracking"
	"github.com/trezcool/forma/core/training"
	"github.com/trezcool/forma/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		UserSvc       user.Service
		MembershipSvc membership.Service
		TrainingSvc   training.Service
		NutritionSvc  nutrition.Service
		ContentSvc    content.Service
		TemplateSvc   emailtmpl.Service
		TrackingSvc   tracking.Service
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *Auth
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		auth:     NewAuth(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := s.auth.Middleware()
	admin := v1.Group("/admin", jwt, activeUserMiddleware(s.deps.UserSvc), adminMiddleware())
	me := v1.Group("/me", jwt, activeUserMiddleware(s.deps.UserSvc))
	cnt := v1.Group("/content", jwt, activeUserMiddleware(s.deps.UserSvc))

	registerUserAPI(v1, jwt, s.auth, s.deps.UserSvc, s.deps.Logger)
	registerMembershipAPI(admin, s.deps.MembershipSvc)
	registerTrainingAPI(admin, s.deps.TrainingSvc)
	registerNutritionAPI(admin, s.deps.NutritionSvc)
	registerContentAPI(admin, s.deps.ContentSvc)
	registerTemplateAPI(admin, s.deps.TemplateSvc)
	registerTrackingAPI(admin, me, s.deps.TrackingSvc, s.deps.MembershipSvc)
	registerMemberContentAPI(cnt, contentDeps{
		training:    s.deps.TrainingSvc,
		nutrition:   s.deps.NutritionSvc,
		content:     s.deps.ContentSvc,
		memberships: s.deps.MembershipSvc,
	})
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
