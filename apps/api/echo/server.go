package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/announcement"
	"github.com/trezcool/parokia/core/digest"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/request"
	"github.com/trezcool/parokia/core/task"
	"github.com/trezcool/parokia/core/user"
	"github.com/trezcool/parokia/core/week"
	"github.com/trezcool/parokia/services/metrics"
)

type ServerDeps struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	UserSvc         *user.Service
	ParishSvc       *parish.Service
	WeekSvc         *week.Service
	TaskSvc         *task.Service
	EventSvc        *event.Service
	AnnouncementSvc *announcement.Service
	RequestSvc      *request.Service
	DigestSvc       *digest.Service
}

type Server struct {
	deps     ServerDeps
	app      *echo.Echo
	auth     *jwtAuth
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newJWTAuth(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metrics.Middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.auth, s.SignalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)
	s.app.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	v1 := s.app.Group("/v1")
	jwt := s.auth.middleware()
	limiter := newIPRateLimiter(conf.Server.LoginRateLimit, conf.Server.LoginRateBurst)

	registerUserAPI(v1, jwt, limiter.middleware(), s.auth, s.deps.UserSvc, s.deps.Validate)

	pg := v1.Group("/parishes/:parishID", jwt, s.parishMiddleware())
	registerWeekAPI(pg, s.deps.WeekSvc, s.deps.ParishSvc, s.deps.DigestSvc)
	registerEventAPI(pg, s.deps.EventSvc, s.deps.ParishSvc, s.deps.Validate)
	registerTaskAPI(pg, s.deps.TaskSvc, s.deps.Validate)
	registerAnnouncementAPI(pg, s.deps.AnnouncementSvc, s.deps.Validate)
	registerRequestAPI(pg, s.deps.RequestSvc, s.deps.Validate)
	registerDigestAPI(pg, s.deps.DigestSvc, s.deps.ParishSvc, s.deps.Validate)
}

// Start blocks until the server stops. Listen errors are sent to Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the owner of the server to shut it down.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
