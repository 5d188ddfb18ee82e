package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/rs/cors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/attendance"
	"github.com/vidhyasetu/backend/core/dashboard"
	"github.com/vidhyasetu/backend/core/fees"
	"github.com/vidhyasetu/backend/core/homework"
	"github.com/vidhyasetu/backend/core/marks"
	"github.com/vidhyasetu/backend/core/notice"
	"github.com/vidhyasetu/backend/core/user"
	"github.com/vidhyasetu/backend/services/metrics"
)

// Deps holds the services the handlers call into.
type Deps struct {
	Validate   *validator.Validate
	Translator ut.Translator
	Metrics    *metrics.Metrics

	UserSvc       user.Service
	AttendanceSvc attendance.Service
	MarksSvc      marks.Service
	FeesSvc       fees.Service
	NoticeSvc     notice.Service
	HomeworkSvc   homework.Service
	Dashboard     *dashboard.Service
}

type Server struct {
	conf     *core.Config
	logger   core.Logger
	deps     *Deps
	app      *echo.Echo
	server   *http.Server
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(conf *core.Config, logger core.Logger, deps *Deps) *Server {
	s := &Server{
		conf:     conf,
		logger:   logger,
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()

	s.server = &http.Server{
		Addr: conf.Server.Address,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   conf.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{echo.HeaderAuthorization, echo.HeaderContentType},
			ExposedHeaders:   []string{echo.HeaderContentDisposition},
			AllowCredentials: true,
		}).Handler(s.app),
	}
	return s
}

func (s *Server) setup() {
	debug := s.conf.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.deps.Metrics.Middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", s.home)
	s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))

	v1 := s.app.Group("/v1")
	jwt := echojwt.WithConfig(jwtConfig(s.conf))
	authed := []echo.MiddlewareFunc{jwt, passwordChangedMiddleware(s.deps.UserSvc)}

	registerUserAPI(v1, jwt, authed, s.conf, s.deps)
	registerStudentAPI(v1, authed, s.logger, s.deps)
	registerTeacherAPI(v1, authed, s.deps)
	registerAttendanceAPI(v1, authed, s)
	registerMarksAPI(v1, authed, s.deps)
	registerFeesAPI(v1, authed, s)
	registerNoticeAPI(v1, authed, s.deps)
	registerHomeworkAPI(v1, authed, s.deps)
	registerDashboardAPI(v1, authed, s.deps)
}

// Start blocks until the server stops; failures are sent on Errors.
func (s *Server) Start() {
	s.logger.Info("API listening on " + s.conf.Server.Address)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.server.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.server.Handler.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
