package dig_container

import (
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/vidhyasetu/backend/apps/api/echo"
	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/attendance"
	"github.com/vidhyasetu/backend/core/dashboard"
	"github.com/vidhyasetu/backend/core/fees"
	"github.com/vidhyasetu/backend/core/homework"
	"github.com/vidhyasetu/backend/core/marks"
	"github.com/vidhyasetu/backend/core/notice"
	"github.com/vidhyasetu/backend/core/user"
	emailsvc "github.com/vidhyasetu/backend/services/email"
	logsvc "github.com/vidhyasetu/backend/services/logger"
	"github.com/vidhyasetu/backend/services/metrics"
	"github.com/vidhyasetu/backend/storage/database"
	sqlxrepo "github.com/vidhyasetu/backend/storage/database/sqlx"
)

func newZap(conf *core.Config) (*zap.Logger, error) {
	return logsvc.NewZap(conf.LogLevel, conf.Env)
}

func newDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	return db, nil
}

func newTransactor(db *sqlx.DB) core.Transactor {
	return database.NewTransactor(db)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

type ServiceParams struct {
	dig.In

	Users      user.Service
	Attendance attendance.Service
	Marks      marks.Service
	Fees       fees.Service
	Notices    notice.Service
	Homework   homework.Service
}

func newDashboard(p ServiceParams) *dashboard.Service {
	return &dashboard.Service{
		Users:      p.Users,
		Attendance: p.Attendance,
		Marks:      p.Marks,
		Fees:       p.Fees,
		Notices:    p.Notices,
		Homework:   p.Homework,
	}
}

type APIParams struct {
	dig.In
	ServiceParams

	Validate   *validator.Validate
	Translator ut.Translator
	Metrics    *metrics.Metrics
	Dashboard  *dashboard.Service
}

func newDeps(p APIParams) *echoapi.Deps {
	return &echoapi.Deps{
		Validate:      p.Validate,
		Translator:    p.Translator,
		Metrics:       p.Metrics,
		UserSvc:       p.Users,
		AttendanceSvc: p.Attendance,
		MarksSvc:      p.Marks,
		FeesSvc:       p.Fees,
		NoticeSvc:     p.Notices,
		HomeworkSvc:   p.Homework,
		Dashboard:     p.Dashboard,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	// ambient
	must(c.Provide(core.NewConfig))
	must(c.Provide(newZap))
	must(c.Provide(logsvc.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(emailsvc.New))
	must(c.Provide(metrics.New))

	// storage
	must(c.Provide(newDB))
	must(c.Provide(newTransactor))
	must(c.Provide(sqlxrepo.NewUserRepository))
	must(c.Provide(sqlxrepo.NewAttendanceRepository))
	must(c.Provide(sqlxrepo.NewMarksRepository))
	must(c.Provide(sqlxrepo.NewFeesRepository))
	must(c.Provide(sqlxrepo.NewNoticeRepository))
	must(c.Provide(sqlxrepo.NewHomeworkRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(marks.NewService))
	must(c.Provide(fees.NewService))
	must(c.Provide(notice.NewService))
	must(c.Provide(homework.NewService))
	must(c.Provide(newDashboard))

	// API
	must(c.Provide(newDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
