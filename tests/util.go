// Package testutil wires the services on the in-memory store and seeds records for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

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
	inmemdb "github.com/vidhyasetu/backend/storage/database/inmem"
)

// Stores are the repositories the services run on.
type Stores struct {
	Tx         core.Transactor
	Users      user.Repository
	Attendance attendance.Repository
	Marks      marks.Repository
	Fees       fees.Repository
	Notices    notice.Repository
	Homework   homework.Repository
}

// InMemStores returns stores over a fresh in-memory database.
func InMemStores() Stores {
	db := inmemdb.New()
	return Stores{
		Tx:         db,
		Users:      inmemdb.NewUserRepository(db),
		Attendance: inmemdb.NewAttendanceRepository(db),
		Marks:      inmemdb.NewMarksRepository(db),
		Fees:       inmemdb.NewFeesRepository(db),
		Notices:    inmemdb.NewNoticeRepository(db),
		Homework:   inmemdb.NewHomeworkRepository(db),
	}
}

// Env holds every service of the app.
type Env struct {
	Conf       *core.Config
	Tx         core.Transactor
	Logger     core.Logger
	Mail       *emailsvc.ConsoleServiceMock
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo user.Repository
	FeesRepo fees.Repository

	Users      user.Service
	Attendance attendance.Service
	Marks      marks.Service
	Fees       fees.Service
	Notices    notice.Service
	Homework   homework.Service
	Dashboard  *dashboard.Service
}

// NewEnv wires the services over a fresh in-memory database.
func NewEnv(t testing.TB) *Env {
	t.Helper()
	return NewEnvWith(t, InMemStores())
}

func NewEnvWith(t testing.TB, stores Stores) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	env := &Env{
		Conf:       conf,
		Tx:         stores.Tx,
		Logger:     logger,
		Mail:       mailSvc,
		Validate:   validate,
		Translator: translator,
		UserRepo:   stores.Users,
		FeesRepo:   stores.Fees,
	}
	env.Users = user.NewService(conf, env.UserRepo, stores.Tx, mailSvc, logger)
	env.Attendance = attendance.NewService(conf, stores.Attendance, env.Users, logger)
	env.Marks = marks.NewService(stores.Marks, env.Users, validate, logger)
	env.Fees = fees.NewService(conf, env.FeesRepo, stores.Tx, env.Users, validate, logger)
	env.Notices = notice.NewService(stores.Notices, env.Users, mailSvc, validate, logger)
	env.Homework = homework.NewService(stores.Homework, env.Users, validate)
	env.Dashboard = &dashboard.Service{
		Users:      env.Users,
		Attendance: env.Attendance,
		Marks:      env.Marks,
		Fees:       env.Fees,
		Notices:    env.Notices,
		Homework:   env.Homework,
	}
	return env
}

// CreateUser stores an identity directly, bypassing validation.
func CreateUser(t testing.TB, repo user.Repository, role user.Role, uname, email, pwd string, isActive bool, createdAt ...time.Time) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		FirstName: uname,
		Username:  uname,
		Email:     email,
		Role:      role,
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

func CreateAdmin(t testing.TB, repo user.Repository, uname string) user.User {
	return CreateUser(t, repo, user.RoleAdmin, uname, uname+"@school.test", "Adm1n!pass", true)
}

// CreateTeacher stores a teacher assigned to class and section (empty for none).
func CreateTeacher(t testing.TB, repo user.Repository, uname, class, section string) user.User {
	t.Helper()

	usr := CreateUser(t, repo, user.RoleTeacher, uname, uname+"@school.test", "Te@cher123", true)
	err := repo.CreateTeacherProfile(context.Background(), user.TeacherProfile{
		UserID:          usr.ID,
		Designation:     "TGT",
		AssignedClass:   class,
		AssignedSection: section,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return usr
}

// RegisterStudent goes through the registration workflow as admin.
func RegisterStudent(t testing.TB, env *Env, admin user.User, first, last, dob, class, section string) user.Student {
	t.Helper()

	reg, err := env.Users.RegisterStudent(context.Background(), admin, user.NewStudent{
		FirstName:   first,
		LastName:    last,
		FatherName:  "Father " + last,
		MotherName:  "Mother " + last,
		Phone:       "9876543210",
		Address:     "1 School Road",
		DateOfBirth: dob,
		Class:       class,
		Section:     section,
	})
	if err != nil {
		t.Fatalf("RegisterStudent() failed: %v", err)
	}
	return reg.Student
}

func CreateStructure(t testing.TB, repo fees.Repository, class, month, amount string) fees.Structure {
	t.Helper()

	s, err := repo.CreateStructure(context.Background(), fees.Structure{
		Class:  class,
		Month:  month,
		Amount: decimal.RequireFromString(amount),
	})
	if err != nil {
		t.Fatalf("CreateStructure() failed: %v", err)
	}
	return s
}

func Date(s string) time.Time {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
