//go:build integration

// Package pgtest runs a disposable PostgreSQL container for the repository tests.
package pgtest

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vidhyasetu/backend/storage/database"
	sqlxrepos "github.com/vidhyasetu/backend/storage/database/sqlx"
	testutil "github.com/vidhyasetu/backend/tests"
)

type Handle struct {
	DB   *sqlx.DB
	stop func(context.Context) error
}

func (h *Handle) Close() {
	if h.DB != nil {
		_ = h.DB.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
}

// Start runs the container and applies the migrations.
func Start(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("vidhya"),
		postgres.WithUsername("vidhya"),
		postgres.WithPassword("vidhya"),
		tc.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "starting postgres container")
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, errors.Wrap(err, "postgres connection string")
	}
	db, err := database.OpenURL("pgx", uri)
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		_ = pg.Terminate(ctx)
		return nil, err
	}
	return &Handle{DB: db, stop: pg.Terminate}, nil
}

// Reset empties every table.
func Reset(t testing.TB, db *sqlx.DB) {
	t.Helper()

	const q = `TRUNCATE "user", attendance, subject, mark, fee_structure, student_fee, notice, homework
		RESTART IDENTITY CASCADE`
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
}

func Stores(db *sqlx.DB) testutil.Stores {
	return testutil.Stores{
		Tx:         database.NewTransactor(db),
		Users:      sqlxrepos.NewUserRepository(db),
		Attendance: sqlxrepos.NewAttendanceRepository(db),
		Marks:      sqlxrepos.NewMarksRepository(db),
		Fees:       sqlxrepos.NewFeesRepository(db),
		Notices:    sqlxrepos.NewNoticeRepository(db),
		Homework:   sqlxrepos.NewHomeworkRepository(db),
	}
}

// NewEnv empties the database and wires the services on it.
func NewEnv(t testing.TB, db *sqlx.DB) *testutil.Env {
	t.Helper()
	Reset(t, db)
	return testutil.NewEnvWith(t, Stores(db))
}
