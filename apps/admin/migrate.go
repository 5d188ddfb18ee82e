package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	appfs "github.com/vidhyasetu/backend/fs"
)

var gooseRunFunc = func(ctx context.Context, command string, db *sqlx.DB, dir string, args ...string) error { // mockable
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, db.DB, dir, args...)
}

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(context.Background(), args[0], cli.db, "migrations", args[1:]...)
}
