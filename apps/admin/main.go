package main

import (
	"fmt"
	"os"

	"github.com/vidhyasetu/backend/core"
	logsvc "github.com/vidhyasetu/backend/services/logger"
	"github.com/vidhyasetu/backend/storage/database"
	sqlxrepo "github.com/vidhyasetu/backend/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	z, err := logsvc.NewZap(conf.LogLevel, conf.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewZapLogger(z.Named("admin"))
	defer func() { _ = logger.Sync() }()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepo.NewUserRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
