package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	dig_container "github.com/vidhyasetu/backend/apps/api/di/dig"
	echoapi "github.com/vidhyasetu/backend/apps/api/echo"
	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/user"
)

type flusher interface {
	Flush()
}

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		z *zap.Logger,
		logger core.Logger,
		db *sqlx.DB,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		core.ParseEmailTemplates(conf, logger)
		user.LoadCommonPasswords(logger)

		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database", err)
			}
		}()
		defer func() {
			logger.Info("Application stopped")
			if f, ok := logger.(flusher); ok {
				f.Flush()
			}
			_ = z.Sync()
		}()

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start API Service

		go server.Start()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			logger.Error(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "starting API").Error())
	}
}
