// Package logsvc provides the core.Logger implementations: plain zap output, optionally reporting
// to Rollbar or Sentry.
package logsvc

import (
	"go.uber.org/zap"

	"github.com/vidhyasetu/backend/core"
)

// New picks the error reporter from conf: Sentry when a DSN is set, then Rollbar, else none.
func New(conf *core.Config, z *zap.Logger) (core.Logger, error) {
	out := ZapLogger{z: z}
	switch {
	case conf.TestMode:
		return out, nil
	case conf.SentryDSN != "":
		return NewSentryLogger(out, conf)
	case conf.RollbarToken != "":
		l := NewRollbarLogger(out, conf)
		l.Enable(true)
		return l, nil
	}
	return out, nil
}
