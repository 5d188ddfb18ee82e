package logsvc

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/user"
)

// SentryLogger reports warnings and errors to Sentry. Debug and info are only written out.
type SentryLogger struct {
	out ZapLogger
	hub *sentry.Hub
}

var _ core.Logger = (*SentryLogger)(nil)

func NewSentryLogger(out ZapLogger, conf *core.Config) (*SentryLogger, error) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         conf.SentryDSN,
		Environment: conf.Env,
		Release:     conf.Build,
		ServerName:  conf.Server.Host,
	}); err != nil {
		return nil, errors.Wrap(err, "initializing sentry")
	}
	return &SentryLogger{out: out, hub: sentry.CurrentHub()}, nil
}

func (l SentryLogger) Flush() {
	l.hub.Flush(2 * time.Second)
}

func (l SentryLogger) capture(level sentry.Level, msg string, args []interface{}) {
	l.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		var captured bool
		for _, arg := range args {
			switch v := arg.(type) {
			case user.User:
				scope.SetUser(sentry.User{ID: v.ID, Username: v.Username, Email: v.Email})
			case map[string]interface{}:
				scope.SetContext("extra", v)
			case error:
				if !captured {
					scope.SetTag("message", msg)
					l.hub.CaptureException(v)
					captured = true
				}
			}
		}
		if !captured {
			l.hub.CaptureMessage(msg)
		}
	})
}

func (l SentryLogger) Debug(msg string, args ...interface{}) { l.out.Debug(msg, args...) }
func (l SentryLogger) Info(msg string, args ...interface{})  { l.out.Info(msg, args...) }

func (l SentryLogger) Warn(msg string, args ...interface{}) {
	l.capture(sentry.LevelWarning, msg, args)
	l.out.Warn(msg, args...)
}

func (l SentryLogger) Error(msg string, args ...interface{}) {
	l.capture(sentry.LevelError, msg, args)
	l.out.Error(msg, args...)
}

func (l SentryLogger) Fatal(msg string, args ...interface{}) {
	l.capture(sentry.LevelFatal, msg, args)
	l.Flush()
	l.out.Fatal(msg, args...)
}
