package logsvc

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/user"
)

// NewZap builds the process logger: JSON in PROD, console otherwise.
func NewZap(level, env string) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var cfg zap.Config
	if strings.ToUpper(env) == "PROD" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(zap.AddStacktrace(zap.ErrorLevel), zap.AddCallerSkip(1))
}

// ZapLogger only writes logs; nothing is reported to a third party.
type ZapLogger struct {
	z *zap.Logger
}

var _ core.Logger = (*ZapLogger)(nil)

func NewZapLogger(z *zap.Logger) *ZapLogger {
	return &ZapLogger{z: z}
}

// NewNopLogger discards everything.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{z: zap.NewNop()}
}

func (l ZapLogger) Debug(msg string, args ...interface{}) { l.z.Debug(msg, fields(args)...) }
func (l ZapLogger) Info(msg string, args ...interface{})  { l.z.Info(msg, fields(args)...) }
func (l ZapLogger) Warn(msg string, args ...interface{})  { l.z.Warn(msg, fields(args)...) }
func (l ZapLogger) Error(msg string, args ...interface{}) { l.z.Error(msg, fields(args)...) }
func (l ZapLogger) Fatal(msg string, args ...interface{}) { l.z.Fatal(msg, fields(args)...) }

func (l ZapLogger) Sync() error { return l.z.Sync() }

// fields turns logger args into zap fields.
// expected fmt: error, map[string]interface{}, user.User
func fields(args []interface{}) []zap.Field {
	fs := make([]zap.Field, 0, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case error:
			fs = append(fs, zap.Error(v))
		case user.User:
			fs = append(fs, zap.String("user_id", v.ID), zap.String("username", v.Username))
		case map[string]interface{}:
			for k, val := range v {
				fs = append(fs, zap.Any(k, val))
			}
		case map[string]string:
			for k, val := range v {
				fs = append(fs, zap.String(k, val))
			}
		default:
			fs = append(fs, zap.Any("extra", v))
		}
	}
	return fs
}
