package logsvc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/user"
)

// ZapLogger is the core.Logger used on its own in DEV & TEST, and as the local sink of RollbarLogger.
type ZapLogger struct {
	zl *zap.Logger
}

var _ core.Logger = (*ZapLogger)(nil)

func NewZapLogger(zl *zap.Logger) *ZapLogger {
	return &ZapLogger{zl: zl.WithOptions(zap.AddCallerSkip(1))}
}

// NewZap builds the process zap.Logger: human readable in debug mode, JSON otherwise.
func NewZap(conf *core.Config) (*zap.Logger, error) {
	var zc zap.Config
	if conf.Debug {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}
	zl, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return zl.With(zap.String("app", conf.AppName), zap.String("env", conf.Env), zap.String("build", conf.Build)), nil
}

func (l *ZapLogger) Sync() error { return l.zl.Sync() }

// fields turns args into zap fields: errors, extras maps and the user concerned.
func (l *ZapLogger) fields(args []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case nil:
		case error:
			fields = append(fields, zap.Error(a))
		case user.User:
			fields = append(fields, zap.String("user.id", a.ID), zap.String("user.username", a.Username), zap.String("user.email", a.Email))
		case map[string]interface{}:
			for k, v := range a {
				fields = append(fields, zap.Any(k, v))
			}
		default:
			fields = append(fields, zap.Any("arg", a))
		}
	}
	return fields
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.zl.Debug(msg, l.fields(args)...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.zl.Info(msg, l.fields(args)...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.zl.Warn(msg, l.fields(args)...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.zl.Error(msg, l.fields(args)...) }
func (l *ZapLogger) Fatal(msg string, args ...interface{}) { l.zl.Fatal(msg, l.fields(args)...) }
