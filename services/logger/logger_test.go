package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/user"
)

func TestZapLogger(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(obs))

	usr := user.User{ID: "u1", Username: "jane", Email: "jane@forma.test"}
	l.Error("boom", errors.New("db down"), usr, map[string]interface{}{"path": "/v1/users"})
	l.Info("hello")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "boom", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "db down", ctx["error"])
	assert.Equal(t, "u1", ctx["user.id"])
	assert.Equal(t, "jane", ctx["user.username"])
	assert.Equal(t, "/v1/users", ctx["path"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].Context)
}

func TestRollbarLogger_prepare(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	l := NewRollbarLogger(zap.New(obs), &core.Config{Env: "TEST"})
	l.Enable(false)

	err := errors.New("oops")
	usr := user.User{ID: "u1"}
	args := l.prepare("msg", []interface{}{err, usr, user.User{ID: "u2"}})
	assert.Equal(t, []interface{}{"msg", err}, args)

	l.Warn("careful", err, usr)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "careful", logs.All()[0].Message)
}
