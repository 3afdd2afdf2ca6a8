package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("CONFIG_DIR", t.TempDir())

	conf, err := NewConfig("test-build")
	require.NoError(t, err)

	assert.Equal(t, "DEV", conf.Env)
	assert.Equal(t, "test-build", conf.Build)
	assert.True(t, conf.Debug)
	assert.Equal(t, "Forma", conf.AppName)
	assert.NotEmpty(t, conf.SecretKey)
	assert.Equal(t, ":8000", conf.Server.Address)
	assert.Equal(t, 7*24*time.Hour, conf.Server.JWTExpirationDelta)
	assert.Equal(t, "localhost:5432", conf.Database.Address())
	assert.True(t, conf.Database.DisableTLS)
}

func TestNewConfigEnvOverride(t *testing.T) {
	t.Setenv("ENV", "qa")
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("QA_SECRETKEY", "s3cr3t")
	t.Setenv("QA_DATABASE_HOST", "db.internal")
	t.Setenv("QA_DATABASE_PORT", "6543")
	t.Setenv("QA_SERVER_JWTEXPIRATIONDELTA", "1h")

	conf, err := NewConfig("")
	require.NoError(t, err)

	assert.Equal(t, "QA", conf.Env)
	assert.False(t, conf.Debug)
	assert.Equal(t, "s3cr3t", conf.SecretKey)
	assert.Equal(t, "db.internal:6543", conf.Database.Address())
	assert.Equal(t, time.Hour, conf.Server.JWTExpirationDelta)
	assert.False(t, conf.Database.DisableTLS)
}

func TestNewConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	content := "PROD_SECRETKEY=from-file\nPROD_APPNAME=Forma Gym\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.prod"), []byte(content), 0o600))

	t.Setenv("ENV", "PROD")
	t.Setenv("CONFIG_DIR", dir)
	// godotenv does not override existing variables; make sure they are unset
	t.Setenv("PROD_SECRETKEY", "")
	require.NoError(t, os.Unsetenv("PROD_SECRETKEY"))
	t.Setenv("PROD_APPNAME", "")
	require.NoError(t, os.Unsetenv("PROD_APPNAME"))

	conf, err := NewConfig("")
	require.NoError(t, err)
	assert.Equal(t, "from-file", conf.SecretKey)
	assert.Equal(t, "Forma Gym", conf.AppName)
	assert.Equal(t, "Forma Gym", conf.DefaultFromEmail.Name)
}

func TestNewConfigRequiresSecretOutsideDev(t *testing.T) {
	t.Setenv("ENV", "PROD")
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("PROD_SECRETKEY", "")

	_, err := NewConfig("")
	assert.Error(t, err)
}
