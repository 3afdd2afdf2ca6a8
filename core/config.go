package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ServerConfig struct {
		Address                   string
		DebugAddress              string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	BunnyConfig struct {
		LibraryID string
		TokenKey  string
		URLTTL    time.Duration
	}

	Config struct {
		Env                       string // DEV (local; default), TEST, QA, PROD
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		DefaultFromEmail          mail.Address
		FrontendBaseURL           string
		PasswordResetTimeoutDelta time.Duration
		SendgridAPIKey            string
		RollbarToken              string

		Server   ServerConfig
		Database DatabaseConfig
		Bunny    BunnyConfig
	}
)

func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// NewConfig loads the configuration for the environment named by $ENV.
// Values are read from the environment with the env name as prefix (e.g. DEV_SECRETKEY,
// DEV_DATABASE_HOST) after loading config/.env.<env> if that file exists.
func NewConfig(build string) (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "config"
	}
	dotEnvPath := filepath.Join(dir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v, env)
	v.AutomaticEnv()

	conf := &Config{
		Env:                       env,
		Build:                     build,
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		DefaultFromEmail:          mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		SendgridAPIKey:            v.GetString("sendgridAPIKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Bunny: BunnyConfig{
			LibraryID: v.GetString("bunny.libraryID"),
			TokenKey:  v.GetString("bunny.tokenKey"),
			URLTTL:    v.GetDuration("bunny.urlTTL"),
		},
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Forma")
	v.SetDefault("secretKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("sendgridAPIKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "forma")
	v.SetDefault("database.user", "forma")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("bunny.libraryID", "")
	v.SetDefault("bunny.tokenKey", "")
	v.SetDefault("bunny.urlTTL", 2*time.Hour)
}

func (c *Config) validate() error {
	if c.SecretKey == "" {
		if !(c.Debug || c.TestMode) {
			return errors.New("config: secretKey is required")
		}
		// DEV & TEST only
		c.SecretKey = "dev-only-9x$r2!kq+v8@w3m)p7z#c0^l5&h1y(t4"
	}
	if c.Server.JWTRefreshExpirationDelta < c.Server.JWTExpirationDelta {
		return errors.New("config: server.jwtRefreshExpirationDelta must be >= server.jwtExpirationDelta")
	}
	if _, err := mail.ParseAddress(c.DefaultFromEmail.Address); err != nil {
		return errors.Wrap(err, "config: invalid defaultFromEmail")
	}
	return nil
}
