package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		LogLevel         string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		AllowedOrigins   []string

		// integrations
		SendgridAPIKey string
		RollbarToken   string
		SentryDSN      string

		Server   ServerConfig
		Database DatabaseConfig
		School   SchoolConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres (lib/pq) | pgx
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	SchoolConfig struct {
		Timezone                  string
		RollNoMaxRetries          uint64
		PasswordResetTimeoutDelta time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Location returns the school's time zone; dates such as "today" are computed in it.
func (c SchoolConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// NewConfig reads the configuration from the environment.
// Variables are prefixed with the value of ENV, e.g. DEV_SECRETKEY or PROD_DATABASE_NAME.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Vidhya Setu")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("logLevel", "info")
	v.SetDefault("secretKey", "w6c!y0s^3hd$e_^n0=vg@4o5zb9p*)ymq2ak%kx1l9gm7rxq+e")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Vidhya Setu <noreply@localhost>")
	v.SetDefault("allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sentryDsn", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "vidhya")
	v.SetDefault("database.user", "vidhya")
	v.SetDefault("database.password", "vidhya")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTls", true)

	v.SetDefault("school.timezone", "Asia/Kolkata")
	v.SetDefault("school.rollNoMaxRetries", 10)
	v.SetDefault("school.passwordResetTimeoutDelta", 3*24*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		LogLevel:         v.GetString("logLevel"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseUrl"),
		DefaultFromEmail: *fromEmail,
		AllowedOrigins:   v.GetStringSlice("allowedOrigins"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		SentryDSN:        v.GetString("sentryDsn"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
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
			DisableTLS:    v.GetBool("database.disableTls"),
		},
		School: SchoolConfig{
			Timezone:                  v.GetString("school.timezone"),
			RollNoMaxRetries:          uint64(v.GetInt("school.rollNoMaxRetries")),
			PasswordResetTimeoutDelta: v.GetDuration("school.passwordResetTimeoutDelta"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: no external integrations, short retry budget.
func NewTestConfig() *Config {
	fromEmail := mail.Address{Name: "Vidhya Setu", Address: "noreply@localhost"}
	return &Config{
		AppName:          "Vidhya Setu",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		LogLevel:         "error",
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: fromEmail,
		Server: ServerConfig{
			Host:                      "localhost",
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "postgres", DisableTLS: true},
		School: SchoolConfig{
			Timezone:                  "UTC",
			RollNoMaxRetries:          25,
			PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		},
	}
}
