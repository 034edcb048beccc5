package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	ClientConfig struct {
		APIBaseURL     string
		RequestTimeout time.Duration
		SessionFile    string
	}

	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		DefaultFromEmail string
		FrontendBaseURL  string
		SendgridAPIKey   string
		RollbarToken     string
		FixturesDir      string // seed data of the API; the embedded fixtures when empty

		Server ServerConfig
		Client ClientConfig
	}
)

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if it exists) and the environment.
// Environment variables are prefixed with the upper-cased env, eg. `DEV_SECRETKEY`.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Jaja")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "k2m!8r$0-pl@z7q)x1w#n4e9v&c6b3^y5u(t")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("sendgridAPIKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("fixturesDir", "")
	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 30*24*time.Hour)
	conf.SetDefault("apiBaseURL", "http://localhost:8000/api")
	conf.SetDefault("requestTimeout", 15*time.Second)
	conf.SetDefault("sessionFile", defaultSessionFile())

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:          conf.GetString("appName"),
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		SecretKey:        conf.GetString("secretKey"),
		DefaultFromEmail: conf.GetString("defaultFromEmail"),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		SendgridAPIKey:   conf.GetString("sendgridAPIKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		FixturesDir:      conf.GetString("fixturesDir"),
		Server: ServerConfig{
			Address:                   conf.GetString("serverAddress"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Client: ClientConfig{
			APIBaseURL:     strings.TrimRight(conf.GetString("apiBaseURL"), "/"),
			RequestTimeout: conf.GetDuration("requestTimeout"),
			SessionFile:    conf.GetString("sessionFile"),
		},
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "jaja", "session.json")
}
