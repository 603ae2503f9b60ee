package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is set by NewConfig. Most components receive a *Config explicitly;
// the global exists for the few places (email templates) that cannot.
var Conf *Config

type Config struct {
	AppName          string
	Env              string // DEV (local; default), TEST, QA, PROD
	Build            string
	Debug            bool
	TestMode         bool
	WorkDir          string
	SecretKey        string
	FrontendBaseURL  string
	DefaultFromEmail mail.Address
	SendgridAPIKey   string
	RollbarToken     string

	Server struct {
		Host                      string
		APIAddr                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	Database struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	// Identity is the remote identity service (unset = mock directory mode).
	Identity struct {
		BaseURL string
		AnonKey string
		Timeout time.Duration
	}

	// Gateway is the remote mobile-money payment gateway.
	Gateway struct {
		BaseURL          string
		PublishableKey   string
		PayerEmail       string // fallback payer email when the identity has none
		WebhookChallenge string // shared secret echoed back in completion webhooks
		Timeout          time.Duration
		AutoConfirmDelay time.Duration // demo mode only
	}

	Session struct {
		SnapshotPath string
	}
}

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Shule")
	v.SetDefault("secretKey", "w3lc0me-2-shule!-o82#vmds7f$q1x&yp)4jh^u+5t_ze9(c")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAPIAddr", ":8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "shule")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("identityTimeout", 10*time.Second)
	v.SetDefault("gatewayTimeout", 15*time.Second)
	v.SetDefault("gatewayPayerEmail", "student@school.ke")
	v.SetDefault("gatewayAutoConfirmDelay", 3*time.Second)
	v.SetDefault("sessionSnapshotPath", filepath.Join(Getwd(), "config", "session.json"))

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:         v.GetString("appName"),
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		WorkDir:         Getwd(),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		SendgridAPIKey: v.GetString("sendgridAPIKey"),
		RollbarToken:   v.GetString("rollbarToken"),
	}

	conf.Server.Host = v.GetString("serverHost")
	conf.Server.APIAddr = v.GetString("serverAPIAddr")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwtRefreshExpirationDelta")

	conf.Database.Engine = v.GetString("dbEngine")
	conf.Database.Name = v.GetString("dbName")
	conf.Database.User = v.GetString("dbUser")
	conf.Database.Password = v.GetString("dbPassword")
	conf.Database.AdminUser = v.GetString("dbAdminUser")
	conf.Database.AdminPassword = v.GetString("dbAdminPassword")
	conf.Database.Host = v.GetString("dbHost")
	conf.Database.Port = v.GetString("dbPort")
	conf.Database.DisableTLS = v.GetBool("dbDisableTLS")

	conf.Identity.BaseURL = v.GetString("identityBaseURL")
	conf.Identity.AnonKey = v.GetString("identityAnonKey")
	conf.Identity.Timeout = v.GetDuration("identityTimeout")

	conf.Gateway.BaseURL = v.GetString("gatewayBaseURL")
	conf.Gateway.PublishableKey = v.GetString("gatewayPublishableKey")
	conf.Gateway.PayerEmail = v.GetString("gatewayPayerEmail")
	conf.Gateway.WebhookChallenge = v.GetString("gatewayWebhookChallenge")
	conf.Gateway.Timeout = v.GetDuration("gatewayTimeout")
	conf.Gateway.AutoConfirmDelay = v.GetDuration("gatewayAutoConfirmDelay")

	conf.Session.SnapshotPath = v.GetString("sessionSnapshotPath")

	Conf = conf
	return conf
}

// IdentityConfigured reports whether the remote identity service can be used.
// Resolved once at startup; the auth strategy is picked from it.
func (c *Config) IdentityConfigured() bool {
	return c.Identity.BaseURL != "" && c.Identity.AnonKey != ""
}

// GatewayConfigured reports whether the remote payment gateway can be used.
func (c *Config) GatewayConfigured() bool {
	return c.Gateway.BaseURL != "" && c.Gateway.PublishableKey != ""
}

// DatabaseAddress returns the host:port of the database server.
func (c *Config) DatabaseAddress() string {
	return fmt.Sprintf("%s:%s", c.Database.Host, c.Database.Port)
}
