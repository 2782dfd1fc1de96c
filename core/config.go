package core

import (
	"fmt"
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

// DefaultTimezone is used when neither the environment nor a parish sets one.
const DefaultTimezone = "America/New_York"

type (
	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		LoginRateLimit            float64 // requests per second per client IP
		LoginRateBurst            int
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	EmailConfig struct {
		DefaultFrom    mail.Address
		SendgridApiKey string
	}

	ParishConfig struct {
		Timezone string
		Location *time.Location // resolved from Timezone at load time
	}

	CalendarConfig struct {
		MaxOccurrences int
	}

	DigestConfig struct {
		Schedule    string // cron spec
		Selection   string // current|next
		AutoPublish bool
	}

	Config struct {
		Debug           bool
		TestMode        bool
		Env             string
		Build           string
		AppName         string
		SecretKey       string
		FrontendBaseURL string
		Server          ServerConfig
		Database        DatabaseConfig
		Email           EmailConfig
		Parish          ParishConfig
		Calendar        CalendarConfig
		Digest          DigestConfig
		RollbarToken    string
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

func (sc ServerConfig) Address() string {
	return net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
}

func newViper() (*viper.Viper, string, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Parokia")
	v.SetDefault("secretKey", "k3n$9-0vq@c!1w^x#dl7gq+7r2p(z8b&t_r0uj4)hy*mfe6s5")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("loginRateLimit", 1.0)
	v.SetDefault("loginRateBurst", 5)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbUser", "parokia")
	v.SetDefault("dbPassword", "parokia")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbName", "parokia")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("defaultFromName", "Parokia")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("parishTimezone", DefaultTimezone)
	v.SetDefault("calendarMaxOccurrences", 5000)
	v.SetDefault("digestSchedule", "0 18 * * SUN")
	v.SetDefault("digestSelection", "next")
	v.SetDefault("digestAutoPublish", false)
	v.SetDefault("rollbarToken", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if wd, err := Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return nil, env, errors.Wrapf(err, "loading %s", dotEnvPath)
			}
		} else if !os.IsNotExist(err) {
			return nil, env, errors.Wrapf(err, "stat %s", dotEnvPath)
		}
	}
	v.AutomaticEnv()
	return v, env, nil
}

// NewConfig loads the configuration from the environment.
// An invalid parish timezone is reported here rather than on first use.
func NewConfig() (*Config, error) {
	v, env, err := newViper()
	if err != nil {
		return nil, err
	}

	conf := &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetInt("serverPort"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			LoginRateLimit:            v.GetFloat64("loginRateLimit"),
			LoginRateBurst:            v.GetInt("loginRateBurst"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			Name:          v.GetString("dbName"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Email: EmailConfig{
			DefaultFrom:    mail.Address{Name: v.GetString("defaultFromName"), Address: v.GetString("defaultFromEmail")},
			SendgridApiKey: v.GetString("sendgridApiKey"),
		},
		Parish: ParishConfig{
			Timezone: v.GetString("parishTimezone"),
		},
		Calendar: CalendarConfig{
			MaxOccurrences: v.GetInt("calendarMaxOccurrences"),
		},
		Digest: DigestConfig{
			Schedule:    v.GetString("digestSchedule"),
			Selection:   v.GetString("digestSelection"),
			AutoPublish: v.GetBool("digestAutoPublish"),
		},
		RollbarToken: v.GetString("rollbarToken"),
	}

	if err = conf.resolve(); err != nil {
		return nil, err
	}
	return conf, nil
}

// resolve validates derived settings.
func (c *Config) resolve() error {
	tz := CleanString(c.Parish.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return NewConfigError("parishTimezone", err)
	}
	c.Parish.Timezone = tz
	c.Parish.Location = loc

	if c.Calendar.MaxOccurrences <= 0 {
		return NewConfigError("calendarMaxOccurrences", fmt.Errorf("must be positive, got %d", c.Calendar.MaxOccurrences))
	}
	switch c.Digest.Selection {
	case "current", "next":
	default:
		return NewConfigError("digestSelection", fmt.Errorf("unknown selection %q", c.Digest.Selection))
	}
	return nil
}

// NewTestConfig returns a Config usable in tests without touching the environment.
func NewTestConfig() *Config {
	loc, _ := time.LoadLocation(DefaultTimezone)
	return &Config{
		Debug:     true,
		TestMode:  true,
		Env:       "TEST",
		Build:     "test",
		AppName:   "Parokia",
		SecretKey: "test-secret",
		Server: ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			LoginRateLimit:            100,
			LoginRateBurst:            100,
		},
		Email:    EmailConfig{DefaultFrom: mail.Address{Name: "Parokia", Address: "noreply@localhost"}},
		Parish:   ParishConfig{Timezone: DefaultTimezone, Location: loc},
		Calendar: CalendarConfig{MaxOccurrences: 5000},
		Digest:   DigestConfig{Schedule: "0 18 * * SUN", Selection: "next"},
	}
}
