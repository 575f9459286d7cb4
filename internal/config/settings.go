package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds the runtime configuration loaded from file and environment.
type Settings struct {
	Server  ServerSettings  `mapstructure:"server"`
	Store   StoreSettings   `mapstructure:"store"`
	Worker  WorkerSettings  `mapstructure:"worker"`
	Notify  NotifySettings  `mapstructure:"notify"`
	Session SessionSettings `mapstructure:"session"`
	Locale  string          `mapstructure:"locale"`
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Addr returns the listen address.
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s%s%d", s.Host, AddrSeparator, s.Port)
}

// StoreSettings selects and configures the key/value backend.
type StoreSettings struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// WorkerSettings holds the background worker intervals.
type WorkerSettings struct {
	FlushInterval    time.Duration `mapstructure:"flush_interval"`
	ReminderInterval time.Duration `mapstructure:"reminder_interval"`
}

// NotifySettings configures the outbound notifier.
type NotifySettings struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// SessionSettings configures the cookie session.
type SessionSettings struct {
	Secret string        `mapstructure:"secret"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

// Load reads settings from an optional config file and REMINDME_* environment
// variables. An empty path searches the working directory.
func Load(path string) (*Settings, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileType)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%s: %w", ErrConfigRead, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrConfigDecode, err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks values that viper cannot constrain on its own.
func (s *Settings) Validate() error {
	if s.Server.Port < 1 || s.Server.Port > 65535 {
		return errors.New(ErrPortRange)
	}
	switch s.Store.Backend {
	case BackendMemory, BackendFile, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("%s: %q", ErrBackendUnsupported, s.Store.Backend)
	}
	if s.Worker.FlushInterval <= 0 {
		s.Worker.FlushInterval = DefaultFlushInterval
	}
	if s.Worker.ReminderInterval <= 0 {
		s.Worker.ReminderInterval = DefaultReminderInterval
	}
	if s.Session.MaxAge <= 0 {
		s.Session.MaxAge = DefaultSessionMaxAge
	}
	if s.Locale == "" {
		s.Locale = DefaultLanguage
	}
	return nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault(SetServerHost, LocalhostBindAddr)
	v.SetDefault(SetServerPort, DefaultPort)
	v.SetDefault(SetServerRead, ServerReadTimeout)
	v.SetDefault(SetServerWrite, ServerWriteTimeout)
	v.SetDefault(SetServerIdle, ServerIdleTimeout)

	v.SetDefault(SetStoreBackend, DefaultBackend)
	v.SetDefault(SetStorePath, DefaultStoreDir)
	v.SetDefault(SetStoreRedisAddr, DefaultRedisAddr)
	v.SetDefault(SetStoreRedisPass, "")
	v.SetDefault(SetStoreRedisDB, 0)

	v.SetDefault(SetWorkerFlush, DefaultFlushInterval)
	v.SetDefault(SetWorkerReminder, DefaultReminderInterval)

	v.SetDefault(SetNotifyWebhookURL, "")

	v.SetDefault(SetSessionSecret, "")
	v.SetDefault(SetSessionMaxAge, DefaultSessionMaxAge)

	v.SetDefault(SetLocale, DefaultLanguage)
}
