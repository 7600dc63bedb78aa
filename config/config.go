package config

import (
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/goliatone/go-accounts"
)

const (
	// EnvPrefix scopes the environment overrides
	EnvPrefix = "ACCOUNTS_"
	// EnvNestingSeparator separates nested keys in environment variable names
	EnvNestingSeparator = "__"
)

type Config struct {
	App      App      `koanf:"app"`
	HTTP     HTTP     `koanf:"http"`
	Log      Log      `koanf:"log"`
	Database Database `koanf:"database"`
	Accounts Accounts `koanf:"accounts"`
	Password Password `koanf:"password"`
	Mail     Mail     `koanf:"mail"`
}

type App struct {
	Name    string `koanf:"name"`
	Env     string `koanf:"env"`
	BaseURL string `koanf:"base_url"`
	Debug   bool   `koanf:"debug"`
}

type HTTP struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	BodyLimit    int           `koanf:"body_limit"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Database struct {
	Driver       string `koanf:"driver"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

type Accounts struct {
	SigningKey       string        `koanf:"signing_key"`
	Issuer           string        `koanf:"issuer"`
	SessionTTL       time.Duration `koanf:"session_ttl"`
	ActivationWindow time.Duration `koanf:"activation_window"`
	PasswordResetTTL time.Duration `koanf:"password_reset_ttl"`
	BcryptCost       int           `koanf:"bcrypt_cost"`
	DeterministicIDs bool          `koanf:"deterministic_ids"`
	RecoveryURL      string        `koanf:"recovery_url"`
	ContextKey       string        `koanf:"context_key"`
	TokenLookup      string        `koanf:"token_lookup"`
	CookieName       string        `koanf:"cookie_name"`
	CookieSecure     bool          `koanf:"cookie_secure"`
}

// Password holds the password strength rules
type Password struct {
	MinLength        int  `koanf:"min_length"`
	MaxLength        int  `koanf:"max_length"`
	RequireUppercase bool `koanf:"require_uppercase"`
	RequireLowercase bool `koanf:"require_lowercase"`
	RequireNumbers   bool `koanf:"require_numbers"`
	RequireSpecial   bool `koanf:"require_special"`
	RejectNumeric    bool `koanf:"reject_numeric"`
	RejectCommon     bool `koanf:"reject_common"`
}

type Mail struct {
	From        string        `koanf:"from"`
	Transport   string        `koanf:"transport"`
	Workers     int           `koanf:"workers"`
	QueueSize   int           `koanf:"queue_size"`
	MaxAttempts int           `koanf:"max_attempts"`
	RetryDelay  time.Duration `koanf:"retry_delay"`
	SendTimeout time.Duration `koanf:"send_timeout"`
	SMTP        SMTP          `koanf:"smtp"`
}

type SMTP struct {
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	MaxConns      int           `koanf:"max_conns"`
	IdleTimeout   time.Duration `koanf:"idle_timeout"`
	WaitTimeout   time.Duration `koanf:"wait_timeout"`
	TLSSkipVerify bool          `koanf:"tls_skip_verify"`
}

const (
	TransportSMTP = "smtp"
	TransportLog  = "log"
)

var _ accounts.Config = (*Config)(nil)

// Default returns the configuration used for keys missing from every source
func Default() *Config {
	policy := accounts.DefaultStrengthPolicy()
	return &Config{
		App: App{
			Name:    "accountsd",
			Env:     "development",
			BaseURL: "http://localhost:8080",
		},
		HTTP: HTTP{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
			BodyLimit:    1 << 20,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
		Database: Database{
			Driver:       "sqlite",
			DSN:          "file:accounts.db?cache=shared",
			MaxOpenConns: 1,
		},
		Accounts: Accounts{
			Issuer:           "go-accounts",
			SessionTTL:       accounts.DefaultSessionDuration,
			ActivationWindow: accounts.DefaultActivationWindow,
			PasswordResetTTL: accounts.DefaultPasswordResetTimeout,
			RecoveryURL:      "/accounts/login",
			ContextKey:       "session",
			TokenLookup:      "header:Authorization,cookie:session",
			CookieName:       "session",
			CookieSecure:     true,
		},
		Password: Password{
			MinLength:        policy.MinLength,
			MaxLength:        policy.MaxLength,
			RequireUppercase: policy.RequireUppercase,
			RequireLowercase: policy.RequireLowercase,
			RequireNumbers:   policy.RequireNumbers,
			RequireSpecial:   policy.RequireSpecial,
			RejectNumeric:    policy.RejectNumeric,
			RejectCommon:     policy.RejectCommon,
		},
		Mail: Mail{
			From:        "no-reply@example.com",
			Transport:   TransportLog,
			Workers:     2,
			QueueSize:   100,
			MaxAttempts: 3,
			RetryDelay:  2 * time.Second,
			SendTimeout: 30 * time.Second,
			SMTP: SMTP{
				Port:        587,
				MaxConns:    4,
				IdleTimeout: 15 * time.Second,
				WaitTimeout: 10 * time.Second,
			},
		},
	}
}

// Load reads path (optional, yaml) over the defaults and applies the
// ACCOUNTS_ environment overrides. Nested keys use a double underscore:
// ACCOUNTS_MAIL__SMTP__HOST sets mail.smtp.host.
func Load(path string) (*Config, error) {
	return LoadWithEnviron(path, os.Environ)
}

// LoadWithEnviron is Load reading the environment from environ
func LoadWithEnviron(path string, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config %s failed", path)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
		EnvironFunc:   environ,
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config failed")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}

// transformEnvKey maps ACCOUNTS_MAIL__SMTP__HOST to mail.smtp.host
func transformEnvKey(k, v string) (string, any) {
	key := strings.TrimPrefix(k, EnvPrefix)
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, EnvNestingSeparator, ".")
	return key, v
}

// Validate checks the values the service cannot run without
func (c *Config) Validate() error {
	return validation.Errors{
		"accounts": validation.ValidateStruct(&c.Accounts,
			validation.Field(&c.Accounts.SigningKey, validation.Required, validation.Length(32, 0)),
			validation.Field(&c.Accounts.Issuer, validation.Required),
			validation.Field(&c.Accounts.SessionTTL, validation.Required),
			validation.Field(&c.Accounts.ActivationWindow, validation.Required),
			validation.Field(&c.Accounts.PasswordResetTTL, validation.Required),
		),
		"app": validation.ValidateStruct(&c.App,
			validation.Field(&c.App.BaseURL, validation.Required, is.URL),
		),
		"mail": validation.ValidateStruct(&c.Mail,
			validation.Field(&c.Mail.From, validation.Required, is.Email),
			validation.Field(&c.Mail.Transport, validation.Required, validation.In(TransportSMTP, TransportLog)),
		),
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.Driver, validation.Required),
			validation.Field(&c.Database.DSN, validation.Required),
		),
	}.Filter()
}

// StrengthPolicy returns the configured password rules
func (c *Config) StrengthPolicy() accounts.StrengthPolicy {
	return accounts.StrengthPolicy{
		MinLength:        c.Password.MinLength,
		MaxLength:        c.Password.MaxLength,
		RequireUppercase: c.Password.RequireUppercase,
		RequireLowercase: c.Password.RequireLowercase,
		RequireNumbers:   c.Password.RequireNumbers,
		RequireSpecial:   c.Password.RequireSpecial,
		RejectNumeric:    c.Password.RejectNumeric,
		RejectCommon:     c.Password.RejectCommon,
	}
}

func (c *Config) GetSigningKey() string {
	return c.Accounts.SigningKey
}

func (c *Config) GetIssuer() string {
	return c.Accounts.Issuer
}

func (c *Config) GetSessionDuration() time.Duration {
	return c.Accounts.SessionTTL
}

func (c *Config) GetActivationWindow() time.Duration {
	return c.Accounts.ActivationWindow
}

func (c *Config) GetPasswordResetTimeout() time.Duration {
	return c.Accounts.PasswordResetTTL
}

func (c *Config) GetBaseURL() string {
	return c.App.BaseURL
}

func (c *Config) GetContextKey() string {
	return c.Accounts.ContextKey
}

func (c *Config) GetTokenLookup() string {
	return c.Accounts.TokenLookup
}

func (c *Config) GetCookieName() string {
	return c.Accounts.CookieName
}

func (c *Config) GetCookieSecure() bool {
	return c.Accounts.CookieSecure
}

func (c *Config) GetRecoveryURL() string {
	return c.Accounts.RecoveryURL
}
