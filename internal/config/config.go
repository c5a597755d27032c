// Package config loads application settings from defaults, command-line
// flags, a .env file, and environment variables, in that order of
// precedence, and validates the result.
package config

import (
	"flag"
	"log"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the application.
type Config struct {
	RunAddr                 string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	ShortURLBase            string        `env:"BASE_URL" validate:"url"`
	LogLevel                string        `env:"LOG_LEVEL" validate:"loglevel"`
	SessionCookieName       string        `env:"SESSION_COOKIE_NAME" validate:"required"`
	VisitorCookieName       string        `env:"VISITOR_COOKIE_NAME" validate:"required"`
	SessionSigningSecretKey string        `env:"SESSION_SIGNING_SECRET_KEY" validate:"required,base64url"`
	SessionTTL              time.Duration `env:"SESSION_TTL"`
	BcryptCost              int           `env:"BCRYPT_COST" validate:"min=4,max=31"`
	ShortKeyLength          int           `env:"SHORT_KEY_LENGTH" validate:"min=1"`
	KeygenMaxRetries        int           `env:"KEYGEN_MAX_RETRIES" validate:"min=1"`
	AllowedSchemes          []string      `env:"ALLOWED_SCHEMES" envSeparator:","`
	TrustedSubnet           string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	VisitQueueCapacity      int           `env:"VISIT_QUEUE_CAPACITY" validate:"min=1"`
	VisitFlushInterval      time.Duration `env:"VISIT_FLUSH_INTERVAL"`
}

func defaults() Config {
	return Config{
		RunAddr:           ":8080",
		ShortURLBase:      "http://localhost:8080",
		LogLevel:          "info",
		SessionCookieName: "tinyapp_session",
		VisitorCookieName: "tinyapp_visitor",
		// Dev-only key; override via SESSION_SIGNING_SECRET_KEY in production.
		SessionSigningSecretKey: "dGlueWFwcC1kZXYtc2lnbmluZy1rZXk=",
		SessionTTL:              24 * time.Hour,
		BcryptCost:              10,
		ShortKeyLength:          6,
		KeygenMaxRetries:        10,
		AllowedSchemes:          []string{"http", "https"},
		TrustedSubnet:           "",
		VisitQueueCapacity:      1024,
		VisitFlushInterval:      time.Second,
	}
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips flag.Parse, which tests need because the
// testing package registers its own flags.
func WithDisableFlagsParsing(disable bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disable
	}
}

// New builds a validated Config from defaults, flags, .env, and the
// environment.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	cfg := defaults()

	if !options.disableFlagsParsing {
		flag.StringVar(&cfg.RunAddr, "a", cfg.RunAddr, "address and port to run server")
		flag.StringVar(&cfg.ShortURLBase, "b", cfg.ShortURLBase, "base address of the resulting shortened URL")
		flag.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "logger level")
		flag.StringVar(&cfg.TrustedSubnet, "t", cfg.TrustedSubnet, "CIDR of the subnet allowed to query internal stats")
		flag.Parse()
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
