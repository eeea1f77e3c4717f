// Package config loads the service configuration from defaults, an optional
// JSON file, environment variables and command-line flags, in increasing
// order of priority, and validates the result.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBDriver            string        `env:"DB_DRIVER" validate:"dbdriver"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	RedisAddr           string        `env:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	RedisDB             int           `env:"REDIS_DB" validate:"gte=0"`
	SessionTTL          time.Duration `env:"SESSION_TTL" validate:"gt=0"`
	FolderPath          string        `env:"FOLDER_PATH" validate:"required"`
	S3Bucket            string        `env:"S3_BUCKET"`
	S3Region            string        `env:"S3_REGION" validate:"required_with=S3Bucket"`
	S3Endpoint          string        `env:"S3_ENDPOINT" validate:"omitempty,url"`
	S3AccessKey         string        `env:"S3_ACCESS_KEY"`
	S3SecretKey         string        `env:"S3_SECRET_KEY"`
	ThumbnailWorkers    int           `env:"THUMBNAIL_WORKERS" validate:"gte=1"`
	QueueCapacity       int           `env:"QUEUE_CAPACITY" validate:"gte=1"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	MaxRequestBodyBytes int64         `env:"MAX_REQUEST_BODY_BYTES" validate:"gt=0"`
	ConfigFile          string        `env:"CONFIG"`
}

// jsonConfig mirrors the subset of Config accepted from a JSON file.
type jsonConfig struct {
	RunAddr          string `json:"server_address"`
	LogLevel         string `json:"log_level"`
	DatabaseDSN      string `json:"database_dsn"`
	DBDriver         string `json:"db_driver"`
	DBFileName       string `json:"file_storage_path"`
	RedisAddr        string `json:"redis_addr"`
	SessionTTL       string `json:"session_ttl"`
	FolderPath       string `json:"folder_path"`
	S3Bucket         string `json:"s3_bucket"`
	S3Region         string `json:"s3_region"`
	S3Endpoint       string `json:"s3_endpoint"`
	ThumbnailWorkers int    `json:"thumbnail_workers"`
	QueueCapacity    int    `json:"queue_capacity"`
	TrustedSubnet    string `json:"trusted_subnet"`
}

var defaultConfig = Config{
	RunAddr:             ":5000",
	LogLevel:            "info",
	DBDriver:            "pgx",
	DBConnectionTimeout: 10 * time.Second,
	SessionTTL:          24 * time.Hour,
	FolderPath:          "/tmp/files_manager",
	ThumbnailWorkers:    2,
	QueueCapacity:       100,
	MaxRequestBodyBytes: 32 << 20,
}

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips command-line parsing, which tests rely on.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses the given arguments instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds a validated Config.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.args == nil && len(os.Args) > 1 {
		options.args = os.Args[1:]
	}

	// A missing .env file is the normal case outside development.
	_ = godotenv.Load()

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := os.Getenv("CONFIG")
	if !options.disableFlagsParsing {
		if fromFlag := lookupConfigFlag(options.args); fromFlag != "" {
			configFile = fromFlag
		}
	}
	if configFile != "" {
		if err := values.loadJSON(configFile); err != nil {
			return nil, err
		}
		values.ConfigFile = configFile
	}

	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	if !options.disableFlagsParsing {
		if err := values.parseFlags(options.args); err != nil {
			return nil, err
		}
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func (c *Config) loadJSON(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	var fromFile jsonConfig
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	setString := func(target *string, value string) {
		if value != "" {
			*target = value
		}
	}
	setInt := func(target *int, value int) {
		if value != 0 {
			*target = value
		}
	}

	setString(&c.RunAddr, fromFile.RunAddr)
	setString(&c.LogLevel, fromFile.LogLevel)
	setString(&c.DatabaseDSN, fromFile.DatabaseDSN)
	setString(&c.DBDriver, fromFile.DBDriver)
	setString(&c.DBFileName, fromFile.DBFileName)
	setString(&c.RedisAddr, fromFile.RedisAddr)
	setString(&c.FolderPath, fromFile.FolderPath)
	setString(&c.S3Bucket, fromFile.S3Bucket)
	setString(&c.S3Region, fromFile.S3Region)
	setString(&c.S3Endpoint, fromFile.S3Endpoint)
	setString(&c.TrustedSubnet, fromFile.TrustedSubnet)
	setInt(&c.ThumbnailWorkers, fromFile.ThumbnailWorkers)
	setInt(&c.QueueCapacity, fromFile.QueueCapacity)

	if fromFile.SessionTTL != "" {
		ttl, err := time.ParseDuration(fromFile.SessionTTL)
		if err != nil {
			return fmt.Errorf("in internal/config/config.go/loadJSON(): invalid session_ttl: %w", err)
		}
		c.SessionTTL = ttl
	}

	return nil
}

func newFlagSet(c *Config) *flag.FlagSet {
	flags := flag.NewFlagSet("filesmanager", flag.ContinueOnError)
	flags.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run server")
	flags.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	flags.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "a string with the database connection details")
	flags.StringVar(&c.DBFileName, "f", c.DBFileName, "JSON file name with the document store")
	flags.StringVar(&c.RedisAddr, "r", c.RedisAddr, "address of the redis session cache")
	flags.StringVar(&c.TrustedSubnet, "t", c.TrustedSubnet, "CIDR allowed to read /stats")
	flags.StringVar(&c.ConfigFile, "c", c.ConfigFile, "JSON configuration file")
	return flags
}

func (c *Config) parseFlags(args []string) error {
	if err := newFlagSet(c).Parse(args); err != nil {
		return fmt.Errorf("in internal/config/config.go/parseFlags(): error while `flags.Parse()` calling: %w", err)
	}
	return nil
}

// lookupConfigFlag finds -c before the rest of the flags are applied,
// since the JSON file has the lowest priority.
func lookupConfigFlag(args []string) string {
	probe := &Config{}
	flags := newFlagSet(probe)
	flags.SetOutput(discard{})
	_ = flags.Parse(args)
	return probe.ConfigFile
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
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

func validateDBDriver(fieldLevel validator.FieldLevel) bool {
	switch fieldLevel.Field().String() {
	case "pgx", "sqlite":
		return true
	}
	return false
}

func (c *Config) validate() error {
	validate := validator.New()

	for tag, fn := range map[string]validator.Func{
		"loglevel": validateLogLevel,
		"filepath": validateFilePath,
		"dbdriver": validateDBDriver,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	return validate.Struct(c)
}
