package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/tasktracker/internal/logger"
	"github.com/nkiryanov/tasktracker/internal/service/auth"
)

const (
	defaultListenAddr     = "localhost:8000"
	defaultLoggingLevel   = logger.LevelInfo
	defaultEnvironment    = logger.EnvProduction
	defaultTokenAlg       = "HS256"
	defaultAccessTTL      = 30 * time.Minute
	defaultRefreshTTL     = 7 * 24 * time.Hour
	defaultRedisURL       = "redis://localhost:6379/0"
	defaultPurgeInterval  = time.Hour
	defaultLoginRateLimit = 1.0
	defaultLoginBurst     = 5
)

// Where revoked refresh tokens are kept
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string

	// Environment: 'dev' or 'prod'
	// Cookies are sent with 'Secure' flag everywhere except 'dev'
	Environment string

	// Tokens
	TokenAlg       string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	TokenLeeway    time.Duration
	RotateRefresh  bool
	PurgeInterval  time.Duration
	RevocationType string
	RedisURL       string

	// Credentials
	PasswordHasher       string
	EmailCaseInsensitive bool

	// Login throttling per client IP
	LoginRateLimit float64
	LoginRateBurst int
}

func NewConfig() *Config {
	return &Config{
		LogLevel:       defaultLoggingLevel,
		ListenAddr:     defaultListenAddr,
		Environment:    defaultEnvironment,
		TokenAlg:       defaultTokenAlg,
		AccessTTL:      defaultAccessTTL,
		RefreshTTL:     defaultRefreshTTL,
		RotateRefresh:  true,
		PurgeInterval:  defaultPurgeInterval,
		RevocationType: BackendPostgres,
		RedisURL:       defaultRedisURL,
		PasswordHasher: auth.HasherBcrypt,
		LoginRateLimit: defaultLoginRateLimit,
		LoginRateBurst: defaultLoginBurst,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = b
			return nil
		}
	}
	setFloat := func(o *float64) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return err
			}
			*o = f
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			i, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = i
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":               setString(&c.ListenAddr),
		"DATABASE_URI":              setString(&c.DatabaseDSN),
		"SECRET_KEY":                setString(&c.SecretKey),
		"LOG_LEVEL":                 setString(&c.LogLevel),
		"ENVIRONMENT":               setString(&c.Environment),
		"TOKEN_ALGORITHM":           setString(&c.TokenAlg),
		"ACCESS_TOKEN_TTL":          setDuration(&c.AccessTTL),
		"REFRESH_TOKEN_TTL":         setDuration(&c.RefreshTTL),
		"TOKEN_LEEWAY":              setDuration(&c.TokenLeeway),
		"ROTATE_REFRESH_TOKENS":     setBool(&c.RotateRefresh),
		"REVOCATION_BACKEND":        setString(&c.RevocationType),
		"REDIS_URL":                 setString(&c.RedisURL),
		"REVOCATION_PURGE_INTERVAL": setDuration(&c.PurgeInterval),
		"PASSWORD_HASHER":           setString(&c.PasswordHasher),
		"EMAIL_CASE_INSENSITIVE":    setBool(&c.EmailCaseInsensitive),
		"LOGIN_RATE_LIMIT":          setFloat(&c.LoginRateLimit),
		"LOGIN_RATE_BURST":          setInt(&c.LoginRateBurst),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("tasktracker", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	fs.StringVar(&c.TokenAlg, "token-alg", c.TokenAlg, "Token signing algorithm (HS256, HS384, HS512)")
	fs.DurationVar(&c.AccessTTL, "access-ttl", c.AccessTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTTL, "refresh-ttl", c.RefreshTTL, "Refresh token lifetime")
	fs.DurationVar(&c.TokenLeeway, "token-leeway", c.TokenLeeway, "Allowed clock skew when token expiration is checked")
	fs.BoolVar(&c.RotateRefresh, "rotate-refresh", c.RotateRefresh, "Rotate refresh token on every refresh")
	fs.StringVar(&c.RevocationType, "revocation-backend", c.RevocationType, "Where revoked tokens are stored (postgres, redis)")
	fs.StringVar(&c.RedisURL, "redis-url", c.RedisURL, "Redis connection URL, used with redis revocation backend")
	fs.DurationVar(&c.PurgeInterval, "purge-interval", c.PurgeInterval, "How often expired revoked tokens are purged")

	fs.StringVar(&c.PasswordHasher, "password-hasher", c.PasswordHasher, "Password hashing algorithm (bcrypt, argon2id)")
	fs.BoolVar(&c.EmailCaseInsensitive, "email-case-insensitive", c.EmailCaseInsensitive, "Match emails case insensitive on login")

	fs.Float64Var(&c.LoginRateLimit, "login-rate", c.LoginRateLimit, "Login requests per second allowed per client IP")
	fs.IntVar(&c.LoginRateBurst, "login-burst", c.LoginRateBurst, "Login requests burst allowed per client IP")

	return fs.Parse(args)
}

// Validate checks options that have no sensible default
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database connection string is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.RevocationType != BackendPostgres && c.RevocationType != BackendRedis {
		errs = append(errs, fmt.Errorf("unknown revocation backend %q, expected one of: %s, %s", c.RevocationType, BackendPostgres, BackendRedis))
	}
	if c.LoginRateLimit <= 0 || c.LoginRateBurst <= 0 {
		errs = append(errs, errors.New("login rate limit and burst must be positive"))
	}

	return errors.Join(errs...)
}
