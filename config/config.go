// Package config reads the process environment into an explicit Config.
// Nothing else in the module calls os.Getenv.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Env  string
	Port string

	MongoURI          string
	MongoName         string
	MongoTransactions bool

	JWTSecret      []byte
	JWTTTL         time.Duration
	AdminSecret    string
	AllowedOrigins []string
	RequestTimeout time.Duration

	// Confirmation is restricted to the payment's buyer or an admin.
	EnforcePaymentOwnership bool

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProductCacheTTL time.Duration

	Mail MailConfig
}

type MailConfig struct {
	Mode     string // "log" or "smtp"
	From     string
	Host     string
	Port     int
	User     string
	Password string
}

func (c Config) Production() bool {
	return c.Env == "production"
}

// Load reads .env.<APP_ENV> if present and then the environment.
func Load() (Config, error) {
	env := getenv("APP_ENV", "development")

	file := ".env.development"
	if env != "development" {
		file = ".env.production"
	}
	if err := godotenv.Load(file); err != nil {
		logrus.WithField("file", file).Warn("No se pudo cargar el archivo de entorno, usando variables del sistema")
	}

	return FromEnv(env)
}

// FromEnv builds a Config from the current environment without touching
// any .env file.
func FromEnv(env string) (Config, error) {
	cfg := Config{
		Env:            env,
		Port:           getenv("PORT", "8080"),
		MongoURI:       getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoName:      getenv("MONGODB_NAME", "mercadito"),
		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		AdminSecret:    os.Getenv("ADMIN_SECRET_KEY"),
		AllowedOrigins: splitCSV(getenv("ALLOWED_ORIGINS", "http://localhost:4200")),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		Mail: MailConfig{
			Mode:     getenv("MAIL_MODE", "log"),
			From:     getenv("MAIL_FROM", "no-reply@mercadito.local"),
			Host:     os.Getenv("SMTP_HOST"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
		},
	}

	var errs []error
	var err error

	if len(cfg.JWTSecret) == 0 {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.MongoTransactions, err = getbool("MONGODB_TRANSACTIONS", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.EnforcePaymentOwnership, err = getbool("ENFORCE_PAYMENT_OWNERSHIP", true); err != nil {
		errs = append(errs, err)
	}
	if cfg.JWTTTL, err = getduration("JWT_TTL", time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.RequestTimeout, err = getduration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.ProductCacheTTL, err = getduration("PRODUCT_CACHE_TTL", 5*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.RedisDB, err = getint("REDIS_DB", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.Mail.Port, err = getint("SMTP_PORT", 587); err != nil {
		errs = append(errs, err)
	}
	switch cfg.Mail.Mode {
	case "log":
	case "smtp":
		if cfg.Mail.Host == "" {
			errs = append(errs, errors.New("SMTP_HOST is required when MAIL_MODE=smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_MODE %q must be log or smtp", cfg.Mail.Mode))
	}

	return cfg, errors.Join(errs...)
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func getbool(k string, def bool) (bool, error) {
	v := getenv(k, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

func getint(k string, def int) (int, error) {
	v := getenv(k, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getduration(k string, def time.Duration) (time.Duration, error) {
	v := getenv(k, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
