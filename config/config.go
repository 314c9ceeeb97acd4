package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Host string
	Port string

	// Remote collaborators. Endpoints are always injected, never hard coded.
	GenerateEndpoint string
	CompileEndpoint  string
	WaitlistEndpoint string

	GenerateLongWait time.Duration
	CompileLongWait  time.Duration
	HTTPTimeout      time.Duration

	// ModelCheckCmd is run on uploaded models by the demo backend.
	ModelCheckCmd     []string
	ModelCheckTimeout time.Duration

	// JobTTL is how long the demo backend keeps a compiled package.
	JobTTL time.Duration

	WorkDir  string
	LogLevel string
}

func defaults() *Config {
	return &Config{
		Env:               "development",
		Port:              "8080",
		GenerateEndpoint:  "http://localhost:8080/api/v1/generate",
		CompileEndpoint:   "http://localhost:8080/api/v1/compile",
		GenerateLongWait:  30 * time.Second,
		CompileLongWait:   60 * time.Second,
		HTTPTimeout:       5 * time.Minute,
		ModelCheckTimeout: 10 * time.Second,
		JobTTL:            time.Hour,
		WorkDir:           "./temp",
		LogLevel:          "info",
	}
}

// Load reads .env files (outside production) and then the environment.
func Load(files ...string) (*Config, error) {
	if os.Getenv("ENV") != "production" {
		if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	c := defaults()

	str(&c.Env, "ENV")
	str(&c.Host, "HOST")
	str(&c.Port, "PORT")
	str(&c.GenerateEndpoint, "GENERATE_ENDPOINT")
	str(&c.CompileEndpoint, "COMPILE_ENDPOINT")
	str(&c.WaitlistEndpoint, "WAITLIST_ENDPOINT")
	str(&c.WorkDir, "WORK_DIR")
	str(&c.LogLevel, "LOG_LEVEL")
	if v := os.Getenv("MODEL_CHECK_CMD"); strings.TrimSpace(v) != "" {
		c.ModelCheckCmd = strings.Fields(v)
	}

	for _, d := range []struct {
		dst *time.Duration
		key string
	}{
		{&c.GenerateLongWait, "GENERATE_LONG_WAIT"},
		{&c.CompileLongWait, "COMPILE_LONG_WAIT"},
		{&c.HTTPTimeout, "HTTP_TIMEOUT"},
		{&c.ModelCheckTimeout, "MODEL_CHECK_TIMEOUT"},
		{&c.JobTTL, "JOB_TTL"},
	} {
		if err := duration(d.dst, d.key); err != nil {
			return nil, err
		}
	}
	return c, c.Validate()
}

func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.GenerateLongWait < time.Second || c.CompileLongWait < time.Second {
		return errors.New("long wait thresholds must be at least one second")
	}
	return nil
}

func (c *Config) Listen() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *Config) Production() bool {
	return c.Env == "production"
}

func str(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// duration accepts Go durations ("45s") or a bare number of seconds.
func duration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
