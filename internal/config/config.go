// Package config loads CLI configuration from flags, environment and an optional .env file.
//
// Precedence: flag > environment > .env > default.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Env keys.
const (
	EnvAPIURL       = "SUBLEASE_API_URL"
	EnvConfigDir    = "SUBLEASE_CONFIG_DIR"
	EnvTimeout      = "SUBLEASE_TIMEOUT"
	EnvEmailDomain  = "SUBLEASE_EMAIL_DOMAIN"
	EnvServerFilter = "SUBLEASE_SERVER_FILTER"
	EnvDebug        = "SUBLEASE_DEBUG"
)

// Config is the resolved client configuration.
type Config struct {
	APIURL       string
	ConfigDir    string // "" means tokenstore.DefaultDir
	Timeout      time.Duration
	EmailDomain  string
	ServerFilter bool
	CACert       string
	Insecure     bool
	Debug        bool

	// Args are the positional arguments left after the global flags.
	Args []string
}

// Load parses global flags from args (without the program name). envFile is loaded
// first if it exists; pass "" to skip it.
func Load(args []string, envFile string, usage func(io.Writer)) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: %s: %w", envFile, err)
		}
	}

	timeout, err := envDuration(EnvTimeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	serverFilter, err := envBool(EnvServerFilter, true)
	if err != nil {
		return nil, err
	}
	debug, err := envBool(EnvDebug, false)
	if err != nil {
		return nil, err
	}

	c := &Config{}
	fs := flag.NewFlagSet("sublease", flag.ContinueOnError)
	if usage != nil {
		fs.Usage = func() { usage(fs.Output()) }
	}
	fs.StringVar(&c.APIURL, "api", envString(EnvAPIURL, "http://localhost:8000"), "API base URL")
	fs.StringVar(&c.ConfigDir, "config-dir", envString(EnvConfigDir, ""), "directory for the session token")
	fs.DurationVar(&c.Timeout, "timeout", timeout, "per-request timeout")
	fs.StringVar(&c.CACert, "cacert", "", "CA cert (PEM)")
	fs.BoolVar(&c.Insecure, "insecure", false, "skip cert verify (dev)")
	fs.BoolVar(&c.Debug, "debug", debug, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	c.EmailDomain = envString(EnvEmailDomain, "gmail.com")
	c.ServerFilter = serverFilter
	c.Args = fs.Args()

	if c.Timeout <= 0 {
		return nil, fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	return c, nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
