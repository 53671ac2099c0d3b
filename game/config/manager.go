package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

var validate = validator.New()

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHESS_"

// Manager loads the configuration file, applies environment overrides and
// keeps the current result.
type Manager struct {
	path    string
	current *Config
	mu      sync.RWMutex
}

// NewManager creates a manager for the YAML file at path. An empty path
// means defaults plus environment.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the file, applies overrides, validates and stores the result.
func (m *Manager) Load() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()
	return cfg, nil
}

// Current returns the last loaded configuration, loading it on first use.
func (m *Manager) Current() (*Config, error) {
	m.mu.RLock()
	cfg := m.current
	m.mu.RUnlock()
	if cfg != nil {
		return cfg, nil
	}
	return m.Load()
}

// Path returns the file the manager reads.
func (m *Manager) Path() string {
	return m.path
}

// Load builds a configuration from defaults, the YAML file at path (if any)
// and CHESS_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var details strings.Builder
	for _, fe := range verrs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch fe.Tag() {
		case "required", "required_if":
			fmt.Fprintf(&details, "%s is required", fe.Namespace())
		case "oneof":
			fmt.Fprintf(&details, "%s must be one of [%s]", fe.Namespace(), fe.Param())
		case "min":
			fmt.Fprintf(&details, "%s must be at least %s", fe.Namespace(), fe.Param())
		case "max":
			fmt.Fprintf(&details, "%s must be at most %s", fe.Namespace(), fe.Param())
		default:
			fmt.Fprintf(&details, "%s failed %s validation", fe.Namespace(), fe.Tag())
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, details.String())
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	var errs []error
	parse := func(key string, dst any) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		v = strings.TrimSpace(v)
		var err error
		switch d := dst.(type) {
		case *int:
			*d, err = strconv.Atoi(v)
		case *bool:
			*d, err = strconv.ParseBool(v)
		case *time.Duration:
			*d, err = time.ParseDuration(v)
		default:
			err = fmt.Errorf("unsupported type %s", reflect.TypeOf(dst))
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		}
	}

	str("HOST", &cfg.Server.Host)
	parse("PORT", &cfg.Server.Port)
	str("API_URL", &cfg.Server.APIURL)
	if v, ok := lookup(EnvPrefix + "ALLOWED_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)

	parse("STRICT_SELF_CHECK", &cfg.Match.StrictSelfCheck)
	parse("CONCLUDE_ON_CHECKMATE", &cfg.Match.ConcludeOnCheckmate)
	parse("NOTIFY_REJECTIONS", &cfg.Match.NotifyRejections)
	parse("MATCH_TTL", &cfg.Match.TTL)
	parse("CLEANUP_INTERVAL", &cfg.Match.CleanupInterval)
	parse("MAX_MATCHES", &cfg.Match.MaxMatches)

	parse("NGROK_ENABLED", &cfg.Ngrok.Enabled)
	str("NGROK_DOMAIN", &cfg.Ngrok.Domain)
	// ngrok's own variable names are honored too.
	for _, key := range []string{"NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"} {
		if v, ok := lookup(key); ok && cfg.Ngrok.AuthToken == "" && v != "" {
			cfg.Ngrok.AuthToken = v
		}
	}
	str("NGROK_AUTHTOKEN", &cfg.Ngrok.AuthToken)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
