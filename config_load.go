package mailrelay

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// providerEnv maps environment variables onto provider settings keys, per
// provider type.
var providerEnv = map[ProviderType]map[string]string{
	ProviderSendGrid: {
		"SENDGRID_API_KEY":       "api_key",
		"SENDGRID_BASEURL":       "base_url",
		"SENDGRID_SEND_ENDPOINT": "endpoint",
	},
	ProviderMailgun: {
		"MAILGUN_API_USER":      "api_user",
		"MAILGUN_API_KEY":       "api_key",
		"MAILGUN_DOMAIN":        "domain",
		"MAILGUN_BASEURL":       "base_url",
		"MAILGUN_SEND_ENDPOINT": "endpoint",
	},
	ProviderMailgunAPI: {
		"MAILGUN_API_KEY": "api_key",
		"MAILGUN_DOMAIN":  "domain",
		"MAILGUN_BASEURL": "base_url",
	},
	ProviderAWSSES: {
		"AWS_SES_REGION":     "region",
		"AWS_SES_ACCESS_KEY": "access_key",
		"AWS_SES_SECRET_KEY": "secret_key",
	},
}

// LoadConfig builds the configuration from defaults, the .env.<ENV> file,
// an optional YAML file at path and finally the process environment.
// The result is validated.
func LoadConfig(path string) (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadConfigFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML configuration file over the defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads .env.<ENV> (ENV defaults to "local") into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv() error {
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	if err := godotenv.Load(".env." + env); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env.%s: %w", env, err)
	}
	return nil
}

// applyEnv overrides cfg with the environment variables visible through
// lookup. Only non-empty variables are applied.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("PRIMARY_PROVIDER"); ok {
		cfg.Provider.PrimaryType = ProviderType(strings.ToLower(v))
	}
	if v, ok := get("BACKUP_PROVIDER"); ok {
		cfg.Provider.BackupType = ProviderType(strings.ToLower(v))
	}

	cfg.Provider.Primary = overlaySettings(cfg.Provider.Primary, providerEnv[cfg.Provider.PrimaryType], get)
	cfg.Provider.Backup = overlaySettings(cfg.Provider.Backup, providerEnv[cfg.Provider.BackupType], get)

	if v, ok := get("HTTP_CLIENT_DEFAULT_TIMEOUT"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return envError("HTTP_CLIENT_DEFAULT_TIMEOUT", v, err)
		}
		cfg.Provider.Timeout = time.Duration(ms) * time.Millisecond
	}

	port, hasPort := get("LISTEN_PORT")
	host, hasHost := get("LISTEN_ADDRESS")
	if hasPort || hasHost {
		curHost, curPort, err := net.SplitHostPort(cfg.Server.Address)
		if err != nil {
			curHost, curPort = "", "9999"
		}
		if hasPort {
			if _, err := strconv.Atoi(port); err != nil {
				return envError("LISTEN_PORT", port, err)
			}
			curPort = port
		}
		if hasHost {
			curHost = host
		}
		cfg.Server.Address = net.JoinHostPort(curHost, curPort)
	}

	if v, ok := get("RATE_LIMIT_PER_MINUTE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("RATE_LIMIT_PER_MINUTE", v, err)
		}
		cfg.Server.RateLimitPerMinute = n
	}

	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Monitoring.Logging.Level = strings.ToLower(v)
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.Monitoring.Logging.Format = strings.ToLower(v)
	}
	if v, ok := get("TRACING_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return envError("TRACING_ENABLED", v, err)
		}
		cfg.Monitoring.Tracing.Enabled = enabled
	}

	return nil
}

// overlaySettings returns a copy of settings with the mapped variables applied.
func overlaySettings(settings ProviderSettings, mapping map[string]string, get func(string) (string, bool)) ProviderSettings {
	out := make(ProviderSettings, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	for env, key := range mapping {
		if v, ok := get(env); ok {
			out[key] = v
		}
	}
	return out
}

func envError(key, value string, err error) error {
	return &ValidationError{
		Field:   key,
		Message: "invalid environment value: " + err.Error(),
		Value:   value,
		Err:     ErrInvalidConfiguration,
	}
}
