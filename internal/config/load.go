package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// replaces $(VAR) with os.Getenv(VAR)
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	})
}

// Default returns the configuration used for every field the file
// leaves out.
func Default() *Config {
	return &Config{
		SNS: SNSConfig{
			Subject: "EBS snapshot rotation",
		},
		Snapshots: SnapshotsConfig{
			KeepDay:   5,
			KeepWeek:  4,
			KeepMonth: 3,
			Pause:     3 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "logfmt",
		},
	}
}

// Load reads the YAML file at path, expands $(ENV_VAR) placeholders,
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for configuration already in memory.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Snapshots.KeepDay < 0 {
		errs = append(errs, fmt.Errorf("snapshots.keepDay must not be negative, got %d", c.Snapshots.KeepDay))
	}
	if c.Snapshots.KeepWeek < 0 {
		errs = append(errs, fmt.Errorf("snapshots.keepWeek must not be negative, got %d", c.Snapshots.KeepWeek))
	}
	if c.Snapshots.KeepMonth < 0 {
		errs = append(errs, fmt.Errorf("snapshots.keepMonth must not be negative, got %d", c.Snapshots.KeepMonth))
	}
	if c.Snapshots.Pause < 0 {
		errs = append(errs, fmt.Errorf("snapshots.pause must not be negative, got %s", c.Snapshots.Pause))
	}
	if c.Connection.AccessKey != "" && c.Connection.SecretKey == "" {
		errs = append(errs, errors.New("connection.secretKey is required when connection.accessKey is set"))
	}
	if c.Connection.ProxyPort < 0 || c.Connection.ProxyPort > 65535 {
		errs = append(errs, fmt.Errorf("connection.proxyPort out of range: %d", c.Connection.ProxyPort))
	}
	if c.Connection.ProxyPort != 0 && c.Connection.ProxyHost == "" {
		errs = append(errs, errors.New("connection.proxyHost is required when connection.proxyPort is set"))
	}
	switch c.Logging.Format {
	case "logfmt", "json", "terminal":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be one of logfmt, json, terminal, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}
