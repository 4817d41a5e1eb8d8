// Package config provides configuration management for the wpenv CLI.
//
// Two kinds of configuration live here. Tool settings (where to fetch the
// template, which network to share, which setup script to run) follow the
// disciplined Viper pattern: Viper stays contained in this package and the
// rest of the codebase receives an explicit Config struct. Sources are
// resolved in this order: flags > env > config file > defaults.
//
// The WordPress environment itself is described by a dotenv file in the
// working directory and is loaded into an Environment (see environment.go).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Setting keys shared by Init, Load and the cli flag bindings.
const (
	KeyDir          = "dir"
	KeyTemplateURL  = "template-url"
	KeyNetwork      = "network"
	KeySetupService = "setup-service"
	KeySetupScript  = "setup-script"
	KeyCertFile     = "cert-file"
	KeyLogLevel     = "log-level"
)

// DefaultTemplateURL is the archive the working directory is populated from.
const DefaultTemplateURL = "https://github.com/blackwell-systems/wordpress-docker-template/archive/refs/heads/main.tar.gz"

// Config is the explicit configuration struct
// This is what the rest of the codebase sees
type Config struct {
	Dir          string
	TemplateURL  string
	Network      string
	SetupService string
	SetupScript  string
	CertFile     string
	LogLevel     string
}

var (
	errTemplateURL  = errors.New("template-url must be an absolute http(s) URL")
	errNetworkName  = errors.New("network must not be empty")
	errSetupService = errors.New("setup-service must not be empty")
	errSetupScript  = errors.New("setup-script must not be empty")
)

// Init initializes viper with defaults and config file paths
func Init() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath("$HOME/.wpenv")

	viper.SetDefault(KeyDir, ".")
	viper.SetDefault(KeyTemplateURL, DefaultTemplateURL)
	viper.SetDefault(KeyNetwork, "wordpress-dev")
	viper.SetDefault(KeySetupService, "php")
	viper.SetDefault(KeySetupScript, "/usr/local/bin/wp-setup")
	viper.SetDefault(KeyCertFile, "nginx/certs/localhost.crt")
	viper.SetDefault(KeyLogLevel, "warn")

	// WPENV_TEMPLATE_URL, WPENV_NETWORK, ...
	viper.SetEnvPrefix("WPENV")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return nil
}

// Load reads from all sources and returns explicit Config
func Load() (*Config, error) {
	cfg := &Config{
		Dir:          viper.GetString(KeyDir),
		TemplateURL:  viper.GetString(KeyTemplateURL),
		Network:      viper.GetString(KeyNetwork),
		SetupService: viper.GetString(KeySetupService),
		SetupScript:  viper.GetString(KeySetupScript),
		CertFile:     viper.GetString(KeyCertFile),
		LogLevel:     viper.GetString(KeyLogLevel),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures config is sane
func (c *Config) Validate() error {
	u, err := url.Parse(c.TemplateURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errTemplateURL, c.TemplateURL)
	}

	if strings.TrimSpace(c.Network) == "" {
		return errNetworkName
	}

	if strings.TrimSpace(c.SetupService) == "" {
		return errSetupService
	}

	if strings.TrimSpace(c.SetupScript) == "" {
		return errSetupScript
	}

	if c.Dir == "" {
		c.Dir = "."
	}

	return nil
}

// Display shows current config (for wpenv config)
func Display() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = "(not found)"
	}

	return fmt.Sprintf(`Configuration:
  dir:                %s
  template-url:       %s
  network:            %s
  setup-service:      %s
  setup-script:       %s
  cert-file:          %s
  log-level:          %s

Sources:
  Config file:        %s
  Environment:        WPENV_*
  Flags:              (global)
`,
		cfg.Dir,
		cfg.TemplateURL,
		cfg.Network,
		cfg.SetupService,
		cfg.SetupScript,
		cfg.CertFile,
		cfg.LogLevel,
		configFile,
	), nil
}
