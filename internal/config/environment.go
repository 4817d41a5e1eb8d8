package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/joho/godotenv"
)

// Configuration set keys read from the environment file.
const (
	EnvPHPVersion         = "PHP_VERSION"
	EnvSiteURL            = "WP_SITE_URL"
	EnvEmail              = "WP_EMAIL"
	EnvMySQLVersion       = "MYSQL_VERSION"
	EnvMySQLUser          = "MYSQL_USER"
	EnvMySQLPassword      = "MYSQL_PASSWORD"
	EnvMySQLRootPassword  = "MYSQL_ROOT_PASSWORD"
	EnvMySQLDatabase      = "MYSQL_DATABASE"
	EnvNginxVersion       = "NGINX_VERSION"
	EnvNginxServerName    = "NGINX_SERVER_NAME"
	EnvComposeProjectName = "COMPOSE_PROJECT_NAME"
	EnvNginxEnableSSL     = "NGINX_ENABLE_SSL"
)

// RequiredKeys lists the keys every environment file must set, in check order.
func RequiredKeys() []string {
	return []string{
		EnvPHPVersion,
		EnvSiteURL,
		EnvEmail,
		EnvMySQLVersion,
		EnvMySQLUser,
		EnvMySQLPassword,
		EnvMySQLRootPassword,
		EnvMySQLDatabase,
		EnvNginxVersion,
		EnvNginxServerName,
		EnvComposeProjectName,
	}
}

var (
	// ErrMissingKey marks a required key that is absent or empty.
	ErrMissingKey = errors.New("is not set")
	// ErrInvalidFormat marks a key whose value fails its format check.
	ErrInvalidFormat = errors.New("has an invalid format")
)

var (
	versionPattern    = regexp.MustCompile(`^\d+(\.\d+){0,2}$`)
	siteURLPattern    = regexp.MustCompile(`^https?://[A-Za-z0-9._~:/?#@!$&'()*+,;=%-]*$`)
	emailPattern      = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	serverNamePattern = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)
)

// ValidationError reports the first constraint an environment file violates.
type ValidationError struct {
	Key   string
	Value string
	Hint  string
	Err   error
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Err, ErrMissingKey) {
		return fmt.Sprintf("%s %v", e.Key, e.Err)
	}

	return fmt.Sprintf("%s=%q %v: %s", e.Key, e.Value, e.Err, e.Hint)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Environment is the validated WordPress configuration set.
// It is not modified after ParseEnvironment returns it.
type Environment struct {
	PHPVersion         string
	SiteURL            string
	Email              string
	MySQLVersion       string
	MySQLUser          string
	MySQLPassword      string
	MySQLRootPassword  string
	MySQLDatabase      string
	NginxVersion       string
	NginxServerName    string
	ComposeProjectName string
	EnableSSL          bool
}

// LoadEnvironment reads the dotenv file at path and validates it.
// The process environment is not touched.
func LoadEnvironment(path string) (*Environment, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}

	return ParseEnvironment(values)
}

type formatCheck struct {
	key     string
	pattern *regexp.Regexp
	hint    string
}

func formatChecks() []formatCheck {
	const versionHint = "expected 1-3 dot-separated numbers, e.g. 8.2"

	return []formatCheck{
		{EnvPHPVersion, versionPattern, versionHint},
		{EnvMySQLVersion, versionPattern, versionHint},
		{EnvNginxVersion, versionPattern, versionHint},
		{EnvSiteURL, siteURLPattern, "expected an http:// or https:// URL"},
		{EnvEmail, emailPattern, "expected an address like name@example.test"},
		{EnvNginxServerName, serverNamePattern, "expected letters, digits, dots and hyphens only"},
	}
}

// ParseEnvironment validates values and returns the Environment they describe.
// Checks stop at the first violation: missing keys in RequiredKeys order,
// then formats.
func ParseEnvironment(values map[string]string) (*Environment, error) {
	for _, key := range RequiredKeys() {
		if values[key] == "" {
			return nil, &ValidationError{Key: key, Err: ErrMissingKey}
		}
	}

	for _, check := range formatChecks() {
		value := values[check.key]
		if !check.pattern.MatchString(value) {
			return nil, &ValidationError{Key: check.key, Value: value, Hint: check.hint, Err: ErrInvalidFormat}
		}
	}

	return &Environment{
		PHPVersion:         values[EnvPHPVersion],
		SiteURL:            values[EnvSiteURL],
		Email:              values[EnvEmail],
		MySQLVersion:       values[EnvMySQLVersion],
		MySQLUser:          values[EnvMySQLUser],
		MySQLPassword:      values[EnvMySQLPassword],
		MySQLRootPassword:  values[EnvMySQLRootPassword],
		MySQLDatabase:      values[EnvMySQLDatabase],
		NginxVersion:       values[EnvNginxVersion],
		NginxServerName:    values[EnvNginxServerName],
		ComposeProjectName: values[EnvComposeProjectName],
		EnableSSL:          values[EnvNginxEnableSSL] == "true",
	}, nil
}
