package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/releaseboard/internal/core"
	"gopkg.in/yaml.v3"
)

// Load reads the server configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}
	v := reflect.ValueOf(cfg).Elem()

	if err := applyDefaults(v); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := applyEnv(v); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := checkRequired(v); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadSync reads the sync job configuration. Defaults are applied first,
// then the YAML file at path (if any), then environment variables, so a
// variable that is set always wins.
func LoadSync(path string) (*SyncConfig, error) {
	cfg := &SyncConfig{}
	v := reflect.ValueOf(cfg).Elem()

	if err := applyDefaults(v); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config load: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(v); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := checkRequired(v); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// walkFields calls fn for every settable leaf field carrying an env tag,
// recursing into nested structs.
func walkFields(v reflect.Value, fn func(field reflect.StructField, val reflect.Value) error) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := walkFields(fieldVal, fn); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("env") == "" {
			continue
		}
		if err := fn(field, fieldVal); err != nil {
			return err
		}
	}

	return nil
}

// applyDefaults sets every field with a default tag.
func applyDefaults(v reflect.Value) error {
	return walkFields(v, func(field reflect.StructField, val reflect.Value) error {
		def := field.Tag.Get("default")
		if def == "" {
			return nil
		}
		if err := setField(val, def); err != nil {
			return fmt.Errorf("invalid default for %s=%q: %w", field.Tag.Get("env"), def, err)
		}
		return nil
	})
}

// applyEnv overrides fields whose primary or alternate variable is set.
func applyEnv(v reflect.Value) error {
	return walkFields(v, func(field reflect.StructField, val reflect.Value) error {
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}
		if value == "" {
			return nil
		}

		if err := setField(val, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
		return nil
	})
}

// checkRequired fails on the first required field still empty.
func checkRequired(v reflect.Value) error {
	return walkFields(v, func(field reflect.StructField, val reflect.Value) error {
		if field.Tag.Get("required") == "true" && val.IsZero() {
			return fmt.Errorf("required environment variable %s is not set", field.Tag.Get("env"))
		}
		return nil
	})
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		// Split comma-separated values, trim whitespace
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// API validation
	if strings.TrimSpace(c.API.Key) == "" {
		errs = append(errs, "API_KEY is required")
	}
	if c.API.MaxBodySize <= 0 {
		errs = append(errs, "API_MAX_BODY_SIZE must be positive")
	}
	if c.API.MaxConcurrentIngests <= 0 {
		errs = append(errs, "INGEST_MAX_CONCURRENT must be positive")
	}
	if c.API.IngestWait <= 0 {
		errs = append(errs, "INGEST_MAX_WAIT_TIME must be positive")
	}
	for _, col := range c.API.EditableColumns {
		if col == core.IDField {
			errs = append(errs, fmt.Sprintf("EDITABLE_COLUMNS must not contain the identifier field %s", core.IDField))
		}
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.IngestLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_INGEST must be positive when rate limiting is enabled")
	}

	// Audit validation
	if c.Audit.Enabled() {
		if c.Audit.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Audit.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Audit.MaxConns < c.Audit.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Audit.MaxConns, c.Audit.MinConns))
		}
	}
	if c.Audit.MemoryEntries <= 0 {
		errs = append(errs, "AUDIT_MEMORY_ENTRIES must be positive")
	}

	errs = append(errs, validateLogging(c.Logging)...)

	return joinErrors(errs)
}

// Validate checks that the sync configuration is valid.
func (c *SyncConfig) Validate() error {
	var errs []string

	// Source validation
	if c.Source.Path == "" {
		errs = append(errs, "SYNC_SOURCE is required")
	} else if ext := strings.ToLower(sourceExt(c.Source.Path)); ext != ".xlsx" && ext != ".csv" {
		errs = append(errs, fmt.Sprintf("SYNC_SOURCE (%q) must be a .xlsx or .csv file", c.Source.Path))
	}
	if strings.HasPrefix(c.Source.Path, "s3://") {
		if _, _, err := ParseS3URL(c.Source.Path); err != nil {
			errs = append(errs, fmt.Sprintf("SYNC_SOURCE: %v", err))
		}
	}

	// Push validation
	if u, err := url.Parse(c.Push.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("API_URL (%q) must be an absolute URL", c.Push.URL))
	}
	if strings.TrimSpace(c.Push.APIKey) == "" {
		errs = append(errs, "API_KEY is required")
	}
	if c.Push.Timeout <= 0 {
		errs = append(errs, "PUSH_TIMEOUT must be positive")
	}

	// Identity validation
	if _, err := core.FingerprintByName(c.Identity.Fingerprint); err != nil {
		errs = append(errs, fmt.Sprintf("SYNC_FINGERPRINT: %v", err))
	}

	// Jira validation
	if c.Jira.Enabled {
		if c.Jira.Days <= 0 {
			errs = append(errs, "JIRA_DAYS must be positive")
		}
		if c.Jira.RetryDays <= 0 {
			errs = append(errs, "JIRA_RETRY_DAYS must be positive")
		}
		if c.Jira.MaxResults <= 0 {
			errs = append(errs, "JIRA_MAX_RESULTS must be positive")
		}
		if c.Jira.Timeout <= 0 {
			errs = append(errs, "JIRA_TIMEOUT must be positive")
		}
	}

	// Schedule validation
	if c.Schedule.Interval < 0 {
		errs = append(errs, "SYNC_INTERVAL must be non-negative")
	}

	errs = append(errs, validateLogging(c.Logging)...)

	return joinErrors(errs)
}

func validateLogging(l LoggingConfig) []string {
	var errs []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(l.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", l.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(l.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", l.Format))
	}

	return errs
}

func joinErrors(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(raw string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(raw, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%q is not an s3:// URL", raw)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", errors.New("s3 URL must look like s3://bucket/key")
	}
	return bucket, key, nil
}

func sourceExt(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 || strings.Contains(path[i:], "/") {
		return ""
	}
	return path[i:]
}

// String returns a safe string representation of the config for logging.
// Sensitive values like the API key and database URL are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("API: {Key: [MASKED], EditableColumns: %v, MaxBodySize: %d}, ",
		c.API.EditableColumns, c.API.MaxBodySize))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Audit: {Database: %v, MaxConns: %d}, ", c.Audit.Enabled(), c.Audit.MaxConns))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

// String returns a safe string representation of the sync config.
func (c *SyncConfig) String() string {
	var b strings.Builder
	b.WriteString("SyncConfig{")
	b.WriteString(fmt.Sprintf("Source: {Path: %q, Sheet: %q}, ", c.Source.Path, c.Source.Sheet))
	b.WriteString(fmt.Sprintf("Push: {URL: %q, APIKey: [MASKED], Timeout: %s}, ", c.Push.URL, c.Push.Timeout))
	b.WriteString(fmt.Sprintf("Identity: {Fingerprint: %q, SuffixFirst: %v}, ",
		c.Identity.Fingerprint, c.Identity.SuffixFirst))
	b.WriteString(fmt.Sprintf("Jira: {Enabled: %v, BaseURL: %q, Email: %q, APIToken: [MASKED], Project: %q, Days: %d}, ",
		c.Jira.Enabled, c.Jira.BaseURL, c.Jira.Email, c.Jira.Project, c.Jira.Days))
	b.WriteString(fmt.Sprintf("Schedule: {Interval: %s}, ", c.Schedule.Interval))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
