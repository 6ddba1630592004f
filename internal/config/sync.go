package config

import "time"

// SyncConfig holds the sync job configuration.
type SyncConfig struct {
	Source   SourceConfig   `yaml:"source"`
	S3       S3Config       `yaml:"s3"`
	Push     PushConfig     `yaml:"push"`
	Identity IdentityConfig `yaml:"identity"`
	Jira     JiraConfig     `yaml:"jira"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SourceConfig names the spreadsheet to read.
type SourceConfig struct {
	// Path is a local file or an s3://bucket/key URL (.xlsx or .csv)
	Path string `env:"SYNC_SOURCE" envAlt:"EXCEL_PATH" yaml:"path" required:"true"`

	// Sheet is the worksheet name for xlsx files (default: ALL DATA)
	Sheet string `env:"SYNC_SHEET" envAlt:"SHEET_NAME" yaml:"sheet" default:"ALL DATA"`
}

// S3Config holds object storage settings used for s3:// sources.
type S3Config struct {
	Region          string `env:"AWS_REGION" yaml:"region" default:"us-east-1"`
	Endpoint        string `env:"S3_ENDPOINT" yaml:"endpoint"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" yaml:"access_key_id"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" yaml:"secret_access_key"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" yaml:"use_path_style"`
}

// PushConfig holds the release API ingest settings.
type PushConfig struct {
	// URL is the ingest endpoint (default: http://127.0.0.1:8000/releases)
	URL string `env:"API_URL" yaml:"url" default:"http://127.0.0.1:8000/releases"`

	// APIKey is the shared secret sent as a bearer token (required)
	APIKey string `env:"API_KEY" yaml:"api_key" required:"true"`

	// Timeout bounds one push request (default: 30s)
	Timeout time.Duration `env:"PUSH_TIMEOUT" yaml:"timeout" default:"30s"`
}

// IdentityConfig tunes identifier assignment.
type IdentityConfig struct {
	// Fingerprint is the composite digest: sha1 or blake3 (default: sha1)
	Fingerprint string `env:"SYNC_FINGERPRINT" yaml:"fingerprint" default:"sha1"`

	// SuffixFirst also suffixes the first row of a duplicate group with -0
	SuffixFirst bool `env:"SYNC_DEDUP_SUFFIX_FIRST" yaml:"suffix_first"`
}

// JiraConfig holds the ticketing search settings.
type JiraConfig struct {
	// Enabled turns the issue search on (default: true)
	Enabled bool `env:"JIRA_ENABLED" yaml:"enabled" default:"true"`

	BaseURL  string `env:"JIRA_BASE_URL" yaml:"base_url"`
	Email    string `env:"JIRA_EMAIL" yaml:"email"`
	APIToken string `env:"JIRA_API_TOKEN" yaml:"api_token"`

	// Project is the preferred project key; the first accessible one is used otherwise
	Project string `env:"JIRA_PROJECT" yaml:"project"`

	// Days bounds the query to issues updated in the last N days (default: 30)
	Days int `env:"JIRA_DAYS" yaml:"days" default:"30"`

	// RetryDays is the narrower window used after an unbound-query rejection (default: 7)
	RetryDays int `env:"JIRA_RETRY_DAYS" yaml:"retry_days" default:"7"`

	// MaxResults caps issues per search (default: 25)
	MaxResults int `env:"JIRA_MAX_RESULTS" yaml:"max_results" default:"25"`

	// Timeout bounds one Jira request (default: 30s)
	Timeout time.Duration `env:"JIRA_TIMEOUT" yaml:"timeout" default:"30s"`
}

// Configured reports whether enough credentials are present to search.
func (c *JiraConfig) Configured() bool {
	return c.BaseURL != "" && c.Email != "" && c.APIToken != ""
}

// ScheduleConfig controls periodic runs.
type ScheduleConfig struct {
	// Interval between runs; 0 runs once and exits
	Interval time.Duration `env:"SYNC_INTERVAL" yaml:"interval"`
}
