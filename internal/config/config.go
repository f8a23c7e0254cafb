package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lucasew/snaprotate/internal/retention"
	"github.com/lucasew/snaprotate/internal/snapshot"
)

const EnvPrefix = "SNAPROTATE"

const redacted = "[REDACTED]"

type Config struct {
	Cloud    CloudConfig    `yaml:"cloud" mapstructure:"cloud"`
	Instance InstanceConfig `yaml:"instance" mapstructure:"instance"`
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	Notify   NotifyConfig   `yaml:"notify" mapstructure:"notify"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

type CloudConfig struct {
	APIToken       string        `yaml:"api_token" mapstructure:"api_token"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	MaxPages       int           `yaml:"max_pages" mapstructure:"max_pages"`
	PageSize       int           `yaml:"page_size" mapstructure:"page_size"`
}

type InstanceConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
}

type SnapshotConfig struct {
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	Policy string `yaml:"policy" mapstructure:"policy"`
	Keep   int    `yaml:"keep" mapstructure:"keep"`
}

type NotifyConfig struct {
	OnFailure bool          `yaml:"on_failure" mapstructure:"on_failure"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Slack     SlackConfig   `yaml:"slack" mapstructure:"slack"`
	GitHub    GitHubConfig  `yaml:"github" mapstructure:"github"`
	Archive   ArchiveConfig `yaml:"archive" mapstructure:"archive"`
}

type SlackConfig struct {
	WebhookURL          string `yaml:"webhook_url" mapstructure:"webhook_url"`
	WebhookSecret       string `yaml:"webhook_secret" mapstructure:"webhook_secret"`
	Channel             string `yaml:"channel" mapstructure:"channel"`
	Username            string `yaml:"username" mapstructure:"username"`
	AllowPrivateNetwork bool   `yaml:"allow_private_network" mapstructure:"allow_private_network"`
}

// Enabled reports whether a webhook destination is configured.
func (c SlackConfig) Enabled() bool {
	return c.WebhookURL != "" || c.WebhookSecret != ""
}

type GitHubConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	AppID      int64  `yaml:"app_id" mapstructure:"app_id"`
	PrivateKey string `yaml:"private_key" mapstructure:"private_key"`
	Repo       string `yaml:"repo" mapstructure:"repo"`
	Issue      int    `yaml:"issue" mapstructure:"issue"`
}

func (c GitHubConfig) Enabled() bool {
	return c.Repo != ""
}

type ArchiveConfig struct {
	Type            string `yaml:"type" mapstructure:"type"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
	Region          string `yaml:"region" mapstructure:"region"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey       string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey       string `yaml:"secret_key" mapstructure:"secret_key"`
	PathStyle       bool   `yaml:"path_style" mapstructure:"path_style"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

func (c ArchiveConfig) Enabled() bool {
	return c.Type != ""
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var defaults = map[string]any{
	"cloud.base_url":                     "https://api.digitalocean.com/v2",
	"cloud.request_timeout":              30 * time.Second,
	"cloud.max_pages":                    snapshot.DefaultMaxPages,
	"cloud.page_size":                    snapshot.DefaultPageSize,
	"snapshot.prefix":                    snapshot.DefaultPrefix,
	"snapshot.policy":                    string(retention.KindKeepNewest),
	"snapshot.keep":                      retention.DefaultKeep,
	"notify.on_failure":                  true,
	"notify.timeout":                     30 * time.Second,
	"notify.slack.username":              "snaprotate",
	"notify.slack.allow_private_network": false,
	"notify.archive.path_style":          false,
	"log.level":                          "info",
	"log.format":                         "text",
}

// Keys without a default still need binding so AutomaticEnv sees them
// during Unmarshal.
var envKeys = []string{
	"cloud.api_token",
	"instance.name",
	"notify.slack.webhook_url",
	"notify.slack.webhook_secret",
	"notify.slack.channel",
	"notify.github.token",
	"notify.github.app_id",
	"notify.github.private_key",
	"notify.github.repo",
	"notify.github.issue",
	"notify.archive.type",
	"notify.archive.bucket",
	"notify.archive.prefix",
	"notify.archive.region",
	"notify.archive.endpoint",
	"notify.archive.access_key",
	"notify.archive.secret_key",
	"notify.archive.credentials_file",
}

// Environment names used by the original CI job.
var legacyEnv = map[string]string{
	"cloud.api_token":             "DO_API_KEY",
	"instance.name":               "DROPLET_NAME",
	"notify.slack.channel":        "SLACK_CHANNEL",
	"notify.slack.webhook_secret": "SLACK_WEBHOOK_SECRET",
}

// Setup registers defaults and environment bindings on v.
func Setup(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key := range defaults {
		_ = v.BindEnv(key)
	}
	for _, key := range envKeys {
		if legacy, ok := legacyEnv[key]; ok {
			_ = v.BindEnv(key, envName(key), legacy)
			continue
		}
		_ = v.BindEnv(key)
	}
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Cloud.APIToken == "" {
		errs = append(errs, errors.New("cloud.api_token is required"))
	}
	if c.Cloud.BaseURL == "" {
		errs = append(errs, errors.New("cloud.base_url is required"))
	}
	if c.Cloud.MaxPages < 1 {
		errs = append(errs, errors.New("cloud.max_pages must be positive"))
	}
	if c.Cloud.PageSize < 1 {
		errs = append(errs, errors.New("cloud.page_size must be positive"))
	}
	if c.Cloud.RequestTimeout < 0 {
		errs = append(errs, errors.New("cloud.request_timeout must not be negative"))
	}
	if c.Notify.Timeout < 0 {
		errs = append(errs, errors.New("notify.timeout must not be negative"))
	}
	if c.Instance.Name == "" {
		errs = append(errs, errors.New("instance.name is required"))
	}
	if c.Snapshot.Prefix == "" {
		errs = append(errs, errors.New("snapshot.prefix must not be empty"))
	}
	if _, err := retention.New(retention.Kind(c.Snapshot.Policy), c.Snapshot.Keep); err != nil {
		errs = append(errs, fmt.Errorf("snapshot: %w", err))
	}

	slack := c.Notify.Slack
	if slack.Channel != "" && !slack.Enabled() {
		errs = append(errs, errors.New("notify.slack.channel is set but no webhook is configured"))
	}

	gh := c.Notify.GitHub
	if gh.Enabled() {
		if parts := strings.Split(gh.Repo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			errs = append(errs, fmt.Errorf("notify.github.repo must be owner/name, got %q", gh.Repo))
		}
		if gh.Issue <= 0 {
			errs = append(errs, errors.New("notify.github.issue must be positive"))
		}
		if gh.Token == "" && (gh.AppID == 0 || gh.PrivateKey == "") {
			errs = append(errs, errors.New("notify.github needs a token or app_id with private_key"))
		}
	}

	archive := c.Notify.Archive
	if archive.Enabled() {
		switch archive.Type {
		case "s3", "gcs":
		default:
			errs = append(errs, fmt.Errorf("notify.archive.type must be s3 or gcs, got %q", archive.Type))
		}
		if archive.Bucket == "" {
			errs = append(errs, errors.New("notify.archive.bucket is required"))
		}
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Redacted returns a copy with every secret replaced, suitable for printing.
func (c Config) Redacted() Config {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&c.Cloud.APIToken)
	mask(&c.Notify.Slack.WebhookURL)
	mask(&c.Notify.Slack.WebhookSecret)
	mask(&c.Notify.GitHub.Token)
	mask(&c.Notify.Archive.AccessKey)
	mask(&c.Notify.Archive.SecretKey)
	return c
}

// NewLogger builds the process logger described by the log section.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
