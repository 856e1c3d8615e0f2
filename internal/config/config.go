package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Sentinel validation errors.
var (
	ErrInvalidMode            = errors.New("invalid discovery mode")
	ErrInvalidCollisionPolicy = errors.New("invalid collision policy")
	ErrInvalidWorkers         = errors.New("workers must not be negative")
	ErrInvalidFormat          = errors.New("invalid output format")
	ErrInvalidLogLevel        = errors.New("invalid log level")
	ErrMissingGerritHost      = errors.New("gerrit host is required (GERRIT_HOST)")
	ErrMissingBouncerKey      = errors.New("bouncer key is required (MASTER_BOUNCER_KEY)")
	ErrMissingWorkspace       = errors.New("workspace is required (WORKSPACE)")
)

// Default values.
const (
	DefaultMode        = "fixed"
	DefaultNodesDir    = "coverage_nodes"
	DefaultResultDir   = "spec_coverage"
	DefaultFilename    = ".resultset.json"
	DefaultOnCollision = "overwrite"
	DefaultGitPort     = 29418
	DefaultProject     = "canvas-lms"
	DefaultBranch      = "master"
	DefaultReviewLabel = "Lint-Review"
	DefaultImage       = "instructure/gergich"
	DefaultEntrypoint  = "master_bouncer"
	DefaultWIPMarker   = "wip"
	DefaultFormat      = "auto"
	DefaultTheme       = "default"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"

	// FileName is the project config file looked up when no path is given.
	FileName  = ".cibot.yaml"
	envPrefix = "CIBOT"
	redacted  = "<redacted>"
)

// Config is the application configuration.
type Config struct {
	Coverage CoverageConfig `mapstructure:"coverage" yaml:"coverage"`
	Bouncer  BouncerConfig  `mapstructure:"bouncer" yaml:"bouncer"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// CoverageConfig drives the coverage aggregator.
type CoverageConfig struct {
	Root          string `mapstructure:"root" yaml:"root"`
	Mode          string `mapstructure:"mode" yaml:"mode"`
	NodesDir      string `mapstructure:"nodes_dir" yaml:"nodes_dir"`
	ResultDir     string `mapstructure:"result_dir" yaml:"result_dir"`
	Filename      string `mapstructure:"filename" yaml:"filename"`
	Output        string `mapstructure:"output" yaml:"output"`
	OnCollision   string `mapstructure:"on_collision" yaml:"on_collision"`
	SkipMalformed bool   `mapstructure:"skip_malformed" yaml:"skip_malformed"`
	Workers       int    `mapstructure:"workers" yaml:"workers"`
}

// BouncerConfig drives the change dispatcher.
type BouncerConfig struct {
	GerritHost      string `mapstructure:"gerrit_host" yaml:"gerrit_host"`
	GitPort         int    `mapstructure:"git_port" yaml:"git_port"`
	Project         string `mapstructure:"project" yaml:"project"`
	Branch          string `mapstructure:"branch" yaml:"branch"`
	Workspace       string `mapstructure:"workspace" yaml:"workspace"`
	Key             string `mapstructure:"key" yaml:"key"`
	Username        string `mapstructure:"username" yaml:"username"`
	ReviewLabel     string `mapstructure:"review_label" yaml:"review_label"`
	Image           string `mapstructure:"image" yaml:"image"`
	Entrypoint      string `mapstructure:"entrypoint" yaml:"entrypoint"`
	SSHKeyPath      string `mapstructure:"ssh_key_path" yaml:"ssh_key_path"`
	SSHUsername     string `mapstructure:"ssh_username" yaml:"ssh_username"`
	WIPMarker       string `mapstructure:"wip_marker" yaml:"wip_marker"`
	DryRun          bool   `mapstructure:"dry_run" yaml:"dry_run"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error"`
}

// OutputConfig selects how run summaries are rendered.
type OutputConfig struct {
	Format  string `mapstructure:"format" yaml:"format"`
	Theme   string `mapstructure:"theme" yaml:"theme"`
	CI      bool   `mapstructure:"ci" yaml:"ci"`
	NoColor bool   `mapstructure:"no_color" yaml:"no_color"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Debug  bool   `mapstructure:"debug" yaml:"debug"`
}

// MetricsConfig points at the node-exporter textfile written after each run.
type MetricsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// legacyEnv maps config keys to the environment names used by existing CI jobs.
var legacyEnv = map[string][]string{
	"bouncer.gerrit_host":  {"GERRIT_HOST"},
	"bouncer.workspace":    {"WORKSPACE"},
	"bouncer.key":          {"MASTER_BOUNCER_KEY"},
	"bouncer.ssh_key_path": {"SSH_KEY_PATH"},
	"bouncer.ssh_username": {"SSH_USERNAME"},
	"logging.debug":        {"DEBUG"},
	"output.ci":            {"CI"},
}

// Loader layers defaults, file, environment and flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a Loader with defaults and environment bindings applied.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		// BindEnv only errors when called without a key.
		_ = v.BindEnv(append([]string{key, prefixed}, names...)...)
	}
	return &Loader{v: v}
}

// BindFlag makes flag override key when the user sets it explicitly.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: flag not defined", key)
	}
	if err := l.v.BindPFlag(key, flag); err != nil {
		return fmt.Errorf("bind %s: %w", key, err)
	}
	return nil
}

// Load reads configPath (or the default lookup locations when empty),
// unmarshals and validates the result.
func (l *Loader) Load(configPath string) (*Config, error) {
	if configPath != "" {
		l.v.SetConfigFile(configPath)
	} else {
		l.v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(dir, "cibot"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the config file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load is a convenience for NewLoader().Load(configPath).
func Load(configPath string) (*Config, error) {
	return NewLoader().Load(configPath)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("coverage.root", ".")
	v.SetDefault("coverage.mode", DefaultMode)
	v.SetDefault("coverage.nodes_dir", DefaultNodesDir)
	v.SetDefault("coverage.result_dir", DefaultResultDir)
	v.SetDefault("coverage.filename", DefaultFilename)
	v.SetDefault("coverage.output", "")
	v.SetDefault("coverage.on_collision", DefaultOnCollision)
	v.SetDefault("coverage.skip_malformed", false)
	v.SetDefault("coverage.workers", 0)

	v.SetDefault("bouncer.gerrit_host", "")
	v.SetDefault("bouncer.git_port", DefaultGitPort)
	v.SetDefault("bouncer.project", DefaultProject)
	v.SetDefault("bouncer.branch", DefaultBranch)
	v.SetDefault("bouncer.workspace", "")
	v.SetDefault("bouncer.key", "")
	v.SetDefault("bouncer.username", "master_bouncer")
	v.SetDefault("bouncer.review_label", DefaultReviewLabel)
	v.SetDefault("bouncer.image", DefaultImage)
	v.SetDefault("bouncer.entrypoint", DefaultEntrypoint)
	v.SetDefault("bouncer.ssh_key_path", "")
	v.SetDefault("bouncer.ssh_username", "")
	v.SetDefault("bouncer.wip_marker", DefaultWIPMarker)
	v.SetDefault("bouncer.dry_run", false)
	v.SetDefault("bouncer.continue_on_error", false)

	v.SetDefault("output.format", DefaultFormat)
	v.SetDefault("output.theme", DefaultTheme)
	v.SetDefault("output.ci", false)
	v.SetDefault("output.no_color", false)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("logging.debug", false)

	v.SetDefault("metrics.file", "")
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	switch c.Coverage.Mode {
	case "fixed", "glob":
	default:
		return fmt.Errorf("%w: %q (expected fixed or glob)", ErrInvalidMode, c.Coverage.Mode)
	}
	switch c.Coverage.OnCollision {
	case "overwrite", "error":
	default:
		return fmt.Errorf("%w: %q (expected overwrite or error)", ErrInvalidCollisionPolicy, c.Coverage.OnCollision)
	}
	if c.Coverage.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Coverage.Workers)
	}
	switch c.Output.Format {
	case "auto", "terminal", "llm", "json":
	default:
		return fmt.Errorf("%w: %q (expected auto, terminal, llm, json)", ErrInvalidFormat, c.Output.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}
	return nil
}

// ValidateBouncer checks the settings the dispatcher cannot run without.
func (c *Config) ValidateBouncer() error {
	var errs []error
	if c.Bouncer.GerritHost == "" {
		errs = append(errs, ErrMissingGerritHost)
	}
	if c.Bouncer.Key == "" {
		errs = append(errs, ErrMissingBouncerKey)
	}
	if c.Bouncer.Workspace == "" {
		errs = append(errs, ErrMissingWorkspace)
	}
	return errors.Join(errs...)
}

// YAML renders the configuration with secrets redacted.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	if out.Bouncer.Key != "" {
		out.Bouncer.Key = redacted
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
