package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets variables a CI host may carry so defaults are observable.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GERRIT_HOST", "WORKSPACE", "MASTER_BOUNCER_KEY", "SSH_KEY_PATH", "SSH_USERNAME", "DEBUG", "CI"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Coverage.Root)
	assert.Equal(t, DefaultMode, cfg.Coverage.Mode)
	assert.Equal(t, DefaultNodesDir, cfg.Coverage.NodesDir)
	assert.Equal(t, DefaultResultDir, cfg.Coverage.ResultDir)
	assert.Equal(t, DefaultFilename, cfg.Coverage.Filename)
	assert.Equal(t, DefaultOnCollision, cfg.Coverage.OnCollision)
	assert.False(t, cfg.Coverage.SkipMalformed)
	assert.Equal(t, DefaultGitPort, cfg.Bouncer.GitPort)
	assert.Equal(t, DefaultProject, cfg.Bouncer.Project)
	assert.Equal(t, DefaultBranch, cfg.Bouncer.Branch)
	assert.Equal(t, DefaultImage, cfg.Bouncer.Image)
	assert.Equal(t, DefaultFormat, cfg.Output.Format)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, `
coverage:
  mode: glob
  on_collision: error
  skip_malformed: true
  workers: 4
bouncer:
  branch: stable
`))
	require.NoError(t, err)
	assert.Equal(t, "glob", cfg.Coverage.Mode)
	assert.Equal(t, "error", cfg.Coverage.OnCollision)
	assert.True(t, cfg.Coverage.SkipMalformed)
	assert.Equal(t, 4, cfg.Coverage.Workers)
	assert.Equal(t, "stable", cfg.Bouncer.Branch)
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("GERRIT_HOST", "gerrit.example.com")
	t.Setenv("WORKSPACE", "/var/lib/jenkins/ws")
	t.Setenv("MASTER_BOUNCER_KEY", "k3y")
	t.Setenv("SSH_KEY_PATH", "/keys/id")
	t.Setenv("SSH_USERNAME", "jenkins")
	t.Setenv("DEBUG", "1")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "gerrit.example.com", cfg.Bouncer.GerritHost)
	assert.Equal(t, "/var/lib/jenkins/ws", cfg.Bouncer.Workspace)
	assert.Equal(t, "k3y", cfg.Bouncer.Key)
	assert.Equal(t, "/keys/id", cfg.Bouncer.SSHKeyPath)
	assert.Equal(t, "jenkins", cfg.Bouncer.SSHUsername)
	assert.True(t, cfg.Logging.Debug)
	assert.NoError(t, cfg.ValidateBouncer())
}

func TestLoad_PrefixedEnvBeatsLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv("GERRIT_HOST", "legacy.example.com")
	t.Setenv("CIBOT_BOUNCER_GERRIT_HOST", "new.example.com")
	t.Setenv("CIBOT_COVERAGE_MODE", "glob")

	cfg, err := Load(writeConfig(t, "coverage:\n  mode: fixed\n"))
	require.NoError(t, err)
	assert.Equal(t, "new.example.com", cfg.Bouncer.GerritHost)
	assert.Equal(t, "glob", cfg.Coverage.Mode)
}

func TestLoad_FlagOverridesEverything(t *testing.T) {
	clearEnv(t)
	t.Setenv("CIBOT_COVERAGE_MODE", "glob")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("mode", "fixed", "")
	require.NoError(t, fs.Parse([]string{"--mode", "fixed"}))

	l := NewLoader()
	require.NoError(t, l.BindFlag("coverage.mode", fs.Lookup("mode")))
	cfg, err := l.Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "fixed", cfg.Coverage.Mode)
}

func TestLoader_BindUnknownFlag(t *testing.T) {
	err := NewLoader().BindFlag("coverage.mode", nil)
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"mode", "coverage:\n  mode: walk\n", ErrInvalidMode},
		{"collision", "coverage:\n  on_collision: merge\n", ErrInvalidCollisionPolicy},
		{"workers", "coverage:\n  workers: -1\n", ErrInvalidWorkers},
		{"format", "output:\n  format: html\n", ErrInvalidFormat},
		{"log level", "logging:\n  level: chatty\n", ErrInvalidLogLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad_UnreadableFile(t *testing.T) {
	_, err := Load(writeConfig(t, "coverage: [unclosed"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidateBouncer_ReportsAllMissing(t *testing.T) {
	cfg := &Config{}
	err := cfg.ValidateBouncer()
	assert.ErrorIs(t, err, ErrMissingGerritHost)
	assert.ErrorIs(t, err, ErrMissingBouncerKey)
	assert.ErrorIs(t, err, ErrMissingWorkspace)
}

func TestConfig_YAMLRedactsKey(t *testing.T) {
	cfg := &Config{Bouncer: BouncerConfig{Key: "k3y", GerritHost: "g"}}
	data, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "k3y")
	assert.Contains(t, string(data), "key: <redacted>")
	assert.Contains(t, string(data), "gerrit_host: g")
	assert.Equal(t, "k3y", cfg.Bouncer.Key, "original is untouched")
}

func TestLoad_MetricsFileFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CIBOT_METRICS_FILE", "/var/lib/node_exporter/cibot.prom")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/node_exporter/cibot.prom", cfg.Metrics.File)
}
