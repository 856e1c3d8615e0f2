// Package config handles configuration loading and merging for cibot.
//
// # Configuration Precedence
//
// Configuration values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--root, --mode, --on-collision, --dry-run, etc.)
//  2. Environment variables (CIBOT_COVERAGE_MODE, CIBOT_BOUNCER_BRANCH, ...)
//  3. Legacy CI environment variables (WORKSPACE, GERRIT_HOST, MASTER_BOUNCER_KEY,
//     SSH_KEY_PATH, SSH_USERNAME, DEBUG)
//  4. YAML config file (.cibot.yaml in the working directory or ~/.config/cibot/)
//  5. Hardcoded defaults
//
// The resulting Config is built once at process entry and passed down.
// Packages below cmd never read the environment themselves.
//
// # CI Mode Behavior
//
// When CI mode is enabled (CI=true, or output.ci: true in YAML) or NO_COLOR is set,
// the terminal renderer falls back to the monochrome theme.
package config
