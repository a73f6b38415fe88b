// Package config resolves ownkey's file locations and reads the optional
// config.yaml from the ownkey home directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forest6511/ownkey/pkg/credstore"
	"github.com/forest6511/ownkey/pkg/remote"
	"github.com/forest6511/ownkey/pkg/session"
	"github.com/forest6511/ownkey/pkg/store"
)

// HomeEnv overrides the ownkey home directory.
const HomeEnv = "OWNKEY_HOME"

// File names inside the ownkey home directory.
const (
	DirName         = ".ownkey"
	ConfigFileName  = "config.yaml"
	VaultFileName   = "vault.json"
	SessionFileName = "session"
	RemoteVaultName = "remote_vault.json"
)

// Config is resolved once at startup and passed to every command.
type Config struct {
	Home            string
	ConfigPath      string
	VaultPath       string
	SessionPath     string
	SyncProvider    string
	SyncRemotePath  string
	KeychainService string
	SessionTTL      time.Duration
}

// fileConfig is the on-disk shape of config.yaml.
type fileConfig struct {
	SyncProvider    string `yaml:"sync_provider"`
	SyncRemotePath  string `yaml:"sync_remote_path"`
	KeychainService string `yaml:"keychain_service"`
	SessionTTL      string `yaml:"session_ttl"`
}

const template = `# ownkey configuration

# sync_provider controls how vault sync works.
# Supported values:
#   local_only - no remote sync (default)
#   file       - mirror the encrypted vault to sync_remote_path
#   http       - reserved, falls back to local_only
sync_provider: local_only

# sync_remote_path: ~/.ownkey/remote_vault.json

# keychain_service is the credential store service name.
# keychain_service: ownkey

# session_ttl is how long an unlocked vault key is cached.
# session_ttl: 5m
`

// HomeDir returns the ownkey home directory: $OWNKEY_HOME or ~/.ownkey.
func HomeDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: failed to get user home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Default returns the configuration used when config.yaml is absent.
func Default(home string) *Config {
	return &Config{
		Home:            home,
		ConfigPath:      filepath.Join(home, ConfigFileName),
		VaultPath:       filepath.Join(home, VaultFileName),
		SessionPath:     filepath.Join(home, SessionFileName),
		SyncProvider:    remote.ProviderLocalOnly,
		SyncRemotePath:  filepath.Join(home, RemoteVaultName),
		KeychainService: credstore.DefaultService,
		SessionTTL:      session.DefaultTTL,
	}
}

// Load resolves the configuration rooted at home. A missing config.yaml is
// created from a commented template. Problems with the file are logged and
// the defaults apply; Load only fails when home itself cannot be created.
func Load(home string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := Default(home)

	if err := os.MkdirAll(home, store.DirMode); err != nil {
		return nil, fmt.Errorf("config: failed to create %s: %w", home, err)
	}

	content, err := os.ReadFile(cfg.ConfigPath)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(cfg.ConfigPath, []byte(template), store.FileMode); err != nil {
			logger.Warn("failed to write default config", "path", cfg.ConfigPath, "error", err)
		}
		return cfg, nil
	}
	if err != nil {
		logger.Warn("failed to read config, using defaults", "path", cfg.ConfigPath, "error", err)
		return cfg, nil
	}

	var fc fileConfig
	if err := yaml.Unmarshal(content, &fc); err != nil {
		logger.Warn("failed to parse config, using defaults", "path", cfg.ConfigPath, "error", err)
		return cfg, nil
	}
	cfg.apply(fc, logger)
	return cfg, nil
}

func (c *Config) apply(fc fileConfig, logger *slog.Logger) {
	switch fc.SyncProvider {
	case "":
	case remote.ProviderLocalOnly, remote.ProviderFile, remote.ProviderHTTP:
		c.SyncProvider = fc.SyncProvider
	default:
		logger.Warn("unknown sync_provider, using local_only", "value", fc.SyncProvider)
	}

	if fc.SyncRemotePath != "" {
		c.SyncRemotePath = expandHome(fc.SyncRemotePath)
	}
	if fc.KeychainService != "" {
		c.KeychainService = fc.KeychainService
	}
	if fc.SessionTTL != "" {
		ttl, err := time.ParseDuration(fc.SessionTTL)
		if err != nil || ttl <= 0 {
			logger.Warn("invalid session_ttl, using default", "value", fc.SessionTTL, "default", session.DefaultTTL)
		} else {
			c.SessionTTL = ttl
		}
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
