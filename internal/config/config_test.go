package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forest6511/ownkey/pkg/remote"
	"github.com/forest6511/ownkey/pkg/session"
)

func TestLoadWritesTemplate(t *testing.T) {
	home := filepath.Join(t.TempDir(), "ownkey")

	cfg, err := Load(home, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VaultPath != filepath.Join(home, "vault.json") {
		t.Errorf("VaultPath = %q", cfg.VaultPath)
	}
	if cfg.SessionPath != filepath.Join(home, "session") {
		t.Errorf("SessionPath = %q", cfg.SessionPath)
	}
	if cfg.SyncProvider != remote.ProviderLocalOnly {
		t.Errorf("SyncProvider = %q, want %q", cfg.SyncProvider, remote.ProviderLocalOnly)
	}
	if cfg.SessionTTL != session.DefaultTTL {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, session.DefaultTTL)
	}

	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		t.Fatalf("template not written: %v", err)
	}

	// The template itself must parse back to the defaults
	again, err := Load(home, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *again != *cfg {
		t.Errorf("Load() after template = %+v, want %+v", again, cfg)
	}
}

func TestLoadValues(t *testing.T) {
	home := t.TempDir()
	content := `sync_provider: file
sync_remote_path: /mnt/share/vault.json
keychain_service: work
session_ttl: 90s
`
	if err := os.WriteFile(filepath.Join(home, ConfigFileName), []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(home, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SyncProvider != remote.ProviderFile {
		t.Errorf("SyncProvider = %q", cfg.SyncProvider)
	}
	if cfg.SyncRemotePath != "/mnt/share/vault.json" {
		t.Errorf("SyncRemotePath = %q", cfg.SyncRemotePath)
	}
	if cfg.KeychainService != "work" {
		t.Errorf("KeychainService = %q", cfg.KeychainService)
	}
	if cfg.SessionTTL != 90*time.Second {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown provider", "sync_provider: s3\n"},
		{"bad ttl", "session_ttl: soon\n"},
		{"negative ttl", "session_ttl: -5m\n"},
		{"not yaml", "sync_provider: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			if err := os.WriteFile(filepath.Join(home, ConfigFileName), []byte(tt.content), 0600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			cfg, err := Load(home, nil)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.SyncProvider != remote.ProviderLocalOnly || cfg.SessionTTL != session.DefaultTTL {
				t.Errorf("Load() = %+v, want defaults", cfg)
			}
		})
	}
}

func TestHomeDirEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	got, err := HomeDir()
	if err != nil {
		t.Fatalf("HomeDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("HomeDir() = %q, want %q", got, dir)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/sync/v.json"); got != filepath.Join(home, "sync", "v.json") {
		t.Errorf("expandHome() = %q", got)
	}
	if got := expandHome("/abs/v.json"); got != "/abs/v.json" {
		t.Errorf("expandHome() changed absolute path: %q", got)
	}
}
