package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forest6511/ownkey/internal/cli"
	"github.com/forest6511/ownkey/internal/config"
	"github.com/forest6511/ownkey/internal/logging"
	"github.com/forest6511/ownkey/pkg/credstore"
	"github.com/forest6511/ownkey/pkg/remote"
	"github.com/forest6511/ownkey/pkg/session"
	"github.com/forest6511/ownkey/pkg/store"
	"github.com/forest6511/ownkey/pkg/vault"
)

// Global flags
var (
	flagPath            string
	flagPassword        string
	flagKeychainAccount string
	flagKeychainService string
	flagNoSession       bool
	flagVerbose         bool
)

// current is the application state for the running command.
var current *app

// app bundles everything a command needs. It is built once per invocation
// from the configuration file and the global flags.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	service   *vault.Service
	sessions  *session.Cache
	remote    remote.Backend
	creds     credstore.Store
	prompter  vault.Prompter
	clipboard cli.Clipboard
	path      string
	opts      vault.Options
	in        io.Reader
	out       io.Writer
}

var rootCmd = &cobra.Command{
	Use:   "ownkey",
	Short: "ownkey keeps your secrets in a local encrypted vault",
	Long: `ownkey stores named secrets in a single encrypted file.

The vault is encrypted with AES-256-GCM under a key derived from your
password with PBKDF2-HMAC-SHA256. After a successful unlock the derived key
is cached for a few minutes so consecutive commands do not prompt again.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	// PersistentPreRunE runs before every subcommand and builds the app.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		override := ""
		if cmd == initCmd && len(args) > 0 {
			override = args[0]
		}
		a, err := newApp(cmd, override)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagPath, "path", "p", "", "Path to the vault file (default: ~/.ownkey/vault.json)")
	pf.StringVar(&flagPassword, "password", "", "Vault password (insecure: visible to other local users)")
	pf.StringVar(&flagKeychainAccount, "keychain-account", "", "Read and store the vault password in the OS credential store under this account")
	pf.StringVar(&flagKeychainService, "keychain-service", "", "Credential store service name (default: ownkey)")
	pf.BoolVar(&flagNoSession, "no-session", false, "Do not use or update the session cache")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// newApp resolves configuration and wires the vault service. pathOverride,
// when set, takes precedence over --path and the configured vault path.
func newApp(cmd *cobra.Command, pathOverride string) (*app, error) {
	logger := logging.New(cmd.ErrOrStderr(), flagVerbose)

	home, err := config.HomeDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(home, logger)
	if err != nil {
		return nil, err
	}

	path := cfg.VaultPath
	switch {
	case pathOverride != "":
		path = pathOverride
	case flagPath != "":
		path = flagPath
	}
	// Session records are matched on the exact path string.
	if path, err = filepath.Abs(path); err != nil {
		return nil, fmt.Errorf("failed to resolve vault path: %w", err)
	}

	if flagPassword != "" {
		logger.Warn("passing the password on the command line exposes it to other local users and shell history")
	}

	service := flagKeychainService
	if service == "" {
		service = cfg.KeychainService
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		sessions:  session.New(cfg.SessionPath, cfg.SessionTTL),
		remote:    remote.New(cfg.SyncProvider, path, cfg.SyncRemotePath, logger),
		creds:     credstore.NewKeyring(),
		prompter:  cli.NewTerminalPrompter(),
		clipboard: cli.SystemClipboard{},
		path:      path,
		opts: vault.Options{
			Password:        flagPassword,
			KeychainAccount: flagKeychainAccount,
			KeychainService: service,
			NoSession:       flagNoSession,
		},
		in:  cmd.InOrStdin(),
		out: cmd.OutOrStdout(),
	}
	a.wire()
	return a, nil
}

// wire builds the vault service from the app's collaborators.
func (a *app) wire() {
	a.service = vault.NewService(vault.ServiceConfig{
		Store:    store.New(a.logger),
		Sessions: a.sessions,
		Creds:    a.creds,
		Prompter: a.prompter,
		Remote:   a.remote,
		Logger:   a.logger,
	})
}

// ensureVault creates the vault on first use.
func (a *app) ensureVault() error {
	created, err := a.service.EnsureExists(a.path, a.opts)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(a.out, "Created new vault at %s\n", a.path)
	}
	return nil
}

// load creates the vault if needed and decrypts it.
func (a *app) load() (*vault.Vault, error) {
	if err := a.ensureVault(); err != nil {
		return nil, err
	}
	return a.service.Load(a.path, a.opts)
}

// describeError turns an error into a message for the terminal.
func describeError(err error) string {
	switch {
	case errors.Is(err, store.ErrVaultBusy):
		return "vault is currently in use by another ownkey process, try again shortly"
	case errors.Is(err, vault.ErrIncorrectPassword):
		return "vault password is incorrect or the vault is corrupted"
	case errors.Is(err, vault.ErrCorruptVault):
		return "vault file appears damaged or truncated, run 'ownkey restore-backup' to recover the last good copy"
	case errors.Is(err, store.ErrNoBackup):
		return "no backup found"
	case errors.Is(err, vault.ErrPasswordMismatch):
		return "passwords do not match"
	case errors.Is(err, cli.ErrValuesDiffer):
		return "Values do not match. Aborting."
	case errors.Is(err, vault.ErrNoInteractiveInput):
		return "no password available and no terminal to prompt, use --password or --keychain-account"
	default:
		return err.Error()
	}
}
