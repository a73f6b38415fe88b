package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/forest6511/ownkey/pkg/store"
	"github.com/forest6511/ownkey/pkg/vault"
)

func init() {
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(statusCmd)
}

// lockCmd forgets the cached session key.
var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Forget the cached session key so the next command asks for the password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLock(current)
	},
}

func runLock(a *app) error {
	if err := a.sessions.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Session cleared. The vault is locked.")
	return nil
}

// statusCmd reports the state of the vault without decrypting it.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault, backup, session and sync status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(current, time.Now())
	},
}

func runStatus(a *app, now time.Time) error {
	fmt.Fprintf(a.out, "Config:  %s\n", a.cfg.ConfigPath)
	fmt.Fprintf(a.out, "Vault:   %s\n", describeFile(a.path, now))
	if info, err := os.Stat(a.path); err == nil && !info.IsDir() {
		fmt.Fprintf(a.out, "Format:  %s\n", describeFormat(a))
	}
	fmt.Fprintf(a.out, "Backup:  %s\n", describeFile(store.BackupPath(a.path), now))
	fmt.Fprintf(a.out, "Session: %s\n", describeSession(a, now))
	fmt.Fprintf(a.out, "Sync:    %s\n", a.remote.Name())

	if disk, err := store.CheckDiskSpace(a.cfg.Home); err == nil {
		fmt.Fprintf(a.out, "Disk:    %d%% used, %s available\n", disk.UsedPct, humanize.IBytes(disk.Available))
	}
	return nil
}

func describeFile(path string, now time.Time) string {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return path + " (missing)"
	}
	if err != nil {
		return fmt.Sprintf("%s (%v)", path, err)
	}
	return fmt.Sprintf("%s (%s, modified %s)", path,
		humanize.IBytes(uint64(info.Size())), humanize.RelTime(info.ModTime(), now, "ago", "from now"))
}

func describeFormat(a *app) string {
	data, err := store.New(a.logger).LockedRead(a.path)
	if err != nil {
		return describeError(err)
	}
	decoded, err := vault.Decode(data)
	if err != nil {
		return "unreadable, run 'ownkey restore-backup'"
	}
	if decoded.Encrypted() {
		return "encrypted"
	}
	return fmt.Sprintf("legacy plaintext (%s), encrypted on next change", decoded.Format)
}

func describeSession(a *app, now time.Time) string {
	st, err := a.sessions.Status()
	switch {
	case err != nil:
		return "unreadable"
	case st == nil:
		return "none"
	case st.VaultPath != a.path:
		return "held for another vault (" + st.VaultPath + ")"
	case now.After(st.ExpiresAt):
		return "expired " + humanize.RelTime(st.ExpiresAt, now, "ago", "from now")
	default:
		return "unlocked, expires " + humanize.RelTime(st.ExpiresAt, now, "ago", "from now")
	}
}
