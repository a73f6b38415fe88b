package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/ownkey/internal/cli"
)

var restoreForce bool

func init() {
	rootCmd.AddCommand(restoreBackupCmd)
	restoreBackupCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "Skip confirmation prompt")
}

// restoreBackupCmd copies the last good backup over the vault.
var restoreBackupCmd = &cobra.Command{
	Use:    "restore-backup",
	Short:  "Restore the encrypted backup over the current vault",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRestoreBackup(current, restoreForce)
	},
}

func runRestoreBackup(a *app, force bool) error {
	if !force {
		ok, err := cli.Confirm(a.in, a.out, "This will overwrite your existing vault. Continue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, "Aborted")
			return nil
		}
	}

	if err := a.service.RestoreBackup(a.path); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Backup restored.")
	return nil
}
