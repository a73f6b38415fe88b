package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rotateNewPassword string

func init() {
	rootCmd.AddCommand(rotatePasswordCmd)
	rotatePasswordCmd.Flags().StringVar(&rotateNewPassword, "new-password", "", "New vault password (prompted twice when omitted)")
}

// rotatePasswordCmd re-encrypts the vault under a new password.
var rotatePasswordCmd = &cobra.Command{
	Use:   "rotate-password",
	Short: "Change the vault password",
	Long: `Change the vault password.

The current password is always required, even while a session is cached.
The vault is re-encrypted with a fresh salt and nonce. When a keychain
account is given the new password replaces the stored one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRotatePassword(current, rotateNewPassword)
	},
}

func runRotatePassword(a *app, newPassword string) error {
	if newPassword != "" {
		a.logger.Warn("passing the new password on the command line exposes it to other local users and shell history")
	}
	if err := a.service.RotatePassword(a.path, a.opts, newPassword); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Vault password rotated successfully.")
	return nil
}
