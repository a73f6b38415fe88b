package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/ownkey/pkg/remote"
)

var (
	syncPull         bool
	logoutForgetPass bool
)

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	syncCmd.Flags().BoolVar(&syncPull, "pull", false, "Replace the local vault with the remote copy")
	logoutCmd.Flags().BoolVar(&logoutForgetPass, "forget-password", false, "Also remove the password saved for --keychain-account")
}

// syncCmd mirrors the encrypted vault through the configured backend.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push the encrypted vault to the sync backend, or pull it with --pull",
	Long: `Mirror the encrypted vault through the backend configured with
sync_provider in config.yaml. Only ciphertext ever leaves this machine.
Every successful write also pushes automatically.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(current, syncPull)
	},
}

func runSync(a *app, pull bool) error {
	if a.remote.Name() == remote.ProviderLocalOnly {
		fmt.Fprintln(a.out, "Sync is disabled (sync_provider: local_only).")
		return nil
	}

	if pull {
		ok, err := a.service.Pull(a.path)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, "Remote holds no vault, nothing pulled.")
			return nil
		}
		fmt.Fprintf(a.out, "Pulled vault from %s backend.\n", a.remote.Name())
		return nil
	}

	if err := a.service.Push(a.path); err != nil {
		return fmt.Errorf("%w: %w", remote.ErrPushFailed, err)
	}
	fmt.Fprintf(a.out, "Pushed vault to %s backend.\n", a.remote.Name())
	return nil
}

// loginCmd connects the sync backend.
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in to the sync backend",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := ""
		if len(args) > 0 {
			username = args[0]
		}
		return runLogin(current, username)
	},
}

func runLogin(a *app, username string) error {
	if err := a.remote.Login(username); err != nil {
		if errors.Is(err, remote.ErrLoginUnsupported) {
			return fmt.Errorf("the %s sync backend has nothing to log in to: %w", a.remote.Name(), err)
		}
		return err
	}
	fmt.Fprintf(a.out, "Logged in to %s backend.\n", a.remote.Name())
	return nil
}

// logoutCmd disconnects the sync backend.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of the sync backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogout(current, logoutForgetPass)
	},
}

func runLogout(a *app, forgetPassword bool) error {
	if err := a.remote.Logout(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged out of %s backend.\n", a.remote.Name())

	if !forgetPassword {
		return nil
	}
	if a.opts.KeychainAccount == "" {
		return errors.New("--forget-password requires --keychain-account")
	}
	if err := a.creds.Delete(a.opts.KeychainService, a.opts.KeychainAccount); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed saved password for %s.\n", a.opts.KeychainAccount)
	return nil
}
