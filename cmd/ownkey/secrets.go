package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/ownkey/internal/cli"
	"github.com/forest6511/ownkey/pkg/vault"
)

// Command flags
var (
	viewJSON        bool
	copyClearAfter  time.Duration
	searchNamesOnly bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(searchCmd)

	viewCmd.Flags().BoolVar(&viewJSON, "json", false, "Output as JSON with key and value")
	copyCmd.Flags().DurationVar(&copyClearAfter, "clear-after", 0, "Clear the clipboard after this duration (e.g. 30s) unless it changed")
	searchCmd.Flags().BoolVar(&searchNamesOnly, "exact", false, "Only print exact key names (no previews)")
}

// keyNotFoundError reports a missing entry.
type keyNotFoundError struct {
	key string
}

func (e *keyNotFoundError) Error() string { return "No entry found for key " + e.key }
func (e *keyNotFoundError) Unwrap() error { return vault.ErrSecretNotFound }

// initCmd creates a new vault
var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a new vault at the given path",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(current)
	},
}

func runInit(a *app) error {
	fmt.Fprintf(a.out, "Initializing vault at %s\n", a.path)

	created, err := a.service.EnsureExists(a.path, a.opts)
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}
	if !created {
		fmt.Fprintln(a.out, "Vault already exists, nothing to do.")
		return nil
	}
	fmt.Fprintln(a.out, "Vault initialized successfully.")
	return nil
}

// addCmd stores a secret
var addCmd = &cobra.Command{
	Use:   "add <key> [value]",
	Short: "Add or replace a secret",
	Long: `Add or replace a secret.

When the value is omitted it is read twice from the terminal without echo.
Values given as arguments end up in your shell history.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			if err := vault.ValidateKeyName(args[0]); err != nil {
				return err
			}
			v, err := cli.ReadSecretTwice(a.prompter, "Value: ", "Confirm: ")
			if err != nil {
				return err
			}
			value = v
		}
		return runAdd(a, args[0], value)
	},
}

func runAdd(a *app, key, value string) error {
	if err := vault.ValidateKeyName(key); err != nil {
		return err
	}
	if err := a.ensureVault(); err != nil {
		return err
	}

	err := a.service.Update(a.path, a.opts, func(v *vault.Vault) error {
		return v.Set(key, value)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, key)
	return nil
}

// listCmd lists secret names
var listCmd = &cobra.Command{
	Use:   "list [pattern...]",
	Short: "List secret names, optionally filtered by glob patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(current, args)
	},
}

func runList(a *app, patterns []string) error {
	v, err := a.load()
	if err != nil {
		return err
	}

	keys, err := cli.FilterKeys(patterns, v.Keys())
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(a.out, "No secrets stored")
		return nil
	}
	for _, key := range keys {
		fmt.Fprintln(a.out, key)
	}
	return nil
}

// viewCmd prints a secret value
var viewCmd = &cobra.Command{
	Use:   "view <key>",
	Short: "Print the value of a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(current, args[0], viewJSON)
	},
}

func runView(a *app, key string, asJSON bool) error {
	v, err := a.load()
	if err != nil {
		return err
	}

	value, ok := v.Get(key)
	if !ok {
		return &keyNotFoundError{key: key}
	}
	if !asJSON {
		fmt.Fprintln(a.out, value)
		return nil
	}

	data, err := json.MarshalIndent(struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}{key, value}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}

// copyCmd copies a secret to the clipboard
var copyCmd = &cobra.Command{
	Use:   "copy <key>",
	Short: "Copy the value of a secret to the clipboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cli.ClipboardSupported() {
			return errors.New("no clipboard utility available on this system")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runCopy(ctx, current, args[0], copyClearAfter)
	},
}

func runCopy(ctx context.Context, a *app, key string, clearAfter time.Duration) error {
	v, err := a.load()
	if err != nil {
		return err
	}

	value, ok := v.Get(key)
	if !ok {
		return &keyNotFoundError{key: key}
	}
	if err := a.clipboard.WriteAll(value); err != nil {
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}
	fmt.Fprintf(a.out, "Value for key '%s' copied to clipboard.\n", key)

	if clearAfter <= 0 {
		return nil
	}
	fmt.Fprintf(a.out, "Clipboard will be cleared in %s.\n", clearAfter)
	return cli.ClearClipboardAfter(ctx, a.clipboard, value, clearAfter)
}

// deleteCmd deletes a secret
var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDelete(current, args[0])
	},
}

func runDelete(a *app, key string) error {
	if err := a.ensureVault(); err != nil {
		return err
	}

	err := a.service.Update(a.path, a.opts, func(v *vault.Vault) error {
		if !v.Delete(key) {
			return &keyNotFoundError{key: key}
		}
		return nil
	})
	var nf *keyNotFoundError
	if errors.As(err, &nf) {
		// A missing key is reported, not treated as a failure.
		fmt.Fprintln(a.out, nf.Error())
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Secret '%s' deleted successfully\n", key)
	return nil
}

// searchCmd finds secrets by name or value
var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search secret names and values, ignoring case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(current, args[0], searchNamesOnly)
	},
}

func runSearch(a *app, keyword string, namesOnly bool) error {
	v, err := a.load()
	if err != nil {
		return err
	}

	for _, m := range cli.Search(v.Keys(), v.Entries, keyword) {
		if namesOnly {
			fmt.Fprintln(a.out, m.Key)
			continue
		}
		fmt.Fprintf(a.out, "%s: %s\n", m.Key, m.Preview)
	}
	return nil
}
