package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/ownkey/pkg/importer"
	"github.com/forest6511/ownkey/pkg/vault"
)

// Import flags
var (
	importFormat       string
	importOverwrite    bool
	importDryRun       bool
	importPreserveCase bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importFormat, "format", "f", string(importer.SourceDotenv), "Input format: dotenv, bitwarden, csv")
	importCmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "Replace secrets that already exist")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without changing the vault")
	importCmd.Flags().BoolVar(&importPreserveCase, "preserve-case", false, "Keep the case of imported names")
}

// importCmd merges secrets exported from other tools into the vault.
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import secrets from a dotenv file or a password manager export",
	Long: `Import secrets from another tool.

Formats:
  dotenv     KEY=VALUE lines; names keep their case
  bitwarden  unencrypted Bitwarden JSON export (logins and secure notes)
  csv        password manager CSV with a password column (1Password, LastPass)

Names are sanitized and made unique. Existing secrets are kept unless
--overwrite is given. Delete the export file once the import succeeded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(current, args[0], importOptions{
			format:       importer.Source(strings.ToLower(importFormat)),
			overwrite:    importOverwrite,
			dryRun:       importDryRun,
			preserveCase: importPreserveCase,
		})
	},
}

type importOptions struct {
	format       importer.Source
	overwrite    bool
	dryRun       bool
	preserveCase bool
}

func runImport(a *app, file string, opts importOptions) error {
	parser, err := importer.NewParser(opts.format)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	result, err := parser.Parse(data, importer.ParseOptions{PreserveCase: opts.preserveCase})
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		a.logger.Warn(w)
	}
	for _, s := range result.Skipped {
		fmt.Fprintf(a.out, "skipped %q: %s\n", s.OriginalName, s.Reason)
	}
	if len(result.Secrets) == 0 {
		fmt.Fprintln(a.out, "Nothing to import.")
		return nil
	}

	if err := a.ensureVault(); err != nil {
		return err
	}

	var outcome *importer.Outcome
	if opts.dryRun {
		v, err := a.service.Load(a.path, a.opts)
		if err != nil {
			return err
		}
		if outcome, err = importer.Apply(v, result.Secrets, opts.overwrite); err != nil {
			return err
		}
	} else {
		err := a.service.Update(a.path, a.opts, func(v *vault.Vault) error {
			var err error
			outcome, err = importer.Apply(v, result.Secrets, opts.overwrite)
			return err
		})
		if err != nil {
			return err
		}
	}

	verb := "Imported"
	if opts.dryRun {
		verb = "Would import"
	}
	fmt.Fprintf(a.out, "%s %d new and %d replaced secrets, kept %d existing.\n",
		verb, len(outcome.Added), len(outcome.Replaced), len(outcome.Kept))
	for _, key := range outcome.Kept {
		fmt.Fprintf(a.out, "  kept %s (use --overwrite to replace)\n", key)
	}
	return nil
}
