package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/ownkey/pkg/vault"
)

// CompletionEnv opts in to completing secret names from the vault.
const CompletionEnv = "OWNKEY_COMPLETION_ENABLED"

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script for your shell",
	Long: `To load completions:

Bash:
  $ source <(ownkey completion bash)

  # To load for each session (Linux):
  $ ownkey completion bash > ~/.local/share/bash-completion/completions/ownkey

Zsh:
  $ ownkey completion zsh > ~/.zsh/completions/_ownkey
  # (create ~/.zsh/completions if needed, add to fpath in .zshrc)

Fish:
  $ ownkey completion fish > ~/.config/fish/completions/ownkey.fish

PowerShell:
  PS> ownkey completion powershell >> $PROFILE

Secret names:
  Set OWNKEY_COMPLETION_ENABLED=1 to complete secret names. Completion only
  uses an unlocked session and never prompts for the password.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	// The script goes to stdout; no vault access is needed.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)

	for _, cmd := range []*cobra.Command{viewCmd, copyCmd, deleteCmd, addCmd} {
		cmd.ValidArgsFunction = completeSecretKeys
	}
}

func isDynamicCompletionEnabled() bool {
	return os.Getenv(CompletionEnv) == "1"
}

// completeSecretKeys completes the first argument with secret names.
func completeSecretKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || !isDynamicCompletionEnabled() {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	a, err := newApp(cmd, "")
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return secretKeysForCompletion(a, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// secretKeysForCompletion lists the names starting with prefix, ignoring
// case. Only the session cache is used to open the vault; without an
// unlocked session nothing is returned.
func secretKeysForCompletion(a *app, prefix string) []string {
	a.opts = vault.Options{KeychainService: a.opts.KeychainService}
	a.prompter = nil
	a.creds = nil
	a.remote = nil
	a.wire()

	if !a.service.Exists(a.path) {
		return nil
	}
	v, err := a.service.Load(a.path, a.opts)
	if err != nil {
		a.logger.Debug("completion skipped", "error", err)
		return nil
	}

	lowerPrefix := strings.ToLower(prefix)
	var keys []string
	for _, key := range v.Keys() {
		if strings.HasPrefix(strings.ToLower(key), lowerPrefix) {
			keys = append(keys, key)
		}
	}
	return keys
}
