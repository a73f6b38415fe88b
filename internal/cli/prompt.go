package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/forest6511/ownkey/pkg/vault"
)

// TerminalPrompter reads passwords from a terminal without echo. Prompts are
// written to out so they never mix with command output on stdout.
type TerminalPrompter struct {
	in  *os.File
	out io.Writer
}

// NewTerminalPrompter returns a prompter reading from stdin and prompting on
// stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{in: os.Stdin, out: os.Stderr}
}

// ReadPassword implements vault.Prompter.
func (p *TerminalPrompter) ReadPassword(prompt string) (string, error) {
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return "", vault.ErrNoInteractiveInput
	}

	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// ReadSecretTwice reads a secret value twice without echo and fails when the
// entries differ.
func ReadSecretTwice(p vault.Prompter, prompt, confirm string) (string, error) {
	first, err := p.ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	second, err := p.ReadPassword(confirm)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", ErrValuesDiffer
	}
	return first, nil
}

// ErrValuesDiffer is returned when a value and its confirmation differ.
var ErrValuesDiffer = errors.New("values do not match, aborting")

// Confirm asks a yes/no question and reads one line from in. Only "y" and
// "yes" confirm; end of input declines.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s (y/N): ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read input: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
