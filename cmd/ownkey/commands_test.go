package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forest6511/ownkey/internal/cli"
	"github.com/forest6511/ownkey/internal/config"
	"github.com/forest6511/ownkey/pkg/remote"
	"github.com/forest6511/ownkey/pkg/session"
	"github.com/forest6511/ownkey/pkg/store"
	"github.com/forest6511/ownkey/pkg/vault"
)

const testPassword = "testpassword123"

// scriptedPrompter answers prompts from a queue.
type scriptedPrompter struct {
	answers []string
}

func (p *scriptedPrompter) ReadPassword(string) (string, error) {
	if len(p.answers) == 0 {
		return "", vault.ErrNoInteractiveInput
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

// memCreds is an in-memory credential store.
type memCreds map[string]string

func (m memCreds) Store(service, account, password string) error {
	m[service+"/"+account] = password
	return nil
}

func (m memCreds) Retrieve(service, account string) (string, bool, error) {
	pw, ok := m[service+"/"+account]
	return pw, ok, nil
}

func (m memCreds) Delete(service, account string) error {
	delete(m, service+"/"+account)
	return nil
}

type memClipboard struct {
	text string
}

func (c *memClipboard) ReadAll() (string, error) { return c.text, nil }

func (c *memClipboard) WriteAll(text string) error {
	c.text = text
	return nil
}

// newTestApp builds an app rooted in a temporary home directory.
func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default(t.TempDir())
	out := &bytes.Buffer{}
	a := &app{
		cfg:       cfg,
		logger:    slog.New(slog.DiscardHandler),
		sessions:  session.New(cfg.SessionPath, cfg.SessionTTL),
		remote:    remote.Noop{},
		creds:     memCreds{},
		prompter:  &scriptedPrompter{},
		clipboard: &memClipboard{},
		path:      cfg.VaultPath,
		opts:      vault.Options{Password: testPassword, KeychainService: cfg.KeychainService},
		in:        strings.NewReader(""),
		out:       out,
	}
	a.wire()
	return a, out
}

// seed creates the vault with the given entries and resets the output.
func seed(t *testing.T, a *app, out *bytes.Buffer, entries map[string]string) {
	t.Helper()
	if err := runInit(a); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}
	for k, v := range entries {
		if err := runAdd(a, k, v); err != nil {
			t.Fatalf("runAdd(%q) error = %v", k, err)
		}
	}
	out.Reset()
}

func TestInitCommand(t *testing.T) {
	a, out := newTestApp(t)

	if err := runInit(a); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}
	if !strings.Contains(out.String(), "Initializing vault at "+a.path) {
		t.Errorf("unexpected output: %q", out.String())
	}
	if !strings.Contains(out.String(), "Vault initialized successfully.") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := runInit(a); err != nil {
		t.Fatalf("second runInit() error = %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestAddCreatesVaultOnFirstUse(t *testing.T) {
	a, out := newTestApp(t)

	if err := runAdd(a, "github", "ghp_token"); err != nil {
		t.Fatalf("runAdd() error = %v", err)
	}
	if !strings.Contains(out.String(), "Created new vault at") {
		t.Errorf("vault creation not reported: %q", out.String())
	}
	if !strings.HasSuffix(out.String(), "github\n") {
		t.Errorf("key name not printed: %q", out.String())
	}
}

func TestAddInvalidKey(t *testing.T) {
	a, _ := newTestApp(t)

	if err := runAdd(a, "", "value"); !errors.Is(err, vault.ErrKeyEmpty) {
		t.Errorf("runAdd() error = %v, want %v", err, vault.ErrKeyEmpty)
	}
	if _, err := os.Stat(a.path); !errors.Is(err, os.ErrNotExist) {
		t.Error("vault created for an invalid key")
	}
}

func TestViewCommand(t *testing.T) {
	a, out := newTestApp(t)
	seed(t, a, out, map[string]string{"db": "hunter2"})

	if err := runView(a, "db", false); err != nil {
		t.Fatalf("runView() error = %v", err)
	}
	if out.String() != "hunter2\n" {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := runView(a, "db", true); err != nil {
		t.Fatalf("runView(json) error = %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["key"] != "db" || got["value"] != "hunter2" {
		t.Errorf("json = %v", got)
	}

	err := runView(a, "missing", false)
	if !errors.Is(err, vault.ErrSecretNotFound) {
		t.Errorf("runView(missing) error = %v, want %v", err, vault.ErrSecretNotFound)
	}
	if err != nil && err.Error() != "No entry found for key missing" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestListCommand(t *testing.T) {
	a, out := newTestApp(t)
	seed(t, a, out, nil)

	if err := runList(a, nil); err != nil {
		t.Fatalf("runList() error = %v", err)
	}
	if out.String() != "No secrets stored\n" {
		t.Errorf("output = %q", out.String())
	}

	seed(t, a, out, map[string]string{"AWS_KEY": "a", "AWS_SECRET": "b", "DB": "c"})
	if err := runList(a, nil); err != nil {
		t.Fatalf("runList() error = %v", err)
	}
	if out.String() != "AWS_KEY\nAWS_SECRET\nDB\n" {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := runList(a, []string{"AWS_*"}); err != nil {
		t.Fatalf("runList(pattern) error = %v", err)
	}
	if out.String() != "AWS_KEY\nAWS_SECRET\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestDeleteCommand(t *testing.T) {
	a, out := newTestApp(t)
	seed(t, a, out, map[string]string{"old": "x", "keep": "y"})

	if err := runDelete(a, "old"); err != nil {
		t.Fatalf("runDelete() error = %v", err)
	}
	if !strings.Contains(out.String(), "deleted") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := runDelete(a, "old"); err != nil {
		t.Fatalf("runDelete(missing) error = %v", err)
	}
	if out.String() != "No entry found for key old\n" {
		t.Errorf("output = %q", out.String())
	}

	v, err := a.service.Load(a.path, a.opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v.Len() != 1 {
		t.Errorf("entries = %v", v.Keys())
	}
}

func TestSearchCommand(t *testing.T) {
	a, out := newTestApp(t)
	seed(t, a, out, map[string]string{
		"GitHub": "ghp_0123456789abcdef",
		"mail":   "github-recovery",
		"other":  "nothing",
	})

	if err := runSearch(a, "GITHUB", false); err != nil {
		t.Fatalf("runSearch() error = %v", err)
	}
	want := "GitHub: ghp_01234567\nmail: github-recov\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := runSearch(a, "github", true); err != nil {
		t.Fatalf("runSearch(exact) error = %v", err)
	}
	if out.String() != "GitHub\nmail\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestCopyCommand(t *testing.T) {
	a, out := newTestApp(t)
	seed(t, a, out, map[string]string{"api": "sk-123"})
	cb := a.clipboard.(*memClipboard)

	if err := runCopy(context.Background(), a, "api", 0); err != nil {
		t.Fatalf("runCopy() error = %v", err)
	}
	if cb.text != "sk-123" {
		t.Errorf("clipboard = %q", cb.text)
	}
	if out.String() != "Value for key 'api' copied to clipboard.\n" {
		t.Errorf("output = %q", out.String())
	}

	if err := runCopy(context.Background(), a, "api", 10*time.Millisecond); err != nil {
		t.Fatalf("runCopy(clear) error = %v", err)
	}
	if cb.text != "" {
		t.Errorf("clipboard not cleared: %q", cb.text)
	}

	if err := runCopy(context.Background(), a, "missing", 0); !errors.Is(err, vault.ErrSecretNotFound) {
		t.Errorf("runCopy(missing) error = %v", err)
	}
}

func TestRotatePasswordCommand(t *testing.T) {
	a, out := newTestApp(t)
	seed(t, a, out, map[string]string{"k": "v"})
	a.opts.KeychainAccount = "me"

	if err := runRotatePassword(a, "n3w-Password-42"); err != nil {
		t.Fatalf("runRotatePassword() error = %v", err)
	}
	if out.String() != "Vault password rotated successfully.\n" {
		t.Errorf("output = %q", out.String())
	}

	if got, _, _ := a.creds.Retrieve(a.opts.KeychainService, "me"); got != "n3w-Password-42" {
		t.Errorf("credential store holds %q", got)
	}

	old := vault.Options{Password: testPassword, NoSession: true}
	if _, err := a.service.Load(a.path, old); !errors.Is(err, vault.ErrIncorrectPassword) {
		t.Errorf("old password error = %v, want %v", err, vault.ErrIncorrectPassword)
	}
	v, err := a.service.Load(a.path, vault.Options{Password: "n3w-Password-42", NoSession: true})
	if err != nil {
		t.Fatalf("Load(new) error = %v", err)
	}
	if got, _ := v.Get("k"); got != "v" {
		t.Errorf("k = %q", got)
	}
}

func TestRestoreBackupCommand(t *testing.T) {
	a, out := newTestApp(t)
	seed(t, a, out, map[string]string{"k": "v"})

	if err := os.WriteFile(a.path, []byte(`{"salt": "trunc`), store.FileMode); err != nil {
		t.Fatal(err)
	}
	if err := runView(a, "k", false); !errors.Is(err, vault.ErrCorruptVault) {
		t.Fatalf("runView() on damaged vault error = %v, want %v", err, vault.ErrCorruptVault)
	}

	a.in = strings.NewReader("n\n")
	if err := runRestoreBackup(a, false); err != nil {
		t.Fatalf("runRestoreBackup(declined) error = %v", err)
	}
	if !strings.HasSuffix(out.String(), "Aborted\n") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	a.in = strings.NewReader("y\n")
	if err := runRestoreBackup(a, false); err != nil {
		t.Fatalf("runRestoreBackup() error = %v", err)
	}
	if !strings.Contains(out.String(), "This will overwrite your existing vault. Continue? (y/N)") {
		t.Errorf("confirmation missing: %q", out.String())
	}
	if !strings.HasSuffix(out.String(), "Backup restored.\n") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := runView(a, "k", false); err != nil {
		t.Fatalf("runView() after restore error = %v", err)
	}
	if out.String() != "v\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRestoreBackupMissing(t *testing.T) {
	a, _ := newTestApp(t)
	if err := runRestoreBackup(a, true); !errors.Is(err, store.ErrNoBackup) {
		t.Errorf("runRestoreBackup() error = %v, want %v", err, store.ErrNoBackup)
	}
}

func TestSyncCommands(t *testing.T) {
	a, out := newTestApp(t)

	if err := runSync(a, false); err != nil {
		t.Fatalf("runSync(local_only) error = %v", err)
	}
	if !strings.Contains(out.String(), "disabled") {
		t.Errorf("output = %q", out.String())
	}
	if err := runLogin(a, "me"); !errors.Is(err, remote.ErrLoginUnsupported) {
		t.Errorf("runLogin(local_only) error = %v", err)
	}

	remotePath := filepath.Join(t.TempDir(), "remote", "vault.json")
	a.remote = remote.NewFile(a.path, remotePath)
	a.wire()
	seed(t, a, out, map[string]string{"k": "v1"})

	if err := runLogin(a, ""); err != nil {
		t.Fatalf("runLogin() error = %v", err)
	}
	if err := runSync(a, false); err != nil {
		t.Fatalf("runSync(push) error = %v", err)
	}
	local, _ := os.ReadFile(a.path)
	pushed, _ := os.ReadFile(remotePath)
	if !bytes.Equal(local, pushed) {
		t.Error("remote copy differs from local vault after push")
	}

	if err := runAdd(a, "k", "v2"); err != nil {
		t.Fatalf("runAdd() error = %v", err)
	}
	// Restore the older remote copy and pull it back.
	if err := store.AtomicReplace(remotePath, pushed); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := runSync(a, true); err != nil {
		t.Fatalf("runSync(pull) error = %v", err)
	}
	if !strings.Contains(out.String(), "Pulled vault") {
		t.Errorf("output = %q", out.String())
	}
	v, err := a.service.Load(a.path, a.opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, _ := v.Get("k"); got != "v1" {
		t.Errorf("k = %q after pull, want v1", got)
	}
}

func TestLogoutForgetPassword(t *testing.T) {
	a, out := newTestApp(t)

	if err := runLogout(a, true); err == nil {
		t.Error("expected error without a keychain account")
	}

	a.opts.KeychainAccount = "me"
	if err := a.creds.Store(a.opts.KeychainService, "me", testPassword); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := runLogout(a, true); err != nil {
		t.Fatalf("runLogout() error = %v", err)
	}
	if _, found, _ := a.creds.Retrieve(a.opts.KeychainService, "me"); found {
		t.Error("password still saved after logout --forget-password")
	}
}

func TestLockCommand(t *testing.T) {
	a, out := newTestApp(t)
	seed(t, a, out, map[string]string{"k": "v"})

	st, err := a.sessions.Status()
	if err != nil || st == nil {
		t.Fatalf("expected a session after writing, got %v, %v", st, err)
	}

	if err := runLock(a); err != nil {
		t.Fatalf("runLock() error = %v", err)
	}
	if st, _ := a.sessions.Status(); st != nil {
		t.Errorf("session still present: %+v", st)
	}

	// Without a password or session the vault can no longer be opened.
	a.opts.Password = ""
	if err := runView(a, "k", false); !errors.Is(err, vault.ErrNoInteractiveInput) {
		t.Errorf("runView() after lock error = %v, want %v", err, vault.ErrNoInteractiveInput)
	}
}

func TestStatusCommand(t *testing.T) {
	a, out := newTestApp(t)

	if err := runStatus(a, time.Now()); err != nil {
		t.Fatalf("runStatus() error = %v", err)
	}
	if !strings.Contains(out.String(), "(missing)") || !strings.Contains(out.String(), "Session: none") {
		t.Errorf("output = %q", out.String())
	}

	seed(t, a, out, map[string]string{"k": "v"})
	if err := runStatus(a, time.Now()); err != nil {
		t.Fatalf("runStatus() error = %v", err)
	}
	for _, want := range []string{"Format:  encrypted", "Session: unlocked, expires", "Sync:    local_only", store.BackupPath(a.path)} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := runStatus(a, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("runStatus() error = %v", err)
	}
	if !strings.Contains(out.String(), "Session: expired") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{store.ErrVaultBusy, "vault is currently in use by another ownkey process, try again shortly"},
		{vault.ErrIncorrectPassword, "vault password is incorrect or the vault is corrupted"},
		{cli.ErrValuesDiffer, "Values do not match. Aborting."},
		{&keyNotFoundError{key: "x"}, "No entry found for key x"},
		{errors.New("plain"), "plain"},
	}

	for _, tt := range tests {
		if got := describeError(tt.err); got != tt.want {
			t.Errorf("describeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
