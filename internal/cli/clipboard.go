package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

// Clipboard is the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// SystemClipboard uses the platform clipboard utilities.
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }
func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// ClipboardSupported reports whether a clipboard utility is available.
func ClipboardSupported() bool {
	return !clipboard.Unsupported
}

// ClearClipboardAfter blocks until the timeout or ctx ends and then clears
// the clipboard, unless it no longer holds text.
func ClearClipboardAfter(ctx context.Context, cb Clipboard, text string, after time.Duration) error {
	timer := time.NewTimer(after)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	current, err := cb.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read clipboard: %w", err)
	}
	if current != text {
		return nil
	}
	if err := cb.WriteAll(""); err != nil {
		return fmt.Errorf("failed to clear clipboard: %w", err)
	}
	return nil
}
