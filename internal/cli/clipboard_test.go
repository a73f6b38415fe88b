package cli

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memClipboard struct {
	text     string
	writes   int
	writeErr error
}

func (c *memClipboard) ReadAll() (string, error) { return c.text, nil }

func (c *memClipboard) WriteAll(text string) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.text = text
	c.writes++
	return nil
}

func TestClearClipboardAfter(t *testing.T) {
	cb := &memClipboard{text: "s3cret"}
	if err := ClearClipboardAfter(context.Background(), cb, "s3cret", 10*time.Millisecond); err != nil {
		t.Fatalf("ClearClipboardAfter() error = %v", err)
	}
	if cb.text != "" {
		t.Errorf("clipboard not cleared: %q", cb.text)
	}
}

func TestClearClipboardAfterKeepsNewerContent(t *testing.T) {
	cb := &memClipboard{text: "copied later"}
	if err := ClearClipboardAfter(context.Background(), cb, "s3cret", 10*time.Millisecond); err != nil {
		t.Fatalf("ClearClipboardAfter() error = %v", err)
	}
	if cb.text != "copied later" {
		t.Errorf("clipboard = %q, want newer content kept", cb.text)
	}
	if cb.writes != 0 {
		t.Errorf("writes = %d, want 0", cb.writes)
	}
}

func TestClearClipboardAfterCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cb := &memClipboard{text: "s3cret"}
	if err := ClearClipboardAfter(ctx, cb, "s3cret", time.Hour); err != nil {
		t.Fatalf("ClearClipboardAfter() error = %v", err)
	}
	if cb.text != "" {
		t.Errorf("clipboard not cleared on cancel: %q", cb.text)
	}
}

func TestClearClipboardAfterWriteError(t *testing.T) {
	want := errors.New("no clipboard utility")
	cb := &memClipboard{text: "x", writeErr: want}
	if err := ClearClipboardAfter(context.Background(), cb, "x", time.Millisecond); !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
}
