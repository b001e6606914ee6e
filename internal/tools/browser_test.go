package tools

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestBrowserRenderer_FailedStartIsNotReused(t *testing.T) {
	b := NewBrowserRenderer()
	b.Timeout = 5 * time.Second
	b.ExecPath = filepath.Join(t.TempDir(), "no-such-chrome")
	defer b.Close()

	for i := 0; i < 2; i++ {
		if _, err := b.Render(context.Background(), "https://example.com"); err == nil {
			t.Fatalf("render %d: expected error for missing browser", i)
		}
		b.mu.Lock()
		stale := b.browserCtx != nil || b.allocCtx != nil
		b.mu.Unlock()
		if stale {
			t.Fatalf("render %d: failed browser context kept", i)
		}
	}
}
