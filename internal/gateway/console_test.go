package gateway

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleGateway_ExportWritesWorkspace(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}
	c := NewConsoleGateway(context.Background(), dir, newDispatcher(&fakeGenerator{drafts: taipeiDrafts()}))
	c.renderer = nil
	c.In = strings.NewReader("Learn Go\n/generate\n/export\nexit\n/steps\n")
	c.Out = out

	require.NoError(t, c.Start())

	path := filepath.Join(dir, "Learn Go-steps.txt")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Step 1: Flights\nOriginal description: Book\n\nFlights done"))
	assert.Contains(t, out.String(), "Saved "+path)
	assert.NotContains(t, out.String(), "Task: Learn Go\n\n1. Flights\n   Book\n   (content ready)")
}

func TestRenderMarkdown_NilRenderer(t *testing.T) {
	assert.Equal(t, "**x**", RenderMarkdown(nil, "**x**"))
}
