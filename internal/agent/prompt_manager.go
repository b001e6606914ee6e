package agent

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"text/template"
)

//go:embed defaults/*.tmpl
var defaultPrompts embed.FS

const (
	breakdownPrompt = "breakdown.tmpl"
	contentPrompt   = "content.tmpl"
)

// PromptManager renders prompt templates. A file with the same name in
// Directory overrides the built-in template.
type PromptManager struct {
	Directory string

	mu        sync.Mutex
	templates map[string]*template.Template
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{
		Directory: dir,
		templates: make(map[string]*template.Template),
	}
}

func (pm *PromptManager) BreakdownPrompt(task string) (string, error) {
	return pm.render(breakdownPrompt, struct{ Task string }{task})
}

func (pm *PromptManager) ContentPrompt(title, description string, grounded bool) (string, error) {
	return pm.render(contentPrompt, struct {
		Title       string
		Description string
		Grounded    bool
	}{title, description, grounded})
}

func (pm *PromptManager) render(name string, data any) (string, error) {
	tmpl, err := pm.load(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

func (pm *PromptManager) load(name string) (*template.Template, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if t, ok := pm.templates[name]; ok {
		return t, nil
	}

	text, err := pm.read(name)
	if err != nil {
		return nil, err
	}
	t, err := template.New(name).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
	}
	pm.templates[name] = t
	return t, nil
}

func (pm *PromptManager) read(name string) (string, error) {
	if pm.Directory != "" {
		data, err := os.ReadFile(filepath.Join(pm.Directory, name))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read prompt %s: %w", name, err)
		}
	}
	data, err := defaultPrompts.ReadFile("defaults/" + name)
	if err != nil {
		return "", fmt.Errorf("no prompt named %s: %w", name, err)
	}
	return string(data), nil
}
