package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPromptManager_Defaults(t *testing.T) {
	pm := NewPromptManager("")

	prompt, err := pm.BreakdownPrompt("Plan a 3-day trip to Taipei")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, `Task: "Plan a 3-day trip to Taipei"`) {
		t.Errorf("task missing from prompt: %s", prompt)
	}

	grounded, err := pm.ContentPrompt("Book flights", "Compare airlines", true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(grounded, `Title: "Book flights"`) || !strings.Contains(grounded, "web_search") {
		t.Errorf("unexpected content prompt: %s", grounded)
	}

	plain, err := pm.ContentPrompt("Book flights", "Compare airlines", false)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(plain, "web_search") {
		t.Error("ungrounded prompt should not mention web_search")
	}
}

func TestPromptManager_DirectoryOverride(t *testing.T) {
	tempDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tempDir, "breakdown.tmpl"), []byte("Split up: {{.Task}}"), 0644)
	if err != nil {
		t.Fatal(err)
	}

	pm := NewPromptManager(tempDir)
	prompt, err := pm.BreakdownPrompt("learn Go")
	if err != nil {
		t.Fatal(err)
	}
	if prompt != "Split up: learn Go" {
		t.Errorf("override not used: %q", prompt)
	}

	// content.tmpl is absent from the directory, so the default applies
	content, err := pm.ContentPrompt("a", "b", false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, `Title: "a"`) {
		t.Errorf("default content prompt not used: %s", content)
	}
}

func TestPromptManager_BadTemplate(t *testing.T) {
	tempDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tempDir, "breakdown.tmpl"), []byte("{{.Task"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewPromptManager(tempDir).BreakdownPrompt("x"); err == nil {
		t.Error("expected parse error")
	}
}
