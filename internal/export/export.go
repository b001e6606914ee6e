package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rahul/taskbreak/internal/plan"
)

const (
	NoContent        = "No content yet."
	clipboardDivider = "\n\n---\n\n"
	fileDivider      = "\n\n================================\n\n"
	filenamePrefix   = 20
	fallbackName     = "task"
	fileSuffix       = "-steps.txt"
)

// Clipboard renders the steps as markdown, one "# Step N:" section each.
func Clipboard(steps plan.Steps) string {
	parts := make([]string, 0, len(steps))
	for i, s := range steps {
		content := s.GeneratedContent
		if content == "" {
			content = NoContent
		}
		parts = append(parts, fmt.Sprintf("# Step %d: %s\n\n%s", i+1, s.Title, content))
	}
	return strings.Join(parts, clipboardDivider)
}

// Text renders the plain-text export document.
func Text(steps plan.Steps) string {
	parts := make([]string, 0, len(steps))
	for i, s := range steps {
		content := s.GeneratedContent
		if content == "" {
			content = NoContent
		}
		parts = append(parts, fmt.Sprintf("Step %d: %s\nOriginal description: %s\n\n%s",
			i+1, s.Title, s.Description, PlainText(content)))
	}
	return strings.Join(parts, fileDivider)
}

// RE2 has no backreferences, so each paired marker gets its own pattern.
var plainRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "$1"},
	{regexp.MustCompile(`__(.*?)__`), "$1"},
	{regexp.MustCompile(`\*(.*?)\*`), "$1"},
	{regexp.MustCompile(`_(.*?)_`), "$1"},
	{regexp.MustCompile("`{1,3}(.*?)`{1,3}"), "$1"},
	{regexp.MustCompile(`#+` + space), ""},
	{regexp.MustCompile(`-` + space), "  - "},
}

// space matches one Unicode whitespace rune; RE2's \s is ASCII only and
// would miss the ideographic and no-break spaces common in CJK text.
const space = `[\s\v\x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}]`

// PlainText strips markdown emphasis, code, heading and list markup.
func PlainText(md string) string {
	for _, r := range plainRules {
		md = r.re.ReplaceAllString(md, r.repl)
	}
	return md
}

// Filename derives the export file name from the task input.
func Filename(task string) string {
	runes := []rune(task)
	if len(runes) > filenamePrefix {
		runes = runes[:filenamePrefix]
	}
	name := sanitize(string(runes))
	if strings.TrimSpace(name) == "" {
		name = fallbackName
	}
	return name + fileSuffix
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t':
			return '_'
		}
		return r
	}, s)
}

// WriteFile stores an export under root, refusing paths that escape it.
func WriteFile(root, name, content string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve export root: %w", err)
	}
	target := filepath.Join(absRoot, name)
	rel, err := filepath.Rel(absRoot, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("unsafe export path: %s", name)
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return target, nil
}
