package agent

import (
	"fmt"
	"strings"

	"github.com/rahul/taskbreak/internal/tools"
)

const referencesHeading = "\n\n---\n\n**References:**\n"

// AppendSources adds a deduplicated markdown reference list to content.
// Sources missing a title or URI are skipped.
func AppendSources(content string, sources []tools.Source) string {
	seen := make(map[string]bool, len(sources))
	var lines []string
	for _, s := range sources {
		if s.Title == "" || s.URI == "" {
			continue
		}
		line := fmt.Sprintf("- [%s](%s)", s.Title, s.URI)
		if seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return content
	}
	return content + referencesHeading + strings.Join(lines, "\n")
}
