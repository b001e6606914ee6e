package agent

import (
	"encoding/json"
	"strings"

	"github.com/rahul/taskbreak/internal/plan"
)

// parseDrafts decodes a JSON array of {title, description} objects. Anything
// else, including an element missing either string field, yields nil.
func parseDrafts(raw string) []plan.Draft {
	raw = stripFence(strings.TrimSpace(raw))
	if raw == "" {
		return nil
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}

	drafts := make([]plan.Draft, 0, len(items))
	for _, item := range items {
		title, ok := item["title"].(string)
		if !ok {
			return nil
		}
		desc, ok := item["description"].(string)
		if !ok {
			return nil
		}
		drafts = append(drafts, plan.Draft{Title: title, Description: desc})
	}
	if len(drafts) == 0 {
		return nil
	}
	return drafts
}

// parseProposal decodes the arguments of a propose_steps call.
func parseProposal(args string) []plan.Draft {
	var p struct {
		Steps json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal([]byte(args), &p); err != nil || len(p.Steps) == 0 {
		return nil
	}
	return parseDrafts(string(p.Steps))
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
