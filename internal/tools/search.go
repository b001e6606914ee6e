package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

type searcher interface {
	Call(ctx context.Context, input string) (string, error)
}

type SearchTool struct {
	client searcher
}

func NewSearchTool(maxResults int) (*SearchTool, error) {
	ddg, err := duckduckgo.New(maxResults, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &SearchTool{client: ddg}, nil
}

func (s *SearchTool) Name() string {
	return "web_search"
}

func (s *SearchTool) Description() string {
	return "Search the web using DuckDuckGo to verify products, brands, prices, schedules and other facts that may have changed recently."
}

func (s *SearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query to look up",
			},
		},
		"required": []string{"query"},
	}
}

func (s *SearchTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return "Error: query is required", nil
	}

	res, err := s.client.Call(ctx, args.Query)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	return res, nil
}

func (s *SearchTool) Citations(output string) []Source {
	return ParseSearchResults(output)
}

// ParseSearchResults extracts sources from DuckDuckGo's
// "Title: / Description: / URL:" result blocks.
func ParseSearchResults(out string) []Source {
	var sources []Source
	var title string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Title:"):
			title = strings.TrimSpace(strings.TrimPrefix(line, "Title:"))
		case strings.HasPrefix(line, "URL:"):
			uri := normalizeResultURL(strings.TrimSpace(strings.TrimPrefix(line, "URL:")))
			if title != "" && uri != "" {
				sources = append(sources, Source{Title: title, URI: uri})
			}
			title = ""
		}
	}
	return sources
}

// DuckDuckGo's HTML endpoint can return protocol-relative redirect links
// carrying the target in the uddg parameter.
func normalizeResultURL(raw string) string {
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return raw
}
