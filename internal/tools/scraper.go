package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

const maxPageChars = 20000

// Renderer produces the HTML of a page, typically by running a browser.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
}

// PageReader fetches a page and extracts its main text. When plain HTTP
// fails and a Renderer is set, the page is rendered and parsed instead.
type PageReader struct {
	UserAgent string
	Client    *http.Client
	Fallback  Renderer
}

func NewPageReader(fallback Renderer) *PageReader {
	return &PageReader{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		Client:    &http.Client{Timeout: 30 * time.Second},
		Fallback:  fallback,
	}
}

func (s *PageReader) Name() string {
	return "read_page"
}

func (s *PageReader) Description() string {
	return "Fetch a webpage URL found through web_search and extract the main content as clean text."
}

func (s *PageReader) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The full URL of the webpage to read (e.g., https://example.com/article)",
			},
		},
		"required": []string{"url"},
	}
}

func (s *PageReader) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	parsedURL, err := url.Parse(args.URL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return "", fmt.Errorf("invalid url: %q", args.URL)
	}

	html, err := s.fetch(ctx, args.URL)
	if err != nil {
		if s.Fallback == nil {
			return "", err
		}
		log.Printf("read_page: %v, rendering %s in browser", err, args.URL)
		html, err = s.Fallback.Render(ctx, args.URL)
		if err != nil {
			return "", fmt.Errorf("failed to render page: %w", err)
		}
	}

	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse article: %v", err)
	}

	p := bluemonday.StrictPolicy()
	sanitized := p.Sanitize(article.TextContent)

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", article.Title)
	if article.Excerpt != "" {
		fmt.Fprintf(&b, "EXCERPT: %s\n", article.Excerpt)
	}
	b.WriteString("\n-- CONTENT --\n")

	if r := []rune(sanitized); len(r) > maxPageChars {
		sanitized = string(r[:maxPageChars]) + "\n... (content truncated) ..."
	}
	b.WriteString(sanitized)
	return b.String(), nil
}

func (s *PageReader) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}
