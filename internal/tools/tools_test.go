package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeSearcher struct {
	out   string
	err   error
	query string
}

func (f *fakeSearcher) Call(ctx context.Context, input string) (string, error) {
	f.query = input
	return f.out, f.err
}

const ddgOutput = `Title: Taipei 101 Observatory
Description: Tickets and hours
URL: https://www.taipei-101.com.tw/en/observatory

Title: Jiufen Old Street
Description: Day trip guide
URL: //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fjiufen&rut=abc

Title: Broken entry
Description: no url

`

func TestParseSearchResults(t *testing.T) {
	got := ParseSearchResults(ddgOutput)
	if len(got) != 2 {
		t.Fatalf("expected 2 sources, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Taipei 101 Observatory" || got[0].URI != "https://www.taipei-101.com.tw/en/observatory" {
		t.Errorf("unexpected first source: %+v", got[0])
	}
	if got[1].URI != "https://example.com/jiufen" {
		t.Errorf("redirect link not unwrapped: %q", got[1].URI)
	}
}

func TestSearchTool_Execute(t *testing.T) {
	fake := &fakeSearcher{out: ddgOutput}
	tool := &SearchTool{client: fake}

	out, err := tool.Execute(context.Background(), `{"query":"taipei 101 tickets"}`)
	if err != nil {
		t.Fatal(err)
	}
	if fake.query != "taipei 101 tickets" {
		t.Errorf("unexpected query %q", fake.query)
	}
	if len(tool.Citations(out)) != 2 {
		t.Errorf("expected citations from output")
	}

	fake.err = errors.New("rate limited")
	if _, err := tool.Execute(context.Background(), `{"query":"x"}`); err == nil {
		t.Error("expected error")
	}
	if _, err := tool.Execute(context.Background(), `not json`); err == nil {
		t.Error("expected invalid input error")
	}
}

func TestRegistry_Definitions(t *testing.T) {
	r := NewRegistry()
	r.Register(NewPageReader(nil))
	r.Register(&SearchTool{client: &fakeSearcher{}})

	defs := r.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Function.Name != "read_page" || defs[1].Function.Name != "web_search" {
		t.Errorf("definitions not sorted: %s, %s", defs[0].Function.Name, defs[1].Function.Name)
	}
	if r.Get("web_search") == nil {
		t.Error("expected web_search to be registered")
	}

	var empty *Registry
	if empty.Len() != 0 || empty.Definitions() != nil {
		t.Error("nil registry should be empty")
	}
}

const articleHTML = `<!DOCTYPE html><html><head><title>Jiufen Guide</title></head><body>
<article><h1>Jiufen Guide</h1>
<p>Jiufen is a mountain town north-east of Taipei, famous for its narrow old street and tea houses overlooking the sea.</p>
<p>Take bus 1062 from Zhongxiao Fuxing station; the ride takes about ninety minutes depending on traffic and weather.</p>
<p>Arrive before noon on weekdays to avoid the crowds, and stay for the lanterns at dusk when the street lights up.</p>
</article></body></html>`

type fakeRenderer struct {
	html  string
	calls int
}

func (f *fakeRenderer) Render(ctx context.Context, rawURL string) (string, error) {
	f.calls++
	return f.html, nil
}

func TestPageReader_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	reader := NewPageReader(nil)
	out, err := reader.Execute(context.Background(), `{"url":"`+srv.URL+`"}`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "bus 1062") {
		t.Errorf("article text missing: %s", out)
	}
	if strings.Contains(out, "<p>") {
		t.Errorf("markup leaked into output: %s", out)
	}
}

func TestPageReader_FallsBackToRenderer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	r := &fakeRenderer{html: articleHTML}
	reader := NewPageReader(r)
	out, err := reader.Execute(context.Background(), `{"url":"`+srv.URL+`"}`)
	if err != nil {
		t.Fatal(err)
	}
	if r.calls != 1 {
		t.Errorf("expected renderer to be used once, got %d", r.calls)
	}
	if !strings.Contains(out, "tea houses") {
		t.Errorf("rendered text missing: %s", out)
	}

	if _, err := NewPageReader(nil).Execute(context.Background(), `{"url":"`+srv.URL+`"}`); err == nil {
		t.Error("expected error without fallback")
	}
}

func TestPageReader_RejectsNonHTTP(t *testing.T) {
	if _, err := NewPageReader(nil).Execute(context.Background(), `{"url":"file:///etc/passwd"}`); err == nil {
		t.Error("expected error for file url")
	}
}
