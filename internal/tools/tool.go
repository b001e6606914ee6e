package tools

import (
	"context"
	"sort"

	"github.com/tmc/langchaingo/llms"
)

// Tool defines the interface for capabilities offered to the model while it
// writes step content.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	Execute(ctx context.Context, input string) (string, error)
}

// Source is a citable web page.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Citer is implemented by tools whose output carries citable sources.
type Citer interface {
	Citations(output string) []Source
}

// Registry manages the set of available tools.
type Registry struct {
	Tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		Tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	r.Tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.Tools[name]
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Tools)
}

// Definitions returns the function declarations for the model, sorted by name.
func (r *Registry) Definitions() []llms.Tool {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Tools))
	for name := range r.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]llms.Tool, 0, len(names))
	for _, name := range names {
		t := r.Tools[name]
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
