package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/rahul/taskbreak/internal/export"
	"github.com/rahul/taskbreak/internal/observability"
)

const consoleChat = "console"

// ConsoleGateway is a line-oriented front-end on stdin/stdout. Each command
// runs to completion before the next prompt; Ctrl-C cancels the context.
type ConsoleGateway struct {
	Dispatcher *Dispatcher
	// Workspace is the directory /export writes into.
	Workspace string
	In        io.Reader
	Out       io.Writer

	ctx      context.Context
	mu       sync.Mutex
	renderer *glamour.TermRenderer
}

func NewConsoleGateway(ctx context.Context, workspace string, d *Dispatcher) *ConsoleGateway {
	c := &ConsoleGateway{
		Dispatcher: d,
		Workspace:  workspace,
		In:         os.Stdin,
		Out:        os.Stdout,
		ctx:        ctx,
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		c.renderer = NewMarkdownRenderer(observability.TermWidth())
	}
	return c
}

// NewMarkdownRenderer returns a glamour renderer wrapped at width, or nil if
// one cannot be built.
func NewMarkdownRenderer(width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return nil
	}
	return r
}

// RenderMarkdown renders md with r, returning md unchanged when r is nil or
// rendering fails.
func RenderMarkdown(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func (c *ConsoleGateway) Start() error {
	c.print(helpText + "\n\nType exit to quit.\n")

	scanner := bufio.NewScanner(c.In)
	for {
		c.prompt()
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		c.Dispatcher.Handle(c.ctx, consoleChat, line, consoleReplier{c})
		c.Dispatcher.Wait()
		if c.ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

func (c *ConsoleGateway) Send(chatID string, text string) error {
	c.print(RenderMarkdown(c.renderer, text))
	return nil
}

func (c *ConsoleGateway) SendFile(chatID string, name string, data []byte) error {
	path, err := export.WriteFile(c.Workspace, name, string(data))
	if err != nil {
		return err
	}
	c.print(fmt.Sprintf("Saved %s\n", path))
	return nil
}

func (c *ConsoleGateway) Stop() error {
	return nil
}

func (c *ConsoleGateway) prompt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.Out, "> ")
}

func (c *ConsoleGateway) print(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.Out, strings.TrimRight(text, "\n"))
}

type consoleReplier struct {
	c *ConsoleGateway
}

func (r consoleReplier) Send(text string) error {
	return r.c.Send(consoleChat, text)
}

func (r consoleReplier) SendFile(name string, data []byte) error {
	return r.c.SendFile(consoleChat, name, data)
}

func (r consoleReplier) Copy(text string) error {
	return clipboard.WriteAll(text)
}
