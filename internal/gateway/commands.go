package gateway

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rahul/taskbreak/internal/plan"
)

// Command names, without the leading slash.
const (
	CmdTask     = "task"
	CmdSteps    = "steps"
	CmdEdit     = "edit"
	CmdMove     = "move"
	CmdGenerate = "generate"
	CmdCopy     = "copy"
	CmdExport   = "export"
	CmdReset    = "reset"
	CmdHistory  = "history"
	CmdHelp     = "help"
)

const helpText = `Send me a task and I'll break it into steps.

/task <text> - break a task down (plain text works too)
/steps - show the current steps
/edit <n> title|description <text> - change a step
/move <from> <to> - reorder steps
/generate - write content for every step, in order
/copy - all steps with their content as markdown
/export - download the steps as a text file
/reset - start over
/history [n|clear] - your recent tasks, one of them again, or wipe them`

var errUsage = errors.New("usage")

// Command is a parsed chat message.
type Command struct {
	Name string
	// Text is everything after the command name, trimmed.
	Text string

	// Index, To and Field are filled for edit and move; indices are 0-based.
	Index int
	To    int
	Field plan.Field
}

// ParseCommand reads a slash command. Text without a leading slash parses as
// a task with IsCommand false. Bot mentions (/steps@mybot) are stripped.
func ParseCommand(msg string) (cmd Command, isCommand bool, err error) {
	msg = strings.TrimSpace(msg)
	if !strings.HasPrefix(msg, "/") {
		return Command{Name: CmdTask, Text: msg}, false, nil
	}

	name, rest, _ := strings.Cut(msg[1:], " ")
	name, _, _ = strings.Cut(name, "@")
	cmd = Command{Name: strings.ToLower(name), Text: strings.TrimSpace(rest)}

	switch cmd.Name {
	case CmdEdit:
		fields := strings.Fields(cmd.Text)
		if len(fields) < 3 {
			return cmd, true, fmt.Errorf("%w: /edit <n> title|description <text>", errUsage)
		}
		if cmd.Index, err = stepNumber(fields[0]); err != nil {
			return cmd, true, err
		}
		if cmd.Field, err = plan.ParseField(strings.ToLower(fields[1])); err != nil {
			return cmd, true, fmt.Errorf("%w: /edit <n> title|description <text>", errUsage)
		}
		// keep the user's spacing in the new value
		value := strings.TrimSpace(cmd.Text)
		for _, f := range fields[:2] {
			value = strings.TrimSpace(strings.TrimPrefix(value, f))
		}
		cmd.Text = value
	case CmdMove:
		fields := strings.Fields(cmd.Text)
		if len(fields) != 2 {
			return cmd, true, fmt.Errorf("%w: /move <from> <to>", errUsage)
		}
		if cmd.Index, err = stepNumber(fields[0]); err != nil {
			return cmd, true, err
		}
		if cmd.To, err = stepNumber(fields[1]); err != nil {
			return cmd, true, err
		}
	}
	return cmd, true, nil
}

func stepNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q is not a step number", errUsage, s)
	}
	return n - 1, nil
}
