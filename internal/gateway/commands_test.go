package gateway

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/taskbreak/internal/plan"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in        string
		want      Command
		isCommand bool
	}{
		{"Plan a 3-day trip to Taipei", Command{Name: CmdTask, Text: "Plan a 3-day trip to Taipei"}, false},
		{"/task  Learn Go ", Command{Name: CmdTask, Text: "Learn Go"}, true},
		{"/Steps@taskbreak_bot", Command{Name: CmdSteps}, true},
		{"/move 3 1", Command{Name: CmdMove, Text: "3 1", Index: 2, To: 0}, true},
		{"/edit 2 Title Book  the hotel", Command{Name: CmdEdit, Text: "Book  the hotel", Index: 1, Field: plan.FieldTitle}, true},
		{"/edit 1 description near MRT", Command{Name: CmdEdit, Text: "near MRT", Index: 0, Field: plan.FieldDescription}, true},
		{"/frobnicate", Command{Name: "frobnicate"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, isCommand, err := ParseCommand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.isCommand, isCommand)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Usage(t *testing.T) {
	for _, in := range []string{
		"/move 1",
		"/move a b",
		"/move 0 2",
		"/edit 1 title",
		"/edit x title y",
		"/edit 1 summary y",
	} {
		_, isCommand, err := ParseCommand(in)
		assert.True(t, isCommand, in)
		assert.True(t, errors.Is(err, errUsage), in)
	}
}

func TestChunk(t *testing.T) {
	assert.Equal(t, []string{"short"}, chunk("short", 10))

	text := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	parts := chunk(text, 10)
	require.Len(t, parts, 2)
	assert.Equal(t, strings.Repeat("a", 8)+"\n", parts[0])
	assert.Equal(t, strings.Join(parts, ""), text)

	parts = chunk(strings.Repeat("x", 25), 10)
	assert.Equal(t, []int{10, 10, 5}, []int{len(parts[0]), len(parts[1]), len(parts[2])})
}
