package export

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/taskbreak/internal/plan"
)

func taipei() plan.Steps {
	steps := plan.New([]plan.Draft{
		{Title: "Flights", Description: "Book a flight to TPE"},
		{Title: "Hotel", Description: "Pick a district"},
		{Title: "Itinerary", Description: "Three days of sights"},
	})
	steps[0].GeneratedContent = "## Options\n- **EVA Air** direct\n- *China Airlines*"
	steps[1].GeneratedContent = "Stay near `MRT` stations"
	steps[2].GeneratedContent = "Day 1: __Taipei 101__"
	return steps
}

func TestClipboard_StepHeaders(t *testing.T) {
	out := Clipboard(taipei())
	re := regexp.MustCompile(`# Step \d+:`)
	assert.Len(t, re.FindAllString(out, -1), 3)
	assert.Equal(t, 2, strings.Count(out, "\n\n---\n\n"))
	assert.True(t, strings.HasPrefix(out, "# Step 1: Flights\n\n## Options"))
}

func TestClipboard_Placeholder(t *testing.T) {
	steps := taipei()
	steps[1].GeneratedContent = ""
	assert.Contains(t, Clipboard(steps), "# Step 2: Hotel\n\n"+NoContent)
}

func TestText_Deterministic(t *testing.T) {
	steps := taipei()
	assert.Equal(t, Text(steps), Text(steps))
}

func TestText_Layout(t *testing.T) {
	out := Text(taipei())
	sections := strings.Split(out, "\n\n================================\n\n")
	require.Len(t, sections, 3)
	assert.Equal(t, "Step 2: Hotel\nOriginal description: Pick a district\n\nStay near MRT stations", sections[1])
	assert.Equal(t, "Step 3: Itinerary\nOriginal description: Three days of sights\n\nDay 1: Taipei 101", sections[2])
}

func TestPlainText(t *testing.T) {
	cases := map[string]string{
		"**bold** and __strong__": "bold and strong",
		"*it* and _em_":           "it and em",
		"use `go test` now":       "use go test now",
		"```code```":              "code",
		"#\u3000見出し":              "見出し",
		"-\u00a0item":             "  - item",
		"## Heading":              "Heading",
		"- one\n- two":            "  - one\n  - two",
	}
	for in, want := range cases {
		assert.Equal(t, want, PlainText(in), "input %q", in)
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "task-steps.txt", Filename(""))
	assert.Equal(t, "task-steps.txt", Filename("   "))
	assert.Equal(t, "Plan a 3-day trip to-steps.txt", Filename("Plan a 3-day trip to Taipei"))
	assert.Equal(t, "規劃一週日本旅行-steps.txt", Filename("規劃一週日本旅行"))
	assert.Equal(t, "a_b-steps.txt", Filename("a/b"))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFile(dir, "plan-steps.txt", "hello")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, filepath.Join(dir, "plan-steps.txt"), path)

	_, err = WriteFile(dir, "../escape.txt", "x")
	assert.Error(t, err)
}
