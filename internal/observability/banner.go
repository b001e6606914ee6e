package observability

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	ansiReset  = "\033[0m"
	ansiCyan   = "\033[96m"
	ansiYellow = "\033[93m"
	ansiRed    = "\033[91m"
)

// Rows 1-8 hold the banner, row 9 the status line; logs scroll below.
const (
	statusRow = 9
	logTopRow = 11
)

var startTime = time.Now()

// termMu serializes every terminal write so a log line can never land in
// the middle of the status line's cursor save/restore.
var termMu sync.Mutex

// TermWidth reports the stdout column count, 80 when it is not a terminal.
func TermWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

type termWriter struct{}

func (termWriter) Write(p []byte) (int, error) {
	termMu.Lock()
	defer termMu.Unlock()
	return os.Stderr.Write(p)
}

// NewTermWriter returns a writer for log.SetOutput that never interleaves
// with the status line.
func NewTermWriter() *termWriter {
	return &termWriter{}
}

const banner = `
 _____  _    ____  _  __ ____  ____  _____    _    _  __
|_   _|/ \  / ___|| |/ /| __ )|  _ \| ____|  / \  | |/ /
  | | / _ \ \___ \| ' / |  _ \| |_) |  _|   / _ \ | ' /
  | |/ ___ \ ___) | . \ | |_) |  _ <| |___ / ___ \| . \
  |_/_/   \_\____/|_|\_\|____/|_| \_\_____/_/   \_\_|\_\
`

func PrintBanner() {
	termMu.Lock()
	defer termMu.Unlock()

	fmt.Print("\033[2J\033[H")
	width := TermWidth()
	for _, l := range strings.Split(strings.Trim(banner, "\n"), "\n") {
		pad := max((width-len(l))/2, 0)
		fmt.Printf("%s%s%s%s\n", strings.Repeat(" ", pad), ansiCyan, l, ansiReset)
	}
}

// InitializeTerminal pins the banner and status line and scrolls logs below.
func InitializeTerminal() {
	fmt.Printf("\033[%d;r\033[%d;1H", logTopRow, logTopRow)
}

func CleanupTerminal() {
	fmt.Print("\033[r\033[2J\033[H")
}

// PrintLiveStatus redraws the status line from the chat board.
func PrintLiveStatus() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	b, now := ReadBoard(), time.Now()
	line := statusLine(b, now, float64(m.Alloc)/1024/1024)
	if w := TermWidth(); len([]rune(line)) > w {
		line = string([]rune(line)[:w])
	}

	color := ansiCyan
	switch health(b, now) {
	case "lagging":
		color = ansiYellow
	case "offline":
		color = ansiRed
	}

	termMu.Lock()
	defer termMu.Unlock()
	fmt.Printf("\033[s\033[%d;1H\033[K%s%s%s\033[u", statusRow, color, line, ansiReset)
}

func health(b Board, now time.Time) string {
	switch since := now.Sub(b.LastHeartbeat); {
	case since >= 90*time.Second:
		return "offline"
	case since >= 40*time.Second:
		return "lagging"
	}
	return "healthy"
}

// statusLine renders the board without color codes so it can be measured
// and truncated.
func statusLine(b Board, now time.Time, memMB float64) string {
	parts := []string{
		fmt.Sprintf("[%s] %s", b.LastHeartbeat.Format("15:04:05"), health(b, now)),
		fmt.Sprintf("planning %d / writing %d / idle %d",
			b.Counts[PhasePlanning], b.Counts[PhaseWriting], b.Counts[PhaseIdle]),
	}

	if a := b.Active; a != nil {
		task := a.Task
		if r := []rune(task); len(r) > 30 {
			task = string(r[:27]) + "..."
		}
		switch a.Phase {
		case PhaseWriting:
			parts = append(parts, fmt.Sprintf("writing step %d/%d of %q", a.Step, a.Steps, task))
		case PhasePlanning:
			parts = append(parts, fmt.Sprintf("planning %q", task))
		}
	}

	parts = append(parts,
		fmt.Sprintf("up %v", now.Sub(startTime).Round(time.Second)),
		fmt.Sprintf("%.1fMB", memMB),
	)
	return strings.Join(parts, " | ")
}
