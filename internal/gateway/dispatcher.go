package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rahul/taskbreak/internal/export"
	"github.com/rahul/taskbreak/internal/governance"
	"github.com/rahul/taskbreak/internal/observability"
	"github.com/rahul/taskbreak/internal/plan"
	"github.com/rahul/taskbreak/internal/session"
	"github.com/rahul/taskbreak/internal/store"
)

// RunArchive backs /history.
type RunArchive interface {
	RecentRuns(chatID string, limit int) ([]store.Run, error)
	GetRun(chatID string, id int64) (*store.Run, error)
	ClearRuns(chatID string) error
}

// Dispatcher routes chat commands to one Session per chat. Long-running
// commands (task, generate) run in their own goroutine so that /reset can
// interrupt them.
type Dispatcher struct {
	NewSession func(chatID string) *session.Session
	Policy     governance.PolicyEngine
	History    RunArchive
	Logger     *observability.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
	wg       sync.WaitGroup

	// progress is where each chat's finished steps are announced. It has its
	// own lock because observers run inside Sweep.
	pmu      sync.Mutex
	progress map[string]Replier
}

func NewDispatcher(newSession func(chatID string) *session.Session, policy governance.PolicyEngine, history RunArchive, logger *observability.Logger) *Dispatcher {
	return &Dispatcher{
		NewSession: newSession,
		Policy:     policy,
		History:    history,
		Logger:     logger,
		sessions:   make(map[string]*session.Session),
		progress:   make(map[string]Replier),
	}
}

// Session returns the chat's session, creating it on first use. The session
// is touched under the dispatcher lock so Sweep cannot evict it between
// lookup and use.
func (d *Dispatcher) Session(chatID string) *session.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[chatID]
	if !ok {
		s = d.NewSession(chatID)
		s.OnChange(reportStatus(chatID))
		s.OnChange(d.announceSteps(chatID))
		d.sessions[chatID] = s
	}
	s.Touch()
	return s
}

// reportStatus feeds the chat's entry on the live status board.
func reportStatus(chatID string) func(session.Snapshot) {
	return func(snap session.Snapshot) {
		st := observability.ChatStatus{Phase: observability.PhaseIdle, Steps: len(snap.Steps)}
		switch snap.State {
		case session.StateStepsRequested:
			st.Phase = observability.PhasePlanning
			st.Task = snap.Input
		case session.StateContentGenerating:
			st.Phase = observability.PhaseWriting
			st.Task = snap.Input
			st.Step = snap.Steps.Generating() + 1
		}
		observability.SetChatStatus(chatID, st)
	}
}

// announceSteps sends each step to the chat as soon as its content is done.
// A step is done when the in-flight marker moves off it.
func (d *Dispatcher) announceSteps(chatID string) func(session.Snapshot) {
	var mu sync.Mutex
	inFlight := -1
	return func(snap session.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if snap.State != session.StateContentGenerating {
			inFlight = -1
			return
		}
		current := snap.Steps.Generating()
		if inFlight >= 0 && current != inFlight && inFlight < len(snap.Steps) {
			st := snap.Steps[inFlight]
			d.pmu.Lock()
			r := d.progress[chatID]
			d.pmu.Unlock()
			content := st.GeneratedContent
			if content == "" {
				content = export.NoContent
			}
			if r != nil {
				reply(r, fmt.Sprintf("Step %d: %s\n\n%s", inFlight+1, st.Title, content))
			}
		}
		inFlight = current
	}
}

// Wait blocks until every background command has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Sweep resets and forgets sessions idle for longer than ttl, except those
// still waiting on the model. It returns how many were evicted.
func (d *Dispatcher) Sweep(ttl time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for id, s := range d.sessions {
		if time.Since(s.LastActive()) < ttl || busy(s.Snapshot().State) {
			continue
		}
		s.Reset()
		delete(d.sessions, id)
		observability.ForgetChat(id)
		d.pmu.Lock()
		delete(d.progress, id)
		d.pmu.Unlock()
		n++
	}
	return n
}

// RunSweeper evicts idle sessions every interval until ctx is done.
func (d *Dispatcher) RunSweeper(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.Sweep(ttl); n > 0 {
				log.Printf("[SWEEPER] evicted %d idle sessions", n)
			}
		}
	}
}

func busy(st session.State) bool {
	return st == session.StateStepsRequested || st == session.StateContentGenerating
}

// Handle processes one inbound message from chatID.
func (d *Dispatcher) Handle(ctx context.Context, chatID, text string, r Replier) {
	cmd, isCommand, err := ParseCommand(text)
	if err != nil {
		reply(r, "Usage: "+strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
		return
	}

	s := d.Session(chatID)

	if !isCommand {
		if st := s.Snapshot().State; st != session.StateIdle {
			reply(r, "Send /reset to start a new task, or /help to see what I can do.")
			return
		}
	}

	switch cmd.Name {
	case CmdTask:
		d.submit(ctx, s, cmd.Text, r)
	case CmdSteps:
		reply(r, FormatSteps(s.Snapshot()))
	case CmdEdit:
		if err := s.UpdateStep(cmd.Index, cmd.Field, cmd.Text); err != nil {
			reply(r, userError(err))
			return
		}
		reply(r, FormatSteps(s.Snapshot()))
	case CmdMove:
		if err := s.Move(cmd.Index, cmd.To); err != nil {
			reply(r, userError(err))
			return
		}
		reply(r, FormatSteps(s.Snapshot()))
	case CmdGenerate:
		d.generate(ctx, s, r)
	case CmdCopy:
		d.copyAll(s, r)
	case CmdExport:
		d.exportText(s, r)
	case CmdReset:
		s.Reset()
		reply(r, "Cleared. Send a new task to start over.")
	case CmdHistory:
		d.history(chatID, cmd.Text, r)
	case CmdHelp, "start":
		reply(r, helpText)
	default:
		reply(r, fmt.Sprintf("Unknown command /%s. Send /help to see what I can do.", cmd.Name))
	}
}

func (d *Dispatcher) submit(ctx context.Context, s *session.Session, input string, r Replier) {
	if strings.TrimSpace(input) == "" {
		reply(r, "Describe the task you want broken down, e.g. /task Plan a 3-day trip to Taipei")
		return
	}

	if d.Policy != nil {
		res, err := d.Policy.Evaluate(ctx, governance.Request{Action: CmdTask, Input: input, ChatID: s.ID})
		if err != nil {
			log.Printf("[%s] policy evaluation failed: %v", s.ID, err)
			reply(r, "I can't take that request right now.")
			return
		}
		d.Logger.LogPolicy(s.ID, string(res.Effect), res.Reason)
		if res.Effect == governance.EffectDeny {
			reply(r, "Request blocked: "+res.Reason)
			return
		}
	}

	reply(r, "Breaking it down...")
	d.background(func() {
		err := s.Submit(ctx, input)
		switch {
		case errors.Is(err, session.ErrReset):
			return
		case err != nil:
			reply(r, userError(err))
			return
		}
		snap := s.Snapshot()
		if snap.Error != "" {
			reply(r, snap.Error)
			return
		}
		reply(r, FormatSteps(snap)+"\n\nEdit with /edit or /move, then send /generate.")
	})
}

func (d *Dispatcher) generate(ctx context.Context, s *session.Session, r Replier) {
	snap := s.Snapshot()
	switch {
	case busy(snap.State):
		reply(r, userError(session.ErrBusy))
		return
	case len(snap.Steps) == 0:
		reply(r, userError(session.ErrNoSteps))
		return
	}

	reply(r, fmt.Sprintf("Writing content for %d steps, one at a time...", len(snap.Steps)))
	d.pmu.Lock()
	d.progress[s.ID] = r
	d.pmu.Unlock()

	d.background(func() {
		err := s.GenerateAll(ctx)
		switch {
		case errors.Is(err, session.ErrReset):
			return
		case err != nil:
			reply(r, userError(err))
			return
		}
		reply(r, "All steps written. Use /copy or /export to take them with you.")
	})
}

func (d *Dispatcher) copyAll(s *session.Session, r Replier) {
	snap := s.Snapshot()
	if snap.State != session.StateContentReady {
		reply(r, "Nothing to copy yet. Send /generate first.")
		return
	}
	text := export.Clipboard(snap.Steps)
	if c, ok := r.(Copier); ok {
		if err := c.Copy(text); err != nil {
			log.Printf("[%s] clipboard write failed: %v", s.ID, err)
			reply(r, "Couldn't reach the clipboard, here is the text instead.")
		} else {
			reply(r, "Copied all steps to the clipboard.")
			return
		}
	}
	reply(r, text)
}

func (d *Dispatcher) exportText(s *session.Session, r Replier) {
	snap := s.Snapshot()
	if snap.State != session.StateContentReady {
		reply(r, "Nothing to export yet. Send /generate first.")
		return
	}
	if err := r.SendFile(export.Filename(snap.Input), []byte(export.Text(snap.Steps))); err != nil {
		log.Printf("[%s] export failed: %v", s.ID, err)
		reply(r, "Export failed, please try again.")
	}
}

func (d *Dispatcher) history(chatID, arg string, r Replier) {
	if d.History == nil {
		reply(r, "History is not enabled.")
		return
	}
	switch arg {
	case "":
	case "clear":
		if err := d.History.ClearRuns(chatID); err != nil {
			log.Printf("[%s] history clear failed: %v", chatID, err)
			reply(r, "Couldn't clear your history.")
			return
		}
		reply(r, "History cleared.")
		return
	default:
		d.showRun(chatID, arg, r)
		return
	}
	runs, err := d.History.RecentRuns(chatID, 10)
	if err != nil {
		log.Printf("[%s] history lookup failed: %v", chatID, err)
		reply(r, "Couldn't load your history.")
		return
	}
	if len(runs) == 0 {
		reply(r, "No finished tasks yet.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Recent tasks:\n")
	for _, run := range runs {
		fmt.Fprintf(&sb, "\n#%d  %s  %s", run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Task)
	}
	sb.WriteString("\n\nSend /history <number> to see one again.")
	reply(r, sb.String())
}

func (d *Dispatcher) showRun(chatID, arg string, r Replier) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil {
		reply(r, "Usage: /history [number|clear]")
		return
	}
	run, err := d.History.GetRun(chatID, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		reply(r, fmt.Sprintf("No task #%d in your history.", id))
		return
	case err != nil:
		log.Printf("[%s] history lookup failed: %v", chatID, err)
		reply(r, "Couldn't load your history.")
		return
	}
	reply(r, fmt.Sprintf("Task: %s\n\n%s", run.Task, export.Clipboard(run.Steps)))
}

func (d *Dispatcher) background(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

// FormatSteps renders the step list for a chat reply.
func FormatSteps(snap session.Snapshot) string {
	if len(snap.Steps) == 0 {
		if snap.Error != "" {
			return snap.Error
		}
		return "No steps yet. Send me a task to get started."
	}
	var sb strings.Builder
	if snap.Input != "" {
		fmt.Fprintf(&sb, "Task: %s\n", snap.Input)
	}
	for i, st := range snap.Steps {
		fmt.Fprintf(&sb, "\n%d. %s\n   %s", i+1, st.Title, st.Description)
		switch {
		case st.IsGeneratingContent:
			sb.WriteString("\n   (writing...)")
		case st.GeneratedContent != "":
			sb.WriteString("\n   (content ready)")
		}
	}
	return sb.String()
}

func userError(err error) string {
	switch {
	case errors.Is(err, session.ErrBusy):
		return "Still working on the previous request. Send /reset to cancel it."
	case errors.Is(err, session.ErrNoSteps):
		return "There are no steps yet. Send me a task first."
	case errors.Is(err, session.ErrEmptyInput):
		return "Describe the task you want broken down."
	case errors.Is(err, session.ErrInvalidState):
		return "Steps can only be changed before content is generated. Send /reset to start over."
	case errors.Is(err, plan.ErrIndexOutOfRange):
		return "There is no step with that number."
	}
	log.Printf("unexpected command error: %v", err)
	return "Something went wrong, please try again."
}

func reply(r Replier, text string) {
	if err := r.Send(text); err != nil {
		log.Printf("failed to send reply: %v", err)
	}
}
