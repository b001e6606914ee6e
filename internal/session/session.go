package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rahul/taskbreak/internal/agent"
	"github.com/rahul/taskbreak/internal/observability"
	"github.com/rahul/taskbreak/internal/plan"
)

// State is a pipeline phase.
type State string

const (
	StateIdle              State = "idle"
	StateStepsRequested    State = "steps-requested"
	StateStepsReady        State = "steps-ready"
	StateContentGenerating State = "content-generating"
	StateContentReady      State = "content-ready"
)

// User-facing messages. Raw errors are logged, never shown.
const (
	MsgBreakdownFailed = "Something went wrong while generating steps. Please check your connection or API key and try again."
	MsgNoValidSteps    = "The AI could not produce valid steps. Try different keywords or describe your task in more detail."
	FailurePlaceholder = "Content generation failed, please try again later."
)

var (
	ErrEmptyInput   = errors.New("task description is empty")
	ErrBusy         = errors.New("a generation request is already running")
	ErrNoSteps      = errors.New("there are no steps to generate content for")
	ErrInvalidState = errors.New("action not allowed in the current state")
	ErrReset        = errors.New("session was reset")
)

// Snapshot is an immutable view of a session.
type Snapshot struct {
	State State
	Input string
	Error string
	Steps plan.Steps
}

// Archiver receives every run that reaches content-ready.
type Archiver interface {
	SaveRun(chatID, task string, steps plan.Steps) error
}

// Session drives one conversation through the pipeline. It is safe for
// concurrent use; the generator is always called without the lock held.
type Session struct {
	ID        string
	Generator agent.Generator
	Logger    *observability.Logger
	Archiver  Archiver

	mu       sync.Mutex
	state    State
	input    string
	errMsg   string
	steps    plan.Steps
	epoch    uint64
	cancel   context.CancelFunc
	touched  time.Time
	onChange []func(Snapshot)
}

func New(id string, gen agent.Generator, logger *observability.Logger) *Session {
	return &Session{
		ID:        id,
		Generator: gen,
		Logger:    logger,
		state:     StateIdle,
		touched:   time.Now(),
	}
}

// OnChange registers an observer called after every mutation.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State: s.state,
		Input: s.input,
		Error: s.errMsg,
		Steps: s.steps.Clone(),
	}
}

// LastActive reports when the session was last mutated.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Touch marks the session as in use without changing it.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()
}

// commitLocked records a mutation and returns the snapshot and observers to
// notify once the lock is released.
func (s *Session) commitLocked() (Snapshot, []func(Snapshot)) {
	s.touched = time.Now()
	return s.snapshotLocked(), append([]func(Snapshot){}, s.onChange...)
}

func notify(snap Snapshot, observers []func(Snapshot)) {
	for _, fn := range observers {
		fn(snap)
	}
}

// Submit requests a step breakdown for input and blocks until it resolves.
// A thrown error and an empty result both return the session to idle with
// distinct messages; neither is reported as a Go error.
func (s *Session) Submit(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}

	s.mu.Lock()
	if s.state == StateStepsRequested || s.state == StateContentGenerating {
		s.mu.Unlock()
		return ErrBusy
	}
	ctx, epoch := s.beginLocked(ctx)
	s.state = StateStepsRequested
	s.input = input
	s.errMsg = ""
	s.steps = nil
	snap, obs := s.commitLocked()
	s.mu.Unlock()
	notify(snap, obs)

	drafts, err := s.Generator.StepBreakdown(ctx, input)
	s.Logger.LogBreakdown(s.ID, input, len(drafts), err)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrReset
	}
	s.endLocked()
	switch {
	case err != nil:
		log.Printf("[%s] breakdown failed: %v", s.ID, err)
		s.state = StateIdle
		s.errMsg = MsgBreakdownFailed
	case len(drafts) == 0:
		s.state = StateIdle
		s.errMsg = MsgNoValidSteps
	default:
		s.state = StateStepsReady
		s.steps = plan.New(drafts)
	}
	snap, obs = s.commitLocked()
	s.mu.Unlock()
	notify(snap, obs)
	return nil
}

// UpdateStep edits the title or description of one step.
func (s *Session) UpdateStep(index int, field plan.Field, value string) error {
	s.mu.Lock()
	if s.state != StateStepsReady {
		s.mu.Unlock()
		return fmt.Errorf("%w: edit in %s", ErrInvalidState, s.state)
	}
	steps, err := s.steps.SetField(index, field, value)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.steps = steps
	snap, obs := s.commitLocked()
	s.mu.Unlock()
	notify(snap, obs)
	return nil
}

// Move reorders the steps by moving one element from index from to index to.
func (s *Session) Move(from, to int) error {
	s.mu.Lock()
	if s.state != StateStepsReady {
		s.mu.Unlock()
		return fmt.Errorf("%w: reorder in %s", ErrInvalidState, s.state)
	}
	steps, err := s.steps.Move(from, to)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.steps = steps
	snap, obs := s.commitLocked()
	s.mu.Unlock()
	notify(snap, obs)
	return nil
}

// GenerateAll writes content for every step, one request at a time and in
// the current order. A failed step gets FailurePlaceholder and the loop moves
// on. Calling it from content-ready regenerates every step.
func (s *Session) GenerateAll(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateStepsRequested, StateContentGenerating:
		s.mu.Unlock()
		return ErrBusy
	case StateStepsReady, StateContentReady:
	default:
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: generate in %s", ErrInvalidState, st)
	}
	if len(s.steps) == 0 {
		s.mu.Unlock()
		return ErrNoSteps
	}
	ctx, epoch := s.beginLocked(ctx)
	s.state = StateContentGenerating
	work := s.steps.Clone()
	snap, obs := s.commitLocked()
	s.mu.Unlock()
	notify(snap, obs)

	for i := range work {
		if !s.apply(epoch, func(steps plan.Steps) (plan.Steps, error) {
			return steps.MarkGenerating(i)
		}) {
			return ErrReset
		}

		content, err := s.Generator.StepContent(ctx, work[i].Title, work[i].Description)
		status := "completed"
		if err != nil {
			log.Printf("[%s] content for step %d failed: %v", s.ID, i+1, err)
			content = FailurePlaceholder
			status = "failed"
		}
		s.Logger.LogStep(s.ID, work[i].ID, i, status)

		if !s.apply(epoch, func(steps plan.Steps) (plan.Steps, error) {
			return steps.WithContent(i, content)
		}) {
			return ErrReset
		}
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrReset
	}
	s.endLocked()
	s.state = StateContentReady
	snap, obs = s.commitLocked()
	archiver, task, steps := s.Archiver, s.input, s.steps.Clone()
	s.mu.Unlock()
	notify(snap, obs)

	if archiver != nil {
		if err := archiver.SaveRun(s.ID, task, steps); err != nil {
			log.Printf("[%s] failed to archive run: %v", s.ID, err)
		}
	}
	return nil
}

// apply mutates the step sequence unless the session was reset since epoch.
func (s *Session) apply(epoch uint64, fn func(plan.Steps) (plan.Steps, error)) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	steps, err := fn(s.steps)
	if err != nil {
		// the sequence is frozen while generating, so this is a bug
		s.mu.Unlock()
		log.Printf("[%s] step update rejected: %v", s.ID, err)
		return false
	}
	s.steps = steps
	snap, obs := s.commitLocked()
	s.mu.Unlock()
	notify(snap, obs)
	return true
}

// Reset discards everything and returns to idle. An in-flight request is
// cancelled and its result ignored.
func (s *Session) Reset() {
	s.mu.Lock()
	s.endLocked()
	s.epoch++
	s.state = StateIdle
	s.input = ""
	s.errMsg = ""
	s.steps = nil
	snap, obs := s.commitLocked()
	s.mu.Unlock()
	notify(snap, obs)
}

func (s *Session) beginLocked(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)
	s.epoch++
	s.cancel = cancel
	return ctx, s.epoch
}

func (s *Session) endLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
