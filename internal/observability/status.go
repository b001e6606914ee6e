package observability

import (
	"sync"
	"time"
)

// Phase is what one chat's pipeline is doing.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhasePlanning Phase = "planning"
	PhaseWriting  Phase = "writing"
)

// ChatStatus is one chat's entry on the status board.
type ChatStatus struct {
	Phase Phase
	Task  string
	// Step is the 1-based step being written, 0 outside PhaseWriting.
	Step  int
	Steps int

	updated time.Time
}

// Board is a point-in-time view of every chat.
type Board struct {
	Counts map[Phase]int
	// Active is the most recently updated chat that is not idle.
	Active        *ChatStatus
	LastHeartbeat time.Time
}

type statusBoard struct {
	mu            sync.RWMutex
	chats         map[string]ChatStatus
	lastHeartbeat time.Time
}

var board = newStatusBoard()

func newStatusBoard() *statusBoard {
	return &statusBoard{
		chats:         make(map[string]ChatStatus),
		lastHeartbeat: time.Now(),
	}
}

// SetChatStatus records a chat's current phase.
func SetChatStatus(chatID string, st ChatStatus) {
	st.updated = time.Now()
	board.mu.Lock()
	defer board.mu.Unlock()
	board.chats[chatID] = st
}

// ForgetChat drops an evicted chat from the board.
func ForgetChat(chatID string) {
	board.mu.Lock()
	defer board.mu.Unlock()
	delete(board.chats, chatID)
}

func ReadBoard() Board {
	board.mu.RLock()
	defer board.mu.RUnlock()

	b := Board{
		Counts:        make(map[Phase]int, 3),
		LastHeartbeat: board.lastHeartbeat,
	}
	for _, st := range board.chats {
		b.Counts[st.Phase]++
		if st.Phase == PhaseIdle {
			continue
		}
		if b.Active == nil || st.updated.After(b.Active.updated) {
			active := st
			b.Active = &active
		}
	}
	return b
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	board.mu.Lock()
	defer board.mu.Unlock()
	board.lastHeartbeat = time.Now()
}
