package gateway

// Messenger defines the interface for communication gateways (Telegram, Discord, console)
type Messenger interface {
	// Start begins the message listening loop
	Start() error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// SendFile delivers a document to a specific chat
	SendFile(chatID string, name string, data []byte) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// Replier answers the chat a command came from.
type Replier interface {
	Send(text string) error
	SendFile(name string, data []byte) error
}

// Copier is implemented by repliers that can put text on a local clipboard.
// Chat gateways don't, so /copy falls back to sending the text.
type Copier interface {
	Copy(text string) error
}

type chatReplier struct {
	m      Messenger
	chatID string
}

// ReplyTo binds a messenger to one chat.
func ReplyTo(m Messenger, chatID string) Replier {
	return chatReplier{m: m, chatID: chatID}
}

func (r chatReplier) Send(text string) error {
	return r.m.Send(r.chatID, text)
}

func (r chatReplier) SendFile(name string, data []byte) error {
	return r.m.SendFile(r.chatID, name, data)
}

// chunk splits text into pieces of at most limit runes, preferring to break
// at a newline.
func chunk(text string, limit int) []string {
	r := []rune(text)
	if len(r) <= limit {
		return []string{text}
	}
	var parts []string
	for len(r) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if r[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(r[:cut]))
		r = r[cut:]
	}
	if len(r) > 0 {
		parts = append(parts, string(r))
	}
	return parts
}
