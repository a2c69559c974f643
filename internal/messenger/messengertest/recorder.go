// Package messengertest provides an in-memory Messenger for tests.
package messengertest

import (
	"context"
	"sync"

	"contact-reminder/internal/messenger"
)

// Sent is one recorded outbound message.
type Sent struct {
	ChatID   int64
	Text     string
	Keyboard *messenger.Keyboard
}

// Recorder captures every message instead of delivering it.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	// Err, when set, is returned from SendMessage after recording.
	Err error
}

func (r *Recorder) SendMessage(_ context.Context, chatID int64, text string, kb *messenger.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{ChatID: chatID, Text: text, Keyboard: kb})
	return r.Err
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// Last returns the most recent message and false when nothing was sent.
func (r *Recorder) Last() (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Sent{}, false
	}
	return r.sent[len(r.sent)-1], true
}

// Reset drops recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
