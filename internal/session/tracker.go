// Package session tracks in-progress logging conversations per user.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// mailboxSize bounds replies buffered while the flow is busy sending a prompt.
const mailboxSize = 8

// Destination is the private channel a session's prompts are sent to.
type Destination interface {
	// ChannelID identifies the channel; replies are only accepted from it.
	ChannelID() string
	// Send posts a message to the channel.
	Send(ctx context.Context, text string) error
}

// Session holds the state of one user's conversation.
// It is owned by the flow goroutine processing that user.
type Session struct {
	UserID    string
	UserName  string
	Dest      Destination
	Step      int
	Answers   map[string]any
	StartedAt time.Time

	replies chan string
	ctx     context.Context
	cancel  context.CancelCauseFunc
}

// Replies returns the channel inbound replies arrive on.
func (s *Session) Replies() <-chan string {
	return s.replies
}

// Done is closed when the session is replaced, ended or shut down.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Err reports why Done was closed.
func (s *Session) Err() error {
	return context.Cause(s.ctx)
}

// Offer hands a reply to the waiting flow without blocking.
// It returns false if the mailbox is full or the session is finished.
func (s *Session) Offer(text string) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.replies <- text:
		return true
	default:
		return false
	}
}

// Discard drops replies that arrived before the prompt now being sent.
// It returns how many were dropped.
func (s *Session) Discard() int {
	n := 0
	for {
		select {
		case <-s.replies:
			n++
		default:
			return n
		}
	}
}

// Tracker maps user IDs to their active session.
type Tracker struct {
	mu     sync.RWMutex
	active map[string]*Session
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewTracker creates a tracker. Call Close at shutdown.
func NewTracker() *Tracker {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Tracker{
		active: make(map[string]*Session),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start creates a fresh session for the user, replacing any existing one.
// The replaced session's Done channel is closed with ErrReplaced.
func (t *Tracker) Start(userID, userName string, dest Destination) *Session {
	ctx, cancel := context.WithCancelCause(t.ctx)
	s := &Session{
		UserID:    userID,
		UserName:  userName,
		Dest:      dest,
		Answers:   make(map[string]any),
		StartedAt: time.Now(),
		replies:   make(chan string, mailboxSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.active[userID]; ok {
		existing.cancel(ErrReplaced)
		slog.Info("Session replaced", "user_id", userID)
	}
	t.active[userID] = s
	slog.Info("Session started", "user_id", userID, "channel_id", dest.ChannelID())
	return s
}

// Get returns the user's active session.
func (t *Tracker) Get(userID string) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.active[userID]
	return s, ok
}

// Advance stores a parsed answer and moves to the next step.
func (t *Tracker) Advance(s *Session, field string, value any) {
	s.Answers[field] = value
	s.Step++
}

// End removes the user's session, whichever it is.
func (t *Tracker) End(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.active[userID]; ok {
		s.cancel(ErrEnded)
		delete(t.active, userID)
		slog.Info("Session ended", "user_id", userID)
	}
}

// Release removes s only if it is still the user's current session,
// so a replaced flow cannot remove its successor.
func (t *Tracker) Release(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.active[s.UserID]; ok && current == s {
		delete(t.active, s.UserID)
		slog.Info("Session released", "user_id", s.UserID, "step", s.Step)
	}
	s.cancel(ErrEnded)
}

// Len returns the number of active sessions.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active)
}

// Close cancels every session. Flows observe ErrShutdown on Done.
func (t *Tracker) Close() {
	t.cancel(ErrShutdown)

	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.active)
}
