package imageflow

import (
	"context"
	"sync"
	"time"
)

// Session is a multi-turn conversation for iterative image refinement.
// Each AppendTurn replays the committed history as context for the new
// request, so an established visual style carries across turns.
//
// Calls against the same session are serialized: at most one orchestrated
// call is outstanding at a time, so turns always assemble against a
// consistent snapshot. Sessions are independent of each other. A session is
// not resumable across process restarts unless its turns are persisted
// externally.
type Session struct {
	orch *Orchestrator

	aspectRatio AspectRatio
	size        ImageSize
	clientKey   string

	mu    sync.Mutex
	turns []Turn
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionAspectRatio sets the default aspect ratio for all turns.
func WithSessionAspectRatio(ratio AspectRatio) SessionOption {
	return func(s *Session) {
		s.aspectRatio = ratio
	}
}

// WithSessionSize sets the resolution tier for all turns.
func WithSessionSize(size ImageSize) SessionOption {
	return func(s *Session) {
		s.size = size
	}
}

// WithSessionClientKey sets the cooldown identity used for the session's
// admissions.
func WithSessionClientKey(key string) SessionOption {
	return func(s *Session) {
		s.clientKey = key
	}
}

// NewSession begins a new conversation backed by this orchestrator.
func (o *Orchestrator) NewSession(opts ...SessionOption) *Session {
	s := &Session{
		orch:        o,
		aspectRatio: AspectRatio16x9,
		turns:       make([]Turn, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendTurn sends the next user contribution and, on success, commits the
// resulting exchange to the history. On failure nothing is committed — the
// history reflects only completed exchanges — and the orchestrator's error
// is returned unchanged.
func (s *Session) AppendTurn(ctx context.Context, prompt string, images []InputImage) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := &Request{
		Prompt:      prompt,
		Images:      images,
		Mode:        ModeChat,
		Size:        s.size,
		AspectRatio: s.aspectRatio,
		ClientKey:   s.clientKey,
		History:     append([]Turn(nil), s.turns...),
	}

	result, err := s.orch.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	userTurn := Turn{Role: "user", Text: prompt, At: now}
	for _, img := range images {
		userTurn.Images = append(userTurn.Images, GeneratedImage{
			Data:     img.Data,
			MIMEType: img.MIMEType,
		})
	}

	modelTurn := Turn{
		Role:   "model",
		Text:   result.Text,
		Images: result.Images,
		At:     now,
	}

	s.turns = append(s.turns, userTurn, modelTurn)

	return result, nil
}

// Turns returns a snapshot of the committed history. Each completed
// exchange contributes a user entry followed by a model entry.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turnsCopy := make([]Turn, len(s.turns))
	copy(turnsCopy, s.turns)
	return turnsCopy
}

// Len returns the number of committed exchanges.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.turns) / 2
}

// Clear resets the conversation history. Individual turns are never edited
// or reordered; clearing the whole session is the only mutation.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = make([]Turn, 0)
}
