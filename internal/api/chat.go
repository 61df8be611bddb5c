package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/askdb/askdb/internal/resolve"
)

// SessionStore keeps one bounded conversation history per session id.
// Sessions live in memory only; a restart ends every conversation.
type SessionStore struct {
	mu       sync.Mutex
	turns    int
	sessions map[string]*resolve.History
}

func NewSessionStore(historyTurns int) *SessionStore {
	return &SessionStore{turns: historyTurns, sessions: map[string]*resolve.History{}}
}

// Snapshot returns a copy of the session's turns, oldest first.
func (s *SessionStore) Snapshot(id string) []resolve.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history(id).Turns()
}

// Record appends one completed turn to the session.
func (s *SessionStore) Record(id string, turn resolve.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history(id).Append(turn)
}

// history must be called with mu held.
func (s *SessionStore) history(id string) *resolve.History {
	history, ok := s.sessions[id]
	if !ok {
		history = resolve.NewHistory(s.turns)
		s.sessions[id] = history
	}
	return history
}

func newSessionID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type chatResponse struct {
	SessionID string                 `json:"session_id"`
	Result    resolve.PipelineResult `json:"result"`
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON", false, nil)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question must not be empty", false, nil)
		return
	}
	if req.SessionID == "" {
		req.SessionID = newSessionID()
	}

	result := deps.Resolver.Resolve(r.Context(), req.Question, deps.Sessions.Snapshot(req.SessionID))

	// Error turns are not retained; the next question starts from the
	// last successful exchange.
	if !result.IsError() {
		answer := result.Text
		if answer == "" {
			answer = result.Raw
		}
		deps.Sessions.Record(req.SessionID, resolve.Turn{Question: req.Question, Answer: answer})
	}

	writeJSON(w, http.StatusOK, chatResponse{SessionID: req.SessionID, Result: result})
}
