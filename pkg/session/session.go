// Package session implements the conversation state machine for the voice
// banking agent. A Snapshot is the complete state of one call; handlers are
// pure transition functions that take a Snapshot and return a new one. The
// Controller drives one macro-step per user turn: classify the intent,
// authenticate when the task demands it, run the matching task handler, and
// settle on a suspend, complete, or escalate outcome.
package session

import (
	"strings"
	"time"
)

// Role identifies the speaker of a transcript turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one utterance in the conversation transcript.
type Turn struct {
	Role Role
	Text string
}

// Snapshot is the complete state of a session, threaded through every
// handler. Handlers never mutate a snapshot in place; they return an
// updated copy.
type Snapshot struct {
	SessionID  string
	Transcript []Turn

	CustomerID     string
	Authenticated  bool
	AuthMethod     string
	FailedAttempts int

	Intent           Intent
	IntentConfidence float64

	FlowStage      string
	NeedsUserInput bool
	ResumePoint    HandlerID

	EscalationRequested bool
	EscalationReason    string

	CachedResults   map[string]any
	CriticalActions []string

	TurnCount int
	StartTime time.Time
}

// NewSnapshot returns the initial state for a fresh session.
func NewSnapshot(sessionID string) Snapshot {
	return Snapshot{
		SessionID: sessionID,
		StartTime: time.Now().UTC(),
	}
}

// withTurn returns a copy of the snapshot with one turn appended. The
// transcript backing array is never shared between snapshots.
func (s Snapshot) withTurn(role Role, text string) Snapshot {
	transcript := make([]Turn, len(s.Transcript), len(s.Transcript)+1)
	copy(transcript, s.Transcript)
	s.Transcript = append(transcript, Turn{Role: role, Text: text})
	return s
}

func (s Snapshot) withReply(text string) Snapshot {
	return s.withTurn(RoleAgent, text)
}

// suspend marks the session as waiting for user input, to resume at the
// given handler, with a prompt appended.
func (s Snapshot) suspend(at HandlerID, prompt string) Snapshot {
	s = s.withReply(prompt)
	s.NeedsUserInput = true
	s.ResumePoint = at
	return s
}

// escalated marks the session for hand-off with the given reason and reply.
func (s Snapshot) escalated(reason, reply string) Snapshot {
	s = s.withReply(reply)
	s.EscalationRequested = true
	s.EscalationReason = reason
	return s
}

func (s Snapshot) withCached(key string, val any) Snapshot {
	cached := make(map[string]any, len(s.CachedResults)+1)
	for k, v := range s.CachedResults {
		cached[k] = v
	}
	cached[key] = val
	s.CachedResults = cached
	return s
}

func (s Snapshot) withCriticalAction(name string) Snapshot {
	actions := make([]string, len(s.CriticalActions), len(s.CriticalActions)+1)
	copy(actions, s.CriticalActions)
	s.CriticalActions = append(actions, name)
	return s
}

// lastUserText returns the most recent user utterance, or "" if the user
// has not spoken yet.
func (s Snapshot) lastUserText() string {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Role == RoleUser {
			return s.Transcript[i].Text
		}
	}
	return ""
}

// userTexts returns every user utterance in order.
func (s Snapshot) userTexts() []string {
	var texts []string
	for _, t := range s.Transcript {
		if t.Role == RoleUser {
			texts = append(texts, t.Text)
		}
	}
	return texts
}

// window renders the last n turns as "role: text" lines for an oracle
// conversation context.
func (s Snapshot) window(n int) string {
	turns := s.Transcript
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}

// lastReplyAfter returns the text of the last agent turn appended at or
// after index from, or "" if the macro-step produced no reply.
func (s Snapshot) lastReplyAfter(from int) string {
	for i := len(s.Transcript) - 1; i >= from; i-- {
		if s.Transcript[i].Role == RoleAgent {
			return s.Transcript[i].Text
		}
	}
	return ""
}
