// Package protocol defines the WebSocket message types exchanged between
// voiceline and its browser/telephony clients, for both text-mode and
// voice-mode sessions.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server messages
	TypeText  MessageType = "text"  // Text-mode user message
	TypeStart MessageType = "start" // Begin voice session
	TypeStop  MessageType = "stop"  // End voice session

	// Server → Client messages
	TypeTranscript  MessageType = "transcript"   // User or agent utterance
	TypeStatus      MessageType = "status"       // Session status change
	TypeStateUpdate MessageType = "state_update" // Conversation state snapshot
	TypeAudio       MessageType = "audio"        // Agent speech audio chunk
	TypeAudioEnd    MessageType = "audio_end"    // End of audio stream
	TypeSession     MessageType = "session"      // Session established
	TypeError       MessageType = "error"        // Error notification
)

// Status values carried by status frames.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusListening Status = "listening"
	StatusThinking  Status = "thinking"
	StatusSpeaking  Status = "speaking"
	StatusError     Status = "error"
)

// Speaker identifies who produced a transcript line.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// ClientFrame is a typed control/text frame received from the client.
// Binary websocket frames (raw PCM audio) bypass this envelope entirely.
type ClientFrame struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content,omitempty"`
}

// ParseClientFrame parses a JSON control frame from the client.
func ParseClientFrame(data []byte) (*ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse client frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("client frame missing type")
	}
	return &f, nil
}

// =============================================================================
// Server → Client frame types
// =============================================================================

// TranscriptFrame carries one utterance, interim or final.
// Text-mode transcripts omit is_final (always final).
type TranscriptFrame struct {
	Type      MessageType `json:"type"`
	Speaker   Speaker     `json:"speaker"`
	Text      string      `json:"text"`
	IsFinal   *bool       `json:"is_final,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// StatusFrame signals a session status transition.
type StatusFrame struct {
	Type   MessageType `json:"type"`
	Status Status      `json:"status"`
}

// StateUpdateFrame publishes the conversation state after a turn.
type StateUpdateFrame struct {
	Type                MessageType `json:"type"`
	Intent              string      `json:"intent,omitempty"`
	Authenticated       bool        `json:"authenticated"`
	FlowStage           string      `json:"flow_stage,omitempty"`
	EscalationRequested bool        `json:"escalation_requested"`
}

// AudioFrame carries one base64-encoded chunk of synthesized speech.
type AudioFrame struct {
	Type MessageType `json:"type"`
	Data string      `json:"data"`
}

// AudioEndFrame marks the end of an utterance's audio stream.
type AudioEndFrame struct {
	Type MessageType `json:"type"`
}

// SessionFrame announces the established session identifier.
type SessionFrame struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

// ErrorFrame carries a user-safe error message.
type ErrorFrame struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// Timestamp returns the wire format used in transcript frames.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
