package protocol

import (
	"encoding/base64"
	"time"
)

// =============================================================================
// Helper functions for creating frames
// =============================================================================

// NewTranscript creates a final transcript frame (text mode).
func NewTranscript(speaker Speaker, text string) TranscriptFrame {
	return TranscriptFrame{
		Type:      TypeTranscript,
		Speaker:   speaker,
		Text:      text,
		Timestamp: Timestamp(time.Now()),
	}
}

// NewVoiceTranscript creates a transcript frame carrying the is_final flag
// (voice mode relays both interim and final recognizer results).
func NewVoiceTranscript(speaker Speaker, text string, isFinal bool) TranscriptFrame {
	f := NewTranscript(speaker, text)
	f.IsFinal = &isFinal
	return f
}

// NewStatus creates a status frame.
func NewStatus(status Status) StatusFrame {
	return StatusFrame{Type: TypeStatus, Status: status}
}

// NewStateUpdate creates a state_update frame.
func NewStateUpdate(intent string, authenticated bool, flowStage string, escalated bool) StateUpdateFrame {
	return StateUpdateFrame{
		Type:                TypeStateUpdate,
		Intent:              intent,
		Authenticated:       authenticated,
		FlowStage:           flowStage,
		EscalationRequested: escalated,
	}
}

// NewAudio creates an audio frame from a raw audio chunk.
func NewAudio(chunk []byte) AudioFrame {
	return AudioFrame{
		Type: TypeAudio,
		Data: base64.StdEncoding.EncodeToString(chunk),
	}
}

// NewAudioEnd creates an audio_end marker frame.
func NewAudioEnd() AudioEndFrame {
	return AudioEndFrame{Type: TypeAudioEnd}
}

// NewSession creates a session announcement frame.
func NewSession(sessionID string) SessionFrame {
	return SessionFrame{Type: TypeSession, SessionID: sessionID}
}

// NewError creates an error frame.
func NewError(message string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Message: message}
}
