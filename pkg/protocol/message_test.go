package protocol

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestParseClientFrame(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantType MessageType
		wantErr  bool
	}{
		{
			name:     "text message",
			data:     `{"type":"text","content":"what's my balance"}`,
			wantType: TypeText,
		},
		{
			name:     "start control",
			data:     `{"type":"start"}`,
			wantType: TypeStart,
		},
		{
			name:     "stop control",
			data:     `{"type":"stop"}`,
			wantType: TypeStop,
		},
		{
			name:    "missing type",
			data:    `{"content":"hello"}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			data:    `{not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseClientFrame([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClientFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if f.Type != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, f.Type)
			}
		})
	}
}

func TestVoiceTranscriptCarriesIsFinal(t *testing.T) {
	f := NewVoiceTranscript(SpeakerUser, "I lost my card", true)

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded["type"] != "transcript" {
		t.Errorf("expected type transcript, got %v", decoded["type"])
	}
	if decoded["is_final"] != true {
		t.Errorf("expected is_final true, got %v", decoded["is_final"])
	}
	if decoded["timestamp"] == "" {
		t.Error("expected timestamp to be set")
	}
}

func TestTextTranscriptOmitsIsFinal(t *testing.T) {
	f := NewTranscript(SpeakerAgent, "Hello!")

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if _, present := decoded["is_final"]; present {
		t.Error("text-mode transcript should omit is_final")
	}
}

func TestNewAudioEncodesBase64(t *testing.T) {
	chunk := []byte{0x01, 0x02, 0x03, 0xff}
	f := NewAudio(chunk)

	decoded, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded) != string(chunk) {
		t.Errorf("audio chunk round-trip mismatch")
	}
}

func TestStateUpdateOmitsEmptyIntent(t *testing.T) {
	f := NewStateUpdate("", false, "", false)

	data, _ := json.Marshal(f)
	var decoded map[string]any
	_ = json.Unmarshal(data, &decoded)

	if _, present := decoded["intent"]; present {
		t.Error("empty intent should be omitted")
	}
	if decoded["authenticated"] != false {
		t.Error("authenticated must always be present")
	}
	if decoded["escalation_requested"] != false {
		t.Error("escalation_requested must always be present")
	}
}
