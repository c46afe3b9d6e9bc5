// Package pipeline runs the four concurrent stages of a voice session:
// ingress, recognition, turn execution, and synthesis. The stages are
// linked by bounded queues and share a cancellation context, so the first
// stage to exit brings the whole session down.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/telbank/voiceline/pkg/protocol"
	"github.com/telbank/voiceline/pkg/redact"
	"github.com/telbank/voiceline/pkg/registry"
	"github.com/telbank/voiceline/pkg/session"
	"github.com/telbank/voiceline/pkg/store"
	"github.com/telbank/voiceline/pkg/stt"
	"github.com/telbank/voiceline/pkg/tts"
)

// ErrReadTimeout is returned by a FrameReader when no frame arrived within
// its polling deadline. The ingress stage treats it as a signal to check
// for cancellation and keep reading.
var ErrReadTimeout = errors.New("pipeline: frame read timed out")

// Frame is one inbound client frame. Binary frames carry raw PCM audio;
// text frames carry JSON control messages.
type Frame struct {
	Binary bool
	Data   []byte
}

// FrameReader delivers inbound frames from the client connection.
// Implementations should bound each read so the ingress stage can observe
// cancellation, returning ErrReadTimeout when the bound expires.
type FrameReader interface {
	ReadFrame() (Frame, error)
}

const (
	audioQueueSize = 64
	turnQueueSize  = 16
	replyQueueSize = 16

	// escalationDrain gives the synthesis stage time to deliver the final
	// reply before the session is torn down.
	escalationDrain = 2 * time.Second

	// turnApology is spoken when a turn fails in a way the conversation
	// core could not absorb.
	turnApology = "I'm sorry, something went wrong on my end. Could you repeat that?"
)

// Pipeline drives one voice session end to end.
type Pipeline struct {
	sessionID string
	frames    FrameReader
	rec       stt.Recognizer
	synth     tts.Synthesizer
	ctrl      *session.Controller
	reg       *registry.Registry
	store     store.Store
	logger    *slog.Logger

	audioCh chan []byte
	turnCh  chan string
	replyCh chan string

	stateMu sync.Mutex
	state   session.Snapshot

	cancel   context.CancelFunc
	stopOnce sync.Once

	startedAt time.Time
}

// New assembles a pipeline for one session. The snapshot starts fresh;
// the caller registers the transport with the registry before Run.
func New(sessionID string, frames FrameReader, rec stt.Recognizer, synth tts.Synthesizer,
	ctrl *session.Controller, reg *registry.Registry, st store.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		sessionID: sessionID,
		frames:    frames,
		rec:       rec,
		synth:     synth,
		ctrl:      ctrl,
		reg:       reg,
		store:     st,
		logger:    logger.With("component", "pipeline", "session_id", sessionID),
		audioCh:   make(chan []byte, audioQueueSize),
		turnCh:    make(chan string, turnQueueSize),
		replyCh:   make(chan string, replyQueueSize),
		state:     session.NewSnapshot(sessionID),
	}
}

// Snapshot returns a copy of the current conversation state.
func (p *Pipeline) Snapshot() session.Snapshot {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

// Run executes the session until the client stops, disconnects, or the
// conversation ends. It blocks until all four stages have exited and
// cleanup is done.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	defer cancel()
	p.startedAt = time.Now()

	if err := p.rec.Start(ctx, p.onTranscript(ctx)); err != nil {
		p.reg.Send(p.sessionID, protocol.NewError("speech recognition unavailable"))
		return err
	}

	p.sendAgentLine(ctx, session.Greeting)
	p.reg.Send(p.sessionID, protocol.NewStatus(protocol.StatusListening))

	stages := []func(context.Context){
		p.runIngress,
		p.runRecognition,
		p.runTurns,
		p.runSynthesis,
	}

	var wg sync.WaitGroup
	for _, stage := range stages {
		wg.Add(1)
		go func(f func(context.Context)) {
			defer wg.Done()
			defer cancel()
			f(ctx)
		}(stage)
	}
	wg.Wait()

	p.cleanup()
	return nil
}

// stop cancels the shared context once, with a logged reason.
func (p *Pipeline) stop(reason string) {
	p.stopOnce.Do(func() {
		p.logger.Info("session stopping", "reason", reason)
		p.cancel()
	})
}

func (p *Pipeline) cleanup() {
	if err := p.rec.Close(); err != nil {
		p.logger.Warn("failed to close recognizer", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.store.CloseSession(ctx, p.sessionID, time.Since(p.startedAt)); err != nil {
		p.logger.Warn("failed to close session record", "error", err)
	}

	p.reg.Unregister(p.sessionID)
	p.logger.Info("session closed", "duration", time.Since(p.startedAt).Round(time.Second))
}

// =============================================================================
// Stage 1: ingress
// =============================================================================

// runIngress reads client frames. Binary frames are queued for
// recognition; control frames steer the session.
func (p *Pipeline) runIngress(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := p.frames.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrReadTimeout) {
				continue
			}
			p.stop("client disconnected")
			return
		}

		if frame.Binary {
			select {
			case p.audioCh <- frame.Data:
			default:
				p.logger.Warn("audio queue full, dropping chunk", "bytes", len(frame.Data))
			}
			continue
		}

		ctrl, err := protocol.ParseClientFrame(frame.Data)
		if err != nil {
			p.logger.Debug("ignoring malformed control frame", "error", err)
			continue
		}
		switch ctrl.Type {
		case protocol.TypeStop:
			p.stop("stop requested")
			return
		case protocol.TypeStart:
			// Already started; ignore.
		default:
			p.logger.Debug("ignoring control frame", "type", ctrl.Type)
		}
	}
}

// =============================================================================
// Stage 2: recognition
// =============================================================================

// runRecognition forwards queued audio to the recognizer. Transcript
// events come back on the handler installed in Run.
func (p *Pipeline) runRecognition(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk := <-p.audioCh:
			if err := p.rec.SendAudio(chunk); err != nil {
				p.logger.Error("failed to forward audio", "error", err)
				p.stop("recognition stream failed")
				return
			}
		}
	}
}

// onTranscript relays every transcript to the client and queues only the
// final ones for turn execution.
func (p *Pipeline) onTranscript(ctx context.Context) stt.TranscriptHandler {
	return func(tr stt.Transcript) {
		p.reg.Send(p.sessionID, protocol.NewVoiceTranscript(protocol.SpeakerUser, tr.Text, tr.IsFinal))
		if !tr.IsFinal {
			return
		}

		p.persistTranscript(ctx, protocol.SpeakerUser, tr.Text)

		select {
		case p.turnCh <- tr.Text:
		case <-ctx.Done():
		default:
			p.logger.Warn("turn queue full, dropping utterance")
		}
	}
}

// =============================================================================
// Stage 3: turn execution
// =============================================================================

// runTurns is the single consumer of final utterances, which keeps turn
// execution strictly ordered.
func (p *Pipeline) runTurns(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-p.turnCh:
			p.executeTurn(ctx, text)
		}
	}
}

func (p *Pipeline) executeTurn(ctx context.Context, text string) {
	p.reg.Send(p.sessionID, protocol.NewStatus(protocol.StatusThinking))

	p.stateMu.Lock()
	snap, reply := p.ctrl.RunTurn(ctx, p.state, text)
	p.state = snap
	p.stateMu.Unlock()

	if reply == "" && !snap.EscalationRequested {
		reply = turnApology
	}

	if reply != "" {
		p.sendAgentLine(ctx, reply)
	}

	p.reg.Send(p.sessionID, protocol.NewStateUpdate(
		string(snap.Intent), snap.Authenticated, snap.FlowStage, snap.EscalationRequested))
	p.persistState(ctx, snap)

	// Escalation and a completed flow both end a voice call.
	if snap.EscalationRequested || session.IsTerminalStage(snap.FlowStage) {
		reason := "conversation complete"
		if snap.EscalationRequested {
			reason = "session escalated"
		}
		// Let the final reply finish synthesizing before teardown.
		go func() {
			select {
			case <-time.After(escalationDrain):
			case <-ctx.Done():
			}
			p.stop(reason)
		}()
	}
}

// sendAgentLine relays one agent utterance to the client, persists it,
// and queues it for synthesis.
func (p *Pipeline) sendAgentLine(ctx context.Context, text string) {
	p.reg.Send(p.sessionID, protocol.NewVoiceTranscript(protocol.SpeakerAgent, text, true))
	p.persistTranscript(ctx, protocol.SpeakerAgent, text)

	select {
	case p.replyCh <- text:
	case <-ctx.Done():
	}
}

func (p *Pipeline) persistTranscript(ctx context.Context, speaker protocol.Speaker, text string) {
	redacted, flags := redact.Redact(text, false)
	err := p.store.AppendTranscript(ctx, &store.Transcript{
		SessionID:   p.sessionID,
		Speaker:     string(speaker),
		Content:     redacted,
		PIIDetected: flags,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		p.logger.Warn("failed to persist transcript", "error", err)
	}
}

func (p *Pipeline) persistState(ctx context.Context, snap session.Snapshot) {
	intent := string(snap.Intent)
	upd := store.SessionUpdate{
		Intent:           &intent,
		Authenticated:    &snap.Authenticated,
		Escalated:        &snap.EscalationRequested,
		EscalationReason: &snap.EscalationReason,
	}
	if snap.CustomerID != "" {
		upd.CustomerID = &snap.CustomerID
	}
	if snap.AuthMethod != "" {
		upd.AuthMethod = &snap.AuthMethod
	}
	if err := p.store.UpdateSession(ctx, p.sessionID, upd); err != nil {
		p.logger.Warn("failed to persist session state", "error", err)
	}
}

// =============================================================================
// Stage 4: synthesis
// =============================================================================

// runSynthesis turns queued agent replies into streamed audio frames.
func (p *Pipeline) runSynthesis(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-p.replyCh:
			p.speak(ctx, text)
		}
	}
}

func (p *Pipeline) speak(ctx context.Context, text string) {
	p.reg.Send(p.sessionID, protocol.NewStatus(protocol.StatusSpeaking))

	err := p.synth.Stream(ctx, text, func(chunk []byte) {
		p.reg.Send(p.sessionID, protocol.NewAudio(chunk))
	})
	if err != nil && ctx.Err() == nil {
		p.logger.Error("synthesis failed", "error", err)
	}

	p.reg.Send(p.sessionID, protocol.NewAudioEnd())
	p.reg.Send(p.sessionID, protocol.NewStatus(protocol.StatusListening))
}
