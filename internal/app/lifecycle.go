package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voicedrop/voicedrop/internal/types"
	"github.com/voicedrop/voicedrop/stt"
)

// State is the lifecycle phase of the current dictation.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateFinalizing
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateFinalizing:
		return "finalizing"
	case StateTranscribing:
		return "transcribing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	// startSettle gives the capture worker a moment to bring the stream
	// up before the toggle can fire again.
	startSettle = 100 * time.Millisecond

	// drainDelay lets the worker observe the stop signal and flush the
	// driver's last blocks before the buffer is read.
	drainDelay = 300 * time.Millisecond

	// transcribeTimeout bounds one remote transcription call.
	transcribeTimeout = 2 * time.Minute
)

// State reports the lifecycle's current phase.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Toggle starts a capture when idle and stops it when one is running.
// While a finalize/transcribe pass is in flight the toggle is ignored,
// so a rapid double press cannot dispatch the same capture twice.
func (s *Service) Toggle() {
	if s.busy.Load() {
		slog.Warn("transcription in flight, toggle ignored")
		return
	}
	if s.State() == StateCapturing {
		s.stopAndTranscribe()
	} else {
		s.startCapture()
	}
}

// configured reports whether the active provider has the credential it
// needs before a capture is worth starting.
func (s *Service) configured() bool {
	switch s.cfg.Provider {
	case "whisper":
		return s.cfg.WhisperURL != ""
	default:
		return s.cfg.APIKey != ""
	}
}

func (s *Service) startCapture() {
	if !s.configured() {
		slog.Warn("provider not configured", "provider", s.cfg.Provider)
		s.emit(EventNeedsConfiguration, nil)
		return
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		slog.Warn("capture already in progress", "state", s.state.String())
		return
	}
	s.state = StateCapturing
	s.mu.Unlock()

	s.emit(EventCaptureStarted, nil)

	go func() {
		if err := s.recorder.Start(context.Background()); err != nil {
			slog.Error("capture worker", "error", err)
			s.emit(EventTranscriptionError, err.Error())
			s.mu.Lock()
			if s.state == StateCapturing {
				s.state = StateIdle
			}
			s.mu.Unlock()
		}
	}()

	time.Sleep(startSettle)
}

func (s *Service) stopAndTranscribe() {
	s.mu.Lock()
	if s.state != StateCapturing {
		s.mu.Unlock()
		slog.Debug("no capture to stop")
		return
	}
	s.busy.Store(true)
	s.state = StateFinalizing
	s.mu.Unlock()

	s.recorder.SignalStop()
	s.emit(EventCaptureStopped, nil)

	time.Sleep(drainDelay)

	duration := s.recorder.Duration()
	payload, err := s.recorder.Finalize()
	if err != nil {
		slog.Error("finalize capture", "error", err)
		s.emit(EventTranscriptionError, err.Error())
		s.setState(StateIdle)
		s.busy.Store(false)
		return
	}

	slog.Info("capture finalized",
		"duration", duration,
		"samples", payload.Samples,
		"wav_bytes", payload.WAVBytes)

	s.setState(StateTranscribing)
	s.emit(EventTranscriptionStarted, nil)
	go s.transcribe(payload, duration)
}

// transcribe runs the remote call and delivery off the toggle
// goroutine. It owns clearing the busy flag: until it finishes, every
// toggle is a no-op.
func (s *Service) transcribe(payload types.Payload, duration time.Duration) {
	defer func() {
		s.setState(StateIdle)
		s.busy.Store(false)
	}()

	provider, err := s.providers.Get(s.cfg.Provider)
	if err != nil {
		slog.Error("resolve provider", "error", err)
		s.emit(EventTranscriptionError, err.Error())
		s.notifyError(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), transcribeTimeout)
	defer cancel()

	text, err := provider.Transcribe(ctx, stt.Request{
		AudioBase64: payload.Base64,
		APIKey:      s.cfg.APIKey,
		Model:       s.cfg.Model,
	})
	if err != nil {
		slog.Error("transcription", "provider", provider.Name(), "error", err)
		s.emit(EventTranscriptionError, err.Error())
		s.notifyError(err.Error())
		return
	}

	slog.Info("transcription complete", "chars", len(text), "duration", duration)

	if s.hooks.Clipboard != nil {
		if err := s.hooks.Clipboard(text); err != nil {
			slog.Error("copy to clipboard", "error", err)
		}
	}

	if s.hooks.History != nil {
		rec := types.Transcription{
			Text:     text,
			Model:    s.cfg.Model,
			Duration: duration,
		}
		if err := s.hooks.History.Append(ctx, rec); err != nil {
			slog.Warn("append history", "error", err)
		}
	}

	if s.hooks.Notifier != nil {
		s.hooks.Notifier.Done(text)
	}
	s.emit(EventTranscriptionComplete, text)
}

func (s *Service) notifyError(msg string) {
	if s.hooks.Notifier != nil {
		s.hooks.Notifier.Error(msg)
	}
}
