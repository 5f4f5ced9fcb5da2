package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voicedrop/voicedrop/config"
	"github.com/voicedrop/voicedrop/internal/types"
	"github.com/voicedrop/voicedrop/shortcut"
	"github.com/voicedrop/voicedrop/stt"
)

// stopShortcut always ends a running capture, independent of the
// configurable toggle.
const stopShortcut = "Escape"

// Recorder is the capture engine the lifecycle drives.
type Recorder interface {
	Start(ctx context.Context) error
	SignalStop()
	IsCapturing() bool
	Finalize() (types.Payload, error)
	Duration() time.Duration
	SelectDevice(name string)
}

// Binder registers and swaps global shortcuts.
type Binder interface {
	Bind(s shortcut.Shortcut, fn func()) error
	Unbind(s shortcut.Shortcut) error
	Rebind(old *shortcut.Shortcut, s shortcut.Shortcut, fn func()) error
}

// Notifier shows desktop notifications for finished transcriptions.
type Notifier interface {
	Done(text string)
	Error(msg string)
}

// History persists completed transcriptions.
type History interface {
	Append(ctx context.Context, rec types.Transcription) error
}

// Hooks are the delivery collaborators invoked when a transcription
// completes. Nil fields disable the corresponding step.
type Hooks struct {
	Clipboard func(text string) error
	Notifier  Notifier
	History   History
}

// Service orchestrates one dictation at a time: it owns the lifecycle
// state, the shortcut bindings and the hand-off between the capture
// engine and the transcription provider.
type Service struct {
	cfg       *config.Config
	recorder  Recorder
	binder    Binder
	providers *stt.Registry
	hooks     Hooks
	emit      Emitter

	// busy is the single-flight guard: set while a finalize/transcribe
	// pass is in flight, cleared when the async part finishes.
	busy atomic.Bool

	mu     sync.Mutex
	state  State
	toggle *shortcut.Shortcut // active toggle binding, nil when unbound
}

// New creates a Service. All collaborators are injected; emit may be
// nil when no one listens for lifecycle events.
func New(cfg *config.Config, recorder Recorder, binder Binder, providers *stt.Registry, emit Emitter, hooks Hooks) *Service {
	if emit == nil {
		emit = func(string, any) {}
	}
	return &Service{
		cfg:       cfg,
		recorder:  recorder,
		binder:    binder,
		providers: providers,
		hooks:     hooks,
		emit:      emit,
	}
}

// Init registers the toggle and stop shortcuts and applies the
// configured input device. Must be called once before Toggle.
func (s *Service) Init() error {
	spec := s.cfg.Shortcut
	if spec == "" {
		spec = config.DefaultShortcut
	}
	toggle, err := shortcut.Parse(spec)
	if err != nil {
		slog.Warn("configured shortcut invalid, using default",
			"shortcut", spec, "error", err)
		toggle = shortcut.MustParse(config.DefaultShortcut)
	}

	if err := s.binder.Bind(toggle, s.Toggle); err != nil {
		return fmt.Errorf("bind toggle shortcut: %w", err)
	}
	s.mu.Lock()
	s.toggle = &toggle
	s.mu.Unlock()

	stop := shortcut.MustParse(stopShortcut)
	if err := s.binder.Bind(stop, s.stopIfCapturing); err != nil {
		slog.Warn("bind stop shortcut", "shortcut", stopShortcut, "error", err)
	}

	if s.cfg.AudioDevice != "" {
		s.recorder.SelectDevice(s.cfg.AudioDevice)
	}

	slog.Info("dictation ready", "toggle", toggle.String(), "stop", stopShortcut)
	return nil
}

// Shutdown releases the shortcut bindings and stops any running capture.
func (s *Service) Shutdown() {
	s.mu.Lock()
	toggle := s.toggle
	s.toggle = nil
	s.mu.Unlock()

	if toggle != nil {
		if err := s.binder.Unbind(*toggle); err != nil {
			slog.Warn("unbind toggle shortcut", "error", err)
		}
	}
	if err := s.binder.Unbind(shortcut.MustParse(stopShortcut)); err != nil {
		slog.Warn("unbind stop shortcut", "error", err)
	}

	if s.recorder.IsCapturing() {
		s.recorder.SignalStop()
	}
}

// UpdateShortcut swaps the toggle binding to spec and persists it. On a
// failed rebind no binding remains stored; the caller must retry with a
// working combination.
func (s *Service) UpdateShortcut(spec string) error {
	parsed, err := shortcut.Parse(spec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.toggle
	s.toggle = nil
	if err := s.binder.Rebind(old, parsed, s.Toggle); err != nil {
		return fmt.Errorf("rebind shortcut: %w", err)
	}
	s.toggle = &parsed

	s.cfg.Shortcut = parsed.String()
	if err := s.cfg.Save(); err != nil {
		slog.Warn("save config", "error", err)
	}

	slog.Info("shortcut updated", "shortcut", parsed.String())
	return nil
}

// Shortcut returns the display form of the active toggle binding.
func (s *Service) Shortcut() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toggle == nil {
		return ""
	}
	return s.toggle.String()
}

// stopIfCapturing handles the fixed stop shortcut: it only acts while a
// capture is running, so the key keeps its normal meaning otherwise.
func (s *Service) stopIfCapturing() {
	if s.busy.Load() {
		return
	}
	if s.State() != StateCapturing {
		return
	}
	s.stopAndTranscribe()
}
