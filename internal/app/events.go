// Package app orchestrates the dictation lifecycle: hotkey toggled
// capture, transcription dispatch and delivery of the resulting text.
package app

// Event names emitted over the lifecycle of one dictation.
const (
	EventCaptureStarted        = "capture-started"
	EventCaptureStopped        = "capture-stopped"
	EventTranscriptionStarted  = "transcription-started"
	EventTranscriptionComplete = "transcription-complete"
	EventTranscriptionError    = "transcription-error"
	EventNeedsConfiguration    = "needs-configuration"
)

// Emitter receives lifecycle events. transcription-complete carries the
// transcribed text, transcription-error the failure message; the rest
// carry nil data.
type Emitter func(name string, data any)
