// Package notify shows desktop notifications for finished and failed
// transcriptions.
package notify

import (
	"log/slog"
	"strings"

	"github.com/gen2brain/beeep"
)

const (
	appTitle = "VoiceDrop"

	// previewLimit caps how much transcribed text a notification shows.
	previewLimit = 120
)

// Notifier sends desktop notifications. Disabled notifiers and nil
// notifiers are silent no-ops.
type Notifier struct {
	enabled bool
}

// New creates a Notifier. Pass false to silence all notifications.
func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

// Done announces a completed transcription with a preview of the text.
func (n *Notifier) Done(text string) {
	n.send(preview(text), false)
}

// Error announces a failed transcription.
func (n *Notifier) Error(msg string) {
	n.send("Transcription failed: "+msg, true)
}

func (n *Notifier) send(msg string, alert bool) {
	if n == nil || !n.enabled {
		return
	}

	var err error
	if alert {
		err = beeep.Alert(appTitle, msg, "")
	} else {
		err = beeep.Notify(appTitle, msg, "")
	}
	if err != nil {
		// Headless sessions have no notification daemon. Not worth
		// more than a debug line.
		slog.Debug("desktop notification", "error", err)
	}
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "…"
}
