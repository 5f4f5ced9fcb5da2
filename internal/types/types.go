// Package types provides shared type definitions for the application.
package types

import "time"

// Payload is the encoded result of one capture session: a mono 16-bit
// PCM WAV file carried as base64 text, ready for the transcription API.
type Payload struct {
	Base64     string `json:"base64"`      // standard alphabet, padded
	WAVBytes   int    `json:"wav_bytes"`   // encoded WAV size
	SampleRate int    `json:"sample_rate"` // output rate, at most 16000
	Samples    int    `json:"samples"`     // mono sample count after decimation
}

// Transcription is one completed dictation as stored in history.
type Transcription struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Model     string        `json:"model"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"` // captured audio length
}
