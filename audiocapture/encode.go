package audiocapture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/voicedrop/voicedrop/internal/types"
)

// targetRate is the sample rate the transcription service expects.
// Captures above it are decimated; captures below it are sent as-is.
const targetRate = 16000

// monoMix folds interleaved multi-channel samples down to mono by
// averaging each frame. A short trailing frame averages what is present.
func monoMix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}

	out := make([]float32, 0, (len(samples)+channels-1)/channels)
	for i := 0; i < len(samples); i += channels {
		end := i + channels
		if end > len(samples) {
			end = len(samples)
		}
		var sum float32
		for _, s := range samples[i:end] {
			sum += s
		}
		out = append(out, sum/float32(end-i))
	}
	return out
}

// decimate drops samples down to the target rate by nearest-neighbor
// selection: output index i maps to source index floor(i * ratio). It
// is deliberately lossy; no filtering is applied. Rates at or below the
// target pass through untouched.
func decimate(samples []float32, from, to float64) []float32 {
	if from <= to || len(samples) == 0 {
		return samples
	}

	ratio := from / to
	out := make([]float32, 0, int(float64(len(samples))/ratio)+1)
	for i := 0; ; i++ {
		src := int(float64(i) * ratio)
		if src >= len(samples) {
			break
		}
		out = append(out, samples[src])
	}
	return out
}

// encodePayload builds the WAV container and its base64 text form.
func encodePayload(samples []float32, sampleRate int) (types.Payload, error) {
	wav, err := encodeWAV(samples, sampleRate)
	if err != nil {
		return types.Payload{}, err
	}
	return types.Payload{
		Base64:     base64.StdEncoding.EncodeToString(wav),
		WAVBytes:   len(wav),
		SampleRate: sampleRate,
		Samples:    len(samples),
	}, nil
}

// encodeWAV renders mono 16-bit PCM WAV bytes. Samples are clamped to
// [-1, 1] and scaled to the full positive int16 range.
func encodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	dataSize := len(samples) * 2 // 16-bit = 2 bytes per sample
	if uint64(dataSize) > math.MaxUint32-36 {
		return nil, fmt.Errorf("wav data chunk too large: %d samples", len(samples))
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	// RIFF header
	buf.WriteString("RIFF")
	writeUint32LE(buf, uint32(36+dataSize))
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	writeUint32LE(buf, 16)                   // chunk size
	writeUint16LE(buf, 1)                    // audio format (PCM)
	writeUint16LE(buf, 1)                    // channels (mono)
	writeUint32LE(buf, uint32(sampleRate))   // sample rate
	writeUint32LE(buf, uint32(sampleRate*2)) // byte rate
	writeUint16LE(buf, 2)                    // block align
	writeUint16LE(buf, 16)                   // bits per sample

	// data chunk
	buf.WriteString("data")
	writeUint32LE(buf, uint32(dataSize))

	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		writeInt16LE(buf, int16(s*32767))
	}

	return buf.Bytes(), nil
}

func writeUint16LE(w *bytes.Buffer, v uint16) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
}

func writeUint32LE(w *bytes.Buffer, v uint32) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
	w.WriteByte(byte(v >> 16))
	w.WriteByte(byte(v >> 24))
}

func writeInt16LE(w *bytes.Buffer, v int16) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
}
