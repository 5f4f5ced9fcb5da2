// Package audiocapture records microphone input and converts the
// captured samples into a transport-ready payload.
package audiocapture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voicedrop/voicedrop/internal/types"
)

// ErrAlreadyCapturing is returned when a capture session is already live.
var ErrAlreadyCapturing = errors.New("audiocapture: already capturing")

// ErrNoDevice is returned when neither the selected nor the default
// input device resolves.
var ErrNoDevice = errors.New("audiocapture: no input device")

// ErrStreamBuild is returned when the driver rejects the negotiated
// stream configuration.
var ErrStreamBuild = errors.New("audiocapture: build stream")

// ErrUnsupportedFormat is returned when the device delivers samples in a
// format other than f32, i16 or u16.
var ErrUnsupportedFormat = errors.New("audiocapture: unsupported sample format")

// ErrEmptyBuffer is returned by Finalize when no samples were captured.
var ErrEmptyBuffer = errors.New("audiocapture: no samples captured")

// ErrEncodeFailed is returned when the captured samples cannot be
// encoded into a WAV payload.
var ErrEncodeFailed = errors.New("audiocapture: encode failed")

// pollInterval is how often the capture worker checks the stop flag.
const pollInterval = 50 * time.Millisecond

// Recorder owns the microphone stream for one capture session at a
// time. Start blocks its calling goroutine for the session's whole
// duration; the driver appends samples from its own callback thread.
// The two sides share only the mutex-guarded buffer and the atomic
// capturing flag.
type Recorder struct {
	mu sync.Mutex

	// Guarded by mu
	samples    []float32
	sampleRate float64
	channels   int
	device     string // selected device name, "" = system default

	capturing atomic.Bool

	host Host
}

// NewRecorder creates a recorder on the given audio host.
func NewRecorder(host Host) *Recorder {
	return &Recorder{host: host}
}

// Devices enumerates input devices. It never fails: enumeration errors
// yield an empty list.
func (r *Recorder) Devices() []Device {
	devices, err := r.host.Devices()
	if err != nil {
		slog.Debug("enumerate input devices", "error", err)
		return nil
	}
	return devices
}

// SelectDevice records the preferred input device by name. An empty
// name selects the system default. Takes effect on the next Start.
func (r *Recorder) SelectDevice(name string) {
	r.mu.Lock()
	r.device = name
	r.mu.Unlock()
}

// Start opens the input stream and blocks until SignalStop is called or
// ctx is canceled. Run it on a dedicated goroutine: the calling
// goroutine is occupied for the session's entire duration.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.capturing.CompareAndSwap(false, true) {
		return ErrAlreadyCapturing
	}

	device, err := r.resolveDevice()
	if err != nil {
		r.capturing.Store(false)
		return err
	}

	r.mu.Lock()
	r.samples = r.samples[:0]
	r.sampleRate = device.SampleRate
	r.channels = device.Channels
	r.mu.Unlock()

	// badFormat records an unsupported delivery (stored as format+1 so
	// zero means none) so the worker can surface it after teardown; the
	// callback itself cannot return an error.
	var badFormat atomic.Int32
	stream, err := r.host.Open(device, func(b Block) {
		if !r.capturing.Load() {
			return
		}
		if !r.appendBlock(b) {
			badFormat.Store(int32(b.Format) + 1)
			r.capturing.Store(false)
		}
	})
	if err != nil {
		r.capturing.Store(false)
		return fmt.Errorf("%w: %v", ErrStreamBuild, err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		r.capturing.Store(false)
		return fmt.Errorf("%w: %v", ErrStreamBuild, err)
	}

	slog.Info("capture started",
		"device", device.Name,
		"sample_rate", device.SampleRate,
		"channels", device.Channels)

	// Hold the stream open until someone signals stop. The driver keeps
	// appending from its callback thread the whole time.
	for r.capturing.Load() {
		select {
		case <-ctx.Done():
			r.capturing.Store(false)
		case <-time.After(pollInterval):
		}
	}

	if err := stream.Stop(); err != nil {
		slog.Warn("stop stream", "error", err)
	}
	if err := stream.Close(); err != nil {
		slog.Warn("close stream", "error", err)
	}

	if f := badFormat.Load(); f != 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, SampleFormat(f-1))
	}

	slog.Info("capture stopped", "samples", r.SampleCount())
	return nil
}

// SignalStop asks the capture worker to wind down. It is non-blocking,
// idempotent and safe from any goroutine. The stream is not guaranteed
// to be closed when it returns; the worker's poll loop still has to
// observe the flag.
func (r *Recorder) SignalStop() {
	r.capturing.Store(false)
}

// IsCapturing reports whether a capture session is live.
func (r *Recorder) IsCapturing() bool {
	return r.capturing.Load()
}

// SampleCount returns the number of buffered samples.
func (r *Recorder) SampleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Duration reports the captured audio length.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sampleRate == 0 || r.channels == 0 {
		return 0
	}
	frames := len(r.samples) / r.channels
	return time.Duration(float64(frames) / r.sampleRate * float64(time.Second))
}

// Finalize converts the buffered samples into a transport payload:
// mono mix, decimation to at most 16 kHz, 16-bit PCM WAV, base64.
// Call it after the capture worker has torn the stream down.
func (r *Recorder) Finalize() (types.Payload, error) {
	r.mu.Lock()
	samples := slices.Clone(r.samples)
	rate := r.sampleRate
	channels := r.channels
	r.mu.Unlock()

	if len(samples) == 0 {
		return types.Payload{}, ErrEmptyBuffer
	}

	if channels > 1 {
		samples = monoMix(samples, channels)
	}

	outRate := rate
	if rate > targetRate {
		samples = decimate(samples, rate, targetRate)
		outRate = targetRate
	}

	payload, err := encodePayload(samples, int(outRate))
	if err != nil {
		return types.Payload{}, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return payload, nil
}

// appendBlock normalizes one driver delivery into the shared buffer.
// It reports false when the block's format is not one it can decode.
func (r *Recorder) appendBlock(b Block) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch b.Format {
	case FormatF32:
		r.samples = append(r.samples, b.F32...)
	case FormatI16:
		for _, s := range b.I16 {
			r.samples = append(r.samples, float32(s)/32767.0)
		}
	case FormatU16:
		for _, s := range b.U16 {
			r.samples = append(r.samples, float32(s)/65535.0*2.0-1.0)
		}
	default:
		return false
	}
	return true
}

// resolveDevice finds the selected device by name, falling back to the
// host default when nothing is selected or the name no longer resolves.
func (r *Recorder) resolveDevice() (Device, error) {
	r.mu.Lock()
	name := r.device
	r.mu.Unlock()

	if name != "" {
		devices, err := r.host.Devices()
		if err == nil {
			for _, d := range devices {
				if d.Name == name {
					return d, nil
				}
			}
		}
		slog.Warn("selected device not found, using default", "device", name)
	}

	device, err := r.host.DefaultDevice()
	if err != nil {
		return Device{}, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	return device, nil
}
