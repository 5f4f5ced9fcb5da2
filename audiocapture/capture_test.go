package audiocapture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeHost drives the Recorder without real audio hardware. Blocks are
// delivered by the test through deliver, standing in for the driver's
// callback thread.
type fakeHost struct {
	mu      sync.Mutex
	devices []Device
	openErr error
	onBlock func(Block)
	stream  *fakeStream
}

type fakeStream struct {
	mu      sync.Mutex
	stopped bool
	closed  bool
}

func (s *fakeStream) Start() error { return nil }

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (h *fakeHost) Devices() ([]Device, error) {
	return h.devices, nil
}

func (h *fakeHost) DefaultDevice() (Device, error) {
	for _, d := range h.devices {
		if d.Default {
			return d, nil
		}
	}
	if len(h.devices) > 0 {
		return h.devices[0], nil
	}
	return Device{}, errors.New("no input devices")
}

func (h *fakeHost) Open(device Device, onBlock func(Block)) (Stream, error) {
	if h.openErr != nil {
		return nil, h.openErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onBlock = onBlock
	h.stream = &fakeStream{}
	return h.stream, nil
}

func (h *fakeHost) Close() error { return nil }

func (h *fakeHost) deliver(b Block) {
	h.mu.Lock()
	fn := h.onBlock
	h.mu.Unlock()
	if fn != nil {
		fn(b)
	}
}

func (h *fakeHost) opened() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.onBlock != nil
}

func monoHost(rate float64) *fakeHost {
	return &fakeHost{devices: []Device{
		{Name: "Test Microphone", SampleRate: rate, Channels: 1, Default: true},
	}}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// startWorker launches the blocking Start on its own goroutine and waits
// until the stream is open, mirroring how the lifecycle service runs it.
func startWorker(t *testing.T, r *Recorder, h *fakeHost) chan error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- r.Start(context.Background()) }()
	waitFor(t, "stream open", h.opened)
	return errc
}

func stopWorker(t *testing.T, r *Recorder, errc chan error) error {
	t.Helper()
	r.SignalStop()
	select {
	case err := <-errc:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("capture worker did not return after stop signal")
		return nil
	}
}

func TestStartStop(t *testing.T) {
	h := monoHost(16000)
	r := NewRecorder(h)

	errc := startWorker(t, r, h)
	if !r.IsCapturing() {
		t.Fatal("expected IsCapturing after start")
	}

	h.deliver(Block{Format: FormatF32, F32: []float32{0.1, 0.2, 0.3}})

	if err := stopWorker(t, r, errc); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if r.IsCapturing() {
		t.Fatal("expected IsCapturing false after stop")
	}
	if got := r.SampleCount(); got != 3 {
		t.Fatalf("SampleCount = %d, want 3", got)
	}
	if !h.stream.stopped || !h.stream.closed {
		t.Fatal("stream was not torn down")
	}
}

func TestStartWhileCapturing(t *testing.T) {
	h := monoHost(16000)
	r := NewRecorder(h)

	errc := startWorker(t, r, h)
	defer stopWorker(t, r, errc)

	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyCapturing) {
		t.Fatalf("second Start = %v, want ErrAlreadyCapturing", err)
	}
}

func TestStartNoDevice(t *testing.T) {
	r := NewRecorder(&fakeHost{})
	if err := r.Start(context.Background()); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("Start = %v, want ErrNoDevice", err)
	}
	if r.IsCapturing() {
		t.Fatal("capturing flag left set after failed start")
	}
}

func TestStartStreamBuildFailed(t *testing.T) {
	h := monoHost(16000)
	h.openErr = errors.New("device busy")
	r := NewRecorder(h)

	if err := r.Start(context.Background()); !errors.Is(err, ErrStreamBuild) {
		t.Fatalf("Start = %v, want ErrStreamBuild", err)
	}
	if r.IsCapturing() {
		t.Fatal("capturing flag left set after failed start")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	h := monoHost(16000)
	r := NewRecorder(h)

	errc := startWorker(t, r, h)
	h.deliver(Block{Format: SampleFormat(99)})

	select {
	case err := <-errc:
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("Start = %v, want ErrUnsupportedFormat", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after unsupported format")
	}
}

func TestNormalization(t *testing.T) {
	h := monoHost(16000)
	r := NewRecorder(h)

	errc := startWorker(t, r, h)
	h.deliver(Block{Format: FormatI16, I16: []int16{32767, -32767, 0}})
	h.deliver(Block{Format: FormatU16, U16: []uint16{65535, 0}})
	h.deliver(Block{Format: FormatF32, F32: []float32{0.5}})
	if err := stopWorker(t, r, errc); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	r.mu.Lock()
	got := append([]float32(nil), r.samples...)
	r.mu.Unlock()

	want := []float32{1, -1, 0, 1, -1, 0.5}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if diff := got[i] - want[i]; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBufferClearedOnNewSession(t *testing.T) {
	h := monoHost(16000)
	r := NewRecorder(h)

	errc := startWorker(t, r, h)
	h.deliver(Block{Format: FormatF32, F32: []float32{0.1, 0.2}})
	if err := stopWorker(t, r, errc); err != nil {
		t.Fatalf("first session: %v", err)
	}

	errc = startWorker(t, r, h)
	h.deliver(Block{Format: FormatF32, F32: []float32{0.9}})
	if err := stopWorker(t, r, errc); err != nil {
		t.Fatalf("second session: %v", err)
	}

	if got := r.SampleCount(); got != 1 {
		t.Fatalf("SampleCount after second session = %d, want 1", got)
	}
}

func TestNoAppendAfterStop(t *testing.T) {
	h := monoHost(16000)
	r := NewRecorder(h)

	errc := startWorker(t, r, h)
	h.deliver(Block{Format: FormatF32, F32: []float32{0.1}})
	if err := stopWorker(t, r, errc); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	// A straggling driver callback after stop must not grow the buffer.
	h.deliver(Block{Format: FormatF32, F32: []float32{0.2, 0.3}})
	if got := r.SampleCount(); got != 1 {
		t.Fatalf("SampleCount = %d, want 1", got)
	}
}

func TestSignalStopIdempotent(t *testing.T) {
	h := monoHost(16000)
	r := NewRecorder(h)

	r.SignalStop() // before any session
	errc := startWorker(t, r, h)
	r.SignalStop()
	r.SignalStop()
	if err := <-errc; err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
}

func TestContextCancelStopsCapture(t *testing.T) {
	h := monoHost(16000)
	r := NewRecorder(h)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Start(ctx) }()
	waitFor(t, "stream open", h.opened)

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestSelectDevice(t *testing.T) {
	h := &fakeHost{devices: []Device{
		{Name: "Built-in", SampleRate: 48000, Channels: 2, Default: true},
		{Name: "USB Mic", SampleRate: 44100, Channels: 1},
	}}
	r := NewRecorder(h)
	r.SelectDevice("USB Mic")

	errc := startWorker(t, r, h)
	stopWorker(t, r, errc)

	r.mu.Lock()
	rate, channels := r.sampleRate, r.channels
	r.mu.Unlock()
	if rate != 44100 || channels != 1 {
		t.Fatalf("negotiated %v Hz %d ch, want 44100 Hz 1 ch", rate, channels)
	}
}

func TestSelectDeviceFallsBackToDefault(t *testing.T) {
	h := monoHost(16000)
	r := NewRecorder(h)
	r.SelectDevice("Unplugged Mic")

	errc := startWorker(t, r, h)
	stopWorker(t, r, errc)

	r.mu.Lock()
	rate := r.sampleRate
	r.mu.Unlock()
	if rate != 16000 {
		t.Fatalf("negotiated %v Hz, want default device's 16000", rate)
	}
}

func TestDevicesNeverFails(t *testing.T) {
	r := NewRecorder(&errHost{})
	if got := r.Devices(); len(got) != 0 {
		t.Fatalf("Devices on failing host = %v, want empty", got)
	}
}

// errHost fails every operation.
type errHost struct{}

func (errHost) Devices() ([]Device, error)     { return nil, errors.New("backend gone") }
func (errHost) DefaultDevice() (Device, error) { return Device{}, errors.New("backend gone") }
func (errHost) Close() error                   { return nil }

func (errHost) Open(Device, func(Block)) (Stream, error) {
	return nil, errors.New("backend gone")
}

func TestFinalizeEmptyBuffer(t *testing.T) {
	r := NewRecorder(monoHost(16000))
	if _, err := r.Finalize(); !errors.Is(err, ErrEmptyBuffer) {
		t.Fatalf("Finalize = %v, want ErrEmptyBuffer", err)
	}
}

func TestFinalizeSilenceAt44100(t *testing.T) {
	h := monoHost(44100)
	r := NewRecorder(h)

	errc := startWorker(t, r, h)
	// One second of mono silence in driver-sized blocks.
	block := make([]float32, 441)
	for i := 0; i < 100; i++ {
		h.deliver(Block{Format: FormatF32, F32: block})
	}
	if err := stopWorker(t, r, errc); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	payload, err := r.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if payload.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", payload.SampleRate)
	}
	if payload.Samples < 15990 || payload.Samples > 16010 {
		t.Errorf("Samples = %d, want about 16000", payload.Samples)
	}
	if payload.WAVBytes != 44+payload.Samples*2 {
		t.Errorf("WAVBytes = %d, want %d", payload.WAVBytes, 44+payload.Samples*2)
	}

	samples, rate := decodeWAV(t, payloadBytes(t, payload))
	if rate != 16000 {
		t.Errorf("decoded rate = %d, want 16000", rate)
	}
	for i, s := range samples {
		if s > 1e-4 || s < -1e-4 {
			t.Fatalf("sample %d = %v, want silence", i, s)
		}
	}
}

func TestFinalizeStereoMixesToMono(t *testing.T) {
	h := &fakeHost{devices: []Device{
		{Name: "Stereo", SampleRate: 16000, Channels: 2, Default: true},
	}}
	r := NewRecorder(h)

	errc := startWorker(t, r, h)
	h.deliver(Block{Format: FormatF32, F32: []float32{0.2, 0.4, -0.2, -0.4}})
	if err := stopWorker(t, r, errc); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	payload, err := r.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	samples, _ := decodeWAV(t, payloadBytes(t, payload))
	want := []float32{0.3, -0.3}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(samples), len(want))
	}
	for i := range want {
		if diff := samples[i] - want[i]; diff > 2.0/32767 || diff < -2.0/32767 {
			t.Errorf("sample %d = %v, want %v", i, samples[i], want[i])
		}
	}
}

func TestDuration(t *testing.T) {
	h := &fakeHost{devices: []Device{
		{Name: "Stereo", SampleRate: 1000, Channels: 2, Default: true},
	}}
	r := NewRecorder(h)

	errc := startWorker(t, r, h)
	h.deliver(Block{Format: FormatF32, F32: make([]float32, 1000)}) // 500 frames
	stopWorker(t, r, errc)

	if got := r.Duration(); got != 500*time.Millisecond {
		t.Fatalf("Duration = %v, want 500ms", got)
	}
}
