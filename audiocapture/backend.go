package audiocapture

// SampleFormat identifies the native sample encoding the driver delivers.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatF32                  // 32-bit float, [-1, 1]
	FormatI16                  // 16-bit signed integer
	FormatU16                  // 16-bit unsigned integer
)

// String returns the format name for logs and errors.
func (f SampleFormat) String() string {
	switch f {
	case FormatF32:
		return "f32"
	case FormatI16:
		return "i16"
	case FormatU16:
		return "u16"
	default:
		return "unknown"
	}
}

// Block is one delivery from the driver's callback thread. Exactly one
// of the typed slices is populated, matching Format. The slices may be
// reused by the driver after the callback returns; consumers must copy.
type Block struct {
	Format SampleFormat
	F32    []float32
	I16    []int16
	U16    []uint16
}

// Stream is a live input stream handle.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Host abstracts the audio driver so the capture logic can run against
// fakes in tests.
type Host interface {
	// Devices enumerates input-capable devices.
	Devices() ([]Device, error)

	// DefaultDevice returns the host's default input device.
	DefaultDevice() (Device, error)

	// Open prepares an input stream on device. onBlock is invoked on
	// the driver's callback thread for every delivered block; it must
	// return quickly.
	Open(device Device, onBlock func(Block)) (Stream, error)

	// Close releases the host.
	Close() error
}
