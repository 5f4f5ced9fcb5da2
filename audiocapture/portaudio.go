package audiocapture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioHost drives capture through PortAudio. NewPortAudioHost and
// Close bracket the library's lifetime; the zero value is not usable.
type PortAudioHost struct{}

// NewPortAudioHost initializes the PortAudio runtime.
func NewPortAudioHost() (*PortAudioHost, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &PortAudioHost{}, nil
}

// Close terminates the PortAudio runtime.
func (h *PortAudioHost) Close() error {
	return portaudio.Terminate()
}

// Devices lists input-capable devices with their negotiated capture
// configuration. Capture negotiates at most stereo input regardless of
// what the hardware advertises.
func (h *PortAudioHost) Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	var defName string
	if def, err := portaudio.DefaultInputDevice(); err == nil {
		defName = def.Name
	}

	var devices []Device
	for _, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, deviceFromInfo(info, info.Name == defName))
	}
	return devices, nil
}

// DefaultDevice returns the host's default input device.
func (h *PortAudioHost) DefaultDevice() (Device, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("default input device: %w", err)
	}
	return deviceFromInfo(info, true), nil
}

// Open builds an input stream on device. PortAudio converts the
// hardware's native sample format to float32, so blocks are always F32
// and interleaved per the device's channel count.
func (h *PortAudioHost) Open(device Device, onBlock func(Block)) (Stream, error) {
	info, err := h.lookup(device.Name)
	if err != nil {
		return nil, err
	}

	params := portaudio.HighLatencyParameters(info, nil)
	params.Input.Channels = device.Channels
	params.SampleRate = device.SampleRate

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		onBlock(Block{Format: FormatF32, F32: in})
	})
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return stream, nil
}

func (h *PortAudioHost) lookup(name string) (*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for _, info := range infos {
		if info.Name == name && info.MaxInputChannels > 0 {
			return info, nil
		}
	}
	return nil, fmt.Errorf("input device %q not found", name)
}

func deviceFromInfo(info *portaudio.DeviceInfo, isDefault bool) Device {
	channels := info.MaxInputChannels
	if channels > 2 {
		channels = 2
	}
	return Device{
		Name:       info.Name,
		SampleRate: info.DefaultSampleRate,
		Channels:   channels,
		Default:    isDefault,
	}
}
