package audiocapture

// Device describes an input device with its negotiated capture
// configuration. Devices are enumerated on demand and never persisted.
type Device struct {
	Name       string  `json:"name"`
	SampleRate float64 `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Default    bool    `json:"is_default"`
}
