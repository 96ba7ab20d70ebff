package core

// Playback rate bounds accepted by the synthesis backend.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0

	// DefaultSpeed is used when a request omits the speed entirely.
	DefaultSpeed = 1.0
)

// ClampSpeed maps any requested rate into the backend's accepted range. A
// zero value means "unset" and becomes the default.
func ClampSpeed(speed float64) float64 {
	if speed == 0 {
		return DefaultSpeed
	}

	if speed < MinSpeed {
		return MinSpeed
	}

	if speed > MaxSpeed {
		return MaxSpeed
	}

	return speed
}
