package relay

// Frame is a buffer of mono 16-bit PCM samples at a fixed sample rate.
type Frame struct {
	// Rate is the sample rate in Hz.
	Rate int

	// Samples is the mono PCM payload.
	Samples []int16
}
