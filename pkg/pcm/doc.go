// Package pcm provides types and utilities for working with raw PCM audio.
//
// The package defines the 16-bit mono formats the bridge negotiates
// (16 kHz upstream, 24 kHz downstream, 48 kHz on the browser leg) and
// conversion helpers between little-endian byte streams and samples.
//
// Example usage:
//
//	format := pcm.L16Mono16K
//
//	// Duration of one 320-sample chunk
//	d := format.Duration(320)
//
//	// Byte stream to samples and back
//	samples := pcm.Decode(raw)
//	raw = pcm.Encode(samples)
package pcm
