// Package resample provides streaming sample-rate conversion and fixed-size
// frame re-chunking for 16-bit mono PCM.
//
// Resampler converts between the rates the bridge negotiates (48 kHz on the
// browser leg, 16 kHz upstream, 24 kHz downstream) using a pure Go
// polyphase resampler. Chunker re-slices the converted stream into the
// exact frame sizes the transports expect, carrying partial frames across
// pushes.
package resample
