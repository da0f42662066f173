// Package opus provides CGO bindings to libopus for the browser WebRTC leg.
//
// The bridge receives microphone audio from the browser as Opus RTP packets
// and sends model audio back the same way; this package handles the
// encode/decode at 48 kHz. Requires libopus via pkg-config.
package opus
