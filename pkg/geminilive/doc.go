// Package geminilive is a thin client for bidirectional audio sessions
// against the Gemini Live API.
//
// It wraps the google.golang.org/genai Live surface behind a small Session
// interface: SendAudio streams PCM16 microphone audio upstream, Events
// iterates synthesized audio chunks and turn markers coming back. The
// package adds no retry, backoff, or error classification; session and
// transport errors propagate to the caller as-is.
package geminilive
