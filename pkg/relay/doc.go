// Package relay bridges local audio frames to one remote Live session.
//
// Adapter exposes exactly two operations to its environment: AcceptFrame
// buffers microphone audio for transmission, NextFrame produces the next
// synthesized frame re-quantized to a fixed 24 kHz / 480-sample format.
// Both sides are pass-through against two unbounded FIFO queues feeding and
// draining a single long-lived session, dialed lazily on first use.
// Shutdown is cooperative: input stops, the in-flight session drains.
package relay
