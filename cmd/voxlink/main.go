// voxlink is a voice chat bridge for the Gemini Live API.
//
// It serves a browser-based audio chat page, relays microphone audio to a
// Live API session over WebRTC or WebSocket, and plays the synthesized
// response back in the browser.
//
// Usage:
//
//	voxlink serve                   # Start the bridge and open the UI
//	voxlink serve --listen :9000    # Custom listen address
//	voxlink config context list     # List all contexts
//	voxlink config context use dev  # Switch to the dev context
//
// Configuration is stored in ~/.voxlink/
package main

import (
	"os"

	"github.com/voxlink/voxlink/cmd/voxlink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
