package commands

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxlink/voxlink/pkg/pcm"
	"github.com/voxlink/voxlink/pkg/relay"
)

// wsUpgrader accepts any origin; the server is a localhost tool.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHello is the first (text) message on a socket. It selects the key and
// model for the session; every later message is binary audio.
type wsHello struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model"`
}

// handleWS bridges one websocket to one relay adapter. Uplink messages are
// raw little-endian PCM16 at 16 kHz; downlink messages are raw PCM16 at
// 24 kHz, one fixed-size frame per message.
func (ws *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connID := uuid.New().String()[:8]
	slog.Info("WS client connected", "conn", connID, "remote", r.RemoteAddr)

	var hello wsHello
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		slog.Info("WS closed before hello", "conn", connID, "error", err)
		return
	}
	if msgType == websocket.TextMessage {
		if err := json.Unmarshal(data, &hello); err != nil {
			slog.Error("WS bad hello", "conn", connID, "error", err)
			return
		}
		data = nil
	}

	adapter := relay.New(ws.dialer(hello.APIKey))
	defer adapter.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		ws.wsWriteLoop(ctx, conn, adapter, connID)
	}()

	// The hello read may have consumed the first audio message already.
	if len(data) > 0 {
		if err := adapter.AcceptFrame(relay.Frame{Rate: relay.InputRate, Samples: pcm.Decode(data)}); err != nil {
			return
		}
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("WS client disconnected", "conn", connID, "error", err)
			adapter.Shutdown()
			return
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		err = adapter.AcceptFrame(relay.Frame{Rate: relay.InputRate, Samples: pcm.Decode(data)})
		if errors.Is(err, relay.ErrShutdown) {
			return
		}
		if err != nil {
			slog.Error("WS relay input", "conn", connID, "error", err)
			return
		}
	}
}

func closeDeadline() time.Time {
	return time.Now().Add(time.Second)
}

func (ws *WebServer) wsWriteLoop(ctx context.Context, conn *websocket.Conn, adapter *relay.Adapter, connID string) {
	for {
		frame, err := adapter.NextFrame(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			slog.Error("WS relay output", "conn", connID, "error", err)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()),
				closeDeadline())
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm.Encode(frame.Samples)); err != nil {
			slog.Info("WS write ended", "conn", connID, "error", err)
			return
		}
	}
}
