package commands

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/voxlink/voxlink/pkg/geminilive"
)

//go:embed templates/*
var templateFS embed.FS

var tmpl *template.Template

func init() {
	var err error
	tmpl, err = template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		panic(err)
	}
}

// WebServer serves the chat page and the signaling endpoints.
type WebServer struct {
	cfg    *BridgeConfig
	bridge *WebRTCBridge
}

// NewWebServer creates a new web server.
func NewWebServer(cfg *BridgeConfig) *WebServer {
	return &WebServer{
		cfg:    cfg,
		bridge: NewWebRTCBridge(),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", ws.handleIndex)
	mux.HandleFunc("/api/webrtc/offer", ws.handleWebRTCOffer)
	mux.HandleFunc("/api/ws", ws.handleWS)

	srv := &http.Server{
		Addr:    ws.cfg.Listen,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Web server starting", "addr", ws.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	ws.bridge.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	err := <-errCh
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// indexData carries defaults into the chat page. The key from the
// environment or config prefills the form so the page works without typing.
type indexData struct {
	APIKey string
	Model  string
	Voice  string
}

func (ws *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := indexData{
		APIKey: ws.cfg.APIKey,
		Model:  ws.cfg.Model,
		Voice:  ws.cfg.Voice,
	}
	if err := tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// dialer builds a Live API client for one connection. A key sent by the
// page overrides the server-side default.
func (ws *WebServer) dialer(apiKey string) geminilive.Dialer {
	if apiKey == "" {
		apiKey = ws.cfg.APIKey
	}
	opts := []geminilive.Option{}
	if ws.cfg.Model != "" {
		opts = append(opts, geminilive.WithModel(ws.cfg.Model))
	}
	if ws.cfg.Voice != "" {
		opts = append(opts, geminilive.WithVoice(ws.cfg.Voice))
	}
	return geminilive.NewClient(apiKey, opts...)
}

// handleWebRTCOffer handles WebRTC signaling (SDP offer/answer exchange).
func (ws *WebServer) handleWebRTCOffer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("WebRTC read body error", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	offerReq, err := ParseOfferRequest(body)
	if err != nil {
		slog.Error("WebRTC parse offer error", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("WebRTC received SDP offer, processing...")

	answerSDP, err := ws.bridge.HandleOffer(offerReq.SDP, ws.dialer(offerReq.APIKey))
	if err != nil {
		slog.Error("WebRTC handle offer error", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("WebRTC sending SDP answer")

	answerJSON, err := MarshalAnswerResponse(answerSDP)
	if err != nil {
		slog.Error("WebRTC marshal answer error", "error", err)
		http.Error(w, "failed to marshal answer", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(answerJSON); err != nil {
		slog.Error("WebRTC write answer error", "error", err)
	}
}
