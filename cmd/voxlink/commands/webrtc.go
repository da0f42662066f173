package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"

	"github.com/voxlink/voxlink/pkg/geminilive"
	"github.com/voxlink/voxlink/pkg/opus"
	"github.com/voxlink/voxlink/pkg/pcm"
	"github.com/voxlink/voxlink/pkg/relay"
	"github.com/voxlink/voxlink/pkg/resample"
)

const (
	// browserFormat is the PCM format on the browser leg after Opus decode.
	browserFormat = pcm.L16Mono48K

	// browserFrameSamples is 20ms at the browser rate.
	browserFrameSamples = 960

	// opusPayloadType is the RTP payload type used for Opus.
	opusPayloadType = 111
)

// WebRTCBridge handles the WebRTC connection with the browser and pipes
// its audio through a relay adapter.
type WebRTCBridge struct {
	mu sync.RWMutex

	pc         *webrtc.PeerConnection
	audioTrack *webrtc.TrackLocalStaticRTP // for sending audio to browser
	adapter    *relay.Adapter
	cancel     context.CancelFunc

	connected bool
	ssrc      uint32 // Random SSRC for RTP packets
}

// NewWebRTCBridge creates a new WebRTC bridge.
func NewWebRTCBridge() *WebRTCBridge {
	return &WebRTCBridge{
		ssrc: rand.Uint32(),
	}
}

// HandleOffer processes an SDP offer from the browser and returns an
// answer. Each offer starts a fresh relay adapter dialing the Live API
// with the given client; any previous connection is torn down first, so at
// most one remote session is active per connected client.
func (b *WebRTCBridge) HandleOffer(offerSDP string, client geminilive.Dialer) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.teardownLocked()

	// Goroutines from a torn-down connection may outlive it, so the
	// connection ID is captured here rather than read from the bridge.
	connID := uuid.New().String()[:8]

	// No ICE servers needed for localhost
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return "", fmt.Errorf("create peer connection: %w", err)
	}
	b.pc = pc

	audioTrack, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"voxlink-audio",
	)
	if err != nil {
		pc.Close()
		return "", fmt.Errorf("create audio track: %w", err)
	}
	b.audioTrack = audioTrack

	if _, err := pc.AddTrack(audioTrack); err != nil {
		pc.Close()
		return "", fmt.Errorf("add track: %w", err)
	}

	adapter := relay.New(client)
	b.adapter = adapter
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	// Handle incoming tracks (microphone audio from browser)
	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		slog.Info("WebRTC received track", "conn", connID, "id", track.ID(), "codec", track.Codec().MimeType)
		go b.readRemoteTrack(connID, track, adapter)
	})

	go b.playbackLoop(ctx, connID, adapter)

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Info("WebRTC connection state", "conn", connID, "state", state.String())

		b.mu.Lock()
		b.connected = state == webrtc.PeerConnectionStateConnected
		b.mu.Unlock()

		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed,
			webrtc.PeerConnectionStateDisconnected:
			adapter.Close()
			cancel()
		}
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		slog.Info("WebRTC ICE state", "conn", connID, "state", state.String())
	})

	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return "", fmt.Errorf("set remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return "", fmt.Errorf("set local description: %w", err)
	}

	// Wait for ICE gathering to complete (for localhost, this is fast)
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	<-gatherComplete

	return pc.LocalDescription().SDP, nil
}

// readRemoteTrack decodes browser Opus packets and feeds them to the
// adapter. The adapter converts to the session rate itself.
func (b *WebRTCBridge) readRemoteTrack(connID string, track *webrtc.TrackRemote, adapter *relay.Adapter) {
	dec, err := opus.NewDecoder(browserFormat.SampleRate(), 1)
	if err != nil {
		slog.Error("WebRTC opus decoder", "conn", connID, "error", err)
		return
	}
	defer dec.Close()

	for {
		rtpPacket, _, err := track.ReadRTP()
		if err != nil {
			slog.Info("WebRTC track read ended", "conn", connID, "error", err)
			return
		}
		if len(rtpPacket.Payload) == 0 {
			continue
		}

		samples, err := dec.Decode(rtpPacket.Payload)
		if err != nil {
			slog.Debug("WebRTC opus decode failed", "conn", connID, "error", err)
			continue
		}

		err = adapter.AcceptFrame(relay.Frame{Rate: browserFormat.SampleRate(), Samples: samples})
		if errors.Is(err, relay.ErrShutdown) {
			return
		}
		if err != nil {
			slog.Error("WebRTC relay input", "conn", connID, "error", err)
			return
		}
	}
}

// playbackLoop pulls synthesized frames from the adapter, converts them to
// the browser rate and sends them as paced Opus RTP packets.
func (b *WebRTCBridge) playbackLoop(ctx context.Context, connID string, adapter *relay.Adapter) {
	enc, err := opus.NewVoIPEncoder(browserFormat.SampleRate(), 1)
	if err != nil {
		slog.Error("WebRTC opus encoder", "conn", connID, "error", err)
		return
	}
	defer enc.Close()

	up, err := resample.New(relay.OutputRate, browserFormat.SampleRate())
	if err != nil {
		slog.Error("WebRTC resampler", "conn", connID, "error", err)
		return
	}
	chunker := resample.NewChunker(browserFrameSamples)

	var (
		timestamp uint32
		seq       uint16
	)
	// Pace packets at the frame duration so the browser jitter buffer
	// stays shallow.
	ticker := time.NewTicker(browserFormat.Duration(browserFrameSamples))
	defer ticker.Stop()

	for {
		frame, err := adapter.NextFrame(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			slog.Error("WebRTC relay output", "conn", connID, "error", err)
			return
		}

		samples, err := up.Process(frame.Samples)
		if err != nil {
			slog.Error("WebRTC upsample", "conn", connID, "error", err)
			return
		}

		for _, out := range chunker.Push(samples) {
			packet, err := enc.Encode(out)
			if err != nil {
				slog.Error("WebRTC opus encode", "conn", connID, "error", err)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			timestamp += browserFrameSamples
			seq++
			if err := b.sendAudio(packet, timestamp, seq); err != nil {
				slog.Debug("WebRTC send audio", "conn", connID, "error", err)
			}
		}
	}
}

// sendAudio sends one Opus packet to the browser.
func (b *WebRTCBridge) sendAudio(opusData []byte, timestamp uint32, sequenceNumber uint16) error {
	b.mu.RLock()
	track := b.audioTrack
	connected := b.connected
	b.mu.RUnlock()

	if !connected || track == nil {
		return nil // Silently drop if not connected
	}

	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    opusPayloadType,
			SequenceNumber: sequenceNumber,
			Timestamp:      timestamp,
			SSRC:           b.ssrc,
		},
		Payload: opusData,
	}

	return track.WriteRTP(packet)
}

// IsConnected returns true if WebRTC is connected.
func (b *WebRTCBridge) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// Close closes the WebRTC connection and the relay session.
func (b *WebRTCBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.teardownLocked()
}

func (b *WebRTCBridge) teardownLocked() error {
	var err error
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	if b.adapter != nil {
		b.adapter.Close()
		b.adapter = nil
	}
	if b.pc != nil {
		err = b.pc.Close()
		b.pc = nil
		b.connected = false
	}
	return err
}

// OfferRequest is the JSON structure for a WebRTC offer.
type OfferRequest struct {
	SDP    string `json:"sdp"`
	APIKey string `json:"apiKey"`
}

// AnswerResponse is the JSON structure for a WebRTC answer.
type AnswerResponse struct {
	SDP string `json:"sdp"`
}

// ParseOfferRequest parses a JSON offer request.
func ParseOfferRequest(data []byte) (*OfferRequest, error) {
	var req OfferRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// MarshalAnswerResponse creates a JSON answer response.
func MarshalAnswerResponse(sdp string) ([]byte, error) {
	return json.Marshal(AnswerResponse{SDP: sdp})
}
