package geminilive

import (
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"google.golang.org/genai"

	"github.com/voxlink/voxlink/pkg/pcm"
)

// EventType identifies a server event surfaced by a Session.
type EventType string

const (
	// EventTypeSetupComplete signals the session handshake finished.
	EventTypeSetupComplete EventType = "setup.complete"

	// EventTypeAudioDelta carries one chunk of synthesized audio.
	EventTypeAudioDelta EventType = "audio.delta"

	// EventTypeTurnComplete signals the model finished its turn.
	EventTypeTurnComplete EventType = "turn.complete"

	// EventTypeInterrupted signals the model turn was cut off by new input.
	EventTypeInterrupted EventType = "interrupted"
)

// ServerEvent is one event received from the Live session.
type ServerEvent struct {
	Type EventType

	// Audio is raw little-endian PCM16 for EventTypeAudioDelta events.
	// The Live API emits it at 24 kHz mono.
	Audio []byte

	// MIMEType is the declared media type of Audio, when present.
	MIMEType string
}

// Session is one long-lived bidirectional connection to the Live API.
type Session interface {
	// SendAudio streams one chunk of little-endian PCM16 mono audio at
	// 16 kHz into the session.
	SendAudio(data []byte) error

	// Events returns an iterator over server events. The iterator ends
	// when the session closes; a mid-stream error is yielded once and
	// terminates the iteration.
	Events() iter.Seq2[*ServerEvent, error]

	// Close closes the session. Safe to call more than once.
	Close() error
}

type eventOrError struct {
	event *ServerEvent
	err   error
}

// liveSession adapts a genai Live session to the Session interface.
type liveSession struct {
	session   *genai.Session
	closeCh   chan struct{}
	eventsCh  chan eventOrError
	closeOnce sync.Once
}

func newLiveSession(sess *genai.Session) *liveSession {
	s := &liveSession{
		session:  sess,
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 100),
	}
	go s.readLoop()
	return s
}

// SendAudio streams one chunk of PCM16 mono audio at 16 kHz.
func (s *liveSession) SendAudio(data []byte) error {
	select {
	case <-s.closeCh:
		return fmt.Errorf("geminilive: session closed")
	default:
	}
	slog.Debug("send audio", "samples", pcm.L16Mono16K.Samples(len(data)))
	err := s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			Data:     data,
			MIMEType: pcm.L16Mono16K.MIMEType(),
		},
	})
	if err != nil {
		return fmt.Errorf("geminilive: send audio: %w", err)
	}
	return nil
}

// Events returns an iterator over server events.
func (s *liveSession) Events() iter.Seq2[*ServerEvent, error] {
	return func(yield func(*ServerEvent, error) bool) {
		for {
			select {
			case <-s.closeCh:
				return
			case item, ok := <-s.eventsCh:
				if !ok {
					return
				}
				if !yield(item.event, item.err) {
					return
				}
				if item.err != nil {
					return
				}
			}
		}
	}
}

// Close closes the session.
func (s *liveSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		err = s.session.Close()
	})
	return err
}

// readLoop pulls messages from the Live session and demultiplexes them
// onto the events channel.
func (s *liveSession) readLoop() {
	defer close(s.eventsCh)

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		msg, err := s.session.Receive()
		if err != nil {
			select {
			case <-s.closeCh:
			case s.eventsCh <- eventOrError{err: fmt.Errorf("geminilive: receive: %w", err)}:
			}
			return
		}

		for _, item := range convertMessage(msg) {
			select {
			case <-s.closeCh:
				return
			case s.eventsCh <- eventOrError{event: item}:
			}
		}
	}
}

// convertMessage flattens one server message into zero or more events.
func convertMessage(msg *genai.LiveServerMessage) []*ServerEvent {
	if msg == nil {
		return nil
	}

	var events []*ServerEvent
	if msg.SetupComplete != nil {
		events = append(events, &ServerEvent{Type: EventTypeSetupComplete})
	}

	sc := msg.ServerContent
	if sc == nil {
		return events
	}

	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			events = append(events, &ServerEvent{
				Type:     EventTypeAudioDelta,
				Audio:    part.InlineData.Data,
				MIMEType: part.InlineData.MIMEType,
			})
		}
	}
	if sc.Interrupted {
		events = append(events, &ServerEvent{Type: EventTypeInterrupted})
	}
	if sc.TurnComplete {
		slog.Debug("model turn complete")
		events = append(events, &ServerEvent{Type: EventTypeTurnComplete})
	}
	return events
}

// Ensure liveSession implements Session.
var _ Session = (*liveSession)(nil)
