package geminilive

import (
	"testing"

	"google.golang.org/genai"
)

func TestConvertMessage(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		if got := convertMessage(nil); got != nil {
			t.Errorf("convertMessage(nil) = %v, want nil", got)
		}
	})

	t.Run("setup complete", func(t *testing.T) {
		events := convertMessage(&genai.LiveServerMessage{
			SetupComplete: &genai.LiveServerSetupComplete{},
		})
		if len(events) != 1 || events[0].Type != EventTypeSetupComplete {
			t.Errorf("got %v, want one setup.complete", events)
		}
	})

	t.Run("audio parts", func(t *testing.T) {
		events := convertMessage(&genai.LiveServerMessage{
			ServerContent: &genai.LiveServerContent{
				ModelTurn: &genai.Content{
					Parts: []*genai.Part{
						{InlineData: &genai.Blob{Data: []byte{1, 2}, MIMEType: "audio/pcm;rate=24000"}},
						{Text: "ignored"},
						{InlineData: &genai.Blob{Data: []byte{3, 4}, MIMEType: "audio/pcm;rate=24000"}},
					},
				},
			},
		})
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		for i, e := range events {
			if e.Type != EventTypeAudioDelta {
				t.Errorf("event %d type = %s, want audio.delta", i, e.Type)
			}
		}
		if string(events[0].Audio) != "\x01\x02" || string(events[1].Audio) != "\x03\x04" {
			t.Errorf("audio payloads out of order: %v", events)
		}
	})

	t.Run("turn markers", func(t *testing.T) {
		events := convertMessage(&genai.LiveServerMessage{
			ServerContent: &genai.LiveServerContent{
				Interrupted:  true,
				TurnComplete: true,
			},
		})
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		if events[0].Type != EventTypeInterrupted || events[1].Type != EventTypeTurnComplete {
			t.Errorf("got %v/%v, want interrupted then turn.complete", events[0].Type, events[1].Type)
		}
	})

	t.Run("empty inline data skipped", func(t *testing.T) {
		events := convertMessage(&genai.LiveServerMessage{
			ServerContent: &genai.LiveServerContent{
				ModelTurn: &genai.Content{
					Parts: []*genai.Part{
						{InlineData: &genai.Blob{MIMEType: "audio/pcm;rate=24000"}},
					},
				},
			},
		})
		if len(events) != 0 {
			t.Errorf("got %d events, want 0", len(events))
		}
	})
}
