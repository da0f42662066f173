package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxlink/voxlink/pkg/geminilive"
	"github.com/voxlink/voxlink/pkg/pcm"
)

type fakeEvent struct {
	event *geminilive.ServerEvent
	err   error
}

// fakeSession records sent audio and replays scripted server events.
type fakeSession struct {
	sentCh  chan []byte
	eventCh chan fakeEvent

	closeOnce sync.Once
	closed    atomic.Bool
	sendErr   error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		sentCh:  make(chan []byte, 1024),
		eventCh: make(chan fakeEvent, 1024),
	}
}

func (s *fakeSession) SendAudio(pcm []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sentCh <- pcm
	return nil
}

func (s *fakeSession) Events() iter.Seq2[*geminilive.ServerEvent, error] {
	return func(yield func(*geminilive.ServerEvent, error) bool) {
		for item := range s.eventCh {
			if !yield(item.event, item.err) {
				return
			}
			if item.err != nil {
				return
			}
		}
	}
}

func (s *fakeSession) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.eventCh)
	})
	return nil
}

func (s *fakeSession) emitAudio(samples []int16, mimeType string) {
	s.eventCh <- fakeEvent{event: &geminilive.ServerEvent{
		Type:     geminilive.EventTypeAudioDelta,
		Audio:    pcm.Encode(samples),
		MIMEType: mimeType,
	}}
}

// fakeDialer counts Connect calls.
type fakeDialer struct {
	session *fakeSession
	dialErr error
	dials   atomic.Int32
}

func (d *fakeDialer) Connect(ctx context.Context) (geminilive.Session, error) {
	d.dials.Add(1)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.session, nil
}

func recvSent(t *testing.T, s *fakeSession) []byte {
	t.Helper()
	select {
	case b := <-s.sentCh:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sent audio")
		return nil
	}
}

func TestAdapter_TransmitsInOrder(t *testing.T) {
	sess := newFakeSession()
	dialer := &fakeDialer{session: sess}
	a := New(dialer)
	defer a.Close()

	frames := [][]int16{{1, 2, 3}, {4, 5}, {6, 7, 8, 9}}
	for _, f := range frames {
		if err := a.AcceptFrame(Frame{Rate: InputRate, Samples: f}); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}

	// First NextFrame dials the session and starts the send loop.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go a.NextFrame(ctx)

	for i, f := range frames {
		got := recvSent(t, sess)
		if !bytes.Equal(got, pcm.Encode(f)) {
			t.Errorf("frame %d transmitted out of order: got %v", i, got)
		}
	}
}

func TestAdapter_ShutdownStopsInputAndDrains(t *testing.T) {
	sess := newFakeSession()
	dialer := &fakeDialer{session: sess}
	a := New(dialer)
	defer a.Close()

	if err := a.AcceptFrame(Frame{Rate: InputRate, Samples: []int16{1, 2}}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	a.Shutdown()
	if err := a.AcceptFrame(Frame{Rate: InputRate, Samples: []int16{3, 4}}); !errors.Is(err, ErrShutdown) {
		t.Errorf("AcceptFrame after Shutdown = %v, want ErrShutdown", err)
	}

	// The frame accepted before Shutdown must still be transmitted.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go a.NextFrame(ctx)

	got := recvSent(t, sess)
	if !bytes.Equal(got, pcm.Encode([]int16{1, 2})) {
		t.Errorf("drained frame = %v, want [1 2]", got)
	}
}

func TestAdapter_DialsLazilyExactlyOnce(t *testing.T) {
	sess := newFakeSession()
	dialer := &fakeDialer{session: sess}
	a := New(dialer)
	defer a.Close()

	a.AcceptFrame(Frame{Rate: InputRate, Samples: []int16{1}})
	if n := dialer.dials.Load(); n != 0 {
		t.Fatalf("dialed %d times before first NextFrame, want 0", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.NextFrame(ctx)
		}()
	}
	wg.Wait()

	if n := dialer.dials.Load(); n != 1 {
		t.Errorf("dialed %d times, want exactly 1", n)
	}
}

func TestAdapter_OutputFramesFixedSize(t *testing.T) {
	sess := newFakeSession()
	dialer := &fakeDialer{session: sess}
	a := New(dialer)
	defer a.Close()

	// Emit 1000 samples in ragged chunks; expect two full 480-sample
	// frames plus a zero-padded tail after the stream ends.
	n := 0
	for _, size := range []int{100, 333, 567} {
		chunk := make([]int16, size)
		for i := range chunk {
			chunk[i] = int16(n + i)
		}
		n += size
		sess.emitAudio(chunk, "audio/pcm;rate=24000")
	}
	sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	want := 0
	var frames []Frame
	for {
		f, err := a.NextFrame(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("NextFrame: %v", err)
		}
		frames = append(frames, f)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	for i, f := range frames {
		if f.Rate != OutputRate {
			t.Errorf("frame %d rate = %d, want %d", i, f.Rate, OutputRate)
		}
		if len(f.Samples) != OutputFrameSize {
			t.Errorf("frame %d size = %d, want %d", i, len(f.Samples), OutputFrameSize)
		}
	}
	// Continuity through the first two full frames.
	for _, f := range frames[:2] {
		for _, s := range f.Samples {
			if s != int16(want) {
				t.Fatalf("sample discontinuity: got %d, want %d", s, want)
			}
			want++
		}
	}
	// Tail carries the remaining 40 samples then zero padding.
	tail := frames[2].Samples
	for i := range 40 {
		if tail[i] != int16(want) {
			t.Fatalf("tail sample %d = %d, want %d", i, tail[i], want)
		}
		want++
	}
	for i := 40; i < OutputFrameSize; i++ {
		if tail[i] != 0 {
			t.Fatalf("tail padding %d = %d, want 0", i, tail[i])
		}
	}
}

func TestAdapter_InputResampledToSessionRate(t *testing.T) {
	sess := newFakeSession()
	dialer := &fakeDialer{session: sess}
	a := New(dialer)
	defer a.Close()

	// One second of 48 kHz input should reach the session as roughly one
	// second at 16 kHz.
	for range 50 {
		a.AcceptFrame(Frame{Rate: 48000, Samples: make([]int16, 960)})
	}
	a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go a.NextFrame(ctx)

	total := 0
	deadline := time.After(2 * time.Second)
	for total < 15000 {
		select {
		case b := <-sess.sentCh:
			total += len(b) / 2
		case <-deadline:
			t.Fatalf("resampled input short: %d samples", total)
		}
	}
	if total > 16100 {
		t.Errorf("resampled input long: %d samples, want ~16000", total)
	}
}

func TestAdapter_SessionErrorPropagates(t *testing.T) {
	sess := newFakeSession()
	cause := errors.New("quota exceeded")
	sess.eventCh <- fakeEvent{err: cause}
	dialer := &fakeDialer{session: sess}
	a := New(dialer)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := a.NextFrame(ctx); !errors.Is(err, cause) {
		t.Errorf("NextFrame = %v, want %v", err, cause)
	}
	// The failure also reaches the input side.
	waitErr := func() error {
		var err error
		for range 100 {
			if err = a.AcceptFrame(Frame{Rate: InputRate, Samples: []int16{1}}); err != nil {
				return err
			}
			time.Sleep(10 * time.Millisecond)
		}
		return err
	}
	if err := waitErr(); !errors.Is(err, cause) {
		t.Errorf("AcceptFrame after failure = %v, want %v", err, cause)
	}
}

func TestAdapter_DialErrorPropagates(t *testing.T) {
	cause := errors.New("bad credential")
	dialer := &fakeDialer{dialErr: cause}
	a := New(dialer)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := a.NextFrame(ctx); !errors.Is(err, cause) {
		t.Errorf("NextFrame = %v, want %v", err, cause)
	}
}

func TestNegotiatedFormats(t *testing.T) {
	if InputRate != InputFormat.SampleRate() {
		t.Errorf("InputRate = %d, want %d", InputRate, InputFormat.SampleRate())
	}
	if OutputRate != OutputFormat.SampleRate() {
		t.Errorf("OutputRate = %d, want %d", OutputRate, OutputFormat.SampleRate())
	}
	if InputFormat != pcm.L16Mono16K || OutputFormat != pcm.L16Mono24K {
		t.Errorf("formats = %v/%v, want 16 kHz in, 24 kHz out", InputFormat, OutputFormat)
	}
	if OutputFormat.Duration(OutputFrameSize) != 20*time.Millisecond {
		t.Errorf("output frame duration = %v, want 20ms", OutputFormat.Duration(OutputFrameSize))
	}
}

func TestChunkRate(t *testing.T) {
	tests := []struct {
		mime string
		want int
	}{
		{"audio/pcm;rate=24000", 24000},
		{"audio/pcm;rate=16000", 16000},
		{"audio/pcm;rate=48000;channels=1", 48000},
		{"audio/pcm", OutputRate},
		{"", OutputRate},
		{"audio/pcm;rate=bogus", OutputRate},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := chunkRate(tt.mime); got != tt.want {
				t.Errorf("chunkRate(%q) = %d, want %d", tt.mime, got, tt.want)
			}
		})
	}
}
