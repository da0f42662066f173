package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/voxlink/voxlink/pkg/buffer"
	"github.com/voxlink/voxlink/pkg/geminilive"
	"github.com/voxlink/voxlink/pkg/pcm"
	"github.com/voxlink/voxlink/pkg/resample"
)

const (
	// InputFormat is the PCM format streamed to the session.
	InputFormat = pcm.L16Mono16K

	// OutputFormat is the PCM format of emitted frames.
	OutputFormat = pcm.L16Mono24K

	// OutputFrameSize is the fixed emitted frame size in samples (20ms).
	OutputFrameSize = 480
)

var (
	// InputRate is the sample rate the session consumes upstream.
	InputRate = InputFormat.SampleRate()

	// OutputRate is the fixed sample rate of emitted frames.
	OutputRate = OutputFormat.SampleRate()
)

// ErrShutdown is returned by AcceptFrame after Shutdown has been called.
var ErrShutdown = errors.New("relay: shutting down")

// Adapter relays audio frames between a local capture/playback pair and one
// remote Live session.
//
// Inbound frames are buffered on an unbounded FIFO queue and streamed to
// the session in arrival order; synthesized audio coming back is
// re-quantized into fixed 24 kHz, 480-sample frames on a second queue.
// The session is dialed lazily, once, on the first NextFrame call. There is
// no retry or error classification: the first session failure closes both
// queues with that error and it propagates to the callers.
type Adapter struct {
	dialer geminilive.Dialer

	in  *buffer.Queue[Frame]
	out *buffer.Queue[Frame]

	quit      atomic.Bool
	startOnce sync.Once
	closeOnce sync.Once
	closedCh  chan struct{}
	outCh     chan Frame

	mu      sync.Mutex
	session geminilive.Session
	failErr error
}

// New creates an Adapter that dials its session through the given dialer.
func New(dialer geminilive.Dialer) *Adapter {
	return &Adapter{
		dialer:   dialer,
		in:       buffer.NewQueue[Frame](64),
		out:      buffer.NewQueue[Frame](64),
		closedCh: make(chan struct{}),
		outCh:    make(chan Frame),
	}
}

// AcceptFrame buffers an inbound audio frame for transmission. Frames are
// transmitted in the order they were accepted. After Shutdown it returns
// ErrShutdown; after a session failure it returns that failure.
func (a *Adapter) AcceptFrame(f Frame) error {
	if a.quit.Load() {
		return ErrShutdown
	}
	if len(f.Samples) == 0 {
		return nil
	}
	return a.in.Add(f)
}

// NextFrame returns the next synthesized audio frame, blocking until one is
// available, the context is done, or the session ends. The first call dials
// the remote session. Emitted frames are always OutputFrameSize samples at
// OutputRate. When the session ends cleanly NextFrame returns io.EOF;
// session failures are returned as-is.
func (a *Adapter) NextFrame(ctx context.Context) (Frame, error) {
	a.startOnce.Do(func() { a.start(ctx) })

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case f, ok := <-a.outCh:
		if !ok {
			return Frame{}, a.endErr()
		}
		return f, nil
	}
}

// Shutdown stops accepting new input and lets the in-flight session drain.
// Frames already accepted are still transmitted; output continues until the
// session finishes responding. Shutdown does not cancel an in-flight
// remote call.
func (a *Adapter) Shutdown() {
	a.quit.Store(true)
	a.in.CloseWrite()
}

// Close shuts the adapter down and closes the remote session.
func (a *Adapter) Close() error {
	a.Shutdown()
	a.closeOnce.Do(func() { close(a.closedCh) })
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()
	if sess != nil {
		return sess.Close()
	}
	return nil
}

// start dials the session and launches the relay loops. Called exactly once.
func (a *Adapter) start(ctx context.Context) {
	sess, err := a.dialer.Connect(ctx)
	if err != nil {
		a.fail(err)
		go a.pump()
		return
	}
	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
	slog.Debug("relay session opened", "in", InputFormat, "out", OutputFormat)

	go a.sendLoop(sess)
	go a.recvLoop(sess)
	go a.pump()
}

// pump moves frames from the output queue to the consumer channel so that
// NextFrame can select against its context without losing frames.
func (a *Adapter) pump() {
	defer close(a.outCh)
	for {
		f, err := a.out.Next()
		if err != nil {
			return
		}
		select {
		case a.outCh <- f:
		case <-a.closedCh:
			return
		}
	}
}

// sendLoop streams queued input frames to the session in arrival order,
// converting to the negotiated input rate when a frame arrives at another
// rate. It exits once the input queue is drained after Shutdown or on the
// first send failure.
func (a *Adapter) sendLoop(sess geminilive.Session) {
	resamplers := make(map[int]*resample.Resampler)

	for {
		f, err := a.in.Next()
		if errors.Is(err, buffer.ErrDone) {
			slog.Debug("relay input drained")
			return
		}
		if err != nil {
			return
		}

		samples := f.Samples
		if f.Rate != InputRate {
			r, ok := resamplers[f.Rate]
			if !ok {
				r, err = resample.New(f.Rate, InputRate)
				if err != nil {
					a.fail(err)
					return
				}
				resamplers[f.Rate] = r
			}
			samples, err = r.Process(samples)
			if err != nil {
				a.fail(err)
				return
			}
			if len(samples) == 0 {
				continue
			}
		}

		if err := sess.SendAudio(pcm.Encode(samples)); err != nil {
			a.fail(err)
			return
		}
	}
}

// recvLoop aggregates synthesized audio from the session and re-chunks it
// into fixed OutputFrameSize frames at OutputRate on the output queue.
func (a *Adapter) recvLoop(sess geminilive.Session) {
	chunker := resample.NewChunker(OutputFrameSize)
	var (
		conv     *resample.Resampler
		convRate int
	)

	for event, err := range sess.Events() {
		if err != nil {
			a.fail(err)
			return
		}
		if event.Type != geminilive.EventTypeAudioDelta {
			continue
		}

		samples := pcm.Decode(event.Audio)
		if rate := chunkRate(event.MIMEType); rate != OutputRate {
			if conv == nil || convRate != rate {
				conv, err = resample.New(rate, OutputRate)
				convRate = rate
				if err != nil {
					a.fail(err)
					return
				}
			}
			samples, err = conv.Process(samples)
			if err != nil {
				a.fail(err)
				return
			}
		}

		for _, frame := range chunker.Push(samples) {
			if err := a.out.Add(Frame{Rate: OutputRate, Samples: frame}); err != nil {
				return
			}
		}
	}

	// Session stream ended: flush the partial tail and drain.
	if tail := chunker.Flush(); tail != nil {
		a.out.Add(Frame{Rate: OutputRate, Samples: tail})
	}
	a.out.CloseWrite()
}

// fail records the first error and closes both queues with it, so it
// reaches both AcceptFrame and NextFrame callers.
func (a *Adapter) fail(err error) {
	a.mu.Lock()
	if a.failErr == nil {
		a.failErr = err
	}
	a.mu.Unlock()
	a.in.CloseWithError(err)
	a.out.CloseWithError(err)
	slog.Error("relay session failed", "error", err)
}

// endErr returns the recorded failure, or io.EOF for a clean end.
func (a *Adapter) endErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failErr != nil {
		return a.failErr
	}
	return io.EOF
}

// chunkRate extracts the sample rate from a media type such as
// "audio/pcm;rate=24000", defaulting to OutputRate.
func chunkRate(mimeType string) int {
	_, rest, ok := strings.Cut(mimeType, "rate=")
	if !ok {
		return OutputRate
	}
	if i := strings.IndexAny(rest, "; "); i >= 0 {
		rest = rest[:i]
	}
	rate, err := strconv.Atoi(rest)
	if err != nil || rate <= 0 {
		return OutputRate
	}
	return rate
}
