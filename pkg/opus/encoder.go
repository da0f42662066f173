package opus

/*
#cgo pkg-config: opus
#include <opus.h>

// Wrapper for the variadic opus_encoder_ctl.
static int voxlink_opus_set_bitrate(OpusEncoder *enc, opus_int32 bitrate) {
    return opus_encoder_ctl(enc, OPUS_SET_BITRATE(bitrate));
}
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// maxPacketBytes is the recommended packet buffer size from the libopus docs.
const maxPacketBytes = 4000

// Encoder wraps a libopus encoder.
type Encoder struct {
	sampleRate int
	channels   int
	cEnc       *C.OpusEncoder
}

// NewVoIPEncoder creates an Opus encoder optimized for voice.
// Valid rates are 8000, 12000, 16000, 24000, or 48000; channels 1 or 2.
func NewVoIPEncoder(sampleRate, channels int) (*Encoder, error) {
	var ret C.int
	cEnc := C.opus_encoder_create(C.opus_int32(sampleRate), C.int(channels),
		C.OPUS_APPLICATION_VOIP, &ret)
	if ret != C.OPUS_OK {
		return nil, fmt.Errorf("opus: encoder create failed: %s", C.GoString(C.opus_strerror(ret)))
	}
	return &Encoder{
		sampleRate: sampleRate,
		channels:   channels,
		cEnc:       cEnc,
	}, nil
}

// Close releases the encoder resources.
func (e *Encoder) Close() {
	if e.cEnc != nil {
		C.opus_encoder_destroy(e.cEnc)
		e.cEnc = nil
	}
}

// Encode encodes interleaved PCM samples into one Opus packet. The input
// must be a whole number of 2.5/5/10/20/40/60ms frames at the encoder rate.
func (e *Encoder) Encode(pcm []int16) ([]byte, error) {
	if e.cEnc == nil {
		return nil, fmt.Errorf("opus: encoder is closed")
	}
	if len(pcm) == 0 || len(pcm)%e.channels != 0 {
		return nil, fmt.Errorf("opus: invalid pcm length %d for %d channels", len(pcm), e.channels)
	}

	frameSize := len(pcm) / e.channels
	buf := make([]byte, maxPacketBytes)
	n := C.opus_encode(e.cEnc,
		(*C.opus_int16)(unsafe.Pointer(&pcm[0])), C.int(frameSize),
		(*C.uchar)(unsafe.Pointer(&buf[0])), C.opus_int32(len(buf)))
	if n < 0 {
		return nil, fmt.Errorf("opus: encode failed: %s", C.GoString(C.opus_strerror(n)))
	}
	return buf[:n], nil
}

// SetBitrate sets the target bitrate in bits per second.
func (e *Encoder) SetBitrate(bitrate int) error {
	if e.cEnc == nil {
		return fmt.Errorf("opus: encoder is closed")
	}
	ret := C.voxlink_opus_set_bitrate(e.cEnc, C.opus_int32(bitrate))
	if ret != C.OPUS_OK {
		return fmt.Errorf("opus: set bitrate failed: %s", C.GoString(C.opus_strerror(ret)))
	}
	return nil
}

// SampleRate returns the input sample rate of this encoder.
func (e *Encoder) SampleRate() int {
	return e.sampleRate
}

// Channels returns the number of channels of this encoder.
func (e *Encoder) Channels() int {
	return e.channels
}
