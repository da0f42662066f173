package opus

/*
#cgo pkg-config: opus
#include <opus.h>
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// maxFrameSamples is the largest Opus frame: 120ms at 48kHz.
const maxFrameSamples = 5760

// Decoder wraps a libopus decoder.
type Decoder struct {
	sampleRate int
	channels   int
	cDec       *C.OpusDecoder
}

// NewDecoder creates an Opus decoder producing PCM at the given rate.
// Valid rates are 8000, 12000, 16000, 24000, or 48000; channels 1 or 2.
func NewDecoder(sampleRate, channels int) (*Decoder, error) {
	var ret C.int
	cDec := C.opus_decoder_create(C.opus_int32(sampleRate), C.int(channels), &ret)
	if ret != C.OPUS_OK {
		return nil, fmt.Errorf("opus: decoder create failed: %s", C.GoString(C.opus_strerror(ret)))
	}
	return &Decoder{
		sampleRate: sampleRate,
		channels:   channels,
		cDec:       cDec,
	}, nil
}

// Close releases the decoder resources.
func (d *Decoder) Close() {
	if d.cDec != nil {
		C.opus_decoder_destroy(d.cDec)
		d.cDec = nil
	}
}

// Decode decodes one Opus packet to interleaved PCM samples.
func (d *Decoder) Decode(packet []byte) ([]int16, error) {
	if d.cDec == nil {
		return nil, fmt.Errorf("opus: decoder is closed")
	}

	buf := make([]int16, maxFrameSamples*d.channels)

	var dataPtr *C.uchar
	var dataLen C.opus_int32
	if len(packet) > 0 {
		dataPtr = (*C.uchar)(unsafe.Pointer(&packet[0]))
		dataLen = C.opus_int32(len(packet))
	}

	n := C.opus_decode(d.cDec, dataPtr, dataLen,
		(*C.opus_int16)(unsafe.Pointer(&buf[0])), C.int(maxFrameSamples), 0)
	if n < 0 {
		return nil, fmt.Errorf("opus: decode failed: %s", C.GoString(C.opus_strerror(n)))
	}
	return buf[:int(n)*d.channels], nil
}

// SampleRate returns the output sample rate of this decoder.
func (d *Decoder) SampleRate() int {
	return d.sampleRate
}

// Channels returns the number of channels of this decoder.
func (d *Decoder) Channels() int {
	return d.channels
}
