package pcm

import (
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		fmt  Format
		rate int
		mime string
	}{
		{L16Mono16K, 16000, "audio/pcm;rate=16000"},
		{L16Mono24K, 24000, "audio/pcm;rate=24000"},
		{L16Mono48K, 48000, "audio/pcm;rate=48000"},
	}

	for _, tt := range tests {
		t.Run(tt.fmt.String(), func(t *testing.T) {
			if got := tt.fmt.SampleRate(); got != tt.rate {
				t.Errorf("SampleRate() = %d, want %d", got, tt.rate)
			}
			if got := tt.fmt.Channels(); got != 1 {
				t.Errorf("Channels() = %d, want 1", got)
			}
			if got := tt.fmt.Depth(); got != 16 {
				t.Errorf("Depth() = %d, want 16", got)
			}
			if got := tt.fmt.MIMEType(); got != tt.mime {
				t.Errorf("MIMEType() = %q, want %q", got, tt.mime)
			}
		})
	}
}

func TestFormat_SamplesAndDuration(t *testing.T) {
	f := L16Mono24K
	if got := f.Samples(960); got != 480 {
		t.Errorf("Samples(960) = %d, want 480", got)
	}
	if got := f.Duration(480); got != 20*time.Millisecond {
		t.Errorf("Duration(480) = %v, want 20ms", got)
	}
}

func TestEncodeDecode(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 256, -256}
	b := Encode(in)
	if len(b) != len(in)*2 {
		t.Fatalf("Encode length = %d, want %d", len(b), len(in)*2)
	}
	out := Decode(b)
	if len(out) != len(in) {
		t.Fatalf("Decode length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d: got %d, want %d", i, out[i], in[i])
		}
	}
}

func TestDecode_OddBytes(t *testing.T) {
	out := Decode([]byte{0x34, 0x12, 0xff})
	if len(out) != 1 || out[0] != 0x1234 {
		t.Errorf("Decode odd bytes = %v, want [0x1234]", out)
	}
}
