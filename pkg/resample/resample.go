package resample

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts a stream of 16-bit mono samples from one sample rate
// to another. It is streaming: Process may be called repeatedly with
// consecutive chunks and internal filter state carries across calls.
// Not safe for concurrent use.
type Resampler struct {
	resampler resampling.Resampler
}

// New creates a Resampler from srcRate to dstRate. Equal rates yield a
// pass-through resampler.
func New(srcRate, dstRate int) (*Resampler, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resample: invalid rates %d -> %d", srcRate, dstRate)
	}

	r := &Resampler{}
	if srcRate == dstRate {
		return r, nil
	}

	config := &resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	}
	var err error
	r.resampler, err = resampling.New(config)
	if err != nil {
		return nil, fmt.Errorf("resample: create resampler: %w", err)
	}
	return r, nil
}

// Process resamples a chunk of samples. The returned slice may be empty
// when the underlying filter has not accumulated enough input, and its
// length generally differs from len(in) by the rate ratio.
func (r *Resampler) Process(in []int16) ([]int16, error) {
	if len(in) == 0 {
		return nil, nil
	}
	if r.resampler == nil {
		out := make([]int16, len(in))
		copy(out, in)
		return out, nil
	}

	input := make([]float64, len(in))
	for i, s := range in {
		input[i] = float64(s) / 32768.0
	}

	output, err := r.resampler.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	out := make([]int16, len(output))
	for i, s := range output {
		switch {
		case s > 1.0:
			out[i] = 32767
		case s < -1.0:
			out[i] = -32768
		default:
			out[i] = int16(s * 32767.0)
		}
	}
	return out, nil
}
