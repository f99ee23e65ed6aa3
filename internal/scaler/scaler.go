// Package scaler standardizes chunk offsets before they are handed to the
// predictor.
//
// Direction matters: Transform is applied to predictor INPUT only. The
// predictor's output layer targets raw offsets, so its predictions are already
// in the offset domain and must never be passed through Transform or
// InverseTransform before aggregation.
package scaler

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidParams reports mean/scale vectors that cannot be used.
	ErrInvalidParams = errors.New("invalid scaler parameters")
	// ErrDimensionMismatch reports a chunk whose length differs from the
	// parameter vectors.
	ErrDimensionMismatch = errors.New("scaler dimension mismatch")
)

// Params holds one mean and one scale per chunk position.
type Params struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// New validates and copies mean and scale.
func New(mean, scale []float64) (*Params, error) {
	p := &Params{
		Mean:  append([]float64(nil), mean...),
		Scale: append([]float64(nil), scale...),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Identity returns parameters that leave values unchanged.
func Identity(n int) *Params {
	p := &Params{Mean: make([]float64, n), Scale: make([]float64, n)}
	for i := range p.Scale {
		p.Scale[i] = 1
	}
	return p
}

// Len returns the chunk size the parameters were fitted for.
func (p *Params) Len() int { return len(p.Mean) }

// Validate checks that both vectors are non-empty, equally long and finite,
// and that no scale is zero.
func (p *Params) Validate() error {
	if len(p.Mean) == 0 {
		return fmt.Errorf("%w: empty mean", ErrInvalidParams)
	}
	if len(p.Mean) != len(p.Scale) {
		return fmt.Errorf("%w: %d means, %d scales", ErrInvalidParams, len(p.Mean), len(p.Scale))
	}
	for i := range p.Mean {
		if !finite(p.Mean[i]) {
			return fmt.Errorf("%w: mean[%d] is %v", ErrInvalidParams, i, p.Mean[i])
		}
		if !finite(p.Scale[i]) || p.Scale[i] == 0 {
			return fmt.Errorf("%w: scale[%d] is %v", ErrInvalidParams, i, p.Scale[i])
		}
	}
	return nil
}

// Transform standardizes one chunk of offsets: (x - mean) / scale.
func (p *Params) Transform(chunk []int) ([]float64, error) {
	if len(chunk) != p.Len() {
		return nil, fmt.Errorf("%w: chunk has %d values, params have %d", ErrDimensionMismatch, len(chunk), p.Len())
	}
	out := make([]float64, len(chunk))
	for i, v := range chunk {
		out[i] = (float64(v) - p.Mean[i]) / p.Scale[i]
	}
	return out, nil
}

// TransformAll applies Transform to every chunk.
func (p *Params) TransformAll(chunks [][]int) ([][]float64, error) {
	out := make([][]float64, len(chunks))
	for i, c := range chunks {
		scaled, err := p.Transform(c)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}

// InverseTransform maps standardized values back: x*scale + mean.
func (p *Params) InverseTransform(values []float64) ([]float64, error) {
	if len(values) != p.Len() {
		return nil, fmt.Errorf("%w: got %d values, params have %d", ErrDimensionMismatch, len(values), p.Len())
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v*p.Scale[i] + p.Mean[i]
	}
	return out, nil
}

// Fit computes per-position mean and population standard deviation over
// chunks. Positions with no spread get a scale of 1.
func Fit(chunks [][]int) (*Params, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to fit", ErrInvalidParams)
	}
	size := len(chunks[0])
	if size == 0 {
		return nil, fmt.Errorf("%w: empty chunk", ErrInvalidParams)
	}

	sum := make([]float64, size)
	for i, c := range chunks {
		if len(c) != size {
			return nil, fmt.Errorf("%w: chunk %d has %d values, want %d", ErrDimensionMismatch, i, len(c), size)
		}
		for j, v := range c {
			sum[j] += float64(v)
		}
	}

	n := float64(len(chunks))
	p := &Params{Mean: make([]float64, size), Scale: make([]float64, size)}
	for j := range sum {
		p.Mean[j] = sum[j] / n
	}
	for _, c := range chunks {
		for j, v := range c {
			d := float64(v) - p.Mean[j]
			p.Scale[j] += d * d
		}
	}
	for j := range p.Scale {
		p.Scale[j] = math.Sqrt(p.Scale[j] / n)
		if p.Scale[j] == 0 {
			p.Scale[j] = 1
		}
	}
	return p, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
