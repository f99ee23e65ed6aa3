package aggregate

import (
	"context"
	"fmt"
	"math"

	"github.com/rmathena79/breaker-bot/internal/charset"
	"github.com/rmathena79/breaker-bot/internal/chunk"
)

// Text reduces a text-mode batch to a plaintext estimate. layout is the split
// of the ciphertext the predictions were made for.
func Text(ctx context.Context, batch Batch, layout chunk.Sequence, codec *charset.Codec, opts ...Option) (string, error) {
	if codec == nil {
		codec = charset.NewCodec(charset.Default)
	}
	offsets, err := TextOffsets(ctx, batch, layout, codec.Size(), opts...)
	if err != nil {
		return "", err
	}
	return codec.Decode(offsets)
}

// TextOffsets is Text without the final decode. Every value is rounded half to
// even and clamped into [0, n-1].
func TextOffsets(ctx context.Context, batch Batch, layout chunk.Sequence, n int, opts ...Option) ([]int, error) {
	if batch.Mode != ModeText {
		return nil, fmt.Errorf("%w: text aggregation of a %q batch", ErrUnsupportedAggregation, batch.Mode)
	}
	if len(batch.Predictions) != len(layout.Chunks) {
		return nil, fmt.Errorf("%w: %d predictions for %d chunks", ErrMalformedPrediction, len(batch.Predictions), len(layout.Chunks))
	}
	o := buildOptions(opts)
	size := layout.Size

	guesses, skipped, err := extract(ctx, len(batch.Predictions), o, func(i int) ([]int, error) {
		return lastColumn(batch.Predictions[i], size, n)
	})
	if err != nil {
		return nil, err
	}

	switch o.policy {
	case NaiveConcat:
		out := make([]int, 0, len(guesses)*size)
		for i, g := range guesses {
			if skipped[i] == nil {
				out = append(out, g...)
			}
		}
		if len(out) == 0 && len(guesses) > 0 {
			return nil, fmt.Errorf("%w: every chunk was skipped: %v", ErrMalformedPrediction, firstSkipped(skipped))
		}
		return out, nil
	case TrimOverlap:
		if !anySkipped(skipped) {
			return chunk.Reassemble(guesses, layout.Length)
		}
		return placeByStart(guesses, skipped, layout)
	}
	return nil, fmt.Errorf("%w: text policy %v", ErrUnsupportedAggregation, o.policy)
}

// lastColumn picks m[row][size-1] for every row of a size x size matrix.
func lastColumn(m [][]float64, size, n int) ([]int, error) {
	if len(m) != size {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrMalformedPrediction, len(m), size)
	}
	out := make([]int, size)
	for r, row := range m {
		if len(row) != size {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrMalformedPrediction, r, len(row), size)
		}
		if err := checkFinite(row, r); err != nil {
			return nil, err
		}
		out[r] = roundOffset(row[size-1], n)
	}
	return out, nil
}

// placeByStart writes surviving chunk guesses at their original positions,
// earliest chunk first, and returns the covered positions in order. Positions
// only a skipped chunk covered are left out of the estimate.
func placeByStart(guesses [][]int, skipped []error, layout chunk.Sequence) ([]int, error) {
	vals := make([]int, layout.Length)
	filled := make([]bool, layout.Length)
	for i, g := range guesses {
		if skipped[i] != nil {
			continue
		}
		start := layout.Chunks[i].Start
		for j, v := range g {
			if p := start + j; p < layout.Length && !filled[p] {
				vals[p] = v
				filled[p] = true
			}
		}
	}

	out := make([]int, 0, layout.Length)
	for p, ok := range filled {
		if ok {
			out = append(out, vals[p])
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: every chunk was skipped: %v", ErrMalformedPrediction, firstSkipped(skipped))
	}
	return out, nil
}

// roundOffset rounds half to even and clamps into [0, n-1] before converting,
// so values beyond the int range still land on the nearest bound.
func roundOffset(v float64, n int) int {
	return int(math.Max(0, math.Min(float64(n-1), math.RoundToEven(v))))
}

func anySkipped(skipped []error) bool {
	return firstSkipped(skipped) != nil
}

func firstSkipped(skipped []error) error {
	for _, err := range skipped {
		if err != nil {
			return err
		}
	}
	return nil
}
