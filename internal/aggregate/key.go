package aggregate

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/rmathena79/breaker-bot/internal/cipher"
)

// Key reduces a key-mode batch to one scalar key: the final row of every
// chunk is that chunk's vote, and the median of the votes, rounded half to
// even, wins.
//
// Only scalar keys are supported. Rows wider than one value are permutation
// votes, and a componentwise median of permutations need not be a
// permutation, so they fail with ErrUnsupportedAggregation.
func Key(ctx context.Context, batch Batch, opts ...Option) (int, error) {
	if batch.Mode != ModeKey {
		return 0, fmt.Errorf("%w: key aggregation of a %q batch", ErrUnsupportedAggregation, batch.Mode)
	}
	if len(batch.Predictions) == 0 {
		return 0, fmt.Errorf("%w: empty batch", ErrMalformedPrediction)
	}
	o := buildOptions(opts)

	votes, skipped, err := extract(ctx, len(batch.Predictions), o, func(i int) (float64, error) {
		return finalVote(batch.Predictions[i])
	})
	if err != nil {
		return 0, err
	}

	kept := make([]float64, 0, len(votes))
	for i, v := range votes {
		if skipped[i] == nil {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return 0, fmt.Errorf("%w: every chunk was skipped: %v", ErrMalformedPrediction, firstSkipped(skipped))
	}
	return roundKey(Median(kept))
}

// roundKey rounds the median half to even. Medians outside the int32 range
// cannot be a key for any alphabet and are rejected before conversion.
func roundKey(median float64) (int, error) {
	r := math.RoundToEven(median)
	if r < math.MinInt32 || r > math.MaxInt32 {
		return 0, fmt.Errorf("%w: median vote %v is not a key", ErrMalformedPrediction, median)
	}
	return int(r), nil
}

// KeyFor is Key for a named cipher. It fails fast for ciphers whose keys are
// not single offsets.
func KeyFor(ctx context.Context, cipherName string, batch Batch, opts ...Option) (int, error) {
	if err := CheckScalarKey(cipherName); err != nil {
		return 0, err
	}
	return Key(ctx, batch, opts...)
}

// CheckScalarKey reports whether the named cipher's keys can be recovered by
// Key.
func CheckScalarKey(cipherName string) error {
	c, err := cipher.Lookup(cipherName)
	if err != nil {
		return err
	}
	if c.KeyKind() != cipher.KeyKindOffset {
		return fmt.Errorf("%w: %s keys are %q, not scalar offsets", ErrUnsupportedAggregation, c.Name(), c.KeyKind())
	}
	return nil
}

func finalVote(m [][]float64) (float64, error) {
	if len(m) == 0 {
		return 0, fmt.Errorf("%w: no refinement steps", ErrMalformedPrediction)
	}
	last := m[len(m)-1]
	switch {
	case len(last) == 0:
		return 0, fmt.Errorf("%w: empty final row", ErrMalformedPrediction)
	case len(last) > 1:
		return 0, fmt.Errorf("%w: vote has %d components", ErrUnsupportedAggregation, len(last))
	}
	if err := checkFinite(last, len(m)-1); err != nil {
		return 0, err
	}
	return last[0], nil
}

// Median returns the median of values, averaging the two middle values when
// the count is even. It returns NaN for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := slices.Clone(values)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
