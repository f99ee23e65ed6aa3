// Package aggregate turns per-chunk predictor output into one plaintext or
// key estimate.
//
// Predictions arrive one matrix per chunk, in chunk order:
//
//   - text mode: size x size. Row i holds the guesses for position i of the
//     chunk across refinement steps; the last column is the final guess.
//   - key mode: size x 1. Row j holds the key estimate after refinement step
//     j; the last row is the chunk's vote.
//
// Values are real-valued offsets in the raw offset domain. They are rounded
// here and never passed through a scaler.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnsupportedAggregation reports a batch shape or key kind the
	// aggregator cannot reduce, such as permutation-shaped key votes.
	ErrUnsupportedAggregation = errors.New("unsupported aggregation")
	// ErrMalformedPrediction reports a chunk matrix with the wrong shape or
	// non-finite values.
	ErrMalformedPrediction = errors.New("malformed prediction")
)

// Mode selects which aggregation policy a batch is meant for.
type Mode string

const (
	ModeText Mode = "text"
	ModeKey  Mode = "key"
)

// ParseMode reads a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeText, ModeKey:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: mode %q", ErrUnsupportedAggregation, s)
}

// Batch is the predictor output for every chunk of one text.
type Batch struct {
	Mode        Mode
	Predictions [][][]float64
}

// TextPolicy controls how text-mode chunk guesses are joined.
type TextPolicy int

const (
	// TrimOverlap drops the duplicated head of the final chunk so the output
	// has the original length.
	TrimOverlap TextPolicy = iota
	// NaiveConcat joins every chunk guess as is. Output is longer than the
	// input whenever the chunk size does not divide it.
	NaiveConcat
)

func (p TextPolicy) String() string {
	switch p {
	case TrimOverlap:
		return "trim"
	case NaiveConcat:
		return "naive"
	}
	return fmt.Sprintf("TextPolicy(%d)", int(p))
}

// ParseTextPolicy reads "trim" or "naive".
func ParseTextPolicy(s string) (TextPolicy, error) {
	switch s {
	case "", "trim":
		return TrimOverlap, nil
	case "naive":
		return NaiveConcat, nil
	}
	return 0, fmt.Errorf("unknown text policy %q", s)
}

type options struct {
	policy      TextPolicy
	tolerate    bool
	parallelism int
}

// Option configures an aggregation call.
type Option func(*options)

// WithTextPolicy selects how text-mode chunks are joined.
func WithTextPolicy(p TextPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithTolerateMalformed skips malformed chunks instead of failing the batch.
func WithTolerateMalformed() Option {
	return func(o *options) { o.tolerate = true }
}

// WithParallelism bounds the number of chunks processed at once. Values
// below one mean GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(o *options) { o.parallelism = n }
}

func buildOptions(opts []Option) options {
	o := options{policy: TrimOverlap}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parallelism < 1 {
		o.parallelism = runtime.GOMAXPROCS(0)
	}
	return o
}

// extract runs fn for every chunk index on an errgroup and returns results in
// index order. With tolerate set, chunk errors other than
// ErrUnsupportedAggregation are recorded in skipped instead of failing.
func extract[T any](ctx context.Context, n int, o options, fn func(i int) (T, error)) ([]T, []error, error) {
	results := make([]T, n)
	skipped := make([]error, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(i)
			if err != nil {
				if o.tolerate && !errors.Is(err, ErrUnsupportedAggregation) {
					skipped[i] = err
					return nil
				}
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return results, skipped, nil
}

func checkFinite(row []float64, r int) error {
	for c, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %v at [%d][%d]", ErrMalformedPrediction, v, r, c)
		}
	}
	return nil
}
