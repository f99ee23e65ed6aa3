// Package predictor defines the boundary to the sequence model that proposes
// offsets or keys for scaled chunks.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rmathena79/breaker-bot/internal/aggregate"
)

var (
	// ErrBadRequest is returned for requests a predictor cannot serve.
	ErrBadRequest = errors.New("bad predictor request")
	// ErrUnavailable is returned when the predictor cannot be reached.
	ErrUnavailable = errors.New("predictor unavailable")
)

// Request carries scaled chunks, all of the same length, in chunk order.
type Request struct {
	Mode   aggregate.Mode
	Chunks [][]float64
}

// ChunkSize returns the length of the request's chunks.
func (r Request) ChunkSize() int {
	if len(r.Chunks) == 0 {
		return 0
	}
	return len(r.Chunks[0])
}

// Predictor returns one prediction matrix per request chunk.
type Predictor interface {
	Predict(ctx context.Context, req Request) (aggregate.Batch, error)
}

// Func adapts a function to Predictor.
type Func func(ctx context.Context, req Request) (aggregate.Batch, error)

func (f Func) Predict(ctx context.Context, req Request) (aggregate.Batch, error) {
	return f(ctx, req)
}

// ValidateRequest checks the mode and that chunks are non-empty, equally long
// and finite.
func ValidateRequest(req Request) error {
	if _, err := aggregate.ParseMode(string(req.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if len(req.Chunks) == 0 {
		return fmt.Errorf("%w: no chunks", ErrBadRequest)
	}
	size := req.ChunkSize()
	if size == 0 {
		return fmt.Errorf("%w: empty chunk", ErrBadRequest)
	}
	for i, c := range req.Chunks {
		if len(c) != size {
			return fmt.Errorf("%w: chunk %d has %d values, want %d", ErrBadRequest, i, len(c), size)
		}
		for j, v := range c {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: chunk %d value %d is %v", ErrBadRequest, i, j, v)
			}
		}
	}
	return nil
}

// CheckBatch verifies that batch answers req: same mode and one matrix per
// chunk. Matrix contents are left to the aggregator.
func CheckBatch(req Request, batch aggregate.Batch) error {
	if batch.Mode != req.Mode {
		return fmt.Errorf("%w: asked for %q predictions, got %q", aggregate.ErrMalformedPrediction, req.Mode, batch.Mode)
	}
	if len(batch.Predictions) != len(req.Chunks) {
		return fmt.Errorf("%w: %d predictions for %d chunks", aggregate.ErrMalformedPrediction, len(batch.Predictions), len(req.Chunks))
	}
	return nil
}
