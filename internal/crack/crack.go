// Package crack recovers plaintext or keys from ciphertext with a predictor.
//
// A run encodes the ciphertext, splits it into chunks, scales the chunks,
// asks the predictor for every chunk at once and aggregates the answers.
package crack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rmathena79/breaker-bot/internal/aggregate"
	"github.com/rmathena79/breaker-bot/internal/charset"
	"github.com/rmathena79/breaker-bot/internal/chunk"
	"github.com/rmathena79/breaker-bot/internal/predictor"
	"github.com/rmathena79/breaker-bot/internal/scaler"
)

// Cracker wires a predictor to the chunking, scaling and aggregation steps.
type Cracker struct {
	codec       *charset.Codec
	predictor   predictor.Predictor
	size        int
	params      *scaler.Params
	aggOpts     []aggregate.Option
	cipherName  string
	parallelism int
	logger      *zap.Logger
}

// Option configures a Cracker.
type Option func(*Cracker)

// WithScaler standardizes chunks with params before prediction. Without it
// chunks are sent as raw offsets.
func WithScaler(params *scaler.Params) Option {
	return func(c *Cracker) { c.params = params }
}

// WithAggregation passes options to every aggregation call.
func WithAggregation(opts ...aggregate.Option) Option {
	return func(c *Cracker) { c.aggOpts = append(c.aggOpts, opts...) }
}

// WithCipher names the cipher the ciphertext was made with. Key recovery
// then fails fast for ciphers without scalar keys.
func WithCipher(name string) Option {
	return func(c *Cracker) { c.cipherName = name }
}

// WithParallelism bounds how many texts CrackMany works on at once.
func WithParallelism(n int) Option {
	return func(c *Cracker) { c.parallelism = n }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cracker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Cracker that cuts ciphertext into chunks of size symbols.
func New(codec *charset.Codec, p predictor.Predictor, size int, opts ...Option) (*Cracker, error) {
	if p == nil {
		return nil, errors.New("predictor is required")
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", chunk.ErrInvalidChunkSize, size)
	}
	if codec == nil {
		codec = charset.NewCodec(charset.Default)
	}
	c := &Cracker{codec: codec, predictor: p, size: size, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.params != nil && c.params.Len() != size {
		return nil, fmt.Errorf("%w: scaler fitted for %d, chunk size %d", scaler.ErrDimensionMismatch, c.params.Len(), size)
	}
	return c, nil
}

// CrackText estimates the plaintext of ciphertext.
func (c *Cracker) CrackText(ctx context.Context, ciphertext string) (string, error) {
	res := c.run(ctx, uuid.NewString(), ciphertext, aggregate.ModeText)
	return res.Text, res.Err
}

// CrackKey estimates the scalar key ciphertext was made with.
func (c *Cracker) CrackKey(ctx context.Context, ciphertext string) (int, error) {
	res := c.run(ctx, uuid.NewString(), ciphertext, aggregate.ModeKey)
	return res.Key, res.Err
}

// Result is the outcome for one text of CrackMany.
type Result struct {
	RunID string
	Text  string
	Key   int
	Err   error
}

// CrackMany cracks independent texts concurrently. Results are in input
// order and a failing text does not affect the others. Texts not started
// before ctx is done report the context error.
func (c *Cracker) CrackMany(ctx context.Context, texts []string, mode aggregate.Mode) []Result {
	results := make([]Result, len(texts))
	var g errgroup.Group
	if c.parallelism > 0 {
		g.SetLimit(c.parallelism)
	}
	for i, text := range texts {
		g.Go(func() error {
			runID := uuid.NewString()
			if err := ctx.Err(); err != nil {
				results[i] = Result{RunID: runID, Err: err}
				return nil
			}
			results[i] = c.run(ctx, runID, text, mode)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Cracker) run(ctx context.Context, runID, ciphertext string, mode aggregate.Mode) Result {
	res := Result{RunID: runID}
	log := c.logger.With(zap.String("run_id", runID), zap.String("mode", string(mode)))
	start := time.Now()

	text, key, chunks, err := c.crack(ctx, ciphertext, mode)
	if err != nil {
		log.Warn("crack failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		res.Err = err
		return res
	}
	log.Info("crack finished", zap.Int("chunks", chunks), zap.Int("length", len([]rune(ciphertext))), zap.Duration("duration", time.Since(start)))
	res.Text, res.Key = text, key
	return res
}

func (c *Cracker) crack(ctx context.Context, ciphertext string, mode aggregate.Mode) (string, int, int, error) {
	if _, err := aggregate.ParseMode(string(mode)); err != nil {
		return "", 0, 0, err
	}
	if mode == aggregate.ModeKey && c.cipherName != "" {
		if err := aggregate.CheckScalarKey(c.cipherName); err != nil {
			return "", 0, 0, err
		}
	}

	offsets, err := c.codec.Encode(ciphertext)
	if err != nil {
		return "", 0, 0, err
	}
	// A lenient codec reports unknown characters as charset.Unknown, which is
	// never a predictor payload.
	if err := c.codec.Validate(offsets); err != nil {
		return "", 0, 0, fmt.Errorf("ciphertext: %w", err)
	}
	layout, err := chunk.Split(offsets, c.size)
	if err != nil {
		return "", 0, 0, err
	}

	// Scaling applies to predictor input only; predictions stay in the raw
	// offset domain.
	scaled, err := c.scale(layout.Values())
	if err != nil {
		return "", 0, 0, err
	}
	req := predictor.Request{Mode: mode, Chunks: scaled}
	batch, err := c.predictor.Predict(ctx, req)
	if err != nil {
		return "", 0, 0, fmt.Errorf("predict: %w", err)
	}
	if err := predictor.CheckBatch(req, batch); err != nil {
		return "", 0, 0, err
	}

	if mode == aggregate.ModeKey {
		key, err := aggregate.Key(ctx, batch, c.aggOpts...)
		return "", key, len(layout.Chunks), err
	}
	text, err := aggregate.Text(ctx, batch, layout, c.codec, c.aggOpts...)
	return text, 0, len(layout.Chunks), err
}

func (c *Cracker) scale(chunks [][]int) ([][]float64, error) {
	if c.params != nil {
		return c.params.TransformAll(chunks)
	}
	out := make([][]float64, len(chunks))
	for i, ch := range chunks {
		out[i] = make([]float64, len(ch))
		for j, v := range ch {
			out[i][j] = float64(v)
		}
	}
	return out, nil
}
