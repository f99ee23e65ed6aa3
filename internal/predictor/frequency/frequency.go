// Package frequency is a statistical stand-in for the trained model. It
// guesses a Caesar key for each chunk by comparing symbol counts with English
// text and answers in the same shapes the model does, so the cracking
// pipeline can run end to end without a model host.
package frequency

import (
	"context"
	"fmt"
	"math"
	"unicode"

	"github.com/rmathena79/breaker-bot/internal/aggregate"
	"github.com/rmathena79/breaker-bot/internal/charset"
	"github.com/rmathena79/breaker-bot/internal/cipher"
	"github.com/rmathena79/breaker-bot/internal/predictor"
	"github.com/rmathena79/breaker-bot/internal/scaler"
)

// Relative letter frequencies of English prose, in percent.
var englishLetters = map[rune]float64{
	'E': 12.70, 'T': 9.06, 'A': 8.17, 'O': 7.51, 'I': 6.97, 'N': 6.75, 'S': 6.33,
	'H': 6.09, 'R': 5.99, 'D': 4.25, 'L': 4.03, 'C': 2.78, 'U': 2.76, 'M': 2.41,
	'W': 2.36, 'F': 2.23, 'G': 2.02, 'Y': 1.97, 'P': 1.93, 'B': 1.29, 'V': 0.98,
	'K': 0.77, 'J': 0.15, 'X': 0.15, 'Q': 0.095, 'Z': 0.074,
}

const (
	shareLetters     = 0.78
	shareSpace       = 0.17
	sharePunctuation = 0.04
	floorProbability = 1e-4
)

// Predictor estimates Caesar keys from symbol statistics.
type Predictor struct {
	set    *charset.Set
	params *scaler.Params
	expect []float64
}

// New returns a Predictor for chunks over set that were scaled with params.
// A nil params means requests carry raw offsets.
func New(set *charset.Set, params *scaler.Params) *Predictor {
	if set == nil {
		set = charset.Default
	}
	return &Predictor{set: set, params: params, expect: expectedDistribution(set)}
}

func expectedDistribution(set *charset.Set) []float64 {
	symbols := []rune(set.String())
	p := make([]float64, len(symbols))

	punct := 0
	for _, r := range symbols {
		if r == '.' || r == ',' || r == '\n' || r == '\'' {
			punct++
		}
	}

	total := 0.0
	for i, r := range symbols {
		switch {
		case englishLetters[unicode.ToUpper(r)] > 0:
			p[i] = shareLetters * englishLetters[unicode.ToUpper(r)] / 100
		case r == ' ':
			p[i] = shareSpace
		case r == '.' || r == ',' || r == '\n' || r == '\'':
			p[i] = sharePunctuation / float64(punct)
		}
		if p[i] < floorProbability {
			p[i] = floorProbability
		}
		total += p[i]
	}
	for i := range p {
		p[i] /= total
	}
	return p
}

// Predict implements predictor.Predictor.
func (p *Predictor) Predict(ctx context.Context, req predictor.Request) (aggregate.Batch, error) {
	if err := predictor.ValidateRequest(req); err != nil {
		return aggregate.Batch{}, err
	}
	if p.params != nil && p.params.Len() != req.ChunkSize() {
		return aggregate.Batch{}, fmt.Errorf("%w: chunk size %d, scaler fitted for %d", predictor.ErrBadRequest, req.ChunkSize(), p.params.Len())
	}

	batch := aggregate.Batch{Mode: req.Mode, Predictions: make([][][]float64, len(req.Chunks))}
	for i, scaled := range req.Chunks {
		if err := ctx.Err(); err != nil {
			return aggregate.Batch{}, err
		}
		offsets, err := p.unscale(scaled)
		if err != nil {
			return aggregate.Batch{}, err
		}
		keys := p.runningKeys(offsets)
		if req.Mode == aggregate.ModeKey {
			batch.Predictions[i] = keyMatrix(keys)
		} else {
			batch.Predictions[i] = p.textMatrix(offsets, keys)
		}
	}
	return batch, nil
}

// EstimateKey returns the Caesar key whose decryption of offsets looks most
// like English.
func (p *Predictor) EstimateKey(offsets []int) int {
	n := p.set.Size()
	counts := make([]float64, n)
	best, bestScore := 1, math.Inf(1)
	for k := 1; k < n; k++ {
		clear(counts)
		for _, o := range offsets {
			counts[((o-k)%n+n)%n]++
		}
		if score := p.chiSquared(counts, float64(len(offsets))); score < bestScore {
			best, bestScore = k, score
		}
	}
	return best
}

func (p *Predictor) chiSquared(counts []float64, total float64) float64 {
	score := 0.0
	for i, observed := range counts {
		expected := total * p.expect[i]
		d := observed - expected
		score += d * d / expected
	}
	return score
}

// runningKeys estimates a key from every prefix of offsets, mirroring the
// model's refinement steps.
func (p *Predictor) runningKeys(offsets []int) []int {
	keys := make([]int, len(offsets))
	for j := range offsets {
		keys[j] = p.EstimateKey(offsets[:j+1])
	}
	return keys
}

func (p *Predictor) unscale(scaled []float64) ([]int, error) {
	raw := scaled
	if p.params != nil {
		var err error
		if raw, err = p.params.InverseTransform(scaled); err != nil {
			return nil, fmt.Errorf("%w: %v", predictor.ErrBadRequest, err)
		}
	}
	n := p.set.Size()
	out := make([]int, len(raw))
	for i, v := range raw {
		r := math.RoundToEven(v)
		if r < 0 || r >= float64(n) {
			return nil, fmt.Errorf("%w: value %v at %d is not an offset", predictor.ErrBadRequest, v, i)
		}
		out[i] = int(r)
	}
	return out, nil
}

func keyMatrix(keys []int) [][]float64 {
	m := make([][]float64, len(keys))
	for j, k := range keys {
		m[j] = []float64{float64(k)}
	}
	return m
}

// textMatrix decodes the chunk under every running key: column j holds the
// chunk as read with keys[j].
func (p *Predictor) textMatrix(offsets, keys []int) [][]float64 {
	n := p.set.Size()
	size := len(offsets)
	m := make([][]float64, size)
	for r := range m {
		m[r] = make([]float64, size)
	}
	for j, k := range keys {
		plain, err := cipher.DecodeCaesar(offsets, cipher.CaesarKey(k), n)
		if err != nil {
			continue
		}
		for r, v := range plain {
			m[r][j] = float64(v)
		}
	}
	return m
}

var _ predictor.Predictor = (*Predictor)(nil)
