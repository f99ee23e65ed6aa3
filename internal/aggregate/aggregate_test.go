package aggregate

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rmathena79/breaker-bot/internal/charset"
	"github.com/rmathena79/breaker-bot/internal/chunk"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// textMatrix builds a size x size prediction whose last column holds want
// plus a little noise and whose earlier columns are garbage.
func textMatrix(want []int, noise float64) [][]float64 {
	size := len(want)
	m := make([][]float64, size)
	for r := range m {
		m[r] = make([]float64, size)
		for c := 0; c < size-1; c++ {
			m[r][c] = float64(40 + c)
		}
		m[r][size-1] = float64(want[r]) + noise
	}
	return m
}

func keyMatrix(steps ...float64) [][]float64 {
	m := make([][]float64, len(steps))
	for i, v := range steps {
		m[i] = []float64{v}
	}
	return m
}

func textBatch(t *testing.T, plaintext string, size int) (Batch, chunk.Sequence) {
	t.Helper()
	codec := charset.NewCodec(charset.Default)
	offsets, err := codec.Encode(plaintext)
	require.NoError(t, err)
	layout, err := chunk.Split(offsets, size)
	require.NoError(t, err)

	batch := Batch{Mode: ModeText}
	for i, c := range layout.Chunks {
		noise := 0.3
		if i%2 == 1 {
			noise = -0.4
		}
		batch.Predictions = append(batch.Predictions, textMatrix(c.Values, noise))
	}
	return batch, layout
}

func TestTextPolicies(t *testing.T) {
	ctx := context.Background()
	batch, layout := textBatch(t, "ABCDEFG", 2)

	got, err := Text(ctx, batch, layout, nil)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFG", got)

	naive, err := Text(ctx, batch, layout, nil, WithTextPolicy(NaiveConcat))
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFFG", naive, "naive concatenation repeats the tail overlap")
}

func TestTextLongerInput(t *testing.T) {
	const plain = "IT WAS THE BEST OF TIMES, IT WAS THE WORST OF TIMES.\n"
	for _, size := range []int{1, 5, 7, 16, len([]rune(plain))} {
		batch, layout := textBatch(t, plain, size)
		got, err := Text(context.Background(), batch, layout, nil, WithParallelism(3))
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, plain, got, "size %d", size)
	}
}

func TestTextClampsOffsets(t *testing.T) {
	layout, err := chunk.Split([]int{0, 0}, 2)
	require.NoError(t, err)
	batch := Batch{Mode: ModeText, Predictions: [][][]float64{
		{{0, -3.2}, {0, 99}},
	}}

	got, err := Text(context.Background(), batch, layout, nil)
	require.NoError(t, err)
	assert.Equal(t, "A\n", got)
}

func TestTextClampsBeyondIntRange(t *testing.T) {
	layout, err := chunk.Split([]int{0, 0}, 2)
	require.NoError(t, err)
	batch := Batch{Mode: ModeText, Predictions: [][][]float64{
		{{0, 1e20}, {0, -1e20}},
	}}

	got, err := Text(context.Background(), batch, layout, nil)
	require.NoError(t, err)
	assert.Equal(t, "\nA", got)
}

func TestTextRoundsHalfToEven(t *testing.T) {
	layout, err := chunk.Split([]int{0, 0, 0}, 3)
	require.NoError(t, err)
	batch := Batch{Mode: ModeText, Predictions: [][][]float64{
		{{0, 0, 0.5}, {0, 0, 1.5}, {0, 0, 2.5}},
	}}

	offsets, err := TextOffsets(context.Background(), batch, layout, charset.Default.Size())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 2}, offsets)
}

func TestTextMalformed(t *testing.T) {
	ctx := context.Background()
	batch, layout := textBatch(t, "ABCDEFG", 2)
	batch.Predictions[1][0][1] = math.NaN()

	_, err := Text(ctx, batch, layout, nil)
	assert.ErrorIs(t, err, ErrMalformedPrediction)

	trimmed, err := Text(ctx, batch, layout, nil, WithTolerateMalformed())
	require.NoError(t, err)
	assert.Equal(t, "ABEFG", trimmed)

	naive, err := Text(ctx, batch, layout, nil, WithTolerateMalformed(), WithTextPolicy(NaiveConcat))
	require.NoError(t, err)
	assert.Equal(t, "ABEFFG", naive)
}

func TestTextShapeErrors(t *testing.T) {
	ctx := context.Background()
	batch, layout := textBatch(t, "ABCDEFG", 2)

	short := batch
	short.Predictions = batch.Predictions[:3]
	_, err := Text(ctx, short, layout, nil, WithTolerateMalformed())
	assert.ErrorIs(t, err, ErrMalformedPrediction, "chunk count mismatch is never tolerated")

	ragged := Batch{Mode: ModeText, Predictions: [][][]float64{{{1, 2}, {3}}, {{1, 2}, {3, 4}}, {{1, 2}, {3, 4}}, {{1, 2}, {3, 4}}}}
	_, err = Text(ctx, ragged, layout, nil)
	assert.ErrorIs(t, err, ErrMalformedPrediction)

	keyBatch := Batch{Mode: ModeKey, Predictions: batch.Predictions}
	_, err = Text(ctx, keyBatch, layout, nil)
	assert.ErrorIs(t, err, ErrUnsupportedAggregation)

	all := Batch{Mode: ModeText, Predictions: [][][]float64{{{math.Inf(1)}}}}
	one, err := chunk.Split([]int{5}, 1)
	require.NoError(t, err)
	_, err = Text(ctx, all, one, nil, WithTolerateMalformed())
	assert.ErrorIs(t, err, ErrMalformedPrediction)
}

func TestKeyMedianVote(t *testing.T) {
	batch := Batch{Mode: ModeKey}
	for _, v := range []float64{3, 3, 3, 9, 3} {
		batch.Predictions = append(batch.Predictions, keyMatrix(17, 11.5, v))
	}

	k, err := Key(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 3, k)
}

func TestKeyEvenVoteCountRoundsHalfToEven(t *testing.T) {
	tests := []struct {
		votes []float64
		want  int
	}{
		{[]float64{2, 3}, 2},
		{[]float64{3, 4}, 4},
		{[]float64{1, 2, 4, 7}, 3},
	}
	for _, tt := range tests {
		batch := Batch{Mode: ModeKey}
		for _, v := range tt.votes {
			batch.Predictions = append(batch.Predictions, keyMatrix(v))
		}
		k, err := Key(context.Background(), batch)
		require.NoError(t, err, "votes %v", tt.votes)
		assert.Equal(t, tt.want, k, "votes %v", tt.votes)
	}
}

func TestKeyRejectsUnrepresentableMedian(t *testing.T) {
	for _, v := range []float64{1e20, -1e20} {
		batch := Batch{Mode: ModeKey, Predictions: [][][]float64{keyMatrix(v)}}
		_, err := Key(context.Background(), batch)
		assert.ErrorIs(t, err, ErrMalformedPrediction, "vote %v", v)
	}
}

func TestKeyMajorityBeatsOutliers(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 8))
	for trial := 0; trial < 100; trial++ {
		truth := 1 + rng.IntN(63)
		chunks := 1 + rng.IntN(20)
		majority := chunks/2 + 1

		batch := Batch{Mode: ModeKey}
		for i := 0; i < chunks; i++ {
			vote := float64(truth) + (rng.Float64()-0.5)*0.8
			if i >= majority {
				vote = rng.Float64()*1000 - 500
			}
			batch.Predictions = append(batch.Predictions, keyMatrix(0, vote))
		}
		rng.Shuffle(len(batch.Predictions), func(i, j int) {
			batch.Predictions[i], batch.Predictions[j] = batch.Predictions[j], batch.Predictions[i]
		})

		k, err := Key(context.Background(), batch, WithParallelism(4))
		require.NoError(t, err)
		require.Equal(t, truth, k, "trial %d with %d chunks", trial, chunks)
	}
}

func TestKeyRejectsPermutationVotes(t *testing.T) {
	batch := Batch{Mode: ModeKey, Predictions: [][][]float64{
		keyMatrix(3),
		{{1, 2, 0}},
	}}
	_, err := Key(context.Background(), batch, WithTolerateMalformed())
	assert.ErrorIs(t, err, ErrUnsupportedAggregation)

	_, err = KeyFor(context.Background(), "substitution", Batch{Mode: ModeKey, Predictions: [][][]float64{keyMatrix(3)}})
	assert.ErrorIs(t, err, ErrUnsupportedAggregation)

	k, err := KeyFor(context.Background(), "Caesar Cipher", Batch{Mode: ModeKey, Predictions: [][][]float64{keyMatrix(2.6)}})
	require.NoError(t, err)
	assert.Equal(t, 3, k)
}

func TestKeyMalformed(t *testing.T) {
	batch := Batch{Mode: ModeKey, Predictions: [][][]float64{
		keyMatrix(7),
		keyMatrix(math.NaN()),
		{},
		keyMatrix(7),
		keyMatrix(8),
	}}

	_, err := Key(context.Background(), batch)
	assert.ErrorIs(t, err, ErrMalformedPrediction)

	k, err := Key(context.Background(), batch, WithTolerateMalformed())
	require.NoError(t, err)
	assert.Equal(t, 7, k)

	_, err = Key(context.Background(), Batch{Mode: ModeKey})
	assert.ErrorIs(t, err, ErrMalformedPrediction)
}

func TestKeyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Key(ctx, Batch{Mode: ModeKey, Predictions: [][][]float64{keyMatrix(1)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, Median([]float64{9, 3, 1}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(Median(nil)))

	in := []float64{3, 1, 2}
	Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in, "median must not reorder its input")
}

func TestParse(t *testing.T) {
	m, err := ParseMode("key")
	require.NoError(t, err)
	assert.Equal(t, ModeKey, m)
	_, err = ParseMode("perm")
	assert.ErrorIs(t, err, ErrUnsupportedAggregation)

	p, err := ParseTextPolicy("naive")
	require.NoError(t, err)
	assert.Equal(t, NaiveConcat, p)
	assert.Equal(t, "trim", TrimOverlap.String())
	_, err = ParseTextPolicy("zip")
	assert.Error(t, err)
}
