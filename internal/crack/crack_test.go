package crack

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rmathena79/breaker-bot/internal/aggregate"
	"github.com/rmathena79/breaker-bot/internal/charset"
	"github.com/rmathena79/breaker-bot/internal/chunk"
	"github.com/rmathena79/breaker-bot/internal/cipher"
	"github.com/rmathena79/breaker-bot/internal/predictor"
	"github.com/rmathena79/breaker-bot/internal/predictor/frequency"
	"github.com/rmathena79/breaker-bot/internal/scaler"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const plaintext = "THERE WAS NO POSSIBILITY OF TAKING A WALK THAT DAY. WE HAD BEEN WANDERING, " +
	"INDEED, IN THE LEAFLESS SHRUBBERY AN HOUR IN THE MORNING; BUT SINCE DINNER THE COLD " +
	"WINTER WIND HAD BROUGHT WITH IT CLOUDS SO SOMBRE, AND A RAIN SO PENETRATING, THAT " +
	"FURTHER OUT-DOOR EXERCISE WAS NOW OUT OF THE QUESTION.\n"

func encrypt(t *testing.T, key int) string {
	t.Helper()
	ct, err := cipher.NewEngine(nil).EncodeText("caesar", plaintext, cipher.CaesarKey(key))
	require.NoError(t, err)
	return ct
}

func fittedScaler(t *testing.T, size int, texts ...string) *scaler.Params {
	t.Helper()
	codec := charset.NewCodec(charset.Default)
	var chunks [][]int
	for _, text := range texts {
		offsets, err := codec.Encode(text)
		require.NoError(t, err)
		layout, err := chunk.Split(offsets, size)
		require.NoError(t, err)
		chunks = append(chunks, layout.Values()...)
	}
	params, err := scaler.Fit(chunks)
	require.NoError(t, err)
	return params
}

func TestCrackTextAndKey(t *testing.T) {
	ct := encrypt(t, 12)
	params := fittedScaler(t, 48, ct, encrypt(t, 40))
	c, err := New(nil, frequency.New(charset.Default, params), 48, WithScaler(params), WithCipher("caesar"))
	require.NoError(t, err)

	text, err := c.CrackText(context.Background(), ct)
	require.NoError(t, err)
	assert.Equal(t, plaintext, text)

	key, err := c.CrackKey(context.Background(), ct)
	require.NoError(t, err)
	assert.Equal(t, 12, key)
}

func TestCrackWithoutScaler(t *testing.T) {
	c, err := New(nil, frequency.New(nil, nil), 32)
	require.NoError(t, err)

	key, err := c.CrackKey(context.Background(), encrypt(t, 51))
	require.NoError(t, err)
	assert.Equal(t, 51, key)
}

func TestCrackManyIsolatesFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c, err := New(nil, frequency.New(nil, nil), 32, WithParallelism(2), WithLogger(zap.New(core)))
	require.NoError(t, err)

	texts := []string{encrypt(t, 3), "not in the alphabet", encrypt(t, 9), "SHORT"}
	results := c.CrackMany(context.Background(), texts, aggregate.ModeKey)
	require.Len(t, results, 4)

	require.NoError(t, results[0].Err)
	assert.Equal(t, 3, results[0].Key)
	assert.ErrorIs(t, results[1].Err, charset.ErrUnknownCharacter)
	require.NoError(t, results[2].Err)
	assert.Equal(t, 9, results[2].Key)
	assert.ErrorIs(t, results[3].Err, chunk.ErrChunkSizeExceedsLength)

	ids := map[string]bool{}
	for _, r := range results {
		assert.NotEmpty(t, r.RunID)
		ids[r.RunID] = true
	}
	assert.Len(t, ids, 4, "every run gets its own id")

	assert.Equal(t, 2, logs.FilterMessage("crack finished").Len())
	failed := logs.FilterMessage("crack failed").All()
	require.Len(t, failed, 2)
	assert.NotEmpty(t, failed[0].ContextMap()["run_id"])
}

func TestCrackManyCancelled(t *testing.T) {
	c, err := New(nil, frequency.New(nil, nil), 8)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, r := range c.CrackMany(ctx, []string{"ABCDEFGHIJ", "KLMNOPQRST"}, aggregate.ModeText) {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestCrackKeyFailsFastForSubstitution(t *testing.T) {
	var calls atomic.Int32
	p := predictor.Func(func(context.Context, predictor.Request) (aggregate.Batch, error) {
		calls.Add(1)
		return aggregate.Batch{}, nil
	})
	c, err := New(nil, p, 4, WithCipher("substitution"))
	require.NoError(t, err)

	_, err = c.CrackKey(context.Background(), "ABCDEFGH")
	assert.ErrorIs(t, err, aggregate.ErrUnsupportedAggregation)
	assert.Zero(t, calls.Load(), "predictor must not be called")
}

func TestCrackRejectsUnknownFromLenientCodec(t *testing.T) {
	var calls atomic.Int32
	p := predictor.Func(func(context.Context, predictor.Request) (aggregate.Batch, error) {
		calls.Add(1)
		return aggregate.Batch{}, nil
	})
	lenient := charset.NewCodec(charset.Default, charset.WithLenient())
	c, err := New(lenient, p, 2)
	require.NoError(t, err)

	for _, mode := range []aggregate.Mode{aggregate.ModeText, aggregate.ModeKey} {
		res := c.CrackMany(context.Background(), []string{"AB~D"}, mode)
		require.Len(t, res, 1)
		assert.ErrorIs(t, res[0].Err, charset.ErrOffsetOutOfRange, "mode %s", mode)
	}
	assert.Zero(t, calls.Load(), "predictor must not see the unknown sentinel")
}

func TestCrackPropagatesPredictorErrors(t *testing.T) {
	p := predictor.Func(func(context.Context, predictor.Request) (aggregate.Batch, error) {
		return aggregate.Batch{}, predictor.ErrUnavailable
	})
	c, err := New(nil, p, 4)
	require.NoError(t, err)
	_, err = c.CrackText(context.Background(), "ABCDEFGH")
	assert.ErrorIs(t, err, predictor.ErrUnavailable)

	short := predictor.Func(func(_ context.Context, req predictor.Request) (aggregate.Batch, error) {
		return aggregate.Batch{Mode: req.Mode}, nil
	})
	c, err = New(nil, short, 4)
	require.NoError(t, err)
	_, err = c.CrackText(context.Background(), "ABCDEFGH")
	assert.ErrorIs(t, err, aggregate.ErrMalformedPrediction)
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, nil, 4)
	assert.Error(t, err)

	_, err = New(nil, frequency.New(nil, nil), 0)
	assert.ErrorIs(t, err, chunk.ErrInvalidChunkSize)

	_, err = New(nil, frequency.New(nil, nil), 4, WithScaler(scaler.Identity(8)))
	assert.ErrorIs(t, err, scaler.ErrDimensionMismatch)
}
