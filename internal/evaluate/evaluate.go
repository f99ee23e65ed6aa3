// Package evaluate scores predictions against ground truth on the cyclic
// offset scale, where 0 and N-1 are neighbours.
package evaluate

import (
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch is returned when truth and prediction differ in length.
var ErrLengthMismatch = errors.New("length mismatch")

// ModuloDistance is the distance between a and b going the short way round
// a circle of n offsets. The result lies in [0, n/2].
func ModuloDistance(a, b float64, n int) float64 {
	m := floorMod(math.Abs(a-b), float64(n))
	return math.Min(m, float64(n)-m)
}

// KeyError is ModuloDistance for integer keys.
func KeyError(truth, predicted, n int) int {
	return int(ModuloDistance(float64(truth), float64(predicted), n))
}

// DistanceLoss is the mean ModuloDistance over paired values.
func DistanceLoss(truth, pred []float64, n int) (float64, error) {
	if err := checkPair(truth, pred, n); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range truth {
		sum += ModuloDistance(truth[i], pred[i], n)
	}
	return sum / float64(len(truth)), nil
}

// DistanceAccuracy is one minus the mean distance as a share of the largest
// possible distance n/2. Perfect predictions score 1, maximally wrong ones 0.
func DistanceAccuracy(truth, pred []float64, n int) (float64, error) {
	loss, err := DistanceLoss(truth, pred, n)
	if err != nil {
		return 0, err
	}
	half := float64(n) / 2
	return (half - loss) / half, nil
}

// RoundedAccuracy is the share of positions that agree after both sides are
// rounded half to even and reduced modulo n.
func RoundedAccuracy(truth, pred []float64, n int) (float64, error) {
	if err := checkPair(truth, pred, n); err != nil {
		return 0, err
	}
	hits := 0
	for i := range truth {
		t := floorMod(math.RoundToEven(truth[i]), float64(n))
		p := floorMod(math.RoundToEven(pred[i]), float64(n))
		if t == p {
			hits++
		}
	}
	return float64(hits) / float64(len(truth)), nil
}

// CharacterAccuracy is the share of rune positions where guess matches
// truth. Missing or extra runes in guess count as misses.
func CharacterAccuracy(truth, guess string) float64 {
	t, g := []rune(truth), []rune(guess)
	total := max(len(t), len(g))
	if total == 0 {
		return 1
	}
	hits := 0
	for i := 0; i < min(len(t), len(g)); i++ {
		if t[i] == g[i] {
			hits++
		}
	}
	return float64(hits) / float64(total)
}

// Offsets converts integer offsets for use with the float metrics.
func Offsets(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

func checkPair(truth, pred []float64, n int) error {
	if n < 1 {
		return fmt.Errorf("modulus must be positive, got %d", n)
	}
	if len(truth) != len(pred) {
		return fmt.Errorf("%w: %d truth values, %d predictions", ErrLengthMismatch, len(truth), len(pred))
	}
	if len(truth) == 0 {
		return fmt.Errorf("%w: nothing to compare", ErrLengthMismatch)
	}
	return nil
}

func floorMod(x, n float64) float64 {
	m := math.Mod(x, n)
	if m < 0 {
		m += n
	}
	return m
}
