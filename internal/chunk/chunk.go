// Package chunk splits offset sequences into fixed-size windows and puts them
// back together.
//
// A sequence of length L cut into windows of size c yields ceil(L/c) windows.
// Windows are taken back to back from the start. When c does not divide L the
// last window is pulled back so it ends exactly at L, overlapping its
// predecessor instead of being padded:
//
//	Split("ABCDEFG", 2) -> AB CD EF FG
//
// Reassemble undoes this by keeping only the tail of the final window.
package chunk

import (
	"errors"
	"fmt"
)

var (
	// ErrChunkSizeExceedsLength is returned when a window would be longer than
	// the sequence it is cut from.
	ErrChunkSizeExceedsLength = errors.New("chunk size exceeds sequence length")
	// ErrInvalidChunkSize is returned for window sizes below one.
	ErrInvalidChunkSize = errors.New("invalid chunk size")
	// ErrLayoutMismatch is returned when windows cannot cover the requested
	// length.
	ErrLayoutMismatch = errors.New("chunk layout mismatch")
)

// Chunk is one window of a split sequence.
type Chunk struct {
	Values []int
	// Start is the index of Values[0] in the original sequence.
	Start int
	// Overlaps is set when the window shares elements with the previous one.
	Overlaps bool
}

// Sequence is the result of Split.
type Sequence struct {
	Chunks []Chunk
	Size   int
	Length int
}

// Count returns the number of windows Split produces for a sequence of the
// given length.
func Count(length, size int) int {
	if size < 1 || length < 1 {
		return 0
	}
	return (length + size - 1) / size
}

// Starts returns the start index of every window in a layout of the given
// length and size.
func Starts(length, size int) ([]int, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	if size > length {
		return nil, fmt.Errorf("%w: size %d, length %d", ErrChunkSizeExceedsLength, size, length)
	}
	n := Count(length, size)
	starts := make([]int, n)
	for i := range starts {
		start := i * size
		if start+size > length {
			start = length - size
		}
		starts[i] = start
	}
	return starts, nil
}

// Windows cuts seq into windows of size elements using the Split layout. The
// windows are copies.
func Windows[T any](seq []T, size int) ([][]T, error) {
	starts, err := Starts(len(seq), size)
	if err != nil {
		return nil, err
	}
	out := make([][]T, len(starts))
	for i, start := range starts {
		out[i] = append([]T(nil), seq[start:start+size]...)
	}
	return out, nil
}

// Split cuts seq into windows of size offsets.
func Split(seq []int, size int) (Sequence, error) {
	starts, err := Starts(len(seq), size)
	if err != nil {
		return Sequence{}, err
	}
	chunks := make([]Chunk, len(starts))
	prevEnd := 0
	for i, start := range starts {
		chunks[i] = Chunk{
			Values:   append([]int(nil), seq[start:start+size]...),
			Start:    start,
			Overlaps: i > 0 && start < prevEnd,
		}
		prevEnd = start + size
	}
	return Sequence{Chunks: chunks, Size: size, Length: len(seq)}, nil
}

// Values returns the window contents in order.
func (s Sequence) Values() [][]int {
	out := make([][]int, len(s.Chunks))
	for i, c := range s.Chunks {
		out[i] = c.Values
	}
	return out
}

// Starts returns the start index of every window in order.
func (s Sequence) Starts() []int {
	out := make([]int, len(s.Chunks))
	for i, c := range s.Chunks {
		out[i] = c.Start
	}
	return out
}

// Reassemble rebuilds the original sequence.
func (s Sequence) Reassemble() ([]int, error) {
	return Reassemble(s.Values(), s.Length)
}

// Reassemble concatenates chunks and keeps only as much of the final chunk
// as is needed to reach length.
func Reassemble(chunks [][]int, length int) ([]int, error) {
	return ReassembleWindows(chunks, length)
}

// ReassembleWindows is Reassemble for any element type.
func ReassembleWindows[T any](chunks [][]T, length int) ([]T, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrLayoutMismatch, length)
	}
	if len(chunks) == 0 {
		if length == 0 {
			return []T{}, nil
		}
		return nil, fmt.Errorf("%w: no chunks for length %d", ErrLayoutMismatch, length)
	}

	out := make([]T, 0, length)
	last := len(chunks) - 1
	for _, c := range chunks[:last] {
		out = append(out, c...)
	}
	if len(out) > length {
		return nil, fmt.Errorf("%w: %d leading values exceed length %d", ErrLayoutMismatch, len(out), length)
	}

	tail := chunks[last]
	remaining := length - len(out)
	if remaining > len(tail) {
		return nil, fmt.Errorf("%w: final chunk has %d values, %d needed", ErrLayoutMismatch, len(tail), remaining)
	}
	return append(out, tail[len(tail)-remaining:]...), nil
}
