// Package charset maps text to integer offsets over a fixed, ordered alphabet
// and back again.
package charset

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultSymbols is the 62 symbol alphabet shared by every cipher and model in
// breaker-bot. Newline is the last symbol.
const DefaultSymbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890-=`!#$%&*()+[];':\",./<>? \n"

// Unknown is the offset reported for characters outside the alphabet when a
// codec runs in lenient mode. It is never a valid payload value.
const Unknown = -1

var (
	// ErrUnknownCharacter reports a character that is not part of the alphabet.
	ErrUnknownCharacter = errors.New("unknown character")
	// ErrOffsetOutOfRange reports an offset outside [0, N-1].
	ErrOffsetOutOfRange = errors.New("offset out of range")
	// ErrInvalidAlphabet reports an alphabet with duplicates or fewer than two symbols.
	ErrInvalidAlphabet = errors.New("invalid alphabet")
)

// UnknownCharacterError carries the offending character and its rune position.
type UnknownCharacterError struct {
	Char     rune
	Position int
}

func (e *UnknownCharacterError) Error() string {
	return fmt.Sprintf("%v: %q at position %d", ErrUnknownCharacter, e.Char, e.Position)
}

func (e *UnknownCharacterError) Unwrap() error { return ErrUnknownCharacter }

// OffsetError carries the offending offset, its position and the alphabet size.
type OffsetError struct {
	Offset   int
	Position int
	Size     int
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("%v: %d at position %d (alphabet size %d)", ErrOffsetOutOfRange, e.Offset, e.Position, e.Size)
}

func (e *OffsetError) Unwrap() error { return ErrOffsetOutOfRange }

// Set is an immutable ordered alphabet. The position of a symbol is its offset.
type Set struct {
	symbols []rune
	index   map[rune]int
}

// Default is the Set built from DefaultSymbols.
var Default = MustNew(DefaultSymbols)

// New builds a Set from the runes of symbols.
func New(symbols string) (*Set, error) {
	runes := []rune(symbols)
	if len(runes) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 symbols, got %d", ErrInvalidAlphabet, len(runes))
	}
	index := make(map[rune]int, len(runes))
	for i, r := range runes {
		if prev, dup := index[r]; dup {
			return nil, fmt.Errorf("%w: symbol %q repeated at positions %d and %d", ErrInvalidAlphabet, r, prev, i)
		}
		index[r] = i
	}
	return &Set{symbols: runes, index: index}, nil
}

// MustNew is like New but panics on an invalid alphabet.
func MustNew(symbols string) *Set {
	s, err := New(symbols)
	if err != nil {
		panic(err)
	}
	return s
}

// Size returns N, the number of symbols.
func (s *Set) Size() int { return len(s.symbols) }

// String returns the alphabet in offset order.
func (s *Set) String() string { return string(s.symbols) }

// Offset returns the offset of r and whether r belongs to the alphabet.
func (s *Set) Offset(r rune) (int, bool) {
	off, ok := s.index[r]
	return off, ok
}

// Symbol returns the symbol at offset.
func (s *Set) Symbol(offset int) (rune, error) {
	if offset < 0 || offset >= len(s.symbols) {
		return 0, &OffsetError{Offset: offset, Position: 0, Size: len(s.symbols)}
	}
	return s.symbols[offset], nil
}

// Contains reports whether every character of text is in the alphabet.
func (s *Set) Contains(text string) bool {
	for _, r := range text {
		if _, ok := s.index[r]; !ok {
			return false
		}
	}
	return true
}

// Filter returns text with every character outside the alphabet removed.
func (s *Set) Filter(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if _, ok := s.index[r]; ok {
			b.WriteRune(r)
		}
	}
	return b.String()
}
