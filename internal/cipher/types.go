// Package cipher provides classical cipher transforms over charset offsets.
package cipher

import (
	"errors"

	"github.com/rmathena79/breaker-bot/internal/charset"
)

var (
	// ErrKeyOutOfRange reports a Caesar key outside [1, N-1].
	ErrKeyOutOfRange = errors.New("key out of range")
	// ErrInvalidPermutation reports a substitution key that is not a bijection over 0..N-1.
	ErrInvalidPermutation = errors.New("invalid permutation")
	// ErrRoundTripMismatch reports decode(encode(x)) != x. It always indicates a
	// bug in a cipher implementation and must never be ignored.
	ErrRoundTripMismatch = errors.New("round trip mismatch")
	// ErrKeySpaceExhausted reports that no unused key could be found.
	ErrKeySpaceExhausted = errors.New("key space exhausted")
	// ErrKeyMismatch reports a key variant that does not belong to the cipher.
	ErrKeyMismatch = errors.New("key does not match cipher")
	// ErrUnknownCipher reports a cipher name missing from the registry.
	ErrUnknownCipher = errors.New("unknown cipher")
)

// KeyKind names the shape of a cipher's key. Values match the key type names
// stored alongside generated keys.
type KeyKind string

const (
	KeyKindNone   KeyKind = "None"
	KeyKindOffset KeyKind = "Character Offset"
	KeyKindMap    KeyKind = "Character Map"
)

// Key is the secret parameter of a cipher.
type Key interface {
	Kind() KeyKind
	String() string
}

// Rand is the randomness a cipher needs for key generation. *math/rand/v2.Rand
// satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Cipher is a reversible transform over offsets in [0, n-1].
type Cipher interface {
	// Name returns the unique registry identifier.
	Name() string

	// DisplayName returns the human readable cipher name.
	DisplayName() string

	// KeyKind returns the shape of keys this cipher accepts.
	KeyKind() KeyKind

	// Description returns a short description.
	Description() string

	// GenerateKey draws a fresh random key for an alphabet of size n.
	GenerateKey(rng Rand, n int) (Key, error)

	// ValidateKey checks that key is usable with an alphabet of size n.
	ValidateKey(key Key, n int) error

	// ParseKey reads the textual key form produced by FormatKey.
	ParseKey(text string, set *charset.Set) (Key, error)

	// FormatKey renders key in its textual form.
	FormatKey(key Key, set *charset.Set) (string, error)

	// Encode enciphers offsets.
	Encode(offsets []int, key Key, n int) ([]int, error)

	// Decode reverses Encode.
	Decode(offsets []int, key Key, n int) ([]int, error)
}

// FiniteKeySpace is implemented by ciphers whose key space can be enumerated.
type FiniteKeySpace interface {
	Keys(n int) []Key
}

// BaseCipher provides the descriptive half of Cipher.
type BaseCipher struct {
	NameValue        string
	DisplayNameValue string
	KeyKindValue     KeyKind
	DescriptionValue string
}

func (b *BaseCipher) Name() string {
	return b.NameValue
}

func (b *BaseCipher) DisplayName() string {
	return b.DisplayNameValue
}

func (b *BaseCipher) KeyKind() KeyKind {
	return b.KeyKindValue
}

func (b *BaseCipher) Description() string {
	return b.DescriptionValue
}

func checkOffsets(offsets []int, n int) error {
	for i, off := range offsets {
		if off < 0 || off >= n {
			return &charset.OffsetError{Offset: off, Position: i, Size: n}
		}
	}
	return nil
}
