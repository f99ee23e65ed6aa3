package cipher

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rmathena79/breaker-bot/internal/charset"
)

// NoKey is the key of the identity cipher.
type NoKey struct{}

func (NoKey) Kind() KeyKind { return KeyKindNone }

func (NoKey) String() string { return "" }

// Identity leaves offsets untouched. It gives plaintext corpora the same
// handling as enciphered ones.
type Identity struct {
	BaseCipher
}

// NewIdentity returns the identity cipher.
func NewIdentity() *Identity {
	return &Identity{BaseCipher: BaseCipher{
		NameValue:        "none",
		DisplayNameValue: "None",
		KeyKindValue:     KeyKindNone,
		DescriptionValue: "Leave text unchanged",
	}}
}

func (c *Identity) GenerateKey(Rand, int) (Key, error) { return NoKey{}, nil }

func (c *Identity) ValidateKey(key Key, _ int) error {
	if _, ok := key.(NoKey); !ok && key != nil {
		return fmt.Errorf("%w: identity cipher takes no key, got %T", ErrKeyMismatch, key)
	}
	return nil
}

func (c *Identity) ParseKey(text string, _ *charset.Set) (Key, error) {
	if strings.TrimSpace(text) != "" {
		return nil, fmt.Errorf("%w: identity cipher takes no key", ErrKeyMismatch)
	}
	return NoKey{}, nil
}

func (c *Identity) FormatKey(key Key, _ *charset.Set) (string, error) {
	return "", c.ValidateKey(key, 0)
}

func (c *Identity) Encode(offsets []int, key Key, n int) ([]int, error) {
	if err := c.ValidateKey(key, n); err != nil {
		return nil, err
	}
	if err := checkOffsets(offsets, n); err != nil {
		return nil, err
	}
	return append([]int(nil), offsets...), nil
}

func (c *Identity) Decode(offsets []int, key Key, n int) ([]int, error) {
	return c.Encode(offsets, key, n)
}

func (c *Identity) Keys(int) []Key { return []Key{NoKey{}} }

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

func randOrDefault(rng Rand) Rand {
	if rng == nil {
		return globalRand{}
	}
	return rng
}
