package cipher

import (
	"fmt"
	"slices"

	"github.com/rmathena79/breaker-bot/internal/charset"
)

// Engine binds the registered ciphers to one alphabet and checks every
// encryption by decoding it again.
type Engine struct {
	codec *charset.Codec
	rng   Rand
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRand sets the randomness used for key generation.
func WithRand(rng Rand) EngineOption {
	return func(e *Engine) { e.rng = rng }
}

// NewEngine returns an Engine over codec's alphabet.
func NewEngine(codec *charset.Codec, opts ...EngineOption) *Engine {
	if codec == nil {
		codec = charset.NewCodec(charset.Default)
	}
	e := &Engine{codec: codec}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Codec returns the codec the engine was built with.
func (e *Engine) Codec() *charset.Codec { return e.codec }

// GenerateKey draws a new key for the named cipher.
func (e *Engine) GenerateKey(name string) (Key, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.GenerateKey(e.rng, e.codec.Size())
}

// ParseKey reads the textual form of a key for the named cipher.
func (e *Engine) ParseKey(name, text string) (Key, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.ParseKey(text, e.codec.Set())
}

// FormatKey renders key in the named cipher's textual form.
func (e *Engine) FormatKey(name string, key Key) (string, error) {
	c, err := Lookup(name)
	if err != nil {
		return "", err
	}
	return c.FormatKey(key, e.codec.Set())
}

// Encode enciphers offsets and verifies that decoding restores them.
func (e *Engine) Encode(name string, offsets []int, key Key) ([]int, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return encodeChecked(c, offsets, key, e.codec.Size())
}

// Decode deciphers offsets.
func (e *Engine) Decode(name string, offsets []int, key Key) ([]int, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.Decode(offsets, key, e.codec.Size())
}

// EncodeText enciphers plaintext into ciphertext.
func (e *Engine) EncodeText(name, plaintext string, key Key) (string, error) {
	offsets, err := e.codec.Encode(plaintext)
	if err != nil {
		return "", err
	}
	out, err := e.Encode(name, offsets, key)
	if err != nil {
		return "", err
	}
	return e.codec.Decode(out)
}

// DecodeText deciphers ciphertext into plaintext.
func (e *Engine) DecodeText(name, ciphertext string, key Key) (string, error) {
	offsets, err := e.codec.Encode(ciphertext)
	if err != nil {
		return "", err
	}
	out, err := e.Decode(name, offsets, key)
	if err != nil {
		return "", err
	}
	return e.codec.Decode(out)
}

func encodeChecked(c Cipher, offsets []int, key Key, n int) ([]int, error) {
	out, err := c.Encode(offsets, key, n)
	if err != nil {
		return nil, err
	}
	back, err := c.Decode(out, key, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %s decode failed: %v", ErrRoundTripMismatch, c.Name(), err)
	}
	if !slices.Equal(back, offsets) {
		return nil, fmt.Errorf("%w: %s with key %s", ErrRoundTripMismatch, c.Name(), key)
	}
	return out, nil
}
