package charset

import "strings"

// Option configures a Codec.
type Option func(*Codec)

// WithLenient makes Encode report Unknown for characters outside the alphabet
// instead of failing. Decode stays strict.
func WithLenient() Option {
	return func(c *Codec) { c.lenient = true }
}

// Codec converts between text and offsets. It is safe for concurrent use.
type Codec struct {
	set     *Set
	lenient bool
}

// NewCodec returns a strict codec over set unless WithLenient is given.
func NewCodec(set *Set, opts ...Option) *Codec {
	if set == nil {
		set = Default
	}
	c := &Codec{set: set}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set returns the alphabet the codec operates over.
func (c *Codec) Set() *Set { return c.set }

// Size is shorthand for Set().Size().
func (c *Codec) Size() int { return c.set.Size() }

// Lenient reports whether unknown characters are mapped to Unknown.
func (c *Codec) Lenient() bool { return c.lenient }

// Encode maps each character of text to its offset.
func (c *Codec) Encode(text string) ([]int, error) {
	offsets := make([]int, 0, len(text))
	pos := 0
	for _, r := range text {
		off, ok := c.set.index[r]
		if !ok {
			if !c.lenient {
				return nil, &UnknownCharacterError{Char: r, Position: pos}
			}
			off = Unknown
		}
		offsets = append(offsets, off)
		pos++
	}
	return offsets, nil
}

// Decode maps offsets back to text. Unknown is rejected like any other
// out-of-range value.
func (c *Codec) Decode(offsets []int) (string, error) {
	var b strings.Builder
	b.Grow(len(offsets))
	n := len(c.set.symbols)
	for i, off := range offsets {
		if off < 0 || off >= n {
			return "", &OffsetError{Offset: off, Position: i, Size: n}
		}
		b.WriteRune(c.set.symbols[off])
	}
	return b.String(), nil
}

// Validate checks that every offset lies in [0, N-1].
func (c *Codec) Validate(offsets []int) error {
	n := len(c.set.symbols)
	for i, off := range offsets {
		if off < 0 || off >= n {
			return &OffsetError{Offset: off, Position: i, Size: n}
		}
	}
	return nil
}
