package cipher

import (
	"fmt"
)

// Step is one cipher application in a pipeline. Key holds the cipher's
// textual key form so that pipelines can be stored as JSON.
type Step struct {
	Cipher string `json:"cipher"`
	Key    string `json:"key,omitempty"`
}

// Pipeline represents a chain of ciphers applied in order. Decoding walks the
// chain backwards.
type Pipeline struct {
	Steps []Step `json:"steps"`
}

type boundStep struct {
	cipher Cipher
	key    Key
}

func (p *Pipeline) bind(e *Engine) ([]boundStep, error) {
	bound := make([]boundStep, len(p.Steps))
	for i, step := range p.Steps {
		c, err := Lookup(step.Cipher)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		key, err := c.ParseKey(step.Key, e.codec.Set())
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Cipher, err)
		}
		bound[i] = boundStep{cipher: c, key: key}
	}
	return bound, nil
}

// Encode runs every step forward over offsets, checking each step's round trip
func (p *Pipeline) Encode(e *Engine, offsets []int) ([]int, error) {
	steps, err := p.bind(e)
	if err != nil {
		return nil, err
	}

	result := offsets
	for i, s := range steps {
		result, err = encodeChecked(s.cipher, result, s.key, e.codec.Size())
		if err != nil {
			return nil, fmt.Errorf("cipher %s failed at step %d: %w", s.cipher.Name(), i, err)
		}
	}
	return result, nil
}

// Decode runs every step's inverse in reverse order
func (p *Pipeline) Decode(e *Engine, offsets []int) ([]int, error) {
	steps, err := p.bind(e)
	if err != nil {
		return nil, err
	}

	result := offsets
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		result, err = s.cipher.Decode(result, s.key, e.codec.Size())
		if err != nil {
			return nil, fmt.Errorf("cipher %s failed at step %d: %w", s.cipher.Name(), i, err)
		}
	}
	return result, nil
}

// EncodeText is Encode over text.
func (p *Pipeline) EncodeText(e *Engine, plaintext string) (string, error) {
	offsets, err := e.codec.Encode(plaintext)
	if err != nil {
		return "", err
	}
	out, err := p.Encode(e, offsets)
	if err != nil {
		return "", err
	}
	return e.codec.Decode(out)
}

// DecodeText is Decode over text.
func (p *Pipeline) DecodeText(e *Engine, ciphertext string) (string, error) {
	offsets, err := e.codec.Encode(ciphertext)
	if err != nil {
		return "", err
	}
	out, err := p.Decode(e, offsets)
	if err != nil {
		return "", err
	}
	return e.codec.Decode(out)
}
