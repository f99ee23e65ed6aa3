package cipher

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rmathena79/breaker-bot/internal/charset"
)

func TestPipelineExecution(t *testing.T) {
	engine := NewEngine(charset.NewCodec(charset.Default))

	tests := []struct {
		name     string
		steps    []Step
		input    string
		expected string
	}{
		{
			name:     "single step",
			steps:    []Step{{Cipher: "caesar", Key: "3"}},
			input:    "ABCDEFG\n",
			expected: "DEFGHIJC",
		},
		{
			name:     "shifts compose",
			steps:    []Step{{Cipher: "caesar", Key: "3"}, {Cipher: "caesar", Key: "4"}},
			input:    "ABCDEFG\n",
			expected: "HIJKLMNG",
		},
		{
			name:     "identity",
			steps:    []Step{{Cipher: "none"}},
			input:    "HELLO, WORLD",
			expected: "HELLO, WORLD",
		},
		{
			name:  "product cipher",
			steps: []Step{{Cipher: "caesar", Key: "11"}, {Cipher: "Substitution Cipher", Key: reversedAlphabet()}},
			input: "ATTACK AT DAWN\n",
		},
		{
			name:     "empty pipeline",
			input:    "UNCHANGED",
			expected: "UNCHANGED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Pipeline{Steps: tt.steps}

			ct, err := p.EncodeText(engine, tt.input)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			if tt.expected != "" && ct != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, ct)
			}

			pt, err := p.DecodeText(engine, ct)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if pt != tt.input {
				t.Errorf("round trip: expected %q, got %q", tt.input, pt)
			}
		})
	}
}

func TestPipelineBindErrors(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name  string
		steps []Step
		want  error
	}{
		{"unknown cipher", []Step{{Cipher: "enigma", Key: "AAA"}}, ErrUnknownCipher},
		{"caesar key zero", []Step{{Cipher: "caesar", Key: "0"}}, ErrKeyOutOfRange},
		{"bad character map", []Step{{Cipher: "substitution", Key: "ABC"}}, ErrInvalidPermutation},
		{"key on identity", []Step{{Cipher: "none", Key: "5"}}, ErrKeyMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Pipeline{Steps: tt.steps}
			if _, err := p.EncodeText(engine, "ABC"); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPipelineJSON(t *testing.T) {
	raw := `{"steps":[{"cipher":"caesar","key":"3"},{"cipher":"none"}]}`

	var p Pipeline
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(p.Steps) != 2 || p.Steps[0].Cipher != "caesar" || p.Steps[1].Key != "" {
		t.Fatalf("unexpected pipeline: %+v", p)
	}

	ct, err := p.EncodeText(NewEngine(nil), "ABCDEFG\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if ct != "DEFGHIJC" {
		t.Errorf("expected DEFGHIJC, got %q", ct)
	}
}

func reversedAlphabet() string {
	r := []rune(charset.DefaultSymbols)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
