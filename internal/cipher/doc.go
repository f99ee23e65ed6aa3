// Package cipher provides classical cipher transforms over charset offsets.
//
// # Overview
//
// Ciphers here are deliberately weak, pedagogical ciphers used to build
// training and test corpora for the cracking models:
//   - caesar: shift every offset by a key in [1, N-1]
//   - substitution: map every offset through a permutation of 0..N-1
//   - none: identity, for plaintext corpora
//
// # Quick Start
//
//	engine := cipher.NewEngine(charset.NewCodec(charset.Default))
//
//	ct, _ := engine.EncodeText("caesar", "ABCDEFG\n", cipher.CaesarKey(3))
//	// ct: "DEFGHIJC"
//
//	pt, _ := engine.DecodeText("caesar", ct, cipher.CaesarKey(3))
//	// pt: "ABCDEFG\n"
//
// Every Engine.Encode decodes its own output again and returns
// ErrRoundTripMismatch if the original offsets do not come back.
//
// # Keys
//
// Keys have a textual form so they can be stored and passed on the command
// line. Caesar keys are decimal integers. Substitution keys are character
// maps: the alphabet rearranged so that position i holds the replacement for
// offset i.
//
//	key, _ := engine.GenerateKey("substitution")
//	text, _ := engine.FormatKey("substitution", key)
//	again, _ := engine.ParseKey("substitution", text)
//
// SubstitutionKey values can only be built through NewSubstitutionKey, which
// rejects anything that is not a permutation.
//
// # Pipelines
//
// Chain ciphers into a product cipher:
//
//	p := &cipher.Pipeline{Steps: []cipher.Step{
//	    {Cipher: "caesar", Key: "7"},
//	    {Cipher: "substitution", Key: charMap},
//	}}
//	ct, _ := p.EncodeText(engine, "ATTACK AT DAWN")
//	pt, _ := p.DecodeText(engine, ct)
//
// # Thread Safety
//
// The cipher registry is thread-safe. Ciphers and Engines are stateless apart
// from their random source; a shared *rand.Rand is not safe for concurrent
// key generation.
package cipher
