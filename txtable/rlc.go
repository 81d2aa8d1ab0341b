package txtable

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Accumulator folds bytes into a random linear combination, most significant
// byte first: acc_i = acc_{i-1}*challenge + b_i with acc_{-1} = 0.
//
// Chunks are folded byte by byte, so splitting the same sequence differently
// never changes the result.
type Accumulator struct {
	challenge fr.Element
	acc       fr.Element
	steps     []fr.Element
}

func NewAccumulator(challenge fr.Element) *Accumulator {
	return &Accumulator{challenge: challenge}
}

// Fold absorbs one chunk.
func (a *Accumulator) Fold(chunk []byte) *Accumulator {
	var b fr.Element
	for _, v := range chunk {
		b.SetUint64(uint64(v))
		a.acc.Mul(&a.acc, &a.challenge).Add(&a.acc, &b)
		a.steps = append(a.steps, a.acc)
	}
	return a
}

// Value returns the current accumulator.
func (a *Accumulator) Value() fr.Element { return a.acc }

// Steps returns the accumulator after every folded byte.
func (a *Accumulator) Steps() []fr.Element {
	out := make([]fr.Element, len(a.steps))
	copy(out, a.steps)
	return out
}

// RLC accumulates the chunks in order and returns the final value.
func RLC(challenge fr.Element, chunks ...[]byte) fr.Element {
	acc := NewAccumulator(challenge)
	for _, c := range chunks {
		acc.Fold(c)
	}
	return acc.Value()
}

// VerifyTrace checks every step of an accumulation trace independently.
func VerifyTrace(challenge fr.Element, data []byte, trace []fr.Element) error {
	if len(trace) != len(data) {
		return fmt.Errorf("trace has %d steps for %d bytes", len(trace), len(data))
	}
	var prev, want, b fr.Element
	for i, v := range data {
		b.SetUint64(uint64(v))
		want.Mul(&prev, &challenge).Add(&want, &b)
		if !want.Equal(&trace[i]) {
			return fmt.Errorf("step %d: accumulator does not follow acc*challenge+chunk", i)
		}
		prev = trace[i]
	}
	return nil
}
