// Package circuit expresses the Transaction Table and its signature
// authentication as gnark constraints over the BN254 scalar field.
package circuit

import "github.com/consensys/gnark/frontend"

// RLCGate folds byte chunks into a random linear combination,
// acc = acc*challenge + b, most-significant byte first.
type RLCGate struct {
	api       frontend.API
	challenge frontend.Variable
}

func NewRLCGate(api frontend.API, challenge frontend.Variable) *RLCGate {
	return &RLCGate{api: api, challenge: challenge}
}

// Trace returns every intermediate accumulator. Splitting the same bytes
// into different chunks yields the same trace.
func (g *RLCGate) Trace(chunks ...[]frontend.Variable) []frontend.Variable {
	var steps []frontend.Variable
	var acc frontend.Variable = 0
	for _, chunk := range chunks {
		for _, b := range chunk {
			acc = g.api.Add(g.api.Mul(acc, g.challenge), b)
			steps = append(steps, acc)
		}
	}
	return steps
}

// Accumulate returns the final accumulator, 0 for empty input.
func (g *RLCGate) Accumulate(chunks ...[]frontend.Variable) frontend.Variable {
	steps := g.Trace(chunks...)
	if len(steps) == 0 {
		return 0
	}
	return steps[len(steps)-1]
}

// AssertStep constrains a witnessed transition next = prev*challenge + chunk.
func (g *RLCGate) AssertStep(prev, chunk, next frontend.Variable) {
	g.api.AssertIsEqual(next, g.api.Add(g.api.Mul(prev, g.challenge), chunk))
}
