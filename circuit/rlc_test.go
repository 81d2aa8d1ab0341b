package circuit

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"

	"txtable-circuit/txtable"
)

type rlcCircuit struct {
	Challenge frontend.Variable `gnark:",public"`
	Bytes     [6]frontend.Variable
	Trace     [6]frontend.Variable `gnark:",public"`

	Split int `gnark:"-"`
}

func (c *rlcCircuit) Define(api frontend.API) error {
	g := NewRLCGate(api, c.Challenge)
	steps := g.Trace(c.Bytes[:c.Split], c.Bytes[c.Split:])
	for i := range steps {
		api.AssertIsEqual(steps[i], c.Trace[i])
	}
	var prev frontend.Variable = 0
	for i := range c.Trace {
		g.AssertStep(prev, c.Bytes[i], c.Trace[i])
		prev = c.Trace[i]
	}
	api.AssertIsEqual(g.Accumulate(c.Bytes[:]), c.Trace[len(c.Trace)-1])
	return nil
}

func rlcAssignment(data []byte) *rlcCircuit {
	challenge := testChallenge()
	steps := txtable.NewAccumulator(challenge).Fold(data).Steps()
	a := &rlcCircuit{Challenge: bigOf(challenge)}
	for i := range a.Bytes {
		a.Bytes[i] = int(data[i])
		a.Trace[i] = bigOf(steps[i])
	}
	return a
}

func TestRLCGateMatchesNative(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x7f}
	for split := 0; split <= len(data); split++ {
		err := test.IsSolved(&rlcCircuit{Split: split}, rlcAssignment(data), ecc.BN254.ScalarField())
		require.NoError(t, err, "split at %d", split)
	}
}

func TestRLCGateRejectsBrokenStep(t *testing.T) {
	a := rlcAssignment([]byte{1, 2, 3, 4, 5, 6})
	a.Bytes[3] = 9
	err := test.IsSolved(&rlcCircuit{Split: 2}, a, ecc.BN254.ScalarField())
	require.Error(t, err)
}
