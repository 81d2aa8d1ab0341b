package txtable

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
)

func TestRLCHorner(t *testing.T) {
	var c fr.Element
	c.SetUint64(2)
	got := RLC(c, []byte{1, 2, 3})

	var want fr.Element
	want.SetUint64(((1*2)+2)*2 + 3)
	require.True(t, got.Equal(&want))
}

func TestRLCChunkBoundaryIndependent(t *testing.T) {
	c := testChallenge()
	data := []byte{0xde, 0xad, 0xbe, 0xef}

	whole := RLC(c, data)
	halves := RLC(c, data[:2], data[2:])
	bytewise := RLC(c, data[:1], data[1:2], data[2:3], data[3:])
	uneven := RLC(c, data[:3], nil, data[3:])

	require.True(t, whole.Equal(&halves))
	require.True(t, whole.Equal(&bytewise))
	require.True(t, whole.Equal(&uneven))
}

func TestRLCEmptyIsZero(t *testing.T) {
	got := RLC(testChallenge())
	require.True(t, got.IsZero())
}

func TestAccumulatorTrace(t *testing.T) {
	c := testChallenge()
	data := []byte{0x11, 0x22, 0x33, 0x44, 0x55}

	acc := NewAccumulator(c).Fold(data[:2]).Fold(data[2:])
	trace := acc.Steps()
	require.Len(t, trace, len(data))
	require.NoError(t, VerifyTrace(c, data, trace))

	last := acc.Value()
	require.True(t, trace[len(trace)-1].Equal(&last))

	// every prefix of the trace is the RLC of the same prefix of the input
	for i := range data {
		prefix := RLC(c, data[:i+1])
		require.True(t, prefix.Equal(&trace[i]), "step %d", i)
	}

	tampered := acc.Steps()
	tampered[2].SetUint64(7)
	require.Error(t, VerifyTrace(c, data, tampered))
	require.Error(t, VerifyTrace(c, data[:4], trace))
}

func TestRLCDeterministic(t *testing.T) {
	c := testChallenge()
	data := []byte("the same bytes always fold to the same value")
	a := RLC(c, data)
	b := RLC(c, data)
	require.True(t, a.Equal(&b))

	var other fr.Element
	other.SetUint64(3)
	d := RLC(other, data)
	require.False(t, a.Equal(&d))
}
