package circuit

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/crypto"

	"txtable-circuit/txtable"
)

// Assign builds the full assignment of a circuit shaped by
// NewTxTableCircuit(t.Params, digestCapacity). Witnesses of real slots must
// recover; whether their digests are attested is left to the constraints.
func Assign(t *txtable.Table, witnesses []txtable.SlotWitness, digests []txtable.DigestRow, digestCapacity int) (*TxTableCircuit, error) {
	p := t.Params
	if len(witnesses) != p.MaxTxs {
		return nil, fmt.Errorf("%w: %d witnesses for %d slots", txtable.ErrTableMalformed, len(witnesses), p.MaxTxs)
	}
	if digestCapacity < 1 {
		return nil, fmt.Errorf("%w: digest capacity %d, need at least one row", txtable.ErrCapacityExceeded, digestCapacity)
	}
	if len(digests) > digestCapacity {
		return nil, fmt.Errorf("%w: %d digest rows, capacity %d", txtable.ErrCapacityExceeded, len(digests), digestCapacity)
	}

	a := NewTxTableCircuit(p, digestCapacity)
	a.Challenge = bigOf(t.Challenge)
	for i, row := range t.Context {
		a.Context[i] = assignRow(row)
	}
	for i, row := range t.CallData {
		a.CallData[i] = assignRow(row)
	}

	index := make(map[fr.Element]int, len(digests))
	for i := 0; i < digestCapacity; i++ {
		a.DigestInputs[i], a.DigestOutputs[i] = 0, 0
		if i < len(digests) {
			a.DigestInputs[i] = bigOf(digests[i].Input)
			a.DigestOutputs[i] = bigOf(digests[i].Output)
			if _, ok := index[digests[i].Input]; !ok {
				index[digests[i].Input] = i
			}
		}
	}

	for i, w := range witnesses {
		caller := t.Cell(uint64(i+1), txtable.TagCallerAddress).Value
		if caller.IsZero() {
			a.Slots[i] = zeroSlot()
			continue
		}
		pub, err := w.RecoverPublicKey()
		if err != nil {
			return nil, &txtable.TxError{TxID: uint64(i + 1), Err: err}
		}
		s := SignatureWitness{V: int(w.Parity), DigestIndex: 0}
		if k, ok := index[txtable.RLC(t.Challenge, pub)]; ok {
			s.DigestIndex = k
		}
		r, sv := w.R.Bytes32(), w.S.Bytes32()
		s.R_Hi, s.R_Lo = new(big.Int).SetBytes(r[:16]), new(big.Int).SetBytes(r[16:])
		s.S_Hi, s.S_Lo = new(big.Int).SetBytes(sv[:16]), new(big.Int).SetBytes(sv[16:])
		digest := crypto.Keccak256(pub)
		for j := 0; j < 32; j++ {
			s.SignHash[j] = int(w.SignHash[j])
			s.Digest[j] = int(digest[j])
		}
		a.Slots[i] = s
	}
	return a, nil
}

func assignRow(r txtable.Row) Row {
	return Row{TxID: r.TxID, Tag: int(r.Tag), Index: r.Index, Value: bigOf(r.Value)}
}

func zeroSlot() SignatureWitness {
	s := SignatureWitness{R_Hi: 0, R_Lo: 0, S_Hi: 0, S_Lo: 0, V: 0, DigestIndex: 0}
	for j := range s.SignHash {
		s.SignHash[j], s.Digest[j] = 0, 0
	}
	return s
}

func bigOf(e fr.Element) *big.Int { return e.BigInt(new(big.Int)) }
