package txtable

import (
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/crypto"
)

// DigestTable is the externally maintained (input RLC -> digest RLC) mapping.
// This package only queries it.
type DigestTable interface {
	Lookup(input fr.Element) (fr.Element, bool)
}

// DigestRow is one attested (input, output) pair.
type DigestRow struct {
	Input  fr.Element
	Output fr.Element
}

// KeccakDigestTable attests keccak256 preimages. It stands in for the hashing
// subsystem that populates the digest table in a full deployment.
type KeccakDigestTable struct {
	challenge fr.Element

	mu    sync.RWMutex
	rows  []DigestRow
	index map[fr.Element]int
}

func NewKeccakDigestTable(challenge fr.Element) *KeccakDigestTable {
	return &KeccakDigestTable{challenge: challenge, index: make(map[fr.Element]int)}
}

// Attest hashes preimage and records the pair. Attesting the same preimage
// twice keeps a single row.
func (d *KeccakDigestTable) Attest(preimage []byte) DigestRow {
	row := DigestRow{
		Input:  RLC(d.challenge, preimage),
		Output: RLC(d.challenge, crypto.Keccak256(preimage)),
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.index[row.Input]; !ok {
		d.index[row.Input] = len(d.rows)
		d.rows = append(d.rows, row)
	}
	return row
}

func (d *KeccakDigestTable) Lookup(input fr.Element) (fr.Element, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[input]
	if !ok {
		return fr.Element{}, false
	}
	return d.rows[i].Output, true
}

// IndexOf returns the row holding input.
func (d *KeccakDigestTable) IndexOf(input fr.Element) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[input]
	return i, ok
}

// Rows returns a copy of the attested rows in insertion order.
func (d *KeccakDigestTable) Rows() []DigestRow {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]DigestRow, len(d.rows))
	copy(out, d.rows)
	return out
}
