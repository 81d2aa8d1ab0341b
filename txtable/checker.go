package txtable

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// maxViolations bounds the diagnostics collected for one table.
const maxViolations = 32

type checker struct {
	violations []string
}

func (c *checker) failf(format string, args ...any) {
	if len(c.violations) < maxViolations {
		c.violations = append(c.violations, fmt.Sprintf(format, args...))
	}
}

// Check validates every shape invariant of t without relying on the
// builder's bookkeeping. A non-nil result is a *MalformedError and the table
// must not be used.
func Check(t *Table) error {
	c := &checker{}
	p := t.Params
	widths := p.EffectiveWidths()

	if len(t.Context) != p.MaxTxs*RowsPerSlot {
		c.failf("context region has %d rows, want %d", len(t.Context), p.MaxTxs*RowsPerSlot)
		return &MalformedError{Violations: c.violations}
	}
	if len(t.CallData) != p.MaxCallDataBytes {
		c.failf("call-data region has %d rows, want %d", len(t.CallData), p.MaxCallDataBytes)
		return &MalformedError{Violations: c.violations}
	}

	realTxs := 0
	padding := false
	lengths := make([]uint64, p.MaxTxs+1)
	for i := 0; i < p.MaxTxs; i++ {
		txID := uint64(i + 1)
		base := SlotOffset(txID)
		for k, tag := range ContextTags {
			row := t.Context[base+k]
			if row.TxID != txID {
				c.failf("row %d: txId %d, want %d", base+k, row.TxID, txID)
			}
			if row.Tag != tag {
				c.failf("row %d: tag %s, want %s", base+k, row.Tag, tag)
			}
			if row.Index != 0 {
				c.failf("row %d: context index %d", base+k, row.Index)
			}
		}

		caller := t.Context[base+TagCallerAddress.Position()].Value
		if caller.IsZero() {
			padding = true
			for k, tag := range ContextTags {
				if v := t.Context[base+k].Value; !v.IsZero() {
					c.failf("padding slot %d: %s is not zero", txID, tag)
				}
			}
			continue
		}
		if padding {
			c.failf("slot %d: real transaction after a padding slot", txID)
		}
		realTxs++

		for k, tag := range ContextTags {
			v := t.Context[base+k].Value
			if w := widths.Width(tag); w > 0 && bitLen(&v) > w {
				c.failf("slot %d: %s exceeds %d bits", txID, tag, w)
			}
		}
		for _, tag := range []Tag{TagGasTipCap, TagGasFeeCap} {
			if v := t.Context[base+tag.Position()].Value; !v.IsZero() {
				c.failf("slot %d: %s must be zero for legacy transactions", txID, tag)
			}
		}
		isCreate := t.Context[base+TagIsCreate.Position()].Value
		callee := t.Context[base+TagCalleeAddress.Position()].Value
		if isCreate.IsOne() && !callee.IsZero() {
			c.failf("slot %d: contract creation with a callee", txID)
		}
		length := t.Context[base+TagCallDataLength.Position()].Value
		lengths[txID] = length.Uint64()
	}

	c.checkCallData(t, realTxs, lengths)
	if len(c.violations) > 0 {
		return &MalformedError{Violations: c.violations}
	}
	return nil
}

func (c *checker) checkCallData(t *Table, realTxs int, lengths []uint64) {
	counts := make([]uint64, len(lengths))
	var prev *Row
	padding := false
	for i := range t.CallData {
		row := &t.CallData[i]
		if row.Tag != TagCallData {
			c.failf("call-data row %d: tag %s", i, row.Tag)
		}
		if row.TxID == 0 {
			padding = true
			if row.Index != 0 || !row.Value.IsZero() {
				c.failf("call-data row %d: padding row is not zero", i)
			}
			prev = row
			continue
		}
		if padding {
			c.failf("call-data row %d: real row after padding", i)
		}
		if row.TxID > uint64(realTxs) {
			c.failf("call-data row %d: txId %d has no real slot", i, row.TxID)
			prev = row
			continue
		}
		switch {
		case prev == nil || prev.TxID != row.TxID:
			if prev != nil && prev.TxID > row.TxID {
				c.failf("call-data row %d: txId %d after %d", i, row.TxID, prev.TxID)
			}
			if counts[row.TxID] != 0 {
				c.failf("call-data row %d: tx %d bytes are not contiguous", i, row.TxID)
			}
			if row.Index != 0 {
				c.failf("call-data row %d: tx %d starts at index %d", i, row.TxID, row.Index)
			}
		case row.Index != prev.Index+1:
			c.failf("call-data row %d: index %d follows %d", i, row.Index, prev.Index)
		}
		if bitLen(&row.Value) > 8 {
			c.failf("call-data row %d: value is not a byte", i)
		}
		counts[row.TxID]++
		prev = row
	}
	for txID := 1; txID <= realTxs; txID++ {
		if counts[txID] != lengths[txID] {
			c.failf("tx %d: %d call-data rows, CallDataLength %d", txID, counts[txID], lengths[txID])
		}
	}
}

func bitLen(v *fr.Element) int {
	return v.BigInt(new(big.Int)).BitLen()
}
