package txtable

import (
	"fmt"
	"runtime"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Row is one (txId, tag, index, value) entry of the table.
type Row struct {
	TxID  uint64
	Tag   Tag
	Index uint64
	Value fr.Element
}

// Table is the Transaction Table of one proof instance: MaxTxs fixed-stride
// slots followed by MaxCallDataBytes call-data rows. It is read-only once
// built.
type Table struct {
	Params    Params
	Challenge fr.Element
	Context   []Row
	CallData  []Row

	// offsets[i] is the first call-data row of tx i+1; offsets[realTxs] is
	// the total call-data length.
	offsets []int
	realTxs int
}

// SlotOffset returns the first context row of a transaction slot.
func SlotOffset(txID uint64) int { return int(txID-1) * RowsPerSlot }

// HasSlot reports whether txID names one of the table's slots.
func (t *Table) HasSlot(txID uint64) bool {
	return txID != 0 && txID <= uint64(t.Params.MaxTxs) && SlotOffset(txID)+RowsPerSlot <= len(t.Context)
}

// Cell returns the context row of tag in slot txID by its static position.
// txID must satisfy HasSlot.
func (t *Table) Cell(txID uint64, tag Tag) Row {
	return t.Context[SlotOffset(txID)+tag.Position()]
}

// RealTxs is the number of non-padding slots.
func (t *Table) RealTxs() int { return t.realTxs }

// CallDataUsed is the number of real call-data rows.
func (t *Table) CallDataUsed() int {
	if len(t.offsets) == 0 {
		return 0
	}
	return t.offsets[len(t.offsets)-1]
}

// Lookup resolves a (txId, tag, index) key the way downstream consumers query
// the table.
func (t *Table) Lookup(txID uint64, tag Tag, index uint64) (fr.Element, bool) {
	switch {
	case tag.IsContext():
		if !t.HasSlot(txID) || index != 0 {
			return fr.Element{}, false
		}
		return t.Cell(txID, tag).Value, true
	case tag == TagCallData:
		if txID == 0 || txID > uint64(t.realTxs) {
			return fr.Element{}, false
		}
		start, end := t.offsets[txID-1], t.offsets[txID]
		if index >= uint64(end-start) {
			return fr.Element{}, false
		}
		return t.CallData[start+int(index)].Value, true
	}
	return fr.Element{}, false
}

// Builder lays transactions out into a Table.
type Builder struct {
	params    Params
	challenge fr.Element
	hasher    SignHasher
	log       zerolog.Logger
}

type Option func(*Builder)

func WithLogger(l zerolog.Logger) Option { return func(b *Builder) { b.log = l } }

func WithSignHasher(h SignHasher) Option { return func(b *Builder) { b.hasher = h } }

// WithWidths overrides the raw field widths of the builder's params.
func WithWidths(w FieldWidths) Option { return func(b *Builder) { b.params.Widths = w } }

func NewBuilder(params Params, challenge fr.Element, opts ...Option) *Builder {
	b := &Builder{
		params:    params,
		challenge: challenge,
		hasher:    TrustedSignHash{},
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assigns txId i+1 to txs[i], encodes every slot and relocates the
// call data into the trailing region. Capacity violations abort before any
// row is produced.
func (b *Builder) Build(txs []Transaction) (*Table, error) {
	p := b.params
	if len(txs) > p.MaxTxs {
		return nil, fmt.Errorf("%w: %d transactions, capacity %d", ErrCapacityExceeded, len(txs), p.MaxTxs)
	}

	offsets := make([]int, len(txs)+1)
	for i := range txs {
		offsets[i+1] = offsets[i] + txs[i].CallDataLength()
	}
	if used := offsets[len(txs)]; used > p.MaxCallDataBytes {
		return nil, fmt.Errorf("%w: %d call-data bytes, capacity %d", ErrCapacityExceeded, used, p.MaxCallDataBytes)
	}

	t := &Table{
		Params:    p,
		Challenge: b.challenge,
		Context:   make([]Row, p.MaxTxs*RowsPerSlot),
		CallData:  make([]Row, p.MaxCallDataBytes),
		offsets:   offsets,
		realTxs:   len(txs),
	}
	for i := 0; i < p.MaxTxs; i++ {
		txID := uint64(i + 1)
		for k, tag := range ContextTags {
			t.Context[SlotOffset(txID)+k] = Row{TxID: txID, Tag: tag}
		}
	}

	enc := NewEncoder(b.challenge, p.EffectiveWidths(), b.hasher)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range txs {
		g.Go(func() error {
			txID := uint64(i + 1)
			values, err := enc.Encode(txID, &txs[i])
			if err != nil {
				return err
			}
			base := SlotOffset(txID)
			for k := range values {
				t.Context[base+k].Value = values[k]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// every tx owns a disjoint range, so the scatter needs no locking
	var scatter errgroup.Group
	scatter.SetLimit(runtime.GOMAXPROCS(0))
	for i := range txs {
		scatter.Go(func() error {
			txID := uint64(i + 1)
			for j, v := range txs[i].Data {
				row := &t.CallData[offsets[i]+j]
				row.TxID = txID
				row.Tag = TagCallData
				row.Index = uint64(j)
				row.Value.SetUint64(uint64(v))
			}
			return nil
		})
	}
	_ = scatter.Wait()
	for i := offsets[len(txs)]; i < p.MaxCallDataBytes; i++ {
		t.CallData[i] = Row{Tag: TagCallData}
	}

	b.log.Debug().
		Int("txs", len(txs)).
		Int("max_txs", p.MaxTxs).
		Int("calldata", offsets[len(txs)]).
		Int("max_calldata", p.MaxCallDataBytes).
		Msg("transaction table built")
	return t, nil
}
