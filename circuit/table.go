package circuit

import (
	"fmt"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/lookup/logderivlookup"
	"github.com/consensys/gnark/std/rangecheck"

	"txtable-circuit/txtable"
)

// Row is one (txId, tag, index, value) table entry.
type Row struct {
	TxID  frontend.Variable
	Tag   frontend.Variable
	Index frontend.Variable
	Value frontend.Variable
}

// TxTableCircuit proves that the public Transaction Table is well formed and
// that every real slot is signed by its caller.
type TxTableCircuit struct {
	Challenge frontend.Variable `gnark:",public"`
	Context   []Row             `gnark:",public"`
	CallData  []Row             `gnark:",public"`

	// attested keccak table, padded with zero rows
	DigestInputs  []frontend.Variable `gnark:",public"`
	DigestOutputs []frontend.Variable `gnark:",public"`

	Slots []SignatureWitness

	Params txtable.Params `gnark:"-"`
}

// NewTxTableCircuit allocates a circuit shaped for params with room for
// digestCapacity attested digests.
func NewTxTableCircuit(params txtable.Params, digestCapacity int) *TxTableCircuit {
	return &TxTableCircuit{
		Context:       make([]Row, params.MaxTxs*txtable.RowsPerSlot),
		CallData:      make([]Row, params.MaxCallDataBytes),
		DigestInputs:  make([]frontend.Variable, digestCapacity),
		DigestOutputs: make([]frontend.Variable, digestCapacity),
		Slots:         make([]SignatureWitness, params.MaxTxs),
		Params:        params,
	}
}

// Compile builds the R1CS for params over BN254.
func Compile(params txtable.Params, digestCapacity int) (constraint.ConstraintSystem, error) {
	if digestCapacity < 1 {
		return nil, fmt.Errorf("digest capacity %d, need at least one row", digestCapacity)
	}
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, NewTxTableCircuit(params, digestCapacity))
}

func (c *TxTableCircuit) Define(api frontend.API) error {
	p := c.Params
	switch {
	case len(c.Context) != p.MaxTxs*txtable.RowsPerSlot,
		len(c.CallData) != p.MaxCallDataBytes,
		len(c.Slots) != p.MaxTxs:
		return fmt.Errorf("circuit shaped for %d context rows, %d call-data rows, %d slots; params want %d txs, %d bytes",
			len(c.Context), len(c.CallData), len(c.Slots), p.MaxTxs, p.MaxCallDataBytes)
	case len(c.DigestInputs) == 0:
		return fmt.Errorf("digest table has no rows")
	case len(c.DigestInputs) != len(c.DigestOutputs):
		return fmt.Errorf("digest table has %d inputs and %d outputs", len(c.DigestInputs), len(c.DigestOutputs))
	}

	rc := rangecheck.New(api)
	gate := NewRLCGate(api, c.Challenge)
	auth, err := NewSlotAuthenticator(api, gate, NewDigestLookup(api, c.DigestInputs, c.DigestOutputs))
	if err != nil {
		return err
	}

	// CallDataLength by txId, entry 0 for padding rows
	lengths := logderivlookup.New(api)
	lengths.Insert(0)
	var totalLength frontend.Variable = 0

	widths := p.EffectiveWidths()
	var prevActive frontend.Variable = 1
	for i := 0; i < p.MaxTxs; i++ {
		txID := uint64(i + 1)
		slot := c.Context[txtable.SlotOffset(txID) : txtable.SlotOffset(txID)+txtable.RowsPerSlot]
		value := func(tag txtable.Tag) frontend.Variable { return slot[tag.Position()].Value }

		caller := value(txtable.TagCallerAddress)
		active := api.Sub(1, api.IsZero(caller))
		// real slots form a prefix
		api.AssertIsEqual(api.Mul(active, api.Sub(1, prevActive)), 0)
		prevActive = active

		for k, tag := range txtable.ContextTags {
			row := slot[k]
			api.AssertIsEqual(row.TxID, txID)
			api.AssertIsEqual(row.Tag, int(tag))
			api.AssertIsEqual(row.Index, 0)
			if w := widths.Width(tag); w > 0 {
				rc.Check(row.Value, w)
			}
			if tag == txtable.TagGasTipCap || tag == txtable.TagGasFeeCap {
				api.AssertIsEqual(row.Value, 0)
			}
			assertWhen(api, api.Sub(1, active), row.Value, 0)
		}
		// a contract creation has no callee
		api.AssertIsEqual(api.Mul(value(txtable.TagIsCreate), value(txtable.TagCalleeAddress)), 0)

		lengths.Insert(value(txtable.TagCallDataLength))
		totalLength = api.Add(totalLength, value(txtable.TagCallDataLength))

		auth.AuthenticateSlot(caller, value(txtable.TagSignHash), c.Slots[i])
	}

	c.defineCallData(api, rc, lengths, totalLength, widths)
	return nil
}

// defineCallData constrains the trailing region: real rows first, ordered by
// txId, indexed 0..len-1 per transaction, one row per byte of the declared
// CallDataLength.
func (c *TxTableCircuit) defineCallData(api frontend.API, rc frontend.Rangechecker, lengths lookupTable, totalLength frontend.Variable, widths txtable.FieldWidths) {
	txBits := max(bits.Len(uint(c.Params.MaxTxs)), 1)
	var (
		prevTx   frontend.Variable = 0
		prevIdx  frontend.Variable = 0
		prevReal frontend.Variable = 1
		rows     frontend.Variable = 0
	)
	for _, row := range c.CallData {
		api.AssertIsEqual(row.Tag, int(txtable.TagCallData))
		rc.Check(row.Value, 8)

		isReal := api.Sub(1, api.IsZero(row.TxID))
		pad := api.Sub(1, isReal)
		assertWhen(api, pad, row.Value, 0)
		assertWhen(api, pad, row.Index, 0)
		api.AssertIsEqual(api.Mul(isReal, api.Sub(1, prevReal)), 0)

		// txId is non-decreasing and within the slot range
		rc.Check(api.Mul(isReal, api.Sub(row.TxID, prevTx)), txBits)
		rc.Check(api.Mul(isReal, api.Sub(c.Params.MaxTxs, row.TxID)), txBits)

		same := api.IsZero(api.Sub(row.TxID, prevTx))
		assertWhen(api, isReal, row.Index, api.Mul(same, api.Add(prevIdx, 1)))

		// index < CallDataLength of its transaction
		length := lengths.Lookup(row.TxID)[0]
		rc.Check(api.Mul(isReal, api.Sub(api.Sub(length, row.Index), 1)), widths.CallDataLength)

		rows = api.Add(rows, isReal)
		prevTx, prevIdx, prevReal = row.TxID, row.Index, isReal
	}
	// no transaction exceeds its length, so equal totals pin every count
	api.AssertIsEqual(rows, totalLength)
}
