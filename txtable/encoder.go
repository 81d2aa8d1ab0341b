package txtable

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Encoder turns transaction fields into table values. Fields narrower than a
// field element are copied raw after a width check; 256-bit words and hashes
// are folded into an RLC with the instance challenge.
type Encoder struct {
	challenge fr.Element
	widths    FieldWidths
	signHash  SignHasher
}

func NewEncoder(challenge fr.Element, widths FieldWidths, hasher SignHasher) *Encoder {
	if hasher == nil {
		hasher = TrustedSignHash{}
	}
	return &Encoder{challenge: challenge, widths: widths, signHash: hasher}
}

// Encode returns the slot values of tx in ContextTags order.
func (e *Encoder) Encode(txID uint64, tx *Transaction) ([RowsPerSlot]fr.Element, error) {
	var slot [RowsPerSlot]fr.Element

	raw := func(tag Tag, v *big.Int) error {
		if width := e.widths.Width(tag); v.BitLen() > width {
			return txErr(txID, tag, ErrFieldOverflow, "%d bits exceed declared width %d", v.BitLen(), width)
		}
		slot[tag.Position()].SetBigInt(v)
		return nil
	}

	if err := raw(TagNonce, new(big.Int).SetUint64(tx.Nonce)); err != nil {
		return slot, err
	}
	if err := raw(TagGas, new(big.Int).SetUint64(tx.Gas)); err != nil {
		return slot, err
	}
	// caller 0 marks a padding slot
	if tx.From == (common.Address{}) {
		return slot, txErr(txID, TagCallerAddress, ErrZeroCaller, "real transaction declares the zero caller")
	}
	if err := raw(TagCallerAddress, addressBig(tx.From)); err != nil {
		return slot, err
	}
	callee := new(big.Int)
	if tx.To != nil {
		callee = addressBig(*tx.To)
	}
	if err := raw(TagCalleeAddress, callee); err != nil {
		return slot, err
	}
	isCreate := new(big.Int)
	if tx.IsCreate() {
		isCreate.SetUint64(1)
	}
	if err := raw(TagIsCreate, isCreate); err != nil {
		return slot, err
	}
	if err := raw(TagCallDataLength, big.NewInt(int64(tx.CallDataLength()))); err != nil {
		return slot, err
	}

	// legacy transactions carry no tip or fee cap
	slot[TagGasTipCap.Position()].SetZero()
	slot[TagGasFeeCap.Position()].SetZero()

	slot[TagGasPrice.Position()] = e.Word(tx.GasPrice)
	slot[TagValue.Position()] = e.Word(tx.Value)

	hash, err := e.signHash.SignHash(tx)
	if err != nil {
		return slot, txErr(txID, TagSignHash, ErrSignatureInvalid, "sign hash: %v", err)
	}
	slot[TagSignHash.Position()] = RLC(e.challenge, hash[:])
	return slot, nil
}

// Word encodes a 256-bit value as the RLC of its 32 big-endian bytes.
func (e *Encoder) Word(v *uint256.Int) fr.Element {
	var b [32]byte
	if v != nil {
		b = v.Bytes32()
	}
	return RLC(e.challenge, b[:])
}

func addressBig(a common.Address) *big.Int {
	return new(big.Int).SetBytes(a[:])
}

// AddressValue is the raw table value of an address.
func AddressValue(a common.Address) fr.Element {
	var v fr.Element
	v.SetBigInt(addressBig(a))
	return v
}
