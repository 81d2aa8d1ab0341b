package txtable

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Params fixes the capacities of one proof instance.
type Params struct {
	MaxTxs           int
	MaxCallDataBytes int
	ChainID          *big.Int
	Widths           FieldWidths
}

// FieldWidths declares the bit-width of the variable-width raw fields.
// Addresses (160) and IsCreate (1) are fixed.
type FieldWidths struct {
	Nonce          int
	Gas            int
	CallDataLength int
}

func DefaultWidths() FieldWidths {
	return FieldWidths{Nonce: 64, Gas: 64, CallDataLength: 32}
}

// Width returns the declared width of a raw tag, or 0 for RLC-encoded tags.
func (w FieldWidths) Width(tag Tag) int {
	switch tag {
	case TagNonce:
		return w.Nonce
	case TagGas:
		return w.Gas
	case TagCallDataLength:
		return w.CallDataLength
	case TagCallerAddress, TagCalleeAddress:
		return 160
	case TagIsCreate:
		return 1
	}
	return 0
}

// EffectiveWidths returns the declared widths, or DefaultWidths when none are set.
func (p Params) EffectiveWidths() FieldWidths {
	if p.Widths == (FieldWidths{}) {
		return DefaultWidths()
	}
	return p.Widths
}

// Transaction is one legacy transaction as committed to the table.
type Transaction struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *common.Address // nil for contract creation
	Value    *uint256.Int
	Data     []byte

	V, R, S *uint256.Int

	// From is the declared caller, checked against the recovered signer.
	From common.Address
	// SignHash is accepted as a trusted input; see SignHasher.
	SignHash common.Hash
}

func (tx *Transaction) IsCreate() bool { return tx.To == nil }

func (tx *Transaction) CallDataLength() int { return len(tx.Data) }

// SigParity extracts the recovery parity from V. Pre-EIP-155 (27/28),
// EIP-155 (chainID*2+35/36) and bare parity (0/1) encodings are accepted.
func (tx *Transaction) SigParity(chainID *big.Int) (uint8, error) {
	if tx.V == nil {
		return 0, ErrSignatureInvalid
	}
	v := tx.V.ToBig()
	switch {
	case v.IsUint64() && v.Uint64() <= 1:
		return uint8(v.Uint64()), nil
	case v.IsUint64() && (v.Uint64() == 27 || v.Uint64() == 28):
		return uint8(v.Uint64() - 27), nil
	}
	if chainID == nil {
		return 0, fmt.Errorf("%w: v=%s needs a chain id", ErrSignatureInvalid, v)
	}
	v.Sub(v, big.NewInt(35))
	v.Sub(v, new(big.Int).Lsh(chainID, 1))
	if v.Sign() < 0 || v.Cmp(common.Big1) > 0 {
		return 0, fmt.Errorf("%w: v=%s does not match chain %s", ErrSignatureInvalid, tx.V.Dec(), chainID)
	}
	return uint8(v.Uint64()), nil
}

func (tx *Transaction) protected() bool {
	return tx.V != nil && tx.V.CmpUint64(35) >= 0
}

// SignHasher supplies the signing digest of a transaction. Deriving it from
// the RLP encoding is not constrained by the circuit; whichever hasher is used
// is trusted.
type SignHasher interface {
	SignHash(tx *Transaction) (common.Hash, error)
}

// TrustedSignHash returns the SignHash carried by the transaction.
type TrustedSignHash struct{}

func (TrustedSignHash) SignHash(tx *Transaction) (common.Hash, error) {
	return tx.SignHash, nil
}

// LegacySignHasher derives the digest with go-ethereum's legacy signers.
type LegacySignHasher struct {
	ChainID *big.Int
}

func (h LegacySignHasher) SignHash(tx *Transaction) (common.Hash, error) {
	etx := types.NewTx(tx.legacy())
	if tx.protected() {
		if h.ChainID == nil {
			return common.Hash{}, fmt.Errorf("%w: protected transaction without chain id", ErrSignatureInvalid)
		}
		return types.NewEIP155Signer(h.ChainID).Hash(etx), nil
	}
	return types.HomesteadSigner{}.Hash(etx), nil
}

func (tx *Transaction) legacy() *types.LegacyTx {
	return &types.LegacyTx{
		Nonce:    tx.Nonce,
		GasPrice: bigOrZero(tx.GasPrice),
		Gas:      tx.Gas,
		To:       tx.To,
		Value:    bigOrZero(tx.Value),
		Data:     tx.Data,
		V:        bigOrZero(tx.V),
		R:        bigOrZero(tx.R),
		S:        bigOrZero(tx.S),
	}
}

// FromEthTransaction converts a signed go-ethereum legacy transaction. The
// sender is recovered once here to fill the declared caller.
func FromEthTransaction(etx *types.Transaction, chainID *big.Int) (Transaction, error) {
	if etx.Type() != types.LegacyTxType {
		return Transaction{}, fmt.Errorf("%w: type %d", ErrUnsupportedTxType, etx.Type())
	}
	var signer types.Signer = types.HomesteadSigner{}
	if etx.Protected() {
		signer = types.NewEIP155Signer(chainID)
	}
	from, err := types.Sender(signer, etx)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: recover sender: %v", ErrSignatureInvalid, err)
	}
	v, r, s := etx.RawSignatureValues()
	tx := Transaction{
		Nonce:    etx.Nonce(),
		GasPrice: uint256.MustFromBig(etx.GasPrice()),
		Gas:      etx.Gas(),
		To:       etx.To(),
		Value:    uint256.MustFromBig(etx.Value()),
		Data:     common.CopyBytes(etx.Data()),
		V:        uint256.MustFromBig(v),
		R:        uint256.MustFromBig(r),
		S:        uint256.MustFromBig(s),
		From:     from,
		SignHash: signer.Hash(etx),
	}
	return tx, nil
}

func bigOrZero(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}
