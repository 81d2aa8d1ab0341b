package txtable

import (
	"fmt"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SlotWitness carries the private signature inputs of one slot. Padding slots
// use the zero value.
type SlotWitness struct {
	SignHash common.Hash
	R, S     *uint256.Int
	Parity   uint8
}

// Witnesses returns one witness per slot, MaxTxs in total.
func Witnesses(txs []Transaction, p Params, hasher SignHasher) ([]SlotWitness, error) {
	if len(txs) > p.MaxTxs {
		return nil, fmt.Errorf("%w: %d transactions, capacity %d", ErrCapacityExceeded, len(txs), p.MaxTxs)
	}
	if hasher == nil {
		hasher = TrustedSignHash{}
	}
	out := make([]SlotWitness, p.MaxTxs)
	for i := range txs {
		txID := uint64(i + 1)
		parity, err := txs[i].SigParity(p.ChainID)
		if err != nil {
			return nil, txErr(txID, 0, ErrSignatureInvalid, "%v", err)
		}
		hash, err := hasher.SignHash(&txs[i])
		if err != nil {
			return nil, txErr(txID, TagSignHash, ErrSignatureInvalid, "sign hash: %v", err)
		}
		out[i] = SlotWitness{SignHash: hash, R: txs[i].R, S: txs[i].S, Parity: parity}
	}
	return out, nil
}

// Signature returns the 65-byte [R || S || parity] encoding.
func (w SlotWitness) Signature() []byte {
	sig := make([]byte, crypto.SignatureLength)
	if w.R != nil {
		r := w.R.Bytes32()
		copy(sig[:32], r[:])
	}
	if w.S != nil {
		s := w.S.Bytes32()
		copy(sig[32:64], s[:])
	}
	sig[crypto.RecoveryIDOffset] = w.Parity
	return sig
}

// RecoverPublicKey returns the 64-byte uncompressed public key (no 0x04
// prefix). Only low-s signatures are accepted.
func (w SlotWitness) RecoverPublicKey() ([]byte, error) {
	if w.R == nil || w.S == nil || w.Parity > 1 {
		return nil, fmt.Errorf("%w: incomplete signature", ErrSignatureInvalid)
	}
	if !crypto.ValidateSignatureValues(w.Parity, w.R.ToBig(), w.S.ToBig(), true) {
		return nil, fmt.Errorf("%w: r or s out of range", ErrSignatureInvalid)
	}
	pub, err := crypto.Ecrecover(w.SignHash[:], w.Signature())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return pub[1:], nil
}

// Authenticator checks that every non-padding slot of a table was signed by
// its declared caller.
type Authenticator struct {
	table   *Table
	digests DigestTable
	log     zerolog.Logger
}

func NewAuthenticator(t *Table, digests DigestTable, log zerolog.Logger) *Authenticator {
	return &Authenticator{table: t, digests: digests, log: log}
}

// Authenticate runs the check for one slot. CallerAddress and SignHash are
// read at the slot's fixed offset.
func (a *Authenticator) Authenticate(txID uint64, w SlotWitness) error {
	if !a.table.HasSlot(txID) {
		return fmt.Errorf("%w: no slot %d in a table of %d", ErrTableMalformed, txID, a.table.Params.MaxTxs)
	}
	caller := a.table.Cell(txID, TagCallerAddress).Value
	if caller.IsZero() {
		return nil
	}
	signHash := a.table.Cell(txID, TagSignHash).Value
	if got := RLC(a.table.Challenge, w.SignHash[:]); !got.Equal(&signHash) {
		return txErr(txID, TagSignHash, ErrSignatureInvalid, "witness digest does not match the table")
	}

	pub, err := w.RecoverPublicKey()
	if err != nil {
		return &TxError{TxID: txID, Err: err}
	}
	digest := crypto.Keccak256(pub)
	derived := common.BytesToAddress(digest[12:])
	if v := AddressValue(derived); !v.Equal(&caller) {
		return txErr(txID, TagCallerAddress, ErrAddressMismatch, "recovered %s", derived.Hex())
	}

	attested, ok := a.digests.Lookup(RLC(a.table.Challenge, pub))
	if want := RLC(a.table.Challenge, digest); !ok || !attested.Equal(&want) {
		return txErr(txID, 0, ErrDigestLookupMiss, "public key digest of %s not attested", derived.Hex())
	}
	return nil
}

// AuthenticateAll checks every slot in parallel. When several slots fail, the
// lowest txId is reported.
func (a *Authenticator) AuthenticateAll(witnesses []SlotWitness) error {
	if len(witnesses) != a.table.Params.MaxTxs {
		return fmt.Errorf("%w: %d witnesses for %d slots", ErrTableMalformed, len(witnesses), a.table.Params.MaxTxs)
	}
	errs := make([]error, len(witnesses))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range witnesses {
		g.Go(func() error {
			errs[i] = a.Authenticate(uint64(i+1), witnesses[i])
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	a.log.Debug().Int("slots", len(witnesses)).Int("real", a.table.RealTxs()).Msg("signatures authenticated")
	return nil
}

// AttestPublicKeys records the public key digest of every real slot in d, the
// way the hashing subsystem would for the transactions it has seen.
func AttestPublicKeys(d *KeccakDigestTable, witnesses []SlotWitness) error {
	for i, w := range witnesses {
		if w.R == nil {
			continue
		}
		pub, err := w.RecoverPublicKey()
		if err != nil {
			return &TxError{TxID: uint64(i + 1), Err: err}
		}
		d.Attest(pub)
	}
	return nil
}

var _ DigestTable = (*KeccakDigestTable)(nil)
