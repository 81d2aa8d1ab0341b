package circuit

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/evmprecompiles"
	"github.com/consensys/gnark/std/math/bitslice"
	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/std/rangecheck"
)

// SignatureWitness holds the private inputs authenticating one slot. R and S
// are split into 128-bit halves.
type SignatureWitness struct {
	SignHash    [32]frontend.Variable
	R_Hi        frontend.Variable
	R_Lo        frontend.Variable
	S_Hi        frontend.Variable
	S_Lo        frontend.Variable
	V           frontend.Variable
	Digest      [32]frontend.Variable
	DigestIndex frontend.Variable
}

// Padding slots recover from a fixed valid signature: r = x(2G), s = 1,
// parity 0 over the message 1, so ECRecover never sees a degenerate input.
var (
	dummyRHi, _ = new(big.Int).SetString("c6047f9441ed7d6d3045406e95c07cd8", 16)
	dummyRLo, _ = new(big.Int).SetString("5c778e4b8cef3ca7abac09b95c709ee5", 16)
)

// SlotAuthenticator binds a slot's CallerAddress to a signature over its
// SignHash. Every assertion is scaled by the slot's active flag, so padding
// slots are satisfied whatever their witness holds.
type SlotAuthenticator struct {
	api     frontend.API
	gate    *RLCGate
	digests *DigestLookup
	rc      frontend.Rangechecker
	fr      *emulated.Field[emulated.Secp256k1Fr]
	fp      *emulated.Field[emulated.Secp256k1Fp]
}

func NewSlotAuthenticator(api frontend.API, gate *RLCGate, digests *DigestLookup) (*SlotAuthenticator, error) {
	frField, err := emulated.NewField[emulated.Secp256k1Fr](api)
	if err != nil {
		return nil, err
	}
	fpField, err := emulated.NewField[emulated.Secp256k1Fp](api)
	if err != nil {
		return nil, err
	}
	return &SlotAuthenticator{
		api:     api,
		gate:    gate,
		digests: digests,
		rc:      rangecheck.New(api),
		fr:      frField,
		fp:      fpField,
	}, nil
}

// AuthenticateSlot constrains w against the slot's CallerAddress and
// SignHash cells. A zero caller marks a padding slot.
func (a *SlotAuthenticator) AuthenticateSlot(caller, signHash frontend.Variable, w SignatureWitness) {
	api := a.api
	active := api.Sub(1, api.IsZero(caller))

	// message bytes, constant 0x00..01 for padding
	msg := make([]frontend.Variable, 32)
	for i := range msg {
		dummy := 0
		if i == len(msg)-1 {
			dummy = 1
		}
		msg[i] = api.Select(active, w.SignHash[i], dummy)
	}
	msgBits := make([]frontend.Variable, 256)
	for i := 0; i < 32; i++ {
		copy(msgBits[i*8:], api.ToBinary(msg[31-i], 8))
	}
	assertWhen(api, active, a.gate.Accumulate(msg), signHash)
	msgEmu := a.fr.FromBits(msgBits...)

	rHi := api.Select(active, w.R_Hi, dummyRHi)
	rLo := api.Select(active, w.R_Lo, dummyRLo)
	sHi := api.Select(active, w.S_Hi, 0)
	sLo := api.Select(active, w.S_Lo, 1)
	v := api.Select(active, w.V, 0)
	api.AssertIsBoolean(v)

	rLimbs := make([]frontend.Variable, 4)
	rLimbs[2], rLimbs[3] = bitslice.Partition(api, rHi, 64, bitslice.WithNbDigits(128))
	rLimbs[0], rLimbs[1] = bitslice.Partition(api, rLo, 64, bitslice.WithNbDigits(128))
	rEmu := a.fr.NewElement(rLimbs)
	sLimbs := make([]frontend.Variable, 4)
	sLimbs[2], sLimbs[3] = bitslice.Partition(api, sHi, 64, bitslice.WithNbDigits(128))
	sLimbs[0], sLimbs[1] = bitslice.Partition(api, sLo, 64, bitslice.WithNbDigits(128))
	sEmu := a.fr.NewElement(sLimbs)

	// low-s enforced, recovery must succeed
	pk := evmprecompiles.ECRecover(api, *msgEmu, api.Add(v, 27), *rEmu, *sEmu, 1, 0)

	pkBytes := make([]frontend.Variable, 64)
	pxBits := a.fp.ToBits(&pk.X)
	pyBits := a.fp.ToBits(&pk.Y)
	for j := 0; j < 32; j++ {
		pkBytes[j] = api.FromBinary(pxBits[(31-j)*8 : (32-j)*8]...)
		pkBytes[32+j] = api.FromBinary(pyBits[(31-j)*8 : (32-j)*8]...)
	}

	digest := make([]frontend.Variable, 32)
	for i := range digest {
		digest[i] = api.Select(active, w.Digest[i], 0)
		a.rc.Check(digest[i], 8)
	}
	a.digests.AssertAttested(active, w.DigestIndex, a.gate.Accumulate(pkBytes), a.gate.Accumulate(digest))

	var address frontend.Variable = 0
	for j := 12; j < 32; j++ {
		address = api.Add(api.Mul(address, 256), digest[j])
	}
	assertWhen(api, active, address, caller)
}
