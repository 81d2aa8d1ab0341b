package circuit

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/test"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"txtable-circuit/txtable"
)

const testDigestCapacity = 2

var testChainID = big.NewInt(1337)

var testKeys = []string{
	"1ab2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2",
	"d2b651f6682d36d83a15039a831e5a619b48f9a3f25603f7e346f3be8f45c713",
}

func testKey(t testing.TB, i int) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeys[i%len(testKeys)])
	require.NoError(t, err)
	return key
}

func testChallenge() fr.Element {
	var c fr.Element
	c.SetUint64(0x5eed_c0ffee)
	return c
}

func testParams(maxTxs, maxCallData int) txtable.Params {
	return txtable.Params{MaxTxs: maxTxs, MaxCallDataBytes: maxCallData, ChainID: testChainID}
}

func signedTx(t testing.TB, key *ecdsa.PrivateKey, nonce uint64, to *common.Address, data []byte) txtable.Transaction {
	t.Helper()
	etx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: big.NewInt(2_000_000_000),
		Gas:      21_000 + uint64(16*len(data)),
		To:       to,
		Value:    big.NewInt(1e18),
		Data:     data,
	})
	signed, err := types.SignTx(etx, types.NewEIP155Signer(testChainID), key)
	require.NoError(t, err)
	tx, err := txtable.FromEthTransaction(signed, testChainID)
	require.NoError(t, err)
	return tx
}

type fixture struct {
	params     txtable.Params
	table      *txtable.Table
	witnesses  []txtable.SlotWitness
	digests    *txtable.KeccakDigestTable
	assignment *TxTableCircuit
}

// newFixture builds, checks and assigns a table whose public key digests are
// all attested.
func newFixture(t *testing.T, p txtable.Params, txs ...txtable.Transaction) *fixture {
	t.Helper()
	table, err := txtable.NewBuilder(p, testChallenge()).Build(txs)
	require.NoError(t, err)
	require.NoError(t, txtable.Check(table))
	witnesses, err := txtable.Witnesses(txs, p, nil)
	require.NoError(t, err)
	digests := txtable.NewKeccakDigestTable(testChallenge())
	require.NoError(t, txtable.AttestPublicKeys(digests, witnesses))

	assignment, err := Assign(table, witnesses, digests.Rows(), testDigestCapacity)
	require.NoError(t, err)
	return &fixture{params: p, table: table, witnesses: witnesses, digests: digests, assignment: assignment}
}

func (f *fixture) solve() error {
	return test.IsSolved(NewTxTableCircuit(f.params, testDigestCapacity), f.assignment, ecc.BN254.ScalarField())
}

func contextIndex(txID uint64, tag txtable.Tag) int {
	return txtable.SlotOffset(txID) + tag.Position()
}
