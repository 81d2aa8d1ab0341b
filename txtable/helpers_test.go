package txtable

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var testChainID = big.NewInt(1337)

var testKeys = []string{
	"1ab2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2",
	"d2b651f6682d36d83a15039a831e5a619b48f9a3f25603f7e346f3be8f45c713",
	"2286b7bf48a97957770a5d2f8e1329128f83c07a0d4b851b238116541f714930",
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

func testParams(maxTxs, maxCallData int) Params {
	return Params{MaxTxs: maxTxs, MaxCallDataBytes: maxCallData, ChainID: testChainID}
}

// signedTx signs a legacy transaction with EIP-155 and converts it.
func signedTx(t testing.TB, key *ecdsa.PrivateKey, nonce uint64, to *common.Address, data []byte) Transaction {
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
	tx, err := FromEthTransaction(signed, testChainID)
	require.NoError(t, err)
	return tx
}

// unsignedTx is enough for layout tests that never authenticate.
func unsignedTx(from byte, data []byte) Transaction {
	to := common.HexToAddress("0x12f3a2b4cC21881f203818aA1F78851Df974Bcc2")
	return Transaction{
		Nonce:    uint64(from),
		GasPrice: uint256.NewInt(1_000_000_000),
		Gas:      50_000,
		To:       &to,
		Value:    uint256.NewInt(42),
		Data:     data,
		V:        uint256.NewInt(27),
		R:        uint256.NewInt(1),
		S:        uint256.NewInt(1),
		From:     common.BytesToAddress([]byte{0xaa, from}),
		SignHash: crypto.Keccak256Hash([]byte{from}),
	}
}

func buildTable(t testing.TB, p Params, txs []Transaction) *Table {
	t.Helper()
	table, err := NewBuilder(p, testChallenge()).Build(txs)
	require.NoError(t, err)
	return table
}

func byteValue(b byte) fr.Element {
	var v fr.Element
	v.SetUint64(uint64(b))
	return v
}
