package main

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"txtable-circuit/txtable"
)

var transferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

// erc20Transfer ABI-encodes transfer(to, amount).
func erc20Transfer(to common.Address, amount *big.Int) []byte {
	amountBytes := make([]byte, 32)
	amount.FillBytes(amountBytes)

	var calldata bytes.Buffer
	calldata.Write(transferSelector)
	calldata.Write(common.LeftPadBytes(to.Bytes(), 32))
	calldata.Write(amountBytes)
	return calldata.Bytes()
}

// deriveChallenge binds the RLC challenge to the batch by hashing every
// transaction's sign hash.
func deriveChallenge(txs []txtable.Transaction) fr.Element {
	preimage := make([]byte, 0, len(txs)*common.HashLength)
	for i := range txs {
		preimage = append(preimage, txs[i].SignHash[:]...)
	}
	var c fr.Element
	c.SetBytes(crypto.Keccak256(preimage))
	if c.IsZero() {
		c.SetOne()
	}
	return c
}

// writeArtifact serializes v into dir/name.
func writeArtifact(dir, name string, v io.WriterTo) (int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := v.WriteTo(f)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", name, err)
	}
	return n, f.Sync()
}

// getTimeStamp returns a formatted string for the current time UTC.
func getTimeStamp() string {
	loc, err := time.LoadLocation("UTC")
	if err != nil {
		return ""
	}
	return time.Now().In(loc).Format("January 2, 2006 at 3:04:05 PM MST")
}
