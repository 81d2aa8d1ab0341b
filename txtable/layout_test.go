package txtable

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestBuildSingleTransaction(t *testing.T) {
	p := testParams(2, 4)
	tx := unsignedTx(1, []byte{0x11, 0x22})
	table := buildTable(t, p, []Transaction{tx})

	require.Len(t, table.Context, 2*RowsPerSlot)
	require.Len(t, table.CallData, 4)
	require.Equal(t, 1, table.RealTxs())
	require.Equal(t, 2, table.CallDataUsed())

	length := table.Cell(1, TagCallDataLength).Value
	require.Equal(t, uint64(2), length.Uint64())
	caller := table.Cell(1, TagCallerAddress).Value
	want := AddressValue(tx.From)
	require.True(t, caller.Equal(&want))

	for k, tag := range ContextTags {
		row := table.Context[SlotOffset(2)+k]
		require.Equal(t, uint64(2), row.TxID)
		require.Equal(t, tag, row.Tag)
		require.True(t, row.Value.IsZero(), "padding %s", tag)
	}

	expected := []Row{
		{TxID: 1, Tag: TagCallData, Index: 0, Value: byteValue(0x11)},
		{TxID: 1, Tag: TagCallData, Index: 1, Value: byteValue(0x22)},
		{TxID: 0, Tag: TagCallData, Index: 0},
		{TxID: 0, Tag: TagCallData, Index: 0},
	}
	require.Equal(t, expected, table.CallData)
	require.NoError(t, Check(table))
}

func TestBuildCapacityExceeded(t *testing.T) {
	p := testParams(2, 4)

	table, err := NewBuilder(p, testChallenge()).Build([]Transaction{unsignedTx(1, []byte{1, 2, 3, 4, 5})})
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Nil(t, table)

	// the limit applies to the sum over all transactions
	table, err = NewBuilder(p, testChallenge()).Build([]Transaction{
		unsignedTx(1, []byte{1, 2, 3}),
		unsignedTx(2, []byte{4, 5}),
	})
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Nil(t, table)

	table, err = NewBuilder(p, testChallenge()).Build([]Transaction{unsignedTx(1, nil), unsignedTx(2, nil), unsignedTx(3, nil)})
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Nil(t, table)
}

func TestBuildExactCapacity(t *testing.T) {
	p := testParams(2, 4)
	table := buildTable(t, p, []Transaction{unsignedTx(1, []byte{1, 2}), unsignedTx(2, []byte{3, 4})})
	require.Equal(t, 4, table.CallDataUsed())
	for _, row := range table.CallData {
		require.NotZero(t, row.TxID)
	}
	require.NoError(t, Check(table))
}

func TestBuildEmpty(t *testing.T) {
	table := buildTable(t, testParams(3, 8), nil)
	require.Zero(t, table.RealTxs())
	for _, row := range table.Context {
		require.True(t, row.Value.IsZero())
	}
	for _, row := range table.CallData {
		require.Equal(t, Row{Tag: TagCallData}, row)
	}
	require.NoError(t, Check(table))
}

func TestBuildRandomTables(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		maxTxs := 1 + rng.Intn(6)
		maxCallData := rng.Intn(64)
		p := testParams(maxTxs, maxCallData)

		n := rng.Intn(maxTxs + 1)
		budget := maxCallData
		txs := make([]Transaction, n)
		for i := range txs {
			size := 0
			if budget > 0 {
				size = rng.Intn(budget + 1)
			}
			budget -= size
			data := make([]byte, size)
			rng.Read(data)
			txs[i] = unsignedTx(byte(i+1), data)
		}

		table := buildTable(t, p, txs)
		require.NoError(t, Check(table), "round %d", round)

		for i := 0; i < maxTxs; i++ {
			txID := uint64(i + 1)
			for k := range ContextTags {
				require.Equal(t, txID, table.Context[SlotOffset(txID)+k].TxID)
			}
			if i >= n {
				for k := range ContextTags {
					require.True(t, table.Context[SlotOffset(txID)+k].Value.IsZero())
				}
			}
		}

		pos := 0
		for i, tx := range txs {
			for j, b := range tx.Data {
				row := table.CallData[pos]
				require.Equal(t, uint64(i+1), row.TxID)
				require.Equal(t, uint64(j), row.Index)
				want := byteValue(b)
				require.True(t, row.Value.Equal(&want))

				got, ok := table.Lookup(uint64(i+1), TagCallData, uint64(j))
				require.True(t, ok)
				require.True(t, got.Equal(&want))
				pos++
			}
		}
		for ; pos < maxCallData; pos++ {
			require.Equal(t, Row{Tag: TagCallData}, table.CallData[pos])
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	p := testParams(4, 32)
	txs := []Transaction{
		unsignedTx(1, []byte("first")),
		unsignedTx(2, nil),
		unsignedTx(3, []byte("third call")),
	}
	a := buildTable(t, p, txs)
	b := buildTable(t, p, txs)
	require.Equal(t, a.Context, b.Context)
	require.Equal(t, a.CallData, b.CallData)
}

func TestTableLookup(t *testing.T) {
	p := testParams(3, 8)
	txs := []Transaction{unsignedTx(1, []byte{9, 8}), unsignedTx(2, nil), unsignedTx(3, []byte{7})}
	table := buildTable(t, p, txs)

	nonce, ok := table.Lookup(3, TagNonce, 0)
	require.True(t, ok)
	require.Equal(t, uint64(3), nonce.Uint64())

	b, ok := table.Lookup(3, TagCallData, 0)
	require.True(t, ok)
	require.Equal(t, uint64(7), b.Uint64())

	b, ok = table.Lookup(1, TagCallData, 1)
	require.True(t, ok)
	require.Equal(t, uint64(8), b.Uint64())

	for _, key := range []struct {
		txID  uint64
		tag   Tag
		index uint64
	}{
		{0, TagNonce, 0},
		{4, TagNonce, 0},
		{1, TagNonce, 1},
		{2, TagCallData, 0},
		{1, TagCallData, 2},
		{1, Tag(0), 0},
	} {
		_, ok := table.Lookup(key.txID, key.tag, key.index)
		require.False(t, ok, "%+v", key)
	}
}

func TestBuildPropagatesEncodingFailure(t *testing.T) {
	p := testParams(2, 4)
	p.Widths = FieldWidths{Nonce: 64, Gas: 8, CallDataLength: 32}
	table, err := NewBuilder(p, testChallenge()).Build([]Transaction{unsignedTx(1, nil)})
	require.Nil(t, table)
	require.ErrorIs(t, err, ErrFieldOverflow)

	var txErr *TxError
	require.True(t, errors.As(err, &txErr))
	require.Equal(t, uint64(1), txErr.TxID)
	require.Equal(t, TagGas, txErr.Tag)
}

func TestBuildWithWidths(t *testing.T) {
	narrow := FieldWidths{Nonce: 4, Gas: 64, CallDataLength: 32}
	b := NewBuilder(testParams(2, 4), testChallenge(), WithWidths(narrow))

	table, err := b.Build([]Transaction{unsignedTx(15, nil)})
	require.NoError(t, err)
	require.Equal(t, narrow, table.Params.Widths)
	require.NoError(t, Check(table))

	_, err = b.Build([]Transaction{unsignedTx(16, nil)})
	require.ErrorIs(t, err, ErrFieldOverflow)
}

func TestBuildRejectsZeroCaller(t *testing.T) {
	tx := unsignedTx(1, []byte{0x11, 0x22})
	tx.From = common.Address{}

	table, err := NewBuilder(testParams(2, 4), testChallenge()).Build([]Transaction{unsignedTx(2, nil), tx})
	require.Nil(t, table)
	require.ErrorIs(t, err, ErrZeroCaller)

	var txErr *TxError
	require.True(t, errors.As(err, &txErr))
	require.Equal(t, uint64(2), txErr.TxID)
	require.Equal(t, TagCallerAddress, txErr.Tag)
}
