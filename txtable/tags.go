// Package txtable builds and checks the Transaction Table: a fixed-size lookup
// table holding every transaction's context fields at a static offset,
// followed by a trailing region with all call-data bytes.
//
// The table is the public input of the circuit package. Values are elements of
// the BN254 scalar field so they can be assigned to the circuit unchanged.
package txtable

import "fmt"

// Tag identifies the field a table row carries.
type Tag uint8

const (
	TagNonce Tag = iota + 1
	TagGas
	TagGasPrice
	TagGasTipCap
	TagGasFeeCap
	TagCallerAddress
	TagCalleeAddress
	TagIsCreate
	TagValue
	TagCallDataLength
	TagSignHash
	TagCallData
)

// RowsPerSlot is the number of context rows of one transaction slot, one per
// tag except CallData.
const RowsPerSlot = int(TagSignHash)

// ContextTags lists the slot tags in layout order.
var ContextTags = [RowsPerSlot]Tag{
	TagNonce,
	TagGas,
	TagGasPrice,
	TagGasTipCap,
	TagGasFeeCap,
	TagCallerAddress,
	TagCalleeAddress,
	TagIsCreate,
	TagValue,
	TagCallDataLength,
	TagSignHash,
}

// Position returns the row of the tag inside a slot.
func (t Tag) Position() int { return int(t) - 1 }

// IsContext reports whether the tag lives in the context region.
func (t Tag) IsContext() bool { return t >= TagNonce && t <= TagSignHash }

func (t Tag) String() string {
	switch t {
	case TagNonce:
		return "Nonce"
	case TagGas:
		return "Gas"
	case TagGasPrice:
		return "GasPrice"
	case TagGasTipCap:
		return "GasTipCap"
	case TagGasFeeCap:
		return "GasFeeCap"
	case TagCallerAddress:
		return "CallerAddress"
	case TagCalleeAddress:
		return "CalleeAddress"
	case TagIsCreate:
		return "IsCreate"
	case TagValue:
		return "Value"
	case TagCallDataLength:
		return "CallDataLength"
	case TagSignHash:
		return "SignHash"
	case TagCallData:
		return "CallData"
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}
