package txtable

import (
	"errors"
	"fmt"
	"strings"
)

// Every failure rejects the whole proof instance; none of them is recoverable.
var (
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrFieldOverflow     = errors.New("field overflow")
	ErrTableMalformed    = errors.New("table malformed")
	ErrSignatureInvalid  = errors.New("signature invalid")
	ErrAddressMismatch   = errors.New("address mismatch")
	ErrDigestLookupMiss  = errors.New("digest lookup miss")
	ErrUnsupportedTxType = errors.New("unsupported transaction type")
	ErrZeroCaller        = errors.New("zero caller address")
)

// TxError attributes a failure to one transaction slot.
type TxError struct {
	TxID uint64
	Tag  Tag // zero when the failure is not tied to a field
	Err  error
	Msg  string
}

func (e *TxError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "tx %d", e.TxID)
	if e.Tag != 0 {
		fmt.Fprintf(&b, " %s", e.Tag)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *TxError) Unwrap() error { return e.Err }

func txErr(txID uint64, tag Tag, err error, format string, args ...any) error {
	return &TxError{TxID: txID, Tag: tag, Err: err, Msg: fmt.Sprintf(format, args...)}
}

// MalformedError lists every invariant violation found in a table.
type MalformedError struct {
	Violations []string
}

func (e *MalformedError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("%v: %s", ErrTableMalformed, e.Violations[0])
	}
	return fmt.Sprintf("%v: %d violations, first: %s", ErrTableMalformed, len(e.Violations), e.Violations[0])
}

func (e *MalformedError) Is(target error) bool { return target == ErrTableMalformed }
