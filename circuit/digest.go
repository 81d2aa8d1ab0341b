package circuit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/lookup/logderivlookup"
)

type lookupTable interface {
	Insert(val frontend.Variable) int
	Lookup(inds ...frontend.Variable) []frontend.Variable
}

// DigestLookup queries the externally attested (input RLC -> digest RLC)
// table. Inputs and outputs live in two tables sharing one row index.
type DigestLookup struct {
	api     frontend.API
	inputs  lookupTable
	outputs lookupTable
}

func NewDigestLookup(api frontend.API, inputs, outputs []frontend.Variable) *DigestLookup {
	d := &DigestLookup{
		api:     api,
		inputs:  logderivlookup.New(api),
		outputs: logderivlookup.New(api),
	}
	for i := range inputs {
		d.inputs.Insert(inputs[i])
		d.outputs.Insert(outputs[i])
	}
	return d
}

// AssertAttested requires row index to hold (input, output) when active is
// 1. Inactive callers are pointed at row 0 and nothing is asserted.
func (d *DigestLookup) AssertAttested(active, index, input, output frontend.Variable) {
	api := d.api
	index = api.Select(active, index, 0)
	in := d.inputs.Lookup(index)[0]
	out := d.outputs.Lookup(index)[0]
	assertWhen(api, active, in, input)
	assertWhen(api, active, out, output)
}

// assertWhen asserts a == b unless cond is 0.
func assertWhen(api frontend.API, cond, a, b frontend.Variable) {
	api.AssertIsEqual(api.Mul(cond, api.Sub(a, b)), 0)
}
