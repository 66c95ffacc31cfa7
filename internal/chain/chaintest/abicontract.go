package chaintest

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Handler implements one ABI method. args are the unpacked inputs, the
// returned values are packed as the method outputs.
type Handler func(env *Env, args []interface{}) ([]interface{}, error)

// ABIContract dispatches calldata by selector to Go handlers.
type ABIContract struct {
	ABI      abi.ABI
	Handlers map[string]Handler
}

func (c *ABIContract) Exec(env *Env, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, Revert("")
	}
	m, err := c.ABI.MethodById(input[:4])
	if err != nil {
		return nil, Revert("function selector was not recognized")
	}
	h, ok := c.Handlers[m.Name]
	if !ok {
		return nil, Revertf("%s not implemented", m.Name)
	}
	if !m.IsPayable() && env.Value != nil && env.Value.Sign() > 0 {
		return nil, Revert("")
	}
	args, err := m.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s", m.Name)
	}
	out, err := h(env, args)
	if err != nil {
		return nil, err
	}
	return m.Outputs.Pack(out...)
}

// EmitEvent packs a non-indexed event and records it on env.
func (c *ABIContract) EmitEvent(env *Env, name string, args ...interface{}) error {
	ev, ok := c.ABI.Events[name]
	if !ok {
		return errors.Errorf("no event %s", name)
	}
	data, err := ev.Inputs.NonIndexed().Pack(args...)
	if err != nil {
		return errors.Wrapf(err, "pack %s", name)
	}
	env.Emit([]common.Hash{ev.ID}, data)
	return nil
}
