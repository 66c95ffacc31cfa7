package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/ligun0805/token-factory-kit/internal/chain"
)

// contract is the shared core of every typed proxy: a bound contract for
// reads plus an optional transactor for writes.
type contract struct {
	address common.Address
	abi     abi.ABI
	backend chain.Backend
	bound   *bind.BoundContract
	tx      *chain.Transactor
}

func newContract(address common.Address, parsed abi.ABI, b chain.Backend) contract {
	return contract{
		address: address,
		abi:     parsed,
		backend: b,
		bound:   bind.NewBoundContract(address, parsed, chain.RetryCaller(b), b, b),
	}
}

func (c contract) Address() common.Address { return c.address }

func (c contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		if reason := chain.RevertReason(err); reason != "" {
			return nil, errors.Errorf("%s: reverted: %s", method, reason)
		}
		return nil, errors.Wrap(err, method)
	}
	return out, nil
}

func (c contract) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c contract) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	if c.tx == nil {
		return nil, errors.Errorf("%s: contract handle is read-only, use Connect", method)
	}
	return c.tx.Send(ctx, c.bound, value, method, args...)
}
