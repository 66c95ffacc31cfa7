package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/ligun0805/token-factory-kit/internal/chain"
)

const (
	EventDebug          = "Debug"
	EventTokenAddresses = "TokenAddresses"
	EventPoolCreated    = "PoolCreated"
	EventLiquidityAdded = "LiquidityAdded"
)

var (
	minInt24   = big.NewInt(-1 << 23)
	maxInt24   = big.NewInt(1<<23 - 1)
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxUint160 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))
)

// Event payloads. The first field of single-value events must stay the value
// itself, abi unpacking fills field 0.
type DebugEvent struct {
	Message string
	Raw     types.Log
}

type TokenAddressesEvent struct {
	TokenA common.Address
	TokenB common.Address
	Raw    types.Log
}

type PoolCreatedEvent struct {
	Pool common.Address
	Raw  types.Log
}

type LiquidityAddedEvent struct {
	AmountA *big.Int
	AmountB *big.Int
	Raw     types.Log
}

// PoolDeployer drives the Algebra test contract that creates two tokens, a
// pool for them and seeds liquidity.
type PoolDeployer struct {
	contract
}

func NewPoolDeployer(address common.Address, b chain.Backend) *PoolDeployer {
	return &PoolDeployer{contract: newContract(address, poolDeployerABI, b)}
}

// Connect returns a copy of the handle that sends transactions as t.
func (d *PoolDeployer) Connect(t *chain.Transactor) *PoolDeployer {
	c := *d
	c.tx = t
	return &c
}

func (d *PoolDeployer) CreateTokens(ctx context.Context) (*types.Receipt, error) {
	return d.transact(ctx, nil, "createTokens")
}

func (d *PoolDeployer) CreateAndInitializePool(ctx context.Context, sqrtPriceX96 *big.Int) (*types.Receipt, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 || sqrtPriceX96.Cmp(maxUint160) > 0 {
		return nil, errors.Errorf("sqrtPriceX96 %v out of uint160 range", sqrtPriceX96)
	}
	return d.transact(ctx, nil, "createAndInitializePool", sqrtPriceX96)
}

func (d *PoolDeployer) AddLiquidity(ctx context.Context, tickLower, tickUpper int64, amountA, amountB *big.Int) (*types.Receipt, error) {
	lo, hi := big.NewInt(tickLower), big.NewInt(tickUpper)
	for _, tick := range []*big.Int{lo, hi} {
		if tick.Cmp(minInt24) < 0 || tick.Cmp(maxInt24) > 0 {
			return nil, errors.Errorf("tick %s out of int24 range", tick)
		}
	}
	for _, amt := range []*big.Int{amountA, amountB} {
		if amt == nil || amt.Sign() < 0 || amt.Cmp(maxUint128) > 0 {
			return nil, errors.Errorf("amount %v out of uint128 range", amt)
		}
	}
	return d.transact(ctx, nil, "addLiquidity", lo, hi, amountA, amountB)
}

// EventQuery matches all four deployer events from fromBlock on (nil = node default).
func (d *PoolDeployer) EventQuery(fromBlock *big.Int) ethereum.FilterQuery {
	topics := make([]common.Hash, 0, 4)
	for _, name := range []string{EventDebug, EventTokenAddresses, EventPoolCreated, EventLiquidityAdded} {
		topics = append(topics, d.abi.Events[name].ID)
	}
	return ethereum.FilterQuery{
		FromBlock: fromBlock,
		Addresses: []common.Address{d.address},
		Topics:    [][]common.Hash{topics},
	}
}

// ParseEvent decodes a deployer log into one of the *Event types.
func (d *PoolDeployer) ParseEvent(l types.Log) (interface{}, error) {
	if len(l.Topics) == 0 {
		return nil, errors.New("log without event signature")
	}
	ev, err := d.abi.EventByID(l.Topics[0])
	if err != nil {
		return nil, errors.Wrap(err, "unknown event")
	}
	var out interface{}
	switch ev.Name {
	case EventDebug:
		out = &DebugEvent{Raw: l}
	case EventTokenAddresses:
		out = &TokenAddressesEvent{Raw: l}
	case EventPoolCreated:
		out = &PoolCreatedEvent{Raw: l}
	case EventLiquidityAdded:
		out = &LiquidityAddedEvent{Raw: l}
	default:
		return nil, errors.Errorf("unexpected event %s", ev.Name)
	}
	if err := d.bound.UnpackLog(out, ev.Name, l); err != nil {
		return nil, errors.Wrapf(err, "unpack %s", ev.Name)
	}
	return out, nil
}

// EventName returns the ABI name of a value produced by ParseEvent.
func EventName(ev interface{}) string {
	switch ev.(type) {
	case *DebugEvent:
		return EventDebug
	case *TokenAddressesEvent:
		return EventTokenAddresses
	case *PoolCreatedEvent:
		return EventPoolCreated
	case *LiquidityAddedEvent:
		return EventLiquidityAdded
	}
	return "unknown"
}
