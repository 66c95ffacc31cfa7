package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ligun0805/token-factory-kit/internal/chain"
)

// Reserve is a pool's reserve pair as reported by getReserve.
type Reserve struct {
	TokenReserve *big.Int
	EtherReserve *big.Int
}

// LiquidityPool trades a factory token against the native currency on a bonding curve.
type LiquidityPool struct {
	contract
}

func NewLiquidityPool(address common.Address, b chain.Backend) *LiquidityPool {
	return &LiquidityPool{contract: newContract(address, liquidityPoolABI, b)}
}

func (p *LiquidityPool) Connect(t *chain.Transactor) *LiquidityPool {
	c := *p
	c.tx = t
	return &c
}

func (p *LiquidityPool) GetReserve(ctx context.Context) (Reserve, error) {
	out, err := p.call(ctx, "getReserve")
	if err != nil {
		return Reserve{}, err
	}
	return Reserve{TokenReserve: out[0].(*big.Int), EtherReserve: out[1].(*big.Int)}, nil
}

func (p *LiquidityPool) BuyToken(ctx context.Context, value *big.Int) (*types.Receipt, error) {
	return p.transact(ctx, value, "buyToken")
}

// SellToken requires a prior Approve of at least amount to the pool.
func (p *LiquidityPool) SellToken(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	return p.transact(ctx, nil, "sellToken", amount)
}
