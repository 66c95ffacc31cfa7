package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/ligun0805/token-factory-kit/internal/chain"
)

// TokenInfo is one factory record, in creation order.
type TokenInfo struct {
	TokenAddress         common.Address
	LiquidityPoolAddress common.Address
}

type TokenFactory struct {
	contract
}

func NewTokenFactory(address common.Address, b chain.Backend) *TokenFactory {
	return &TokenFactory{contract: newContract(address, tokenFactoryABI, b)}
}

// DeployTokenFactory deploys bytecode with (dev, dao) constructor arguments and
// returns a handle already connected to t.
func DeployTokenFactory(ctx context.Context, t *chain.Transactor, bytecode []byte, dev, dao common.Address) (*TokenFactory, *types.Receipt, error) {
	if len(bytecode) == 0 {
		return nil, nil, errors.New("empty factory bytecode")
	}
	addr, receipt, err := t.Deploy(ctx, tokenFactoryABI, bytecode, dev, dao)
	if err != nil {
		return nil, receipt, err
	}
	return NewTokenFactory(addr, t.Backend).Connect(t), receipt, nil
}

func (f *TokenFactory) Connect(t *chain.Transactor) *TokenFactory {
	c := *f
	c.tx = t
	return &c
}

// CreateToken pays value as the creation cost.
func (f *TokenFactory) CreateToken(ctx context.Context, name, symbol string, value *big.Int) (*types.Receipt, error) {
	return f.transact(ctx, value, "createToken", name, symbol)
}

func (f *TokenFactory) GetTotalTokensCreated(ctx context.Context) (*big.Int, error) {
	return f.callBig(ctx, "getTotalTokensCreated")
}

func (f *TokenFactory) GetAllTokens(ctx context.Context) ([]TokenInfo, error) {
	out, err := f.call(ctx, "getAllTokens")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]TokenInfo)).(*[]TokenInfo), nil
}

// Latest returns the most recently created record.
func (f *TokenFactory) Latest(ctx context.Context) (TokenInfo, error) {
	all, err := f.GetAllTokens(ctx)
	if err != nil {
		return TokenInfo{}, err
	}
	if len(all) == 0 {
		return TokenInfo{}, errors.New("factory has no tokens")
	}
	return all[len(all)-1], nil
}
