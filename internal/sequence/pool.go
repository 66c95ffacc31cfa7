package sequence

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/token-factory-kit/internal/chain"
	"github.com/ligun0805/token-factory-kit/internal/contracts"
	"github.com/ligun0805/token-factory-kit/internal/events"
)

// PoolParams are the arguments of the pool setup calls. Amounts are in token
// base units.
type PoolParams struct {
	SqrtPriceX96 *big.Int
	TickLower    int64
	TickUpper    int64
	AmountA      *big.Int
	AmountB      *big.Int
}

// PoolSetup creates two tokens, a pool for them and adds liquidity.
func PoolSetup(d *contracts.PoolDeployer, p PoolParams) []Step {
	return []Step{
		{
			Name:  "createTokens",
			Start: "Creating tokens...",
			Done:  "Tokens created",
			Run:   d.CreateTokens,
		},
		{
			Name:  "createAndInitializePool",
			Start: "Creating and initializing pool...",
			Done:  "Pool created and initialized",
			Run: func(ctx context.Context) (*types.Receipt, error) {
				return d.CreateAndInitializePool(ctx, p.SqrtPriceX96)
			},
		},
		{
			Name:  "addLiquidity",
			Start: "Adding liquidity...",
			Done:  "Liquidity added",
			Run: func(ctx context.Context) (*types.Receipt, error) {
				return d.AddLiquidity(ctx, p.TickLower, p.TickUpper, p.AmountA, p.AmountB)
			},
		},
	}
}

// EventLogger prints deployer events as they arrive. Liquidity amounts are
// rendered with decimals.
func EventLogger(log *logrus.Entry, decimals int) events.Handler {
	return func(ev events.Decoded) {
		entry := log.WithFields(logrus.Fields{"event": ev.Name, "block": ev.Log.BlockNumber})
		switch v := ev.Value.(type) {
		case *contracts.DebugEvent:
			entry.Infof("Debug Event: %s", v.Message)
		case *contracts.TokenAddressesEvent:
			entry.Infof("Token Addresses: TokenA=%s, TokenB=%s", v.TokenA.Hex(), v.TokenB.Hex())
		case *contracts.PoolCreatedEvent:
			entry.Infof("Pool Created at Address: %s", v.Pool.Hex())
		case *contracts.LiquidityAddedEvent:
			entry.Infof("Liquidity Added: AmountA=%s, AmountB=%s",
				chain.FormatUnits(v.AmountA, decimals), chain.FormatUnits(v.AmountB, decimals))
		default:
			entry.Debug("unhandled event")
		}
	}
}
