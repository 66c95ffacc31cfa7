package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// retryCaller performs eth_call with small exponential backoff.
// Reverts are returned immediately; only transport errors are retried.
type retryCaller struct {
	bind.ContractCaller
	attempts int
	backoff  time.Duration
}

// RetryCaller wraps a caller for read-only contract calls. State-changing
// transactions never go through it.
func RetryCaller(c bind.ContractCaller) bind.ContractCaller {
	return &retryCaller{ContractCaller: c, attempts: 3, backoff: 200 * time.Millisecond}
}

func (r *retryCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	backoff := r.backoff
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		ret, err := r.ContractCaller.CallContract(ctx, msg, block)
		if err == nil {
			return ret, nil
		}
		if IsRevert(err) {
			return nil, err
		}
		lastErr = err
		if attempt < r.attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			if isRateLimitError(err) {
				backoff *= 2
			}
		}
	}
	return nil, lastErr
}

func (r *retryCaller) CodeAt(ctx context.Context, contract common.Address, block *big.Int) ([]byte, error) {
	return r.ContractCaller.CodeAt(ctx, contract, block)
}
