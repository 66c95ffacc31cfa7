package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// NetState is a one-shot view of the node and the signer before sending anything.
type NetState struct {
	ChainID  *big.Int
	Head     uint64
	BaseFee  *big.Int // nil on pre-London chains
	GasPrice *big.Int
	TipCap   *big.Int // nil when eth_maxPriorityFeePerGas is unsupported
	Balance  *big.Int
}

func Snapshot(ctx context.Context, b Backend, account common.Address) (NetState, error) {
	var st NetState
	var err error
	if st.ChainID, err = b.ChainID(ctx); err != nil {
		return st, errors.Wrap(err, "chain id")
	}
	h, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return st, errors.Wrap(err, "head")
	}
	st.Head = h.Number.Uint64()
	if h.BaseFee != nil {
		st.BaseFee = new(big.Int).Set(h.BaseFee)
		if tip, err := b.SuggestGasTipCap(ctx); err == nil {
			st.TipCap = tip
		}
	}
	if st.GasPrice, err = b.SuggestGasPrice(ctx); err != nil {
		return st, errors.Wrap(err, "gas price")
	}
	if st.Balance, err = b.BalanceAt(ctx, account, nil); err != nil {
		return st, errors.Wrap(err, "balance")
	}
	return st, nil
}

// FormatGwei renders wei as gwei with two decimals.
func FormatGwei(x *big.Int) string {
	if x == nil {
		return "n/a"
	}
	r := new(big.Rat).SetFrac(new(big.Int).Set(x), big.NewInt(1_000_000_000))
	return r.FloatString(2)
}
