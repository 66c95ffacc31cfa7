package factorycheck

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ligun0805/token-factory-kit/internal/chain"
	"github.com/ligun0805/token-factory-kit/internal/contracts"
)

// bondingSteps are the successive buys of the bonding-curve scenario, in ether.
var bondingSteps = []string{"0.05", "0.1", "0.15", "0.2"}

func createToken(ctx context.Context, r *run) error {
	info, err := r.createTokenAs(ctx, r.User, "Test Token", "TTK")
	if err != nil {
		return err
	}
	total, err := r.factory.GetTotalTokensCreated(ctx)
	if err != nil {
		return err
	}
	if total.Cmp(big.NewInt(1)) != 0 {
		return errors.Errorf("total tokens created = %s, want 1", total)
	}
	if info.TokenAddress == (common.Address{}) || info.LiquidityPoolAddress == (common.Address{}) {
		return errors.Errorf("zero address in record %+v", info)
	}
	r.note("token %s pool %s", info.TokenAddress.Hex(), info.LiquidityPoolAddress.Hex())
	return nil
}

func creationFees(ctx context.Context, r *run) error {
	before, err := r.balance(ctx, r.User.Address())
	if err != nil {
		return err
	}
	info, err := r.createTokenAs(ctx, r.User, "Fee Token", "FEE")
	if err != nil {
		return err
	}
	after, err := r.balance(ctx, r.User.Address())
	if err != nil {
		return err
	}
	spent := new(big.Int).Sub(before, after)
	if spent.Cmp(r.CreationCost) < 0 {
		return errors.Errorf("user spent %s ETH, want at least the creation cost %s", chain.FormatEther(spent), chain.FormatEther(r.CreationCost))
	}
	if after.Sign() <= 0 {
		return errors.New("user balance exhausted")
	}
	daoTokens, err := contracts.NewToken(info.TokenAddress, r.Backend).BalanceOf(ctx, r.DAO.Address())
	if err != nil {
		return err
	}
	if daoTokens.Sign() <= 0 {
		return errors.New("dao received no tokens")
	}
	r.note("user spent %s ETH, dao holds %s tokens", chain.FormatEther(spent), chain.FormatEther(daoTokens))
	return nil
}

func duplicateName(ctx context.Context, r *run) error {
	if _, err := r.createTokenAs(ctx, r.User, "Duplicate Token", "DUP1"); err != nil {
		return err
	}
	_, err := r.factory.Connect(r.User).CreateToken(ctx, "Duplicate Token", "DUP2", r.CreationCost)
	if err := expectRevert(err, DuplicateNameReason); err != nil {
		return err
	}
	total, err := r.factory.GetTotalTokensCreated(ctx)
	if err != nil {
		return err
	}
	if total.Cmp(big.NewInt(1)) != 0 {
		return errors.Errorf("total tokens created = %s after rejected duplicate, want 1", total)
	}
	return nil
}

func buy(ctx context.Context, r *run) error {
	info, err := r.createTokenAs(ctx, r.User, "Buy Token", "BUY")
	if err != nil {
		return err
	}
	bought, err := r.buyTokens(ctx, info, chain.MustEther("0.1"))
	if err != nil {
		return err
	}
	if bought.Sign() <= 0 {
		return errors.New("token balance did not increase after buy")
	}
	r.note("0.1 ETH bought %s tokens", chain.FormatEther(bought))
	return nil
}

func sell(ctx context.Context, r *run) error {
	info, err := r.createTokenAs(ctx, r.User, "Sell Token", "SELL")
	if err != nil {
		return err
	}
	bought, err := r.buyTokens(ctx, info, chain.MustEther("0.1"))
	if err != nil {
		return err
	}
	half := new(big.Int).Div(bought, big.NewInt(2))
	if half.Sign() == 0 {
		return errors.New("bought too few tokens to sell half")
	}
	token := contracts.NewToken(info.TokenAddress, r.Backend).Connect(r.User)
	if _, err := token.Approve(ctx, info.LiquidityPoolAddress, half); err != nil {
		return err
	}

	tokensBefore, err := token.BalanceOf(ctx, r.User.Address())
	if err != nil {
		return err
	}
	ethBefore, err := r.balance(ctx, r.User.Address())
	if err != nil {
		return err
	}
	pool := contracts.NewLiquidityPool(info.LiquidityPoolAddress, r.Backend).Connect(r.User)
	if _, err := pool.SellToken(ctx, half); err != nil {
		return err
	}
	tokensAfter, err := token.BalanceOf(ctx, r.User.Address())
	if err != nil {
		return err
	}
	ethAfter, err := r.balance(ctx, r.User.Address())
	if err != nil {
		return err
	}
	if tokensAfter.Cmp(tokensBefore) >= 0 {
		return errors.Errorf("token balance %s did not decrease from %s", tokensAfter, tokensBefore)
	}
	if ethAfter.Cmp(ethBefore) <= 0 {
		return errors.Errorf("ETH balance %s did not increase from %s", chain.FormatEther(ethAfter), chain.FormatEther(ethBefore))
	}
	r.note("sold %s tokens for %s ETH net of gas", chain.FormatEther(half), chain.FormatEther(new(big.Int).Sub(ethAfter, ethBefore)))
	return nil
}

func bondingCurve(ctx context.Context, r *run) error {
	info, err := r.createTokenAs(ctx, r.User, "Curve Token", "CRV")
	if err != nil {
		return err
	}
	pool := contracts.NewLiquidityPool(info.LiquidityPoolAddress, r.Backend)
	prev, err := pool.GetReserve(ctx)
	if err != nil {
		return err
	}
	for _, step := range bondingSteps {
		value := chain.MustEther(step)
		bought, err := r.buyTokens(ctx, info, value)
		if err != nil {
			return errors.Wrapf(err, "buy %s ETH", step)
		}
		res, err := pool.GetReserve(ctx)
		if err != nil {
			return err
		}
		if bought.Sign() <= 0 {
			return errors.Errorf("buy %s ETH returned no tokens", step)
		}
		if res.EtherReserve.Cmp(prev.EtherReserve) <= 0 {
			return errors.Errorf("ether reserve %s did not rise after buying %s ETH", chain.FormatEther(res.EtherReserve), step)
		}
		if res.TokenReserve.Cmp(prev.TokenReserve) >= 0 {
			return errors.Errorf("token reserve %s did not fall after buying %s ETH", chain.FormatEther(res.TokenReserve), step)
		}
		r.note("buy %s ETH: %s tokens at %s ETH/token, reserves %s tokens / %s ETH",
			step, chain.FormatEther(bought), unitPrice(value, bought),
			chain.FormatEther(res.TokenReserve), chain.FormatEther(res.EtherReserve))
		prev = res
	}
	return nil
}

// buyTokens buys from the record's pool as the user and returns the tokens received.
func (r *run) buyTokens(ctx context.Context, info contracts.TokenInfo, value *big.Int) (*big.Int, error) {
	token := contracts.NewToken(info.TokenAddress, r.Backend)
	before, err := token.BalanceOf(ctx, r.User.Address())
	if err != nil {
		return nil, err
	}
	pool := contracts.NewLiquidityPool(info.LiquidityPoolAddress, r.Backend).Connect(r.User)
	if _, err := pool.BuyToken(ctx, value); err != nil {
		return nil, err
	}
	after, err := token.BalanceOf(ctx, r.User.Address())
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(after, before), nil
}

// expectRevert passes only when err is a revert carrying reason.
func expectRevert(err error, reason string) error {
	if err == nil {
		return errors.Errorf("expected revert %q, call succeeded", reason)
	}
	var txErr *chain.TxError
	if errors.As(err, &txErr) && txErr.Reason == reason {
		return nil
	}
	if chain.RevertReason(err) == reason {
		return nil
	}
	return errors.Wrapf(err, "expected revert %q", reason)
}

func unitPrice(wei, tokens *big.Int) string {
	if tokens.Sign() == 0 {
		return "n/a"
	}
	return decimal.NewFromBigInt(wei, 0).DivRound(decimal.NewFromBigInt(tokens, 0), 18).String()
}
