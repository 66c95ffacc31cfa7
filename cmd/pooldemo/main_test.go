package main

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/token-factory-kit/internal/config"
	"github.com/ligun0805/token-factory-kit/internal/contracts/contractstest"
)

func defaultSettings() config.Settings {
	return config.Settings{
		SqrtPriceX96:  "79228162514264337593543950336",
		TickLower:     -887220,
		TickUpper:     887220,
		AmountA:       "100",
		AmountB:       "100",
		TokenDecimals: 18,
	}
}

func TestPoolParams(t *testing.T) {
	hundred := new(big.Int).Mul(big.NewInt(100), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

	for _, tc := range []struct {
		name    string
		edit    func(*config.Settings)
		wantErr string
	}{
		{name: "defaults", edit: func(*config.Settings) {}},
		{name: "hex price", edit: func(s *config.Settings) { s.SqrtPriceX96 = "0x1000000000000000000000000" }},
		{name: "bad price", edit: func(s *config.Settings) { s.SqrtPriceX96 = "1:1" }, wantErr: "bad SQRT_PRICE_X96"},
		{name: "empty price", edit: func(s *config.Settings) { s.SqrtPriceX96 = "" }, wantErr: "bad SQRT_PRICE_X96"},
		{name: "too precise amount a", edit: func(s *config.Settings) { s.AmountA = "1.5"; s.TokenDecimals = 0 }, wantErr: "AMOUNT_A"},
		{name: "bad amount b", edit: func(s *config.Settings) { s.AmountB = "lots" }, wantErr: "AMOUNT_B"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultSettings()
			tc.edit(&cfg)
			p, err := poolParams(cfg)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, new(big.Int).Lsh(big.NewInt(1), 96), p.SqrtPriceX96)
			assert.Equal(t, int64(-887220), p.TickLower)
			assert.Equal(t, int64(887220), p.TickUpper)
			assert.Equal(t, hundred, p.AmountA)
			assert.Equal(t, hundred, p.AmountB)
		})
	}
}

type feeHistoryStub struct {
	reward [][]*big.Int
	err    error
}

func (f feeHistoryStub) FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ethereum.FeeHistory{Reward: f.reward}, nil
}

func TestPrintNetState(t *testing.T) {
	gwei := func(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000)) }
	cfg := defaultSettings()
	cfg.NetBlocks, cfg.NetPcts = 2, []int{50}

	t.Run("fee history", func(t *testing.T) {
		c := contractstest.NewChain()
		from := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
		c.Fund(from, contractstest.Ether(1))

		var out bytes.Buffer
		fh := feeHistoryStub{reward: [][]*big.Int{{gwei(1)}, {gwei(3)}}}
		require.NoError(t, printNetState(context.Background(), &out, c, fh, cfg, from))
		assert.Contains(t, out.String(), "Base fee (gwei)  : 1.00")
		assert.Contains(t, out.String(), "p50 min/avg/max: 1.00 / 2.00 / 3.00")
		assert.Contains(t, out.String(), "Balance          : 1 native")
		assert.NotContains(t, out.String(), "[WARN]")
	})

	t.Run("unfunded legacy node", func(t *testing.T) {
		c := contractstest.NewChain()
		c.UseLegacy()

		var out bytes.Buffer
		fh := feeHistoryStub{err: errors.New("method not found")}
		require.NoError(t, printNetState(context.Background(), &out, c, fh, cfg, common.Address{}))
		assert.Contains(t, out.String(), "Base fee (gwei)  : n/a")
		assert.NotContains(t, out.String(), "Tips, last")
		assert.Contains(t, out.String(), "[WARN] signer has no funds")
	})

	t.Run("fee history unavailable", func(t *testing.T) {
		var out bytes.Buffer
		fh := feeHistoryStub{err: errors.New("method not found")}
		require.NoError(t, printNetState(context.Background(), &out, contractstest.NewChain(), fh, cfg, common.Address{}))
		assert.Contains(t, out.String(), "Fee history      : n/a:")
	})
}
