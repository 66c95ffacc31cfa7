package sequence_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/token-factory-kit/internal/chain"
	"github.com/ligun0805/token-factory-kit/internal/contracts"
	"github.com/ligun0805/token-factory-kit/internal/contracts/contractstest"
	"github.com/ligun0805/token-factory-kit/internal/events"
	"github.com/ligun0805/token-factory-kit/internal/sequence"
)

var deployerAddr = common.HexToAddress("0xCD329e33DD3713384d7042BDD2417a6D7d3C6aEC")

func messages(h *test.Hook) []string {
	var out []string
	for _, e := range h.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}

func TestRunnerStopsAtFirstFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	var ran []string
	step := func(name string, err error) sequence.Step {
		return sequence.Step{Name: name, Start: name + " start", Done: name + " done", Run: func(context.Context) (*types.Receipt, error) {
			ran = append(ran, name)
			return &types.Receipt{BlockNumber: big.NewInt(1)}, err
		}}
	}

	err := sequence.NewRunner(logrus.NewEntry(logger)).Run(context.Background(), []sequence.Step{
		step("one", nil),
		step("two", errors.New("boom")),
		step("three", nil),
	})
	assert.EqualError(t, err, "two: boom")
	assert.Equal(t, []string{"one", "two"}, ran)
	assert.Equal(t, []string{"one start", "one done", "two start"}, messages(hook))
}

func TestRunnerHonoursCancellation(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := sequence.NewRunner(logrus.NewEntry(logger)).Run(ctx, []sequence.Step{{Name: "one", Run: func(context.Context) (*types.Receipt, error) {
		called = true
		return nil, nil
	}}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestPoolSetupAgainstDeployer(t *testing.T) {
	ctx := context.Background()
	c := contractstest.NewChain()
	sim := contractstest.NewDeployerSim()
	c.Register(deployerAddr, sim)
	owner := contractstest.NewTransactor(t, c, contractstest.Ether(10))
	d := contracts.NewPoolDeployer(deployerAddr, c).Connect(owner)

	sqrtPrice, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	params := sequence.PoolParams{
		SqrtPriceX96: sqrtPrice,
		TickLower:    -887220,
		TickUpper:    887220,
		AmountA:      chain.MustEther("100"),
		AmountB:      chain.MustEther("100"),
	}
	logger, hook := test.NewNullLogger()
	require.NoError(t, sequence.NewRunner(logrus.NewEntry(logger)).Run(ctx, sequence.PoolSetup(d, params)))

	assert.Equal(t, []string{
		"Creating tokens...", "Tokens created",
		"Creating and initializing pool...", "Pool created and initialized",
		"Adding liquidity...", "Liquidity added",
	}, messages(hook))
	assert.Equal(t, 0, sim.Liquidity[0].Cmp(params.AmountA))
	assert.Equal(t, int64(887220), sim.Ticks[1].Int64())
}

func TestPoolSetupStopsOnRevert(t *testing.T) {
	c := contractstest.NewChain()
	c.Register(deployerAddr, contractstest.NewDeployerSim())
	owner := contractstest.NewTransactor(t, c, contractstest.Ether(10))
	d := contracts.NewPoolDeployer(deployerAddr, c).Connect(owner)

	steps := sequence.PoolSetup(d, sequence.PoolParams{SqrtPriceX96: big.NewInt(1), AmountA: big.NewInt(1), AmountB: big.NewInt(1)})
	logger, _ := test.NewNullLogger()
	err := sequence.NewRunner(logrus.NewEntry(logger)).Run(context.Background(), steps[1:])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "createAndInitializePool")
	assert.Contains(t, err.Error(), "Tokens not created")
}

func TestEventLoggerFormats(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handle := sequence.EventLogger(logrus.NewEntry(logger), 18)
	a := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	b := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	handle(events.Decoded{Name: contracts.EventDebug, Value: &contracts.DebugEvent{Message: "hello"}})
	handle(events.Decoded{Name: contracts.EventTokenAddresses, Value: &contracts.TokenAddressesEvent{TokenA: a, TokenB: b}})
	handle(events.Decoded{Name: contracts.EventPoolCreated, Value: &contracts.PoolCreatedEvent{Pool: a}})
	handle(events.Decoded{Name: contracts.EventLiquidityAdded, Value: &contracts.LiquidityAddedEvent{
		AmountA: chain.MustEther("100"), AmountB: chain.MustEther("0.5"),
	}})

	assert.Equal(t, []string{
		"Debug Event: hello",
		"Token Addresses: TokenA=" + a.Hex() + ", TokenB=" + b.Hex(),
		"Pool Created at Address: " + a.Hex(),
		"Liquidity Added: AmountA=100, AmountB=0.5",
	}, messages(hook))
	assert.Equal(t, contracts.EventPoolCreated, hook.AllEntries()[2].Data["event"])
}
