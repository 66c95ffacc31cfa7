package contracts_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/token-factory-kit/internal/chain"
	"github.com/ligun0805/token-factory-kit/internal/contracts"
	"github.com/ligun0805/token-factory-kit/internal/contracts/contractstest"
)

var deployerAddr = common.HexToAddress("0xCD329e33DD3713384d7042BDD2417a6D7d3C6aEC")

func TestPoolDeployerSequence(t *testing.T) {
	ctx := context.Background()
	c := contractstest.NewChain()
	sim := contractstest.NewDeployerSim()
	c.Register(deployerAddr, sim)
	owner := contractstest.NewTransactor(t, c, contractstest.Ether(10))
	d := contracts.NewPoolDeployer(deployerAddr, c).Connect(owner)

	receipt, err := d.CreateTokens(ctx)
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 2)

	ev, err := d.ParseEvent(*receipt.Logs[0])
	require.NoError(t, err)
	assert.Equal(t, "Creating tokens", ev.(*contracts.DebugEvent).Message)
	ev, err = d.ParseEvent(*receipt.Logs[1])
	require.NoError(t, err)
	pair := ev.(*contracts.TokenAddressesEvent)
	assert.Equal(t, sim.TokenA, pair.TokenA)
	assert.Equal(t, sim.TokenB, pair.TokenB)
	assert.Equal(t, contracts.EventTokenAddresses, contracts.EventName(pair))

	sqrtPrice, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	receipt, err = d.CreateAndInitializePool(ctx, sqrtPrice)
	require.NoError(t, err)
	ev, err = d.ParseEvent(*receipt.Logs[0])
	require.NoError(t, err)
	assert.Equal(t, sim.Pool, ev.(*contracts.PoolCreatedEvent).Pool)
	assert.Equal(t, 0, sim.SqrtPriceX96.Cmp(sqrtPrice))

	amount := contractstest.Ether(100)
	receipt, err = d.AddLiquidity(ctx, -887220, 887220, amount, amount)
	require.NoError(t, err)
	ev, err = d.ParseEvent(*receipt.Logs[0])
	require.NoError(t, err)
	added := ev.(*contracts.LiquidityAddedEvent)
	assert.Equal(t, 0, added.AmountA.Cmp(amount))
	assert.Equal(t, 0, added.AmountB.Cmp(amount))
	assert.Equal(t, int64(-887220), sim.Ticks[0].Int64())
	assert.Equal(t, receipt.TxHash, added.Raw.TxHash)
}

func TestPoolDeployerRevertReason(t *testing.T) {
	c := contractstest.NewChain()
	c.Register(deployerAddr, contractstest.NewDeployerSim())
	owner := contractstest.NewTransactor(t, c, contractstest.Ether(1))
	d := contracts.NewPoolDeployer(deployerAddr, c).Connect(owner)

	_, err := d.CreateAndInitializePool(context.Background(), big.NewInt(1))
	require.Error(t, err)
	var txErr *chain.TxError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, "createAndInitializePool", txErr.Method)
	assert.Equal(t, "Tokens not created", txErr.Reason)
}

func TestPoolDeployerRangeChecks(t *testing.T) {
	ctx := context.Background()
	c := contractstest.NewChain()
	c.Register(deployerAddr, contractstest.NewDeployerSim())
	owner := contractstest.NewTransactor(t, c, contractstest.Ether(1))
	d := contracts.NewPoolDeployer(deployerAddr, c).Connect(owner)

	_, err := d.AddLiquidity(ctx, -(1 << 23) - 1, 0, big.NewInt(1), big.NewInt(1))
	assert.ErrorContains(t, err, "int24")
	_, err = d.AddLiquidity(ctx, 0, 1<<23, big.NewInt(1), big.NewInt(1))
	assert.ErrorContains(t, err, "int24")
	_, err = d.AddLiquidity(ctx, 0, 1, new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	assert.ErrorContains(t, err, "uint128")
	_, err = d.AddLiquidity(ctx, 0, 1, big.NewInt(-1), big.NewInt(1))
	assert.ErrorContains(t, err, "uint128")
	_, err = d.CreateAndInitializePool(ctx, new(big.Int).Lsh(big.NewInt(1), 160))
	assert.ErrorContains(t, err, "uint160")
	_, err = d.CreateAndInitializePool(ctx, big.NewInt(0))
	assert.ErrorContains(t, err, "uint160")

	nonce, err := c.PendingNonceAt(ctx, owner.Address())
	require.NoError(t, err)
	assert.Zero(t, nonce, "rejected arguments must not reach the node")
}

func TestReadOnlyHandleRefusesTransactions(t *testing.T) {
	c := contractstest.NewChain()
	c.Register(deployerAddr, contractstest.NewDeployerSim())
	_, err := contracts.NewPoolDeployer(deployerAddr, c).CreateTokens(context.Background())
	assert.ErrorContains(t, err, "read-only")
}

func TestEventQueryAndUnknownLogs(t *testing.T) {
	c := contractstest.NewChain()
	d := contracts.NewPoolDeployer(deployerAddr, c)

	q := d.EventQuery(big.NewInt(7))
	assert.Equal(t, []common.Address{deployerAddr}, q.Addresses)
	require.Len(t, q.Topics, 1)
	assert.Len(t, q.Topics[0], 4)
	assert.Equal(t, int64(7), q.FromBlock.Int64())

	_, err := d.ParseEvent(contractsLog(nil))
	assert.Error(t, err)
	_, err = d.ParseEvent(contractsLog([]common.Hash{common.HexToHash("0x01")}))
	assert.ErrorContains(t, err, "unknown event")
	assert.Equal(t, "unknown", contracts.EventName(struct{}{}))
}
