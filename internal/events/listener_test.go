package events_test

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/token-factory-kit/internal/chain/chaintest"
	"github.com/ligun0805/token-factory-kit/internal/contracts"
	"github.com/ligun0805/token-factory-kit/internal/contracts/contractstest"
	"github.com/ligun0805/token-factory-kit/internal/events"
	"github.com/ligun0805/token-factory-kit/internal/metrics"
)

var deployerAddr = common.HexToAddress("0xCD329e33DD3713384d7042BDD2417a6D7d3C6aEC")

type collector struct {
	mu   sync.Mutex
	seen []events.Decoded
}

func (c *collector) handle(ev events.Decoded) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, ev)
}

func (c *collector) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.seen))
	for _, ev := range c.seen {
		out = append(out, ev.Name)
	}
	return out
}

type fixture struct {
	chain    *chaintest.Chain
	deployer *contracts.PoolDeployer
	sink     *collector
	metrics  *metrics.Metrics
	logger   *logrus.Logger
	hook     *test.Hook
	done     chan error
}

func newFixture(t *testing.T, subscriptions bool) *fixture {
	t.Helper()
	c := contractstest.NewChain()
	if !subscriptions {
		c.DisableSubscriptions()
	}
	c.Register(deployerAddr, contractstest.NewDeployerSim())
	owner := contractstest.NewTransactor(t, c, contractstest.Ether(10))
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return &fixture{
		chain:    c,
		deployer: contracts.NewPoolDeployer(deployerAddr, c).Connect(owner),
		sink:     &collector{},
		metrics:  metrics.New(),
		logger:   logger,
		hook:     hook,
		done:     make(chan error, 1),
	}
}

func (f *fixture) listen(t *testing.T, from *big.Int) {
	t.Helper()
	l := events.NewListener(f.chain, f.deployer.EventQuery(from),
		events.DeployerDecoder(f.deployer), f.sink.handle, 10*time.Millisecond, logrus.NewEntry(f.logger), f.metrics)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { f.done <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-f.done
	})
}

func startListener(t *testing.T, subscriptions bool) *fixture {
	t.Helper()
	f := newFixture(t, subscriptions)
	head, err := f.chain.BlockNumber(context.Background())
	require.NoError(t, err)
	f.listen(t, new(big.Int).SetUint64(head+1))
	return f
}

func (f *fixture) runSequence(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.deployer.CreateTokens(ctx)
	require.NoError(t, err)
	_, err = f.deployer.CreateAndInitializePool(ctx, big.NewInt(1<<62))
	require.NoError(t, err)
	_, err = f.deployer.AddLiquidity(ctx, -60, 60, big.NewInt(5), big.NewInt(6))
	require.NoError(t, err)
}

var wantOrder = []string{
	contracts.EventDebug,
	contracts.EventTokenAddresses,
	contracts.EventPoolCreated,
	contracts.EventDebug,
	contracts.EventLiquidityAdded,
}

func TestListenerSubscription(t *testing.T) {
	f := startListener(t, true)
	f.runSequence(t)

	require.Eventually(t, func() bool { return len(f.sink.names()) == len(wantOrder) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, wantOrder, f.sink.names())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.EventsObserved.WithLabelValues(contracts.EventDebug)))

	added := f.sink.seen[4].Value.(*contracts.LiquidityAddedEvent)
	assert.Equal(t, int64(5), added.AmountA.Int64())
	assert.Equal(t, int64(6), added.AmountB.Int64())
}

func TestListenerPollingFallback(t *testing.T) {
	f := startListener(t, false)
	f.runSequence(t)

	require.Eventually(t, func() bool { return len(f.sink.names()) == len(wantOrder) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, wantOrder, f.sink.names())

	var sawFallback bool
	for _, e := range f.hook.AllEntries() {
		if e.Message == "log subscription unavailable, polling" {
			sawFallback = true
		}
	}
	assert.True(t, sawFallback)
}

func TestListenerSkipsForeignAndUndecodableLogs(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(contracts.PoolDeployerABI))
	require.NoError(t, err)
	f := startListener(t, true)
	// matches the filter but carries a truncated payload
	f.chain.EmitLog(deployerAddr, []common.Hash{parsed.Events[contracts.EventTokenAddresses].ID}, []byte{0x01, 0x02})
	f.chain.EmitLog(common.HexToAddress("0x01"), nil, nil)
	f.runSequence(t)

	require.Eventually(t, func() bool { return len(f.sink.names()) == len(wantOrder) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, wantOrder, f.sink.names())

	var skipped bool
	for _, e := range f.hook.AllEntries() {
		if e.Message == "skipping undecodable log" {
			skipped = true
		}
	}
	assert.True(t, skipped)
}

func TestListenerReplaysMinedLogs(t *testing.T) {
	for _, tc := range []struct {
		name          string
		subscriptions bool
		from          int64
	}{
		{"subscription from genesis", true, 0},
		{"subscription from first block", true, 1},
		{"polling from genesis", false, 0},
		{"polling from first block", false, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.subscriptions)
			_, err := f.deployer.CreateTokens(context.Background())
			require.NoError(t, err)

			f.listen(t, big.NewInt(tc.from))
			require.Eventually(t, func() bool { return len(f.sink.names()) == 2 }, 2*time.Second, 5*time.Millisecond)

			_, err = f.deployer.CreateAndInitializePool(context.Background(), big.NewInt(1<<62))
			require.NoError(t, err)
			_, err = f.deployer.AddLiquidity(context.Background(), -60, 60, big.NewInt(5), big.NewInt(6))
			require.NoError(t, err)

			require.Eventually(t, func() bool { return len(f.sink.names()) == len(wantOrder) }, 2*time.Second, 5*time.Millisecond)
			assert.Equal(t, wantOrder, f.sink.names())
		})
	}
}

// flakyHead fails the first BlockNumber calls.
type flakyHead struct {
	*chaintest.Chain
	mu    sync.Mutex
	fails int
}

func (f *flakyHead) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return 0, errors.New("503 service unavailable")
	}
	return f.Chain.BlockNumber(ctx)
}

func TestListenerSurvivesHeadErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		from *big.Int
	}{
		{"during catch-up", big.NewInt(0)},
		{"before polling", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.from != nil)
			src := &flakyHead{Chain: f.chain, fails: 2}
			if tc.from != nil {
				_, err := f.deployer.CreateTokens(context.Background())
				require.NoError(t, err)
			}
			l := events.NewListener(src, f.deployer.EventQuery(tc.from),
				events.DeployerDecoder(f.deployer), f.sink.handle, 10*time.Millisecond, logrus.NewEntry(f.logger), f.metrics)
			ctx, cancel := context.WithCancel(context.Background())
			go func() { f.done <- l.Run(ctx) }()
			defer func() {
				cancel()
				require.NoError(t, <-f.done)
			}()

			if tc.from == nil {
				require.Eventually(t, func() bool {
					for _, e := range f.hook.AllEntries() {
						if e.Message == "polling logs" {
							return true
						}
					}
					return false
				}, 2*time.Second, 5*time.Millisecond)
				f.runSequence(t)
				require.Eventually(t, func() bool { return len(f.sink.names()) == len(wantOrder) }, 2*time.Second, 5*time.Millisecond)
				return
			}
			require.Eventually(t, func() bool { return len(f.sink.names()) == 2 }, 2*time.Second, 5*time.Millisecond)
		})
	}
}

func TestDeployerDecoderRejectsBareLog(t *testing.T) {
	d := contracts.NewPoolDeployer(deployerAddr, contractstest.NewChain())
	_, err := events.DeployerDecoder(d)(types.Log{Address: deployerAddr})
	assert.Error(t, err)
}
