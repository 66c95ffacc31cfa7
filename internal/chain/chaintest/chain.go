// Package chaintest is an in-memory node for tests. Contracts are Go values
// registered per address; every accepted transaction is mined into its own block.
package chaintest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

const (
	CallGas   = 60_000
	DeployGas = 1_000_000
)

var placeholderCode = []byte{0x60, 0x80, 0x60, 0x40}

// Contract stands in for deployed bytecode.
type Contract interface {
	Exec(env *Env, input []byte) ([]byte, error)
}

// Deployer turns creation code into a Contract.
type Deployer func(env *Env, code []byte) (Contract, error)

type Chain struct {
	mu sync.Mutex

	chainID *big.Int
	signer  types.Signer
	baseFee *big.Int
	tipCap  *big.Int
	head    uint64

	balances  map[common.Address]*big.Int
	nonces    map[common.Address]uint64
	contracts map[common.Address]Contract
	receipts  map[common.Hash]*types.Receipt
	logs      []types.Log
	subs      map[*logSub]struct{}
	deployer  Deployer
	noSubs    bool
	logIndex  uint
}

func New(chainID *big.Int) *Chain {
	return &Chain{
		chainID:   new(big.Int).Set(chainID),
		signer:    types.LatestSignerForChainID(chainID),
		baseFee:   big.NewInt(1_000_000_000),
		tipCap:    big.NewInt(1_000_000_000),
		balances:  make(map[common.Address]*big.Int),
		nonces:    make(map[common.Address]uint64),
		contracts: make(map[common.Address]Contract),
		receipts:  make(map[common.Hash]*types.Receipt),
		subs:      make(map[*logSub]struct{}),
	}
}

// UseLegacy makes the chain report no base fee, like pre-London networks.
func (c *Chain) UseLegacy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseFee = nil
}

// DisableSubscriptions makes SubscribeFilterLogs fail like a plain HTTP endpoint.
func (c *Chain) DisableSubscriptions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noSubs = true
}

func (c *Chain) SetDeployer(d Deployer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deployer = d
}

func (c *Chain) Register(addr common.Address, ct Contract) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contracts[addr] = ct
}

func (c *Chain) Fund(addr common.Address, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[addr] = new(big.Int).Add(c.balanceLocked(addr), wei)
}

func (c *Chain) Balance(addr common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.balanceLocked(addr))
}

// EmitLog mines an empty block carrying a single log, for listener tests.
func (c *Chain) EmitLog(addr common.Address, topics []common.Hash, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head++
	c.appendLogsLocked(common.Hash{}, []*types.Log{{Address: addr, Topics: topics, Data: data}})
}

func (c *Chain) balanceLocked(addr common.Address) *big.Int {
	if b, ok := c.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

// ---------- node API ----------

func (c *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *Chain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.head
	if number != nil {
		if !number.IsUint64() || number.Uint64() > c.head {
			return nil, ethereum.NotFound
		}
		n = number.Uint64()
	}
	h := &types.Header{Number: new(big.Int).SetUint64(n), GasLimit: 30_000_000, Time: 1_700_000_000 + n*12}
	if c.baseFee != nil {
		h.BaseFee = new(big.Int).Set(c.baseFee)
	}
	return h, nil
}

func (c *Chain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.Balance(account), nil
}

func (c *Chain) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.contracts[account]; ok {
		return placeholderCode, nil
	}
	return nil, nil
}

func (c *Chain) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return c.CodeAt(ctx, account, nil)
}

func (c *Chain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

func (c *Chain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.baseFee == nil {
		return big.NewInt(2_000_000_000), nil
	}
	return new(big.Int).Add(c.baseFee, c.tipCap), nil
}

func (c *Chain) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.tipCap), nil
}

func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.To == nil {
		return nil, errors.New("call without recipient")
	}
	ct, ok := c.contracts[*msg.To]
	if !ok {
		return nil, nil
	}
	env := c.dryEnv(msg.From, *msg.To, msg.Value)
	return ct.Exec(env, msg.Data)
}

func (c *Chain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.Value != nil && c.balanceLocked(msg.From).Cmp(msg.Value) < 0 {
		return 0, errors.New("insufficient funds for transfer")
	}
	if msg.To == nil {
		return DeployGas, nil
	}
	ct, ok := c.contracts[*msg.To]
	if !ok {
		return 21_000, nil
	}
	if _, err := ct.Exec(c.dryEnv(msg.From, *msg.To, msg.Value), msg.Data); err != nil {
		return 0, err
	}
	return CallGas, nil
}

func (c *Chain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.receipts[txHash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (c *Chain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return errors.Wrap(err, "invalid sender")
	}
	if want := c.nonces[from]; tx.Nonce() != want {
		return errors.Errorf("invalid nonce: have %d, want %d", tx.Nonce(), want)
	}
	value := tx.Value()
	maxCost := new(big.Int).Mul(new(big.Int).SetUint64(tx.Gas()), tx.GasFeeCap())
	maxCost.Add(maxCost, value)
	if c.balanceLocked(from).Cmp(maxCost) < 0 {
		return errors.New("insufficient funds for gas * price + value")
	}

	gasUsed := uint64(CallGas)
	if tx.To() == nil {
		gasUsed = DeployGas
	}
	if gasUsed > tx.Gas() {
		gasUsed = tx.Gas()
	}
	price := c.effectivePrice(tx)
	fee := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), price)

	c.nonces[from]++
	c.head++
	c.balances[from] = new(big.Int).Sub(c.balanceLocked(from), fee)

	receipt := &types.Receipt{
		Type:              tx.Type(),
		TxHash:            tx.Hash(),
		GasUsed:           gasUsed,
		CumulativeGasUsed: gasUsed,
		EffectiveGasPrice: price,
		BlockNumber:       new(big.Int).SetUint64(c.head),
		BlockHash:         blockHash(c.head),
		Status:            types.ReceiptStatusSuccessful,
	}
	c.receipts[tx.Hash()] = receipt

	env := &Env{From: from, Value: value, Commit: true, chain: c}
	var logs []*types.Log
	if tx.To() == nil {
		addr := crypto.CreateAddress(from, tx.Nonce())
		env.Self = addr
		c.move(from, addr, value)
		ct, err := c.deploy(env, tx.Data())
		if err != nil {
			c.move(addr, from, value)
			receipt.Status = types.ReceiptStatusFailed
			return nil
		}
		c.contracts[addr] = ct
		receipt.ContractAddress = addr
		logs = env.logs
	} else {
		to := *tx.To()
		env.Self = to
		c.move(from, to, value)
		if ct, ok := c.contracts[to]; ok {
			if _, err := ct.Exec(env, tx.Data()); err != nil {
				c.move(to, from, value)
				receipt.Status = types.ReceiptStatusFailed
				return nil
			}
			logs = env.logs
		}
	}
	receipt.Logs = c.appendLogsLocked(tx.Hash(), logs)
	return nil
}

func (c *Chain) deploy(env *Env, code []byte) (Contract, error) {
	if c.deployer == nil {
		return nil, errors.New("no deployer configured")
	}
	return c.deployer(env, code)
}

func (c *Chain) effectivePrice(tx *types.Transaction) *big.Int {
	if c.baseFee == nil {
		return tx.GasFeeCap()
	}
	tip := new(big.Int).Sub(tx.GasFeeCap(), c.baseFee)
	if tip.Cmp(tx.GasTipCap()) > 0 {
		tip = tx.GasTipCap()
	}
	return new(big.Int).Add(c.baseFee, tip)
}

func (c *Chain) move(from, to common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	c.balances[from] = new(big.Int).Sub(c.balanceLocked(from), amount)
	c.balances[to] = new(big.Int).Add(c.balanceLocked(to), amount)
}

func (c *Chain) dryEnv(from, self common.Address, value *big.Int) *Env {
	env := &Env{From: from, Self: self, Value: value, chain: c, overlay: make(map[common.Address]*big.Int)}
	if value != nil && value.Sign() > 0 {
		env.setBalance(from, new(big.Int).Sub(env.balance(from), value))
		env.setBalance(self, new(big.Int).Add(env.balance(self), value))
	}
	return env
}

func (c *Chain) appendLogsLocked(txHash common.Hash, logs []*types.Log) []*types.Log {
	for _, l := range logs {
		l.BlockNumber = c.head
		l.BlockHash = blockHash(c.head)
		l.TxHash = txHash
		l.Index = c.logIndex
		c.logIndex++
		c.logs = append(c.logs, *l)
		for s := range c.subs {
			if matches(s.query, *l) {
				select {
				case s.in <- *l:
				default:
				}
			}
		}
	}
	return logs
}

func blockHash(n uint64) common.Hash {
	return crypto.Keccak256Hash(new(big.Int).SetUint64(n).Bytes())
}

// ---------- logs ----------

type logSub struct {
	query ethereum.FilterQuery
	in    chan types.Log
}

func (c *Chain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	from, to := uint64(0), c.head
	if q.FromBlock != nil {
		from = q.FromBlock.Uint64()
	}
	if q.ToBlock != nil && q.ToBlock.Sign() >= 0 {
		to = q.ToBlock.Uint64()
	}
	var out []types.Log
	for _, l := range c.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if matches(q, l) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (c *Chain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.noSubs {
		return nil, rpc.ErrNotificationsUnsupported
	}
	s := &logSub{query: q, in: make(chan types.Log, 256)}
	c.subs[s] = struct{}{}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer func() {
			c.mu.Lock()
			delete(c.subs, s)
			c.mu.Unlock()
		}()
		for {
			select {
			case l := <-s.in:
				select {
				case ch <- l:
				case <-quit:
					return nil
				}
			case <-quit:
				return nil
			}
		}
	}), nil
}

func matches(q ethereum.FilterQuery, l types.Log) bool {
	if len(q.Addresses) > 0 {
		found := false
		for _, a := range q.Addresses {
			if a == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(q.Topics) > len(l.Topics) {
		return false
	}
	for i, set := range q.Topics {
		if len(set) == 0 {
			continue
		}
		ok := false
		for _, t := range set {
			if t == l.Topics[i] {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
