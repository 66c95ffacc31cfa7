// Package contractstest provides Go stand-ins for the token factory and the
// pool deployer contracts, runnable on a chaintest.Chain.
package contractstest

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/token-factory-kit/internal/chain/chaintest"
	"github.com/ligun0805/token-factory-kit/internal/contracts"
)

var (
	factoryABI  = mustParse(contracts.TokenFactoryABI)
	poolABI     = mustParse(contracts.LiquidityPoolABI)
	tokenABI    = mustParse(contracts.TokenABI)
	deployerABI = mustParse(contracts.PoolDeployerABI)

	ether = big.NewInt(1_000_000_000_000_000_000)
)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ---------- token ----------

type TokenSim struct {
	*chaintest.ABIContract
	Name, Symbol string
	Supply       *big.Int
	Balances     map[common.Address]*big.Int
	Allowances   map[common.Address]map[common.Address]*big.Int
}

func NewTokenSim(name, symbol string, supply *big.Int) *TokenSim {
	t := &TokenSim{
		Name:       name,
		Symbol:     symbol,
		Supply:     new(big.Int).Set(supply),
		Balances:   make(map[common.Address]*big.Int),
		Allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
	t.ABIContract = &chaintest.ABIContract{ABI: tokenABI, Handlers: map[string]chaintest.Handler{
		"name":        func(*chaintest.Env, []interface{}) ([]interface{}, error) { return []interface{}{t.Name}, nil },
		"symbol":      func(*chaintest.Env, []interface{}) ([]interface{}, error) { return []interface{}{t.Symbol}, nil },
		"decimals":    func(*chaintest.Env, []interface{}) ([]interface{}, error) { return []interface{}{uint8(18)}, nil },
		"totalSupply": func(*chaintest.Env, []interface{}) ([]interface{}, error) { return []interface{}{t.Supply}, nil },
		"balanceOf": func(_ *chaintest.Env, args []interface{}) ([]interface{}, error) {
			return []interface{}{t.BalanceOf(args[0].(common.Address))}, nil
		},
		"allowance": func(_ *chaintest.Env, args []interface{}) ([]interface{}, error) {
			return []interface{}{t.allowance(args[0].(common.Address), args[1].(common.Address))}, nil
		},
		"approve": func(env *chaintest.Env, args []interface{}) ([]interface{}, error) {
			if env.Commit {
				spender, amount := args[0].(common.Address), args[1].(*big.Int)
				if t.Allowances[env.From] == nil {
					t.Allowances[env.From] = make(map[common.Address]*big.Int)
				}
				t.Allowances[env.From][spender] = new(big.Int).Set(amount)
			}
			return []interface{}{true}, nil
		},
	}}
	return t
}

func (t *TokenSim) BalanceOf(owner common.Address) *big.Int {
	if b, ok := t.Balances[owner]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *TokenSim) allowance(owner, spender common.Address) *big.Int {
	if m, ok := t.Allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

func (t *TokenSim) move(from, to common.Address, amount *big.Int) {
	t.Balances[from] = new(big.Int).Sub(t.BalanceOf(from), amount)
	t.Balances[to] = new(big.Int).Add(t.BalanceOf(to), amount)
}

// ---------- pool ----------

// PoolSim prices trades as a constant product over the real ether reserve
// plus a virtual one. It only has to behave plausibly for tests.
type PoolSim struct {
	*chaintest.ABIContract
	Token        *TokenSim
	TokenReserve *big.Int
	EtherReserve *big.Int
	VirtualEther *big.Int
}

func NewPoolSim(token *TokenSim, tokenReserve *big.Int) *PoolSim {
	p := &PoolSim{
		Token:        token,
		TokenReserve: new(big.Int).Set(tokenReserve),
		EtherReserve: new(big.Int),
		VirtualEther: new(big.Int).Set(ether),
	}
	p.ABIContract = &chaintest.ABIContract{ABI: poolABI, Handlers: map[string]chaintest.Handler{
		"getReserve": func(*chaintest.Env, []interface{}) ([]interface{}, error) {
			return []interface{}{new(big.Int).Set(p.TokenReserve), new(big.Int).Set(p.EtherReserve)}, nil
		},
		"buyToken":  p.buy,
		"sellToken": p.sell,
	}}
	return p
}

func (p *PoolSim) buy(env *chaintest.Env, _ []interface{}) ([]interface{}, error) {
	if env.Value == nil || env.Value.Sign() <= 0 {
		return nil, chaintest.Revert("Must send ETH to buy tokens")
	}
	den := new(big.Int).Add(p.EtherReserve, p.VirtualEther)
	den.Add(den, env.Value)
	out := new(big.Int).Mul(env.Value, p.TokenReserve)
	out.Div(out, den)
	if out.Sign() == 0 {
		return nil, chaintest.Revert("Insufficient output amount")
	}
	if env.Commit {
		p.TokenReserve.Sub(p.TokenReserve, out)
		p.EtherReserve.Add(p.EtherReserve, env.Value)
		p.Token.move(env.Self, env.From, out)
	}
	return nil, nil
}

func (p *PoolSim) sell(env *chaintest.Env, args []interface{}) ([]interface{}, error) {
	amount := args[0].(*big.Int)
	if amount.Sign() <= 0 {
		return nil, chaintest.Revert("Amount must be greater than zero")
	}
	if p.Token.BalanceOf(env.From).Cmp(amount) < 0 {
		return nil, chaintest.Revert("Insufficient token balance")
	}
	if p.Token.allowance(env.From, env.Self).Cmp(amount) < 0 {
		return nil, chaintest.Revert("Insufficient allowance")
	}
	num := new(big.Int).Add(p.EtherReserve, p.VirtualEther)
	num.Mul(num, amount)
	ethOut := num.Div(num, new(big.Int).Add(p.TokenReserve, amount))
	if ethOut.Cmp(p.EtherReserve) > 0 {
		return nil, chaintest.Revert("Insufficient ether reserve")
	}
	if err := env.Transfer(env.From, ethOut); err != nil {
		return nil, err
	}
	if env.Commit {
		p.Token.move(env.From, env.Self, amount)
		p.Token.Allowances[env.From][env.Self] = new(big.Int).Sub(p.Token.allowance(env.From, env.Self), amount)
		p.TokenReserve.Add(p.TokenReserve, amount)
		p.EtherReserve.Sub(p.EtherReserve, ethOut)
	}
	return nil, nil
}

// ---------- factory ----------

type FactorySim struct {
	*chaintest.ABIContract
	Dev, DAO     common.Address
	CreationCost *big.Int
	Supply       *big.Int
	Records      []contracts.TokenInfo
	Tokens       map[common.Address]*TokenSim
	Pools        map[common.Address]*PoolSim
	names        map[string]bool
}

func NewFactorySim(dev, dao common.Address) *FactorySim {
	f := &FactorySim{
		Dev:          dev,
		DAO:          dao,
		CreationCost: new(big.Int).Div(ether, big.NewInt(5000)), // 0.0002
		Supply:       new(big.Int).Mul(big.NewInt(1_000_000_000), ether),
		Tokens:       make(map[common.Address]*TokenSim),
		Pools:        make(map[common.Address]*PoolSim),
		names:        make(map[string]bool),
	}
	f.ABIContract = &chaintest.ABIContract{ABI: factoryABI, Handlers: map[string]chaintest.Handler{
		"createToken": f.createToken,
		"getTotalTokensCreated": func(*chaintest.Env, []interface{}) ([]interface{}, error) {
			return []interface{}{big.NewInt(int64(len(f.Records)))}, nil
		},
		"getAllTokens": func(*chaintest.Env, []interface{}) ([]interface{}, error) {
			return []interface{}{append([]contracts.TokenInfo(nil), f.Records...)}, nil
		},
	}}
	return f
}

func (f *FactorySim) createToken(env *chaintest.Env, args []interface{}) ([]interface{}, error) {
	name, symbol := args[0].(string), args[1].(string)
	if env.Value == nil || env.Value.Cmp(f.CreationCost) < 0 {
		return nil, chaintest.Revert("Insufficient creation fee")
	}
	if f.names[name] {
		return nil, chaintest.Revert("Token with this name already exists")
	}
	devShare := new(big.Int).Div(env.Value, big.NewInt(2))
	if err := env.Transfer(f.Dev, devShare); err != nil {
		return nil, err
	}
	if err := env.Transfer(f.DAO, new(big.Int).Sub(env.Value, devShare)); err != nil {
		return nil, err
	}

	token := NewTokenSim(name, symbol, f.Supply)
	daoShare := new(big.Int).Div(f.Supply, big.NewInt(100))
	pool := NewPoolSim(token, new(big.Int).Sub(f.Supply, daoShare))
	tokenAddr := env.Create(token)
	poolAddr := env.Create(pool)
	if env.Commit {
		token.Balances[f.DAO] = daoShare
		token.Balances[poolAddr] = new(big.Int).Set(pool.TokenReserve)
		f.names[name] = true
		f.Records = append(f.Records, contracts.TokenInfo{TokenAddress: tokenAddr, LiquidityPoolAddress: poolAddr})
		f.Tokens[tokenAddr] = token
		f.Pools[poolAddr] = pool
	}
	return nil, nil
}

// FactoryDeployer decodes (dev, dao) from the tail of the creation code and
// hands every new factory to onDeploy when it is not nil.
func FactoryDeployer(onDeploy func(common.Address, *FactorySim)) chaintest.Deployer {
	return func(env *chaintest.Env, code []byte) (chaintest.Contract, error) {
		if len(code) < 64 {
			return nil, chaintest.Revert("missing constructor arguments")
		}
		args, err := factoryABI.Constructor.Inputs.Unpack(code[len(code)-64:])
		if err != nil {
			return nil, err
		}
		f := NewFactorySim(args[0].(common.Address), args[1].(common.Address))
		if onDeploy != nil {
			onDeploy(env.Self, f)
		}
		return f, nil
	}
}

// ---------- pool deployer ----------

// DeployerSim emits the events the pool setup sequence listens for.
type DeployerSim struct {
	*chaintest.ABIContract
	TokenA, TokenB common.Address
	Pool           common.Address
	SqrtPriceX96   *big.Int
	Liquidity      [2]*big.Int
	Ticks          [2]*big.Int
}

func NewDeployerSim() *DeployerSim {
	d := &DeployerSim{}
	d.ABIContract = &chaintest.ABIContract{ABI: deployerABI, Handlers: map[string]chaintest.Handler{
		"createTokens":            d.createTokens,
		"createAndInitializePool": d.createPool,
		"addLiquidity":            d.addLiquidity,
	}}
	return d
}

func (d *DeployerSim) createTokens(env *chaintest.Env, _ []interface{}) ([]interface{}, error) {
	if err := d.EmitEvent(env, contracts.EventDebug, "Creating tokens"); err != nil {
		return nil, err
	}
	a := env.Create(NewTokenSim("Token A", "TKA", new(big.Int).Mul(big.NewInt(1_000_000), ether)))
	b := env.Create(NewTokenSim("Token B", "TKB", new(big.Int).Mul(big.NewInt(1_000_000), ether)))
	if env.Commit {
		d.TokenA, d.TokenB = a, b
	}
	return nil, d.EmitEvent(env, contracts.EventTokenAddresses, a, b)
}

func (d *DeployerSim) createPool(env *chaintest.Env, args []interface{}) ([]interface{}, error) {
	if d.TokenA == (common.Address{}) {
		return nil, chaintest.Revert("Tokens not created")
	}
	pool := env.Create(&chaintest.ABIContract{ABI: poolABI})
	if env.Commit {
		d.Pool = pool
		d.SqrtPriceX96 = args[0].(*big.Int)
	}
	if err := d.EmitEvent(env, contracts.EventPoolCreated, pool); err != nil {
		return nil, err
	}
	return nil, d.EmitEvent(env, contracts.EventDebug, "Pool initialized")
}

func (d *DeployerSim) addLiquidity(env *chaintest.Env, args []interface{}) ([]interface{}, error) {
	if d.Pool == (common.Address{}) {
		return nil, chaintest.Revert("Pool not initialized")
	}
	amountA, amountB := args[2].(*big.Int), args[3].(*big.Int)
	if env.Commit {
		d.Ticks = [2]*big.Int{args[0].(*big.Int), args[1].(*big.Int)}
		d.Liquidity = [2]*big.Int{amountA, amountB}
	}
	return nil, d.EmitEvent(env, contracts.EventLiquidityAdded, amountA, amountB)
}
