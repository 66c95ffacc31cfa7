package chaintest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Env is the execution context of one contract invocation. When Commit is
// false (eth_call, eth_estimateGas) balance changes land in a throwaway overlay
// and contracts must not touch their own state.
type Env struct {
	From   common.Address
	Self   common.Address
	Value  *big.Int
	Commit bool

	chain   *Chain
	overlay map[common.Address]*big.Int
	logs    []*types.Log
	created uint64
}

func (e *Env) balance(addr common.Address) *big.Int {
	if e.overlay != nil {
		if b, ok := e.overlay[addr]; ok {
			return b
		}
	}
	return e.chain.balanceLocked(addr)
}

func (e *Env) setBalance(addr common.Address, v *big.Int) {
	if e.overlay != nil {
		e.overlay[addr] = v
		return
	}
	e.chain.balances[addr] = v
}

// Balance returns the native balance of addr as seen by this invocation.
func (e *Env) Balance(addr common.Address) *big.Int {
	return new(big.Int).Set(e.balance(addr))
}

// Transfer sends native currency from the executing contract.
func (e *Env) Transfer(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	have := e.balance(e.Self)
	if have.Cmp(amount) < 0 {
		return Revert("insufficient contract balance")
	}
	e.setBalance(e.Self, new(big.Int).Sub(have, amount))
	e.setBalance(to, new(big.Int).Add(e.balance(to), amount))
	return nil
}

// Create registers a child contract and returns its address. Outside of a
// commit the address is computed but nothing is registered.
func (e *Env) Create(ct Contract) common.Address {
	if !e.Commit {
		addr := crypto.CreateAddress(e.Self, e.chain.nonces[e.Self]+e.created)
		e.created++
		return addr
	}
	addr := crypto.CreateAddress(e.Self, e.chain.nonces[e.Self])
	e.chain.nonces[e.Self]++
	e.chain.contracts[addr] = ct
	return addr
}

// Emit records a log to be attached to the receipt when the call commits.
func (e *Env) Emit(topics []common.Hash, data []byte) {
	e.logs = append(e.logs, &types.Log{Address: e.Self, Topics: topics, Data: data})
}

// RevertError mirrors how geth reports reverts: message plus ABI encoded data.
type RevertError struct {
	Reason string
}

func Revert(reason string) error { return &RevertError{Reason: reason} }

func Revertf(format string, a ...any) error { return Revert(fmt.Sprintf(format, a...)) }

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

func (e *RevertError) ErrorCode() int { return 3 }

func (e *RevertError) ErrorData() interface{} {
	stringTy, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: stringTy}}.Pack(e.Reason)
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	return hexutil.Encode(append(selector, packed...))
}
