package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/token-factory-kit/internal/metrics"
)

// TxError describes a transaction that could not be submitted or was mined with
// a failed status. Reason carries the node's revert message when there is one.
type TxError struct {
	Method string
	Hash   common.Hash
	Reason string
	Err    error
}

func (e *TxError) Error() string {
	msg := e.Method
	if e.Hash != (common.Hash{}) {
		msg += " " + e.Hash.Hex()
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: reverted: %s", msg, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg + ": failed"
}

func (e *TxError) Unwrap() error { return e.Err }

// Transactor submits transactions for one signer and blocks until each is mined.
type Transactor struct {
	Backend Backend
	Signer  *Signer
	Timeout time.Duration

	log     *logrus.Entry
	metrics *metrics.Metrics
}

func NewTransactor(b Backend, s *Signer, timeout time.Duration, log *logrus.Entry, m *metrics.Metrics) *Transactor {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Transactor{
		Backend: b,
		Signer:  s,
		Timeout: timeout,
		log:     log.WithField("from", s.Address.Hex()),
		metrics: m,
	}
}

func (t *Transactor) Address() common.Address { return t.Signer.Address }

// Send invokes method on c, then waits for inclusion. A receipt with a failed
// status is reported as *TxError.
func (t *Transactor) Send(ctx context.Context, c *bind.BoundContract, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	opts, err := t.Signer.TransactOpts(ctx, value)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	tx, err := c.Transact(opts, method, args...)
	if err != nil {
		t.metrics.Transaction(method, "rejected", 0)
		return nil, &TxError{Method: method, Reason: RevertReason(err), Err: err}
	}
	t.log.WithFields(logrus.Fields{"method": method, "tx": tx.Hash().Hex()}).Debug("transaction submitted")

	receipt, err := t.wait(ctx, tx)
	if err != nil {
		t.metrics.Transaction(method, "unconfirmed", 0)
		return nil, &TxError{Method: method, Hash: tx.Hash(), Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		t.metrics.Transaction(method, "reverted", 0)
		return receipt, &TxError{Method: method, Hash: tx.Hash(), Reason: t.replayReason(ctx, tx, receipt)}
	}
	t.metrics.Transaction(method, "ok", time.Since(start))
	t.log.WithFields(logrus.Fields{
		"method":  method,
		"tx":      tx.Hash().Hex(),
		"block":   receipt.BlockNumber,
		"gasUsed": receipt.GasUsed,
	}).Debug("transaction mined")
	return receipt, nil
}

// Deploy creates a contract and waits until its code is visible.
func (t *Transactor) Deploy(ctx context.Context, parsed abi.ABI, bytecode []byte, args ...interface{}) (common.Address, *types.Receipt, error) {
	opts, err := t.Signer.TransactOpts(ctx, nil)
	if err != nil {
		return common.Address{}, nil, err
	}
	addr, tx, _, err := bind.DeployContract(opts, parsed, bytecode, t.Backend, args...)
	if err != nil {
		return common.Address{}, nil, &TxError{Method: "deploy", Reason: RevertReason(err), Err: err}
	}
	receipt, err := t.wait(ctx, tx)
	if err != nil {
		return common.Address{}, nil, &TxError{Method: "deploy", Hash: tx.Hash(), Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Address{}, receipt, &TxError{Method: "deploy", Hash: tx.Hash()}
	}
	waitCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()
	if _, err := bind.WaitDeployed(waitCtx, t.Backend, tx); err != nil {
		return common.Address{}, receipt, errors.Wrap(err, "wait deployed")
	}
	t.log.WithFields(logrus.Fields{"address": addr.Hex(), "tx": tx.Hash().Hex()}).Debug("contract deployed")
	return addr, receipt, nil
}

func (t *Transactor) wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()
	return bind.WaitMined(waitCtx, t.Backend, tx)
}

// replayReason re-executes a failed transaction as a call at its block to
// recover the revert message. Best effort.
func (t *Transactor) replayReason(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) string {
	if tx.To() == nil {
		return ""
	}
	msg := callMsgFromTx(t.Signer.Address, tx)
	_, err := t.Backend.CallContract(ctx, msg, receipt.BlockNumber)
	return RevertReason(err)
}
