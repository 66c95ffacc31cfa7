// Package events follows contract logs and hands decoded events to a handler
// in arrival order.
package events

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/token-factory-kit/internal/contracts"
	"github.com/ligun0805/token-factory-kit/internal/metrics"
)

const DefaultPollInterval = 4 * time.Second

// LogSource is the part of a node the listener reads from.
type LogSource interface {
	ethereum.LogFilterer
	BlockNumber(ctx context.Context) (uint64, error)
}

// Decoded is a log turned into a typed event value.
type Decoded struct {
	Name  string
	Value interface{}
	Log   types.Log
}

type Decoder func(types.Log) (Decoded, error)

type Handler func(Decoded)

// DeployerDecoder decodes the four pool deployer events.
func DeployerDecoder(d *contracts.PoolDeployer) Decoder {
	return func(l types.Log) (Decoded, error) {
		v, err := d.ParseEvent(l)
		if err != nil {
			return Decoded{}, err
		}
		return Decoded{Name: contracts.EventName(v), Value: v, Log: l}, nil
	}
}

type Listener struct {
	src     LogSource
	query   ethereum.FilterQuery
	decode  Decoder
	handle  Handler
	poll    time.Duration
	log     *logrus.Entry
	metrics *metrics.Metrics

	next  uint64 // first block not yet delivered
	known bool   // next is valid
}

// NewListener follows logs matching q. When q.FromBlock is set, logs already
// mined from that block on are delivered first.
func NewListener(src LogSource, q ethereum.FilterQuery, decode Decoder, handle Handler, poll time.Duration, log *logrus.Entry, m *metrics.Metrics) *Listener {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Listener{
		src:     src,
		query:   q,
		decode:  decode,
		handle:  handle,
		poll:    poll,
		log:     log.WithField("component", "listener"),
		metrics: m,
	}
}

// Run blocks until ctx is done. It streams logs over a subscription and falls
// back to polling when the endpoint cannot push notifications or the
// subscription drops.
func (l *Listener) Run(ctx context.Context) error {
	if l.query.FromBlock != nil {
		l.next, l.known = l.query.FromBlock.Uint64(), true
	}
	ch := make(chan types.Log, 128)
	sub, err := l.src.SubscribeFilterLogs(ctx, l.query, ch)
	if err != nil {
		l.log.WithError(err).Info("log subscription unavailable, polling")
		return l.pollLoop(ctx)
	}
	defer sub.Unsubscribe()
	l.log.Debug("subscribed to logs")

	if l.known {
		if err := l.catchUp(ctx); err != nil {
			l.log.WithError(err).Warn("log catch-up failed, polling")
			return l.pollLoop(ctx)
		}
	}
	delivered := l.next
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if ctx.Err() != nil {
				return nil
			}
			l.log.WithError(err).Warn("log subscription dropped, polling")
			return l.pollLoop(ctx)
		case lg := <-ch:
			if lg.BlockNumber < delivered {
				continue
			}
			l.dispatch(lg)
			if !l.known || lg.BlockNumber >= l.next {
				l.next, l.known = lg.BlockNumber+1, true
			}
		}
	}
}

// catchUp delivers everything from l.next to the current head.
func (l *Listener) catchUp(ctx context.Context) error {
	head, err := l.src.BlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "head block")
	}
	if head < l.next {
		return nil
	}
	logs, err := l.src.FilterLogs(ctx, l.rangeQuery(l.next, head))
	if err != nil {
		return errors.Wrap(err, "filter logs")
	}
	for _, lg := range logs {
		l.dispatch(lg)
	}
	l.next = head + 1
	return nil
}

func (l *Listener) pollLoop(ctx context.Context) error {
	for !l.known {
		head, err := l.src.BlockNumber(ctx)
		if err == nil {
			l.next, l.known = head+1, true
			break
		}
		l.log.WithError(err).Warn("head block")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.poll):
		}
	}
	l.log.WithFields(logrus.Fields{"from": l.next, "every": l.poll}).Debug("polling logs")

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		head, err := l.src.BlockNumber(ctx)
		if err != nil {
			l.log.WithError(err).Warn("head block")
			continue
		}
		if head < l.next {
			continue
		}
		logs, err := l.src.FilterLogs(ctx, l.rangeQuery(l.next, head))
		if err != nil {
			l.log.WithError(err).Warn("filter logs")
			continue
		}
		for _, lg := range logs {
			l.dispatch(lg)
		}
		l.next = head + 1
	}
}

func (l *Listener) rangeQuery(from, to uint64) ethereum.FilterQuery {
	q := l.query
	q.FromBlock = new(big.Int).SetUint64(from)
	q.ToBlock = new(big.Int).SetUint64(to)
	return q
}

func (l *Listener) dispatch(lg types.Log) {
	fields := logrus.Fields{"block": lg.BlockNumber, "tx": lg.TxHash.Hex(), "index": lg.Index}
	if lg.Removed {
		l.log.WithFields(fields).Debug("ignoring removed log")
		return
	}
	ev, err := l.decode(lg)
	if err != nil {
		l.log.WithFields(fields).WithError(err).Debug("skipping undecodable log")
		return
	}
	l.metrics.Event(ev.Name)
	l.handle(ev)
}
