// Package sequence runs dependent transactions one at a time.
package sequence

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Step is one state-changing call. Run must block until the transaction is
// mined.
type Step struct {
	Name  string
	Start string
	Done  string
	Run   func(ctx context.Context) (*types.Receipt, error)
}

type Runner struct {
	log *logrus.Entry
}

func NewRunner(log *logrus.Entry) *Runner {
	return &Runner{log: log.WithField("component", "sequence")}
}

// Run executes steps in order and stops at the first failure. Failed steps are
// never retried.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "%s not started", s.Name)
		}
		log := r.log.WithFields(logrus.Fields{"step": s.Name, "n": i + 1, "of": len(steps)})
		log.Info(s.Start)
		start := time.Now()
		receipt, err := s.Run(ctx)
		if err != nil {
			return errors.Wrap(err, s.Name)
		}
		if receipt != nil {
			log = log.WithFields(logrus.Fields{"tx": receipt.TxHash.Hex(), "block": receipt.BlockNumber})
		}
		log.WithField("took", time.Since(start).Round(time.Millisecond)).Info(s.Done)
	}
	return nil
}
