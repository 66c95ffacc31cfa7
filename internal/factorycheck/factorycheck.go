// Package factorycheck runs the TokenFactory acceptance scenarios against a
// development node.
package factorycheck

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/token-factory-kit/internal/chain"
	"github.com/ligun0805/token-factory-kit/internal/contracts"
)

const DuplicateNameReason = "Token with this name already exists"

// Env is what every scenario runs with. Owner deploys the factory, User trades,
// Dev and DAO receive fees.
type Env struct {
	Backend      chain.Backend
	Owner        *chain.Transactor
	User         *chain.Transactor
	Dev          *chain.Transactor
	DAO          *chain.Transactor
	Bytecode     []byte
	CreationCost *big.Int
	Log          *logrus.Entry
}

func (e *Env) validate() error {
	switch {
	case e.Backend == nil:
		return errors.New("no backend")
	case e.Owner == nil || e.User == nil || e.Dev == nil || e.DAO == nil:
		return errors.New("owner, user, dev and dao signers are required")
	case len(e.Bytecode) == 0:
		return errors.New("no factory bytecode")
	case e.CreationCost == nil || e.CreationCost.Sign() <= 0:
		return errors.New("creation cost must be positive")
	}
	return nil
}

// run is the per-scenario state: a freshly deployed factory and a place for notes.
type run struct {
	*Env
	factory *contracts.TokenFactory
	notes   []string
}

func (r *run) note(format string, args ...interface{}) {
	r.notes = append(r.notes, fmt.Sprintf(format, args...))
}

type Scenario struct {
	Name string
	Run  func(ctx context.Context, r *run) error
}

// Scenarios lists every check in execution order.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "create-token", Run: createToken},
		{Name: "creation-fees", Run: creationFees},
		{Name: "duplicate-name", Run: duplicateName},
		{Name: "buy", Run: buy},
		{Name: "sell", Run: sell},
		{Name: "bonding-curve", Run: bondingCurve},
	}
}

// Run deploys a fresh factory for each selected scenario and runs it. An empty
// filter selects everything. Scenario failures are recorded in the report;
// the returned error covers setup problems only.
func Run(ctx context.Context, env *Env, filter []string) (*Report, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	selected, err := selectScenarios(filter)
	if err != nil {
		return nil, err
	}
	e := *env
	if e.Log == nil {
		e.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	report := &Report{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	if id, err := env.Backend.ChainID(ctx); err == nil {
		report.ChainID = id.String()
	}

	e.Log = e.Log.WithField("run", report.RunID)
	for _, s := range selected {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Results = append(report.Results, runOne(ctx, &e, s))
	}
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

func runOne(ctx context.Context, env *Env, s Scenario) Result {
	log := env.Log.WithField("scenario", s.Name)
	start := time.Now()
	res := Result{Scenario: s.Name}

	r := &run{Env: env}
	factory, _, err := contracts.DeployTokenFactory(ctx, env.Owner, env.Bytecode, env.Dev.Address(), env.DAO.Address())
	if err == nil {
		r.factory = factory
		res.Factory = factory.Address().Hex()
		err = s.Run(ctx, r)
	} else {
		err = errors.Wrap(err, "deploy factory")
	}

	res.Duration = time.Since(start).Round(time.Millisecond).String()
	res.Notes = r.notes
	if err != nil {
		res.Error = err.Error()
		log.WithError(err).Error("scenario failed")
		return res
	}
	res.Passed = true
	log.WithField("took", res.Duration).Info("scenario passed")
	return res
}

func selectScenarios(filter []string) ([]Scenario, error) {
	all := Scenarios()
	if len(filter) == 0 {
		return all, nil
	}
	byName := make(map[string]Scenario, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}
	want := make(map[string]bool, len(filter))
	for _, name := range filter {
		if _, ok := byName[name]; !ok {
			return nil, errors.Errorf("unknown scenario %q", name)
		}
		want[name] = true
	}
	var out []Scenario
	for _, s := range all {
		if want[s.Name] {
			out = append(out, s)
		}
	}
	return out, nil
}

// createTokenAs creates a token from t and returns the new record.
func (r *run) createTokenAs(ctx context.Context, t *chain.Transactor, name, symbol string) (contracts.TokenInfo, error) {
	if _, err := r.factory.Connect(t).CreateToken(ctx, name, symbol, r.CreationCost); err != nil {
		return contracts.TokenInfo{}, err
	}
	return r.factory.Latest(ctx)
}

func (r *run) balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	b, err := r.Backend.BalanceAt(ctx, addr, nil)
	return b, errors.Wrap(err, "balance")
}
