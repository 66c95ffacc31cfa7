package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/token-factory-kit/internal/chain"
	"github.com/ligun0805/token-factory-kit/internal/config"
	"github.com/ligun0805/token-factory-kit/internal/contracts"
	"github.com/ligun0805/token-factory-kit/internal/factorycheck"
	"github.com/ligun0805/token-factory-kit/internal/logging"
	"github.com/ligun0805/token-factory-kit/internal/metrics"
)

func main() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	st := config.Load()
	var scenarios string
	flag.StringVar(&st.RPCURL, "rpc", st.RPCURL, "RPC endpoint of a development node")
	flag.StringVar(&st.ChainID, "chain-id", st.ChainID, "chain id, empty to ask the node")
	flag.StringVar(&st.FactoryArtifact, "artifact", st.FactoryArtifact, "TokenFactory artifact (Hardhat or Foundry JSON)")
	flag.StringVar(&st.CreationCost, "cost", st.CreationCost, "token creation cost, in ether")
	flag.StringVar(&scenarios, "only", strings.Join(st.CheckScenarios, ","), "comma separated scenarios to run")
	flag.StringVar(&st.CheckReport, "report", st.CheckReport, "write a JSON report to this path")
	flag.DurationVar(&st.TxTimeout, "tx-timeout", st.TxTimeout, "max wait for each transaction to be mined")
	flag.StringVar(&st.LogLevel, "log-level", st.LogLevel, "panic|fatal|error|warn|info|debug|trace")
	flag.BoolVar(&st.LogJSON, "log-json", st.LogJSON, "log as JSON")
	flag.StringVar(&st.MetricsAddr, "metrics", st.MetricsAddr, "serve prometheus metrics on this address while running")
	list := flag.Bool("list", false, "print scenario names and exit")
	flag.Parse()
	st.CheckScenarios = config.SplitCSV(scenarios)

	if *list {
		for _, s := range factorycheck.Scenarios() {
			fmt.Println(s.Name)
		}
		return
	}

	log := logging.New("factorycheck", st.LogLevel, st.LogJSON)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := run(ctx, st, log)
	if err != nil {
		log.WithError(err).Fatal("factorycheck failed")
	}
	printSummary(report)
	if st.CheckReport != "" {
		if err := report.Save(st.CheckReport); err != nil {
			log.WithError(err).Error("save report")
		} else {
			log.WithField("path", st.CheckReport).Info("report saved")
		}
	}
	if !report.OK() {
		os.Exit(1)
	}
}

func run(ctx context.Context, st config.Settings, log *logrus.Entry) (*factorycheck.Report, error) {
	artifact, err := contracts.LoadArtifact(st.FactoryArtifact)
	if err != nil {
		return nil, err
	}
	if err := artifact.RequireTokenFactory(); err != nil {
		return nil, err
	}
	cost, err := chain.ParseEther(st.CreationCost)
	if err != nil {
		return nil, errors.Wrap(err, "creation cost")
	}
	if len(st.CheckKeys) != 4 {
		return nil, errors.Errorf("CHECK_KEYS needs 4 keys (owner,user,dev,dao), got %d", len(st.CheckKeys))
	}

	client, err := chain.Dial(ctx, st.RPCURL)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	chainID, err := chain.ResolveChainID(ctx, client, st.ChainID)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	if st.MetricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := m.Serve(metricsCtx, st.MetricsAddr, log); err != nil {
				log.WithError(err).Warn("metrics server")
			}
		}()
	}
	tx := make([]*chain.Transactor, len(st.CheckKeys))
	for i, key := range st.CheckKeys {
		s, err := chain.NewSigner(key, chainID)
		if err != nil {
			return nil, errors.Wrapf(err, "CHECK_KEYS[%d]", i)
		}
		tx[i] = chain.NewTransactor(client, s, st.TxTimeout, log, m)
	}
	log.WithFields(logrus.Fields{
		"rpc":      st.RPCURL,
		"chainId":  chainID,
		"artifact": st.FactoryArtifact,
		"owner":    tx[0].Address().Hex(),
		"user":     tx[1].Address().Hex(),
	}).Info("running factory checks")

	return factorycheck.Run(ctx, &factorycheck.Env{
		Backend:      client,
		Owner:        tx[0],
		User:         tx[1],
		Dev:          tx[2],
		DAO:          tx[3],
		Bytecode:     artifact.Bytecode,
		CreationCost: cost,
		Log:          log,
	}, st.CheckScenarios)
}

func printSummary(r *factorycheck.Report) {
	fmt.Println("=== FACTORY CHECK ===")
	fmt.Println("run:", r.RunID, "chain:", r.ChainID)
	for _, res := range r.Results {
		mark := "PASS"
		if !res.Passed {
			mark = "FAIL"
		}
		fmt.Printf("[%s] %-15s %8s  %s\n", mark, res.Scenario, res.Duration, res.Error)
		for _, n := range res.Notes {
			fmt.Println("       ", n)
		}
	}
	fmt.Printf("passed %d, failed %d\n", r.Passed(), r.Failed())
	fmt.Println("=====================")
}
