package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/token-factory-kit/internal/chain"
	"github.com/ligun0805/token-factory-kit/internal/config"
	"github.com/ligun0805/token-factory-kit/internal/contracts"
	"github.com/ligun0805/token-factory-kit/internal/events"
	"github.com/ligun0805/token-factory-kit/internal/logging"
	"github.com/ligun0805/token-factory-kit/internal/metrics"
	"github.com/ligun0805/token-factory-kit/internal/sequence"
)

func main() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	cfg := parseFlags(config.Load())
	log := logging.New("pooldemo", cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("pooldemo failed")
	}
}

func run(ctx context.Context, cfg config.Settings, log *logrus.Entry) error {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return errors.Errorf("bad contract address %q", cfg.ContractAddress)
	}
	params, err := poolParams(cfg)
	if err != nil {
		return err
	}
	if cfg.PrivateKeyHex == "" {
		if cfg.PrivateKeyHex, err = readPassword("PRIVATE_KEY: "); err != nil {
			return err
		}
	}

	client, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return err
	}
	defer client.Close()

	chainID, err := chain.ResolveChainID(ctx, client, cfg.ChainID)
	if err != nil {
		return err
	}
	signer, err := chain.NewSigner(cfg.PrivateKeyHex, chainID)
	if err != nil {
		return err
	}
	printConfig(cfg, chainID, signer.Address)
	if err := printNetState(ctx, os.Stdout, client, client, cfg, signer.Address); err != nil {
		return err
	}

	m := metrics.New()
	tx := chain.NewTransactor(client, signer, cfg.TxTimeout, log, m)
	deployer := contracts.NewPoolDeployer(common.HexToAddress(cfg.ContractAddress), client).Connect(tx)

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "head block")
	}
	listener := events.NewListener(client,
		deployer.EventQuery(new(big.Int).SetUint64(head+1)),
		events.DeployerDecoder(deployer),
		sequence.EventLogger(log, cfg.TokenDecimals),
		cfg.PollInterval, log, m)

	helpers := []helper{{"listener", listener.Run}}
	if cfg.MetricsAddr != "" {
		helpers = append(helpers, helper{"metrics", func(ctx context.Context) error {
			return m.Serve(ctx, cfg.MetricsAddr, log)
		}})
	}
	runSequence(ctx, log, cfg.ListenFor, func(ctx context.Context) error {
		return sequence.NewRunner(log).Run(ctx, sequence.PoolSetup(deployer, params))
	}, helpers...)
	return nil
}

func poolParams(cfg config.Settings) (sequence.PoolParams, error) {
	sqrtPrice, ok := chain.ParseBig(cfg.SqrtPriceX96)
	if !ok {
		return sequence.PoolParams{}, errors.Errorf("bad SQRT_PRICE_X96 %q", cfg.SqrtPriceX96)
	}
	amountA, err := chain.ParseUnits(cfg.AmountA, cfg.TokenDecimals)
	if err != nil {
		return sequence.PoolParams{}, errors.Wrap(err, "AMOUNT_A")
	}
	amountB, err := chain.ParseUnits(cfg.AmountB, cfg.TokenDecimals)
	if err != nil {
		return sequence.PoolParams{}, errors.Wrap(err, "AMOUNT_B")
	}
	return sequence.PoolParams{
		SqrtPriceX96: sqrtPrice,
		TickLower:    cfg.TickLower,
		TickUpper:    cfg.TickUpper,
		AmountA:      amountA,
		AmountB:      amountB,
	}, nil
}
