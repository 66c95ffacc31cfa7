package main

import (
	"flag"
	"fmt"
	"math/big"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/ligun0805/token-factory-kit/internal/config"
)

// parseFlags lets command-line flags override the environment.
func parseFlags(st config.Settings) config.Settings {
	flag.StringVar(&st.RPCURL, "rpc", st.RPCURL, "RPC endpoint URL (http, ws or ipc)")
	flag.StringVar(&st.ChainID, "chain-id", st.ChainID, "chain id, empty to ask the node")
	flag.StringVar(&st.ContractAddress, "contract", st.ContractAddress, "pool deployer contract address")
	flag.StringVar(&st.SqrtPriceX96, "sqrt-price", st.SqrtPriceX96, "initial sqrtPriceX96")
	flag.Int64Var(&st.TickLower, "tick-lower", st.TickLower, "lower tick of the liquidity range")
	flag.Int64Var(&st.TickUpper, "tick-upper", st.TickUpper, "upper tick of the liquidity range")
	flag.StringVar(&st.AmountA, "amount-a", st.AmountA, "token A liquidity, in tokens")
	flag.StringVar(&st.AmountB, "amount-b", st.AmountB, "token B liquidity, in tokens")
	flag.IntVar(&st.TokenDecimals, "decimals", st.TokenDecimals, "decimals of both tokens")
	flag.DurationVar(&st.PollInterval, "poll", st.PollInterval, "log polling interval when the endpoint has no subscriptions")
	flag.DurationVar(&st.TxTimeout, "tx-timeout", st.TxTimeout, "max wait for each transaction to be mined")
	flag.DurationVar(&st.ListenFor, "listen-for", st.ListenFor, "keep listening this long after the sequence, 0 until interrupted")
	flag.StringVar(&st.LogLevel, "log-level", st.LogLevel, "panic|fatal|error|warn|info|debug|trace")
	flag.BoolVar(&st.LogJSON, "log-json", st.LogJSON, "log as JSON")
	flag.IntVar(&st.NetBlocks, "net-blocks", st.NetBlocks, "fee history window printed at startup")
	flag.StringVar(&st.MetricsAddr, "metrics", st.MetricsAddr, "serve prometheus metrics on this address, e.g. :9100")
	flag.Parse()
	return st
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", errors.Wrap(err, "read private key")
	}
	return strings.TrimSpace(string(b)), nil
}

func printConfig(cfg config.Settings, chainID *big.Int, from common.Address) {
	fmt.Println("=== CONFIG (.env) ===")
	fmt.Println("RPC_URL          :", cfg.RPCURL)
	fmt.Println("CHAIN_ID         :", chainID.String())
	fmt.Println("PRIVATE_KEY      :", config.MaskHex(cfg.PrivateKeyHex))
	fmt.Println("  -> address     :", from.Hex())
	fmt.Println("CONTRACT_ADDRESS :", cfg.ContractAddress)
	fmt.Println("SQRT_PRICE_X96   :", cfg.SqrtPriceX96)
	fmt.Println("Ticks            :", cfg.TickLower, "..", cfg.TickUpper)
	fmt.Println("Amounts (A, B)   :", cfg.AmountA, ",", cfg.AmountB)
	fmt.Println("Poll / Tx timeout:", cfg.PollInterval, "/", cfg.TxTimeout)
	if cfg.MetricsAddr != "" {
		fmt.Println("Metrics          :", cfg.MetricsAddr)
	}
	fmt.Println("=====================")
}
