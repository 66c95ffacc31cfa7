package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/token-factory-kit/internal/chain"
	"github.com/ligun0805/token-factory-kit/internal/config"
)

func printNetState(ctx context.Context, w io.Writer, b chain.Backend, fh chain.FeeHistoryReader, cfg config.Settings, from common.Address) error {
	st, err := chain.Snapshot(ctx, b, from)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "=== NETWORK ===")
	fmt.Fprintln(w, "Head block       :", st.Head)
	fmt.Fprintln(w, "Base fee (gwei)  :", chain.FormatGwei(st.BaseFee))
	fmt.Fprintln(w, "Tip cap (gwei)   :", chain.FormatGwei(st.TipCap))
	fmt.Fprintln(w, "Gas price (gwei) :", chain.FormatGwei(st.GasPrice))
	fmt.Fprintln(w, "Balance          :", chain.FormatEther(st.Balance), "native")
	if st.BaseFee != nil {
		stats, err := chain.FeeHistoryStats(ctx, fh, cfg.NetBlocks, cfg.NetPcts)
		if err != nil {
			fmt.Fprintln(w, "Fee history      : n/a:", err)
		} else {
			fmt.Fprintf(w, "Tips, last %d blocks (gwei):\n", cfg.NetBlocks)
			for _, p := range cfg.NetPcts {
				rs := stats[p]
				fmt.Fprintf(w, "  p%-2d min/avg/max: %s / %s / %s\n", p, chain.FormatGwei(rs.Min), chain.FormatGwei(rs.Avg), chain.FormatGwei(rs.Max))
			}
		}
	}
	if st.Balance.Sign() == 0 {
		fmt.Fprintln(w, "  [WARN] signer has no funds, transactions will be rejected")
	}
	fmt.Fprintln(w, "===============")
	return nil
}
