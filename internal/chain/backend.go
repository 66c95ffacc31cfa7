package chain

import (
	"context"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// Backend is everything the toolkit needs from a node. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

var (
	_ Backend          = (*ethclient.Client)(nil)
	_ FeeHistoryReader = (*ethclient.Client)(nil)
)

// Dial connects to endpoint. http(s) endpoints get a keep-alive transport with
// sane timeouts, ws and ipc endpoints go through the default dialer.
func Dial(ctx context.Context, endpoint string) (*ethclient.Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse rpc endpoint")
	}
	switch u.Scheme {
	case "http", "https":
		httpClient := &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    100,
				IdleConnTimeout: 90 * time.Second,
			},
		}
		c, err := rpc.DialOptions(ctx, endpoint, rpc.WithHTTPClient(httpClient))
		if err != nil {
			return nil, errors.Wrap(err, "unable to dial endpoint with rpc")
		}
		return ethclient.NewClient(c), nil
	default:
		c, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			return nil, errors.Wrap(err, "unable to dial endpoint with eth client")
		}
		return c, nil
	}
}

// ResolveChainID parses configured (decimal or 0x-hex) or asks the node when empty.
func ResolveChainID(ctx context.Context, b Backend, configured string) (*big.Int, error) {
	if configured == "" {
		id, err := b.ChainID(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "chain id")
		}
		return id, nil
	}
	id, ok := ParseBig(configured)
	if !ok {
		return nil, errors.Errorf("bad chain id %q", configured)
	}
	return id, nil
}

// ParseBig accepts decimal or 0x-prefixed hex.
func ParseBig(s string) (*big.Int, bool) {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}
