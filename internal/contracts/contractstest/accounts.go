package contractstest

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ligun0805/token-factory-kit/internal/chain"
	"github.com/ligun0805/token-factory-kit/internal/chain/chaintest"
)

// ChainID of every chain built by NewChain.
var ChainID = big.NewInt(31337)

func NewChain() *chaintest.Chain { return chaintest.New(ChainID) }

// Ether converts whole units to wei.
func Ether(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), ether) }

// NewTransactor generates a key, funds it on c and returns a transactor whose
// log output is discarded.
func NewTransactor(t testing.TB, c *chaintest.Chain, funds *big.Int) *chain.Transactor {
	t.Helper()
	prv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	s := chain.NewSignerFromKey(prv, ChainID)
	if funds != nil {
		c.Fund(s.Address, funds)
	}
	logger, _ := test.NewNullLogger()
	return chain.NewTransactor(c, s, 5*time.Second, logrus.NewEntry(logger), nil)
}
