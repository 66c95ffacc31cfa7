package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Signer authorizes transactions for one account on one chain.
type Signer struct {
	Address common.Address
	key     *ecdsa.PrivateKey
	chainID *big.Int
}

// NewSigner parses a hex ECDSA private key (with / without 0x).
func NewSigner(pkHex string, chainID *big.Int) (*Signer, error) {
	prv, err := hexToECDSAPriv(pkHex)
	if err != nil {
		return nil, errors.Wrap(err, "private key")
	}
	if chainID == nil {
		return nil, errors.New("chainID is nil")
	}
	return NewSignerFromKey(prv, chainID), nil
}

func NewSignerFromKey(prv *ecdsa.PrivateKey, chainID *big.Int) *Signer {
	return &Signer{
		Address: gethcrypto.PubkeyToAddress(prv.PublicKey),
		key:     prv,
		chainID: new(big.Int).Set(chainID),
	}
}

func (s *Signer) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

// TransactOpts builds fresh options; value may be nil.
func (s *Signer) TransactOpts(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, errors.Wrap(err, "transactor")
	}
	opts.Context = ctx
	if value != nil {
		opts.Value = new(big.Int).Set(value)
	}
	return opts, nil
}

// AddressFromKey derives the account address without keeping the key around.
func AddressFromKey(pkHex string) (common.Address, error) {
	prv, err := hexToECDSAPriv(pkHex)
	if err != nil {
		return common.Address{}, err
	}
	return gethcrypto.PubkeyToAddress(prv.PublicKey), nil
}

func hexToECDSAPriv(s string) (*ecdsa.PrivateKey, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(h) == 0 {
		return nil, errors.New("empty private key")
	}
	return gethcrypto.HexToECDSA(h)
}
