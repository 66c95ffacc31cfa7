package chain

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// RevertReason extracts the reason string of a reverted call or estimation.
// Nodes report it either as ABI encoded Error(string) data or inside the message.
func RevertReason(err error) string {
	if err == nil {
		return ""
	}
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, e := hexutil.Decode(s); e == nil {
				if reason, e := abi.UnpackRevert(data); e == nil {
					return reason
				}
			}
		}
	}
	s := err.Error()
	// hardhat: "... reverted with reason string 'X'"
	if i := strings.Index(s, "reason string '"); i >= 0 {
		r := s[i+len("reason string '"):]
		if j := strings.Index(r, "'"); j >= 0 {
			return r[:j]
		}
		return r
	}
	if i := strings.Index(s, "execution reverted"); i >= 0 {
		r := strings.TrimPrefix(s[i+len("execution reverted"):], ":")
		return strings.TrimSpace(r)
	}
	return ""
}

// IsRevert reports whether err looks like an EVM revert rather than a transport failure.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "execution reverted") || strings.Contains(s, "reverted with") || RevertReason(err) != ""
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var he rpc.HTTPError
	if errors.As(err, &he) && he.StatusCode == http.StatusTooManyRequests {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "Too Many Requests") ||
		strings.Contains(s, "-32005") ||
		strings.Contains(s, "limit exceeded") ||
		strings.Contains(s, "Exceeded the quota usage")
}
