package chain

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/ligun0805/token-factory-kit/internal/chain/chaintest"
)

func TestRevertReason(t *testing.T) {
	assert.Equal(t, "", RevertReason(nil))
	assert.Equal(t, "Too late", RevertReason(chaintest.Revert("Too late")))
	assert.Equal(t, "Too late", RevertReason(errors.Wrap(chaintest.Revert("Too late"), "estimate")))
	assert.Equal(t, "Insufficient", RevertReason(fmt.Errorf("failed to estimate gas needed: %v", chaintest.Revert("Insufficient"))))
	assert.Equal(t, "Token with this name already exists",
		RevertReason(errors.New("VM Exception while processing transaction: reverted with reason string 'Token with this name already exists'")))
	assert.Equal(t, "", RevertReason(errors.New("connection refused")))
}

func TestIsRevert(t *testing.T) {
	assert.True(t, IsRevert(chaintest.Revert("")))
	assert.True(t, IsRevert(chaintest.Revert("x")))
	assert.False(t, IsRevert(errors.New("i/o timeout")))
	assert.False(t, IsRevert(nil))
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, isRateLimitError(rpc.HTTPError{StatusCode: http.StatusTooManyRequests, Status: "429 Too Many Requests"}))
	assert.True(t, isRateLimitError(errors.New("-32005: daily request count exceeded, request rate limited")))
	assert.True(t, isRateLimitError(errors.New("Exceeded the quota usage")))
	assert.False(t, isRateLimitError(errors.New("execution reverted")))
	assert.False(t, isRateLimitError(nil))
}
