package toolerr

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesRegisteredMessage(t *testing.T) {
	err := New(KindNoRoute, "")
	assert.Equal(t, "[no_route] no swap route found", err.Error())
	assert.False(t, err.Retryable())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(KindTransient, cause, "rpc unreachable", WithNotDelivered())

	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, errors.Is(err, cause))
	assert.True(t, NotDelivered(err))
	assert.True(t, err.Retryable())
}

func TestFromWalksWrappedChain(t *testing.T) {
	inner := New(KindIndeterminate, "confirmation timed out", WithSignature("sig123"))
	outer := fmt.Errorf("execute swap: %w", inner)

	got, ok := From(outer)
	require.True(t, ok)
	assert.Equal(t, KindIndeterminate, got.Kind())
	assert.Equal(t, "sig123", got.Signature())
	assert.True(t, IsKind(outer, KindIndeterminate))
	assert.False(t, got.Retryable())
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestIsComparesKinds(t *testing.T) {
	err := Wrap(KindRejected, errors.New("simulation failed"), "rejected")
	assert.True(t, errors.Is(err, New(KindRejected, "")))
	assert.False(t, errors.Is(err, New(KindOnChain, "")))
}

func TestEnsure(t *testing.T) {
	classified := New(KindNoRoute, "")
	assert.Same(t, classified, Ensure(classified, KindInternal, "x"))

	raw := Ensure(errors.New("eof"), KindTransient, "read failed")
	assert.Equal(t, KindTransient, raw.Kind())
	assert.Nil(t, Ensure(nil, KindInternal, "x"))
}

func TestOptions(t *testing.T) {
	err := New(KindOnChain, "reverted", WithFeesConsumed(), WithSignature("abc"))
	assert.True(t, err.FeesConsumed())
	assert.False(t, err.Exhausted())

	exhausted := New(KindTransient, "", WithExhausted())
	assert.True(t, exhausted.Exhausted())
	assert.False(t, NotDelivered(exhausted))
}

func TestDetailDropsKindPrefixes(t *testing.T) {
	inner := New(KindRejected, "slippage tolerance exceeded")
	outer := Wrap(KindRejected, inner, "transaction rejected by the network", WithSignature("sig"))
	assert.Equal(t, "transaction rejected by the network: slippage tolerance exceeded", outer.Detail())

	raw := Wrap(KindTransient, errors.New("i/o timeout"), "rpc failed")
	assert.Equal(t, "rpc failed", raw.Detail())
	assert.Contains(t, raw.Error(), "i/o timeout")
	assert.Equal(t, "no swap route found", New(KindNoRoute, "").Detail())
}

func TestDetailOmitsUnclassifiedCauseDumps(t *testing.T) {
	dump := errors.New("(*jsonrpc.RPCError)(0xc000123450)({\n Code: (int) -32002,\n})")
	err := Wrap(KindRejected, dump, "insufficient funds: Transaction simulation failed")
	outer := Wrap(KindRejected, err, "transaction rejected by the network")

	assert.Equal(t, "transaction rejected by the network: insufficient funds: Transaction simulation failed", outer.Detail())
	assert.NotContains(t, outer.Detail(), "(*jsonrpc.RPCError)")
	assert.NotContains(t, outer.Detail(), "0xc000")
	assert.Contains(t, outer.Error(), "(*jsonrpc.RPCError)")
}
