package client

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jupiter-mcp/pkg/toolerr"
	"jupiter-mcp/pkg/types"
)

const (
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	taker    = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

func orderBody(tx string) string {
	return `{
		"inputMint": "` + solMint + `",
		"outputMint": "` + usdcMint + `",
		"inAmount": "1000000000",
		"outAmount": "150250000",
		"otherAmountThreshold": "149498750",
		"swapMode": "ExactIn",
		"slippageBps": 50,
		"priceImpactPct": "0.0012",
		"routePlan": [
			{"swapInfo": {"ammKey": "amm1", "label": "Whirlpool", "inputMint": "` + solMint + `", "outputMint": "` + usdcMint + `", "inAmount": "1000000000", "outAmount": "150250000", "feeAmount": "250", "feeMint": "` + solMint + `"}, "percent": 100}
		],
		"transaction": ` + tx + `,
		"requestId": "req-123"
	}`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *JupiterClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewJupiterClient(srv.URL, "secret", 0)
}

func quoteRequest() types.QuoteRequest {
	return types.QuoteRequest{
		InputMint:   solMint,
		OutputMint:  usdcMint,
		Amount:      1_000_000_000,
		SlippageBps: 50,
		Taker:       taker,
	}
}

func TestQuote(t *testing.T) {
	unsigned := []byte{1, 2, 3, 4}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order", r.URL.Path)
		assert.Equal(t, solMint, r.URL.Query().Get("inputMint"))
		assert.Equal(t, usdcMint, r.URL.Query().Get("outputMint"))
		assert.Equal(t, "1000000000", r.URL.Query().Get("amount"))
		assert.Equal(t, "50", r.URL.Query().Get("slippageBps"))
		assert.Equal(t, taker, r.URL.Query().Get("taker"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(orderBody(`"` + base64.StdEncoding.EncodeToString(unsigned) + `"`)))
	})

	quote, err := client.Quote(context.Background(), quoteRequest())
	require.NoError(t, err)

	assert.Equal(t, uint64(1_000_000_000), quote.InAmount)
	assert.Equal(t, uint64(150_250_000), quote.OutAmount)
	assert.Equal(t, uint64(149_498_750), quote.OtherAmountThreshold)
	assert.Equal(t, uint16(50), quote.SlippageBps)
	assert.InDelta(t, 0.0012, quote.PriceImpactPct, 1e-9)
	assert.Equal(t, "req-123", quote.RouteID)
	assert.Equal(t, []string{"Whirlpool"}, quote.RouteLabels())
	assert.Equal(t, unsigned, quote.Transaction)
	assert.Empty(t, quote.TransactionError)
}

func TestQuoteWithoutTaker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("taker"))
		_, _ = w.Write([]byte(orderBody(`null`)))
	})

	req := quoteRequest()
	req.Taker = ""
	quote, err := client.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, quote.Transaction)
	assert.Empty(t, quote.TransactionError)
}

func TestQuoteTransactionRefused(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := orderBody(`""`)
		body = body[:len(body)-2] + `, "errorCode": 1, "errorMessage": "Insufficient funds"}`
		_, _ = w.Write([]byte(body))
	})

	quote, err := client.Quote(context.Background(), quoteRequest())
	require.NoError(t, err)
	assert.Nil(t, quote.Transaction)
	assert.Equal(t, "Insufficient funds", quote.TransactionError)
}

func TestQuoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   toolerr.Kind
	}{
		{name: "no route status", status: http.StatusBadRequest, body: `{"error":"Could not find any route"}`, kind: toolerr.KindNoRoute},
		{name: "no route code", status: http.StatusBadRequest, body: `{"errorCode":"COULD_NOT_FIND_ANY_ROUTE"}`, kind: toolerr.KindNoRoute},
		{name: "no route in ok body", status: http.StatusOK, body: `{"routePlan":[],"errorMessage":"No routes found"}`, kind: toolerr.KindNoRoute},
		{name: "invalid mint", status: http.StatusBadRequest, body: `{"error":"Invalid inputMint"}`, kind: toolerr.KindValidation},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `slow down`, kind: toolerr.KindTransient},
		{name: "server error", status: http.StatusBadGateway, body: ``, kind: toolerr.KindTransient},
		{name: "bad key", status: http.StatusUnauthorized, body: `{"message":"invalid api key"}`, kind: toolerr.KindConfiguration},
		{name: "malformed", status: http.StatusOK, body: `<html>`, kind: toolerr.KindInternal},
		{name: "bad transaction", status: http.StatusOK, body: orderBody(`"!!not base64!!"`), kind: toolerr.KindBuild},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			quote, err := client.Quote(context.Background(), quoteRequest())
			require.Error(t, err)
			assert.Nil(t, quote)
			assert.Equal(t, tt.kind, toolerr.KindOf(err))
		})
	}
}

func TestQuoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewJupiterClient(srv.URL, "", 0).Quote(context.Background(), quoteRequest())
	require.Error(t, err)
	assert.Equal(t, toolerr.KindTransient, toolerr.KindOf(err))
}

func TestQuoteCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(orderBody(`null`)))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Quote(ctx, quoteRequest())
	require.Error(t, err)
	assert.Equal(t, toolerr.KindCancelled, toolerr.KindOf(err))
}

func TestQuoteRejectsZeroAmount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	req := quoteRequest()
	req.Amount = 0
	_, err := client.Quote(context.Background(), req)
	assert.Equal(t, toolerr.KindValidation, toolerr.KindOf(err))
}
