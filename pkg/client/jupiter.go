package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"jupiter-mcp/pkg/toolerr"
	"jupiter-mcp/pkg/types"
)

// DefaultBaseURL is the keyless Jupiter Ultra endpoint
const DefaultBaseURL = "https://lite-api.jup.ag/ultra/v1"

// maxErrorBody bounds how much of a failed response is read into an error message
const maxErrorBody = 4096

// JupiterClient talks to the Jupiter Ultra order API
type JupiterClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewJupiterClient creates a new Jupiter API client
func NewJupiterClient(baseURL, apiKey string, timeout time.Duration) *JupiterClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &JupiterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type swapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

type routePlan struct {
	SwapInfo swapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

type orderResponse struct {
	InputMint            string      `json:"inputMint"`
	OutputMint           string      `json:"outputMint"`
	InAmount             string      `json:"inAmount"`
	OutAmount            string      `json:"outAmount"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
	SwapMode             string      `json:"swapMode"`
	SlippageBps          int         `json:"slippageBps"`
	PriceImpactPct       string      `json:"priceImpactPct"`
	RoutePlan            []routePlan `json:"routePlan"`
	Transaction          *string     `json:"transaction"`
	RequestID            string      `json:"requestId"`
	ErrorCode            int         `json:"errorCode"`
	ErrorMessage         string      `json:"errorMessage"`
	Error                string      `json:"error"`
}

// Quote requests a fresh order. With a taker set the response carries an
// unsigned transaction ready to sign.
func (c *JupiterClient) Quote(ctx context.Context, req types.QuoteRequest) (*types.SwapQuote, error) {
	if req.Amount == 0 {
		return nil, toolerr.New(toolerr.KindValidation, "amount must be greater than zero")
	}

	params := url.Values{}
	params.Set("inputMint", req.InputMint)
	params.Set("outputMint", req.OutputMint)
	params.Set("amount", strconv.FormatUint(req.Amount, 10))
	params.Set("slippageBps", strconv.FormatUint(uint64(req.SlippageBps), 10))
	params.Set("swapMode", "ExactIn")
	if req.Taker != "" {
		params.Set("taker", req.Taker)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/order?"+params.Encode(), nil)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.KindInternal, err, "failed to build quote request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, toolerr.Wrap(toolerr.KindCancelled, err, "quote request cancelled")
		}
		return nil, toolerr.Wrap(toolerr.KindTransient, err, "failed to reach Jupiter API")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.KindTransient, err, "failed to read Jupiter response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body)
	}

	var order orderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, toolerr.Wrap(toolerr.KindInternal, err, "failed to decode Jupiter order")
	}

	return order.toQuote(req)
}

func (o *orderResponse) toQuote(req types.QuoteRequest) (*types.SwapQuote, error) {
	message := o.ErrorMessage
	if message == "" {
		message = o.Error
	}

	if o.OutAmount == "" || len(o.RoutePlan) == 0 {
		if message != "" && !mentionsRoute(message) {
			return nil, toolerr.New(toolerr.KindBuild, "Jupiter could not build the order: "+message)
		}
		return nil, toolerr.Newf(toolerr.KindNoRoute, "no route found from %s to %s for amount %d", req.InputMint, req.OutputMint, req.Amount)
	}

	inAmount, err := parseAmount("inAmount", o.InAmount)
	if err != nil {
		return nil, err
	}
	outAmount, err := parseAmount("outAmount", o.OutAmount)
	if err != nil {
		return nil, err
	}
	threshold := outAmount
	if o.OtherAmountThreshold != "" {
		if threshold, err = parseAmount("otherAmountThreshold", o.OtherAmountThreshold); err != nil {
			return nil, err
		}
	}

	var impact float64
	if o.PriceImpactPct != "" {
		if impact, err = strconv.ParseFloat(o.PriceImpactPct, 64); err != nil {
			return nil, toolerr.Wrap(toolerr.KindInternal, err, "invalid priceImpactPct in Jupiter order")
		}
	}

	slippage := req.SlippageBps
	if o.SlippageBps > 0 {
		slippage = uint16(o.SlippageBps)
	}

	quote := &types.SwapQuote{
		InputMint:            firstNonEmpty(o.InputMint, req.InputMint),
		OutputMint:           firstNonEmpty(o.OutputMint, req.OutputMint),
		InAmount:             inAmount,
		OutAmount:            outAmount,
		OtherAmountThreshold: threshold,
		SlippageBps:          slippage,
		PriceImpactPct:       impact,
		SwapMode:             o.SwapMode,
		RouteID:              o.RequestID,
		RoutePlan:            make([]types.RouteStep, 0, len(o.RoutePlan)),
	}

	for _, step := range o.RoutePlan {
		quote.RoutePlan = append(quote.RoutePlan, types.RouteStep{
			Label:      step.SwapInfo.Label,
			AMMKey:     step.SwapInfo.AmmKey,
			InputMint:  step.SwapInfo.InputMint,
			OutputMint: step.SwapInfo.OutputMint,
			InAmount:   step.SwapInfo.InAmount,
			OutAmount:  step.SwapInfo.OutAmount,
			FeeAmount:  step.SwapInfo.FeeAmount,
			FeeMint:    step.SwapInfo.FeeMint,
			Percent:    step.Percent,
		})
	}

	if o.Transaction != nil && *o.Transaction != "" {
		raw, err := base64.StdEncoding.DecodeString(*o.Transaction)
		if err != nil {
			return nil, toolerr.Wrap(toolerr.KindBuild, err, "Jupiter returned an undecodable transaction")
		}
		quote.Transaction = raw
	} else if req.Taker != "" {
		quote.TransactionError = message
		if quote.TransactionError == "" {
			quote.TransactionError = "no transaction returned for taker"
		}
	}

	return quote, nil
}

// statusError classifies a non-200 response from the order endpoint
func statusError(status int, body []byte) error {
	msg := extractMessage(body)

	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return toolerr.Newf(toolerr.KindTransient, "Jupiter API returned status %d: %s", status, msg)
	case mentionsRoute(msg):
		return toolerr.New(toolerr.KindNoRoute, "no route found: "+msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return toolerr.Newf(toolerr.KindConfiguration, "Jupiter API refused credentials (status %d): %s", status, msg)
	default:
		return toolerr.Newf(toolerr.KindValidation, "Jupiter API rejected the request (status %d): %s", status, msg)
	}
}

// extractMessage pulls the error text out of a JSON error body
func extractMessage(body []byte) string {
	var errBody struct {
		Error        string `json:"error"`
		ErrorMessage string `json:"errorMessage"`
		Message      string `json:"message"`
		ErrorCode    string `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &errBody); err == nil {
		for _, m := range []string{errBody.ErrorMessage, errBody.Error, errBody.Message, errBody.ErrorCode} {
			if m != "" {
				return m
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	if text == "" {
		return "empty response"
	}
	return text
}

func mentionsRoute(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "route") || strings.Contains(lower, "could_not_find_any_route")
}

func parseAmount(field, value string) (uint64, error) {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, toolerr.Wrap(toolerr.KindInternal, err, fmt.Sprintf("invalid %s in Jupiter order", field))
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
