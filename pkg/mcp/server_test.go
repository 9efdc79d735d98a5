package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jupiter-mcp/pkg/tools"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []tools.ToolRequest
	dispatch func(ctx context.Context, req tools.ToolRequest) tools.ToolResponse
}

func (f *fakeDispatcher) Tools() []tools.Definition {
	return []tools.Definition{{
		Name:        tools.GetBalance,
		Description: "balance",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Annotations: map[string]bool{"readOnlyHint": true},
	}}
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req tools.ToolRequest) tools.ToolResponse {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.dispatch(ctx, req)
}

func (f *fakeDispatcher) last() tools.ToolRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type noopHandler struct{}

func (noopHandler) Handle(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) {}

type session struct {
	srv    *Server
	client *jsonrpc2.Conn
	done   chan error
}

func startSession(t *testing.T, d ToolDispatcher) *session {
	t.Helper()
	serverSide, clientSide := net.Pipe()

	s := &session{
		srv:  NewServer(d, Implementation{Name: "jupiter-mcp", Version: "test"}),
		done: make(chan error, 1),
	}
	go func() { s.done <- s.srv.Serve(context.Background(), serverSide) }()

	s.client = jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.PlainObjectCodec{}), noopHandler{})
	t.Cleanup(func() { s.client.Close() })
	return s
}

func (s *session) call(t *testing.T, method string, params, result any) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Call(ctx, method, params, result)
}

func okDispatcher(result any) *fakeDispatcher {
	return &fakeDispatcher{dispatch: func(_ context.Context, req tools.ToolRequest) tools.ToolResponse {
		return tools.ToolResponse{ID: req.ID, Result: result}
	}}
}

func TestInitializeNegotiatesVersion(t *testing.T) {
	s := startSession(t, okDispatcher(nil))

	var res initializeResult
	require.NoError(t, s.call(t, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]string{"name": "inspector", "version": "1.0"},
	}, &res))

	assert.Equal(t, "2024-11-05", res.ProtocolVersion)
	assert.Equal(t, "jupiter-mcp", res.ServerInfo.Name)
	assert.Equal(t, "inspector", s.srv.handler.peer().Name)

	require.NoError(t, s.call(t, "initialize", map[string]any{"protocolVersion": "1999-01-01"}, &res))
	assert.Equal(t, ProtocolVersion, res.ProtocolVersion)
}

func TestInitializedNotification(t *testing.T) {
	s := startSession(t, okDispatcher(nil))
	require.NoError(t, s.client.Notify(context.Background(), "notifications/initialized", nil))
	assert.Eventually(t, s.srv.handler.initialized.Load, time.Second, 5*time.Millisecond)
}

func TestPing(t *testing.T) {
	s := startSession(t, okDispatcher(nil))
	var res map[string]any
	require.NoError(t, s.call(t, "ping", nil, &res))
	assert.Empty(t, res)
}

func TestToolsList(t *testing.T) {
	s := startSession(t, okDispatcher(nil))

	var res struct {
		Tools []struct {
			Name        string          `json:"name"`
			InputSchema map[string]any  `json:"inputSchema"`
			Annotations map[string]bool `json:"annotations"`
		} `json:"tools"`
	}
	require.NoError(t, s.call(t, "tools/list", nil, &res))
	require.Len(t, res.Tools, 1)
	assert.Equal(t, tools.GetBalance, res.Tools[0].Name)
	assert.Equal(t, "object", res.Tools[0].InputSchema["type"])
	assert.True(t, res.Tools[0].Annotations["readOnlyHint"])
}

func TestToolsCallResult(t *testing.T) {
	d := okDispatcher(&tools.BalanceResult{Mint: "SOL", RawAmount: "18446744073709551615", Decimals: 9})
	s := startSession(t, d)

	var res struct {
		Content           []content      `json:"content"`
		StructuredContent map[string]any `json:"structuredContent"`
		IsError           bool           `json:"isError"`
	}
	require.NoError(t, s.call(t, "tools/call", map[string]any{
		"name":      tools.GetBalance,
		"arguments": json.RawMessage(`{"wallet_address":"w","amount":18446744073709551615}`),
	}, &res))

	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "text", res.Content[0].Type)
	assert.JSONEq(t, `{"wallet_address":"","mint":"SOL","raw_amount":"18446744073709551615","decimals":9,"display_amount":""}`, res.Content[0].Text)
	assert.Equal(t, "18446744073709551615", res.StructuredContent["raw_amount"])

	req := d.last()
	assert.Equal(t, tools.GetBalance, req.Method)
	assert.Equal(t, json.Number("18446744073709551615"), req.Arguments["amount"])
}

func TestToolsCallError(t *testing.T) {
	d := &fakeDispatcher{dispatch: func(_ context.Context, req tools.ToolRequest) tools.ToolResponse {
		return tools.ToolResponse{ID: req.ID, Error: &tools.ToolError{
			Kind:    "indeterminate",
			Message: "transaction not confirmed",
			State:   "FAILED_UNKNOWN",
		}}
	}}
	s := startSession(t, d)

	var res struct {
		Content           []content `json:"content"`
		StructuredContent struct {
			Error tools.ToolError `json:"error"`
		} `json:"structuredContent"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, s.call(t, "tools/call", map[string]any{"name": tools.ExecuteSwap}, &res))

	assert.True(t, res.IsError)
	assert.Equal(t, "indeterminate", res.StructuredContent.Error.Kind)
	assert.Equal(t, "FAILED_UNKNOWN", res.StructuredContent.Error.State)
	assert.Contains(t, res.Content[0].Text, `"kind":"indeterminate"`)
}

func TestProtocolErrors(t *testing.T) {
	s := startSession(t, okDispatcher(nil))

	tests := []struct {
		name   string
		method string
		params any
		code   int64
	}{
		{"unknown method", "resources/list", nil, jsonrpc2.CodeMethodNotFound},
		{"params not an object", "tools/call", "get_balance", jsonrpc2.CodeInvalidParams},
		{"missing tool name", "tools/call", map[string]any{"arguments": map[string]any{}}, jsonrpc2.CodeInvalidParams},
		{"bad initialize", "initialize", []int{1}, jsonrpc2.CodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.call(t, tt.method, tt.params, nil)
			var rpcErr *jsonrpc2.Error
			require.ErrorAs(t, err, &rpcErr)
			assert.Equal(t, tt.code, rpcErr.Code)
		})
	}
}

func TestToolPanicIsInternalError(t *testing.T) {
	d := &fakeDispatcher{dispatch: func(context.Context, tools.ToolRequest) tools.ToolResponse {
		panic("boom")
	}}
	s := startSession(t, d)

	err := s.call(t, "tools/call", map[string]any{"name": tools.GetQuote}, nil)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeInternalError), rpcErr.Code)

	// the connection survives
	require.NoError(t, s.call(t, "ping", nil, nil))
}

func TestCancelledNotification(t *testing.T) {
	started := make(chan struct{})
	observed := make(chan error, 1)
	d := &fakeDispatcher{dispatch: func(ctx context.Context, req tools.ToolRequest) tools.ToolResponse {
		close(started)
		<-ctx.Done()
		observed <- ctx.Err()
		return tools.ToolResponse{ID: req.ID, Error: &tools.ToolError{Kind: "cancelled"}}
	}}
	s := startSession(t, d)

	callErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()
		callErr <- s.client.Call(ctx, "tools/call", map[string]any{"name": tools.ExecuteSwap}, nil,
			jsonrpc2.PickID(jsonrpc2.ID{Num: 42}))
	}()

	<-started
	require.NoError(t, s.client.Notify(context.Background(), "notifications/cancelled",
		map[string]any{"requestId": 42, "reason": "user aborted"}))

	select {
	case err := <-observed:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatcher context was not cancelled")
	}

	// no response is sent for a cancelled request, so the caller times out
	err := <-callErr
	require.Error(t, err)
	var rpcErr *jsonrpc2.Error
	assert.False(t, errors.As(err, &rpcErr))
}

func TestServeReturnsOnDisconnect(t *testing.T) {
	s := startSession(t, okDispatcher(nil))
	require.NoError(t, s.client.Close())

	select {
	case err := <-s.done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after disconnect")
	}
}
