package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"

	"jupiter-mcp/pkg/logger"
	"jupiter-mcp/pkg/tools"
)

// ToolDispatcher executes tool calls
type ToolDispatcher interface {
	Tools() []tools.Definition
	Dispatch(ctx context.Context, req tools.ToolRequest) tools.ToolResponse
}

// Handler answers MCP requests on one connection
type Handler struct {
	dispatcher  ToolDispatcher
	info        Implementation
	log         zerolog.Logger
	initialized atomic.Bool

	mu         sync.Mutex
	clientInfo Implementation
	inflight   map[jsonrpc2.ID]*call
}

type call struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// NewHandler creates a handler serving the dispatcher's tools
func NewHandler(dispatcher ToolDispatcher, info Implementation) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		info:       info,
		log:        logger.For("mcp"),
		inflight:   make(map[jsonrpc2.ID]*call),
	}
}

// Handle implements jsonrpc2.Handler
func (h *Handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		h.notify(req)
		return
	}

	ctx, c := h.track(ctx, req.ID)
	defer h.untrack(req.ID)

	result, rpcErr := h.handle(ctx, req)

	// a cancelled request gets no response
	if c.cancelled.Load() {
		h.log.Debug().Str("id", req.ID.String()).Str("method", req.Method).Msg("request cancelled by client")
		return
	}

	var err error
	if rpcErr != nil {
		err = conn.ReplyWithError(ctx, req.ID, rpcErr)
	} else {
		err = conn.Reply(ctx, req.ID, result)
	}
	if err != nil && err != jsonrpc2.ErrClosed {
		h.log.Warn().Err(err).Str("method", req.Method).Msg("failed to send response")
	}
}

func (h *Handler) handle(ctx context.Context, req *jsonrpc2.Request) (result any, rpcErr *jsonrpc2.Error) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().
				Str("method", req.Method).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("request panic recovered")
			result = nil
			rpcErr = &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	switch req.Method {
	case "initialize":
		return h.handleInitialize(req)
	case "ping":
		return map[string]any{}, nil
	case "tools/list":
		return listToolsResult{Tools: h.dispatcher.Tools()}, nil
	case "tools/call":
		return h.handleCallTool(ctx, req)
	default:
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}
}

func (h *Handler) notify(req *jsonrpc2.Request) {
	switch req.Method {
	case "notifications/initialized":
		h.initialized.Store(true)
		h.log.Debug().Msg("client initialized")
	case "notifications/cancelled":
		var params cancelledParams
		if err := decodeParams(req, &params); err != nil {
			h.log.Debug().Err(err).Msg("ignoring malformed cancellation")
			return
		}
		var id jsonrpc2.ID
		if err := json.Unmarshal(params.RequestID, &id); err != nil {
			h.log.Debug().Err(err).Msg("ignoring cancellation without request id")
			return
		}
		h.cancel(id, params.Reason)
	default:
		h.log.Debug().Str("method", req.Method).Msg("ignoring notification")
	}
}

func (h *Handler) handleInitialize(req *jsonrpc2.Request) (any, *jsonrpc2.Error) {
	var params initializeParams
	if err := decodeParams(req, &params); err != nil {
		return nil, invalidParams(err)
	}

	h.mu.Lock()
	h.clientInfo = params.ClientInfo
	h.mu.Unlock()

	version := negotiateProtocolVersion(params.ProtocolVersion)
	h.log.Info().
		Str("client", params.ClientInfo.Name).
		Str("client_version", params.ClientInfo.Version).
		Str("protocol", version).
		Msg("initialize")

	return initializeResult{
		ProtocolVersion: version,
		Capabilities:    capabilities{Tools: toolsCapability{}},
		ServerInfo:      h.info,
		Instructions:    "Amounts are integers in the token's smallest unit. get_quote is read-only; execute_swap signs and submits a real transaction.",
	}, nil
}

func (h *Handler) handleCallTool(ctx context.Context, req *jsonrpc2.Request) (any, *jsonrpc2.Error) {
	var params callToolParams
	if err := decodeParams(req, &params); err != nil {
		return nil, invalidParams(err)
	}
	if params.Name == "" {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "tool name is required"}
	}

	log := h.log.With().Str("id", req.ID.String()).Str("tool", params.Name).Str("client", h.peer().Name).Logger()
	if !h.initialized.Load() {
		log.Debug().Msg("tool call before notifications/initialized")
	}
	log.Debug().Msg("tool call")

	resp := h.dispatcher.Dispatch(ctx, tools.ToolRequest{
		ID:        req.ID.String(),
		Method:    params.Name,
		Arguments: params.Arguments,
	})

	if resp.Error != nil {
		log.Debug().Str("kind", resp.Error.Kind).Msg("tool call failed")
		return toolResult(errorPayload{Error: resp.Error}, true)
	}
	return toolResult(resp.Result, false)
}

func toolResult(payload any, isError bool) (any, *jsonrpc2.Error) {
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: fmt.Sprintf("failed to marshal result: %v", err)}
	}
	return callToolResult{
		Content:           []content{{Type: "text", Text: string(text)}},
		StructuredContent: payload,
		IsError:           isError,
	}, nil
}

// peer is what the client reported in initialize
func (h *Handler) peer() Implementation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clientInfo
}

func (h *Handler) track(ctx context.Context, id jsonrpc2.ID) (context.Context, *call) {
	ctx, cancel := context.WithCancel(ctx)
	c := &call{cancel: cancel}
	h.mu.Lock()
	h.inflight[id] = c
	h.mu.Unlock()
	return ctx, c
}

func (h *Handler) untrack(id jsonrpc2.ID) {
	h.mu.Lock()
	c, ok := h.inflight[id]
	delete(h.inflight, id)
	h.mu.Unlock()
	if ok {
		c.cancel()
	}
}

func (h *Handler) cancel(id jsonrpc2.ID, reason string) {
	h.mu.Lock()
	c, ok := h.inflight[id]
	h.mu.Unlock()
	if !ok {
		return
	}
	h.log.Info().Str("id", id.String()).Str("reason", reason).Msg("cancelling request")
	c.cancelled.Store(true)
	c.cancel()
}

func negotiateProtocolVersion(clientVersion string) string {
	for _, v := range SupportedProtocolVersions {
		if clientVersion == v {
			return v
		}
	}
	return ProtocolVersion
}

// decodeParams keeps numbers as json.Number so large amounts stay exact
func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(*req.Params))
	dec.UseNumber()
	return dec.Decode(v)
}

func invalidParams(err error) *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
}
