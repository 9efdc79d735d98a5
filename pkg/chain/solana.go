package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/pkg/errors"

	"jupiter-mcp/pkg/toolerr"
	"jupiter-mcp/pkg/types"
)

// WrappedSOLMint is the mint aggregators use for native SOL legs
var WrappedSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// RPC error codes after which the node provably did not forward the transaction
var notForwardedCodes = map[int]bool{
	-32005: true, // node is unhealthy / behind
	-32016: true, // minimum context slot not reached
}

// SolanaClient adapts the Solana JSON-RPC node to the services
type SolanaClient struct {
	client        *rpc.Client
	commitment    rpc.CommitmentType
	skipPreflight bool
}

// Options tunes the adapter
type Options struct {
	Commitment    string
	SkipPreflight bool
}

// NewSolanaClient creates a client for the given RPC endpoint
func NewSolanaClient(rpcURL string, opts Options) (*SolanaClient, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, toolerr.New(toolerr.KindConfiguration, "RPC URL not configured for Solana")
	}

	return &SolanaClient{
		client:        rpc.New(rpcURL),
		commitment:    ParseCommitment(opts.Commitment),
		skipPreflight: opts.SkipPreflight,
	}, nil
}

// NativeBalance returns the SOL balance in lamports
func (s *SolanaClient) NativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	balance, err := s.client.GetBalance(ctx, owner, s.commitment)
	if err != nil {
		return 0, readError(err, "failed to get balance")
	}
	return balance.Value, nil
}

// TokenBalance sums every token account the owner holds for mint.
// found is false when the owner has no token account for the mint.
func (s *SolanaClient) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, bool, error) {
	accounts, err := s.client.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: mint.ToPointer()},
		&rpc.GetTokenAccountsOpts{Commitment: s.commitment, Encoding: solana.EncodingBase64},
	)
	if err != nil {
		// nodes answer an unknown mint with invalid params; the owner simply holds none
		if mintNotFound(err) {
			return 0, false, nil
		}
		return 0, false, readError(err, "failed to get token accounts")
	}

	if accounts == nil || len(accounts.Value) == 0 {
		return 0, false, nil
	}

	var total uint64
	for _, acct := range accounts.Value {
		if acct == nil || acct.Account.Data == nil {
			continue
		}
		var tokenAccount token.Account
		if err := bin.NewBinDecoder(acct.Account.Data.GetBinary()).Decode(&tokenAccount); err != nil {
			return 0, false, toolerr.Wrap(toolerr.KindInternal, err, "failed to parse token account "+acct.Pubkey.String())
		}
		total += tokenAccount.Amount
	}
	return total, true, nil
}

// MintDecimals reads the decimals of a mint. found is false when the mint account does not exist.
func (s *SolanaClient) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, bool, error) {
	info, err := s.client.GetAccountInfoWithOpts(ctx, mint, &rpc.GetAccountInfoOpts{
		Commitment: s.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, readError(err, "failed to get mint account info")
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return 0, false, nil
	}

	// The decimals field is at byte offset 44 in the mint account data
	data := info.Value.Data.GetBinary()
	if len(data) < 45 {
		return 0, false, toolerr.New(toolerr.KindInternal, "invalid mint account data")
	}
	return data[44], true, nil
}

// SendTransaction broadcasts a signed wire-encoded transaction.
// Transient errors carry WithNotDelivered only when the request provably never reached the node.
func (s *SolanaClient) SendTransaction(ctx context.Context, payload []byte) (solana.Signature, error) {
	opts := rpc.TransactionOpts{
		SkipPreflight:       s.skipPreflight,
		PreflightCommitment: s.commitment,
	}

	sig, err := s.client.SendRawTransactionWithOpts(ctx, payload, opts)
	if err != nil {
		return solana.Signature{}, sendError(err)
	}
	return sig, nil
}

// SignatureStatus reports whether a signature is pending, confirmed, or failed
func (s *SolanaClient) SignatureStatus(ctx context.Context, sig solana.Signature) (types.TxStatus, error) {
	out, err := s.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return types.TxStatus{}, readError(err, "failed to get signature status")
	}

	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return types.TxStatus{State: types.TxPending}, nil
	}

	status := out.Value[0]
	result := types.TxStatus{
		Slot:       status.Slot,
		Commitment: string(status.ConfirmationStatus),
	}

	switch {
	case status.Err != nil:
		result.State = types.TxFailed
		result.Err = describeTxError(status.Err)
	case reached(status.ConfirmationStatus, s.commitment):
		result.State = types.TxConfirmed
	default:
		result.State = types.TxPending
	}
	return result, nil
}

// SwapOutput measures how much of mint the owner received in a landed transaction
func (s *SolanaClient) SwapOutput(ctx context.Context, sig solana.Signature, owner, mint solana.PublicKey) (uint64, error) {
	maxVersion := uint64(0)
	tx, err := s.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return 0, readError(err, "failed to get transaction")
	}
	if tx == nil || tx.Meta == nil {
		return 0, toolerr.New(toolerr.KindTransient, "transaction metadata not available yet")
	}
	return outputDelta(tx.Meta, owner, mint)
}

// outputDelta compares pre/post balances. Native SOL output is unwrapped into the
// fee payer, so wSOL falls back to the lamport delta of account 0 with the fee added back.
func outputDelta(meta *rpc.TransactionMeta, owner, mint solana.PublicKey) (uint64, error) {
	pre, preFound := ownerTokenTotal(meta.PreTokenBalances, owner, mint)
	post, postFound := ownerTokenTotal(meta.PostTokenBalances, owner, mint)
	if (preFound || postFound) && post > pre {
		return post - pre, nil
	}

	if mint.Equals(WrappedSOLMint) && len(meta.PreBalances) > 0 && len(meta.PostBalances) > 0 {
		before := meta.PreBalances[0]
		after := meta.PostBalances[0] + meta.Fee
		if after > before {
			return after - before, nil
		}
	}

	if preFound || postFound {
		return 0, nil
	}
	return 0, toolerr.New(toolerr.KindInternal, "output token balance not found in transaction")
}

func ownerTokenTotal(balances []rpc.TokenBalance, owner, mint solana.PublicKey) (uint64, bool) {
	var total uint64
	found := false
	for _, b := range balances {
		if b.Owner == nil || !b.Owner.Equals(owner) || !b.Mint.Equals(mint) || b.UiTokenAmount == nil {
			continue
		}
		amount, err := strconv.ParseUint(b.UiTokenAmount.Amount, 10, 64)
		if err != nil {
			continue
		}
		total += amount
		found = true
	}
	return total, found
}

// ParseCommitment returns the commitment level from config
func ParseCommitment(commitment string) rpc.CommitmentType {
	switch strings.ToLower(commitment) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := map[string]int{"processed": 1, "confirmed": 2, "finalized": 3}
	got, ok := rank[string(status)]
	if !ok {
		return false
	}
	return got >= rank[string(want)]
}

func describeTxError(txErr interface{}) string {
	if s, ok := txErr.(string); ok {
		return s
	}
	b, err := json.Marshal(txErr)
	if err != nil {
		return "unknown error"
	}
	return string(b)
}

// readError classifies a failed read. Reads have no side effects, so every
// transport failure is simply transient.
func readError(err error, message string) error {
	if errors.Is(err, context.Canceled) {
		return toolerr.Wrap(toolerr.KindCancelled, err, message)
	}
	if reason := describeRPCError(err); reason != "" {
		message += ": " + reason
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == -32602 {
		return toolerr.Wrap(toolerr.KindValidation, err, message)
	}
	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) && (httpErr.Code == http.StatusUnauthorized || httpErr.Code == http.StatusForbidden) {
		return toolerr.Wrap(toolerr.KindConfiguration, err, message)
	}
	return toolerr.Wrap(toolerr.KindTransient, err, message)
}

// describeRPCError is a caller-facing summary of a node error. The library's
// own Error() text is a debug dump and stays in logs.
func describeRPCError(err error) string {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.Message == "" {
			return fmt.Sprintf("RPC error %d", rpcErr.Code)
		}
		return rpcErr.Message
	}
	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("HTTP %d", httpErr.Code)
	}
	return ""
}

func mintNotFound(err error) bool {
	var rpcErr *jsonrpc.RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == -32602 &&
		strings.Contains(strings.ToLower(rpcErr.Message), "could not find mint")
}

// sendError separates rejections from transport failures, and transport
// failures that never left the process from ambiguous ones.
func sendError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if notForwardedCodes[rpcErr.Code] {
			return toolerr.Wrap(toolerr.KindTransient, err, "node refused to forward transaction: "+describeRPCError(err), toolerr.WithNotDelivered())
		}
		return toolerr.Wrap(toolerr.KindRejected, err, rejectionReason(rpcErr))
	}

	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return toolerr.Wrap(toolerr.KindConfiguration, err, fmt.Sprintf("RPC endpoint rejected credentials (HTTP %d); check the RPC URL", httpErr.Code))
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return toolerr.Wrap(toolerr.KindTransient, err, fmt.Sprintf("RPC endpoint refused the request (HTTP %d)", httpErr.Code), toolerr.WithNotDelivered())
		}
		return toolerr.Wrap(toolerr.KindTransient, err, fmt.Sprintf("RPC endpoint failed while submitting (HTTP %d)", httpErr.Code))
	}

	if neverSent(err) {
		return toolerr.Wrap(toolerr.KindTransient, err, "failed to reach RPC node", toolerr.WithNotDelivered())
	}
	if errors.Is(err, context.Canceled) {
		return toolerr.Wrap(toolerr.KindCancelled, err, "submission cancelled; the transaction may have been broadcast")
	}
	return toolerr.Wrap(toolerr.KindTransient, err, "transaction submission timed out or was interrupted")
}

func neverSent(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	// the RPC transport flattens some causes into the message
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host")
}

func rejectionReason(rpcErr *jsonrpc.RPCError) string {
	msg := rpcErr.Message
	if msg == "" {
		msg = "transaction rejected"
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "insufficient"):
		return "insufficient funds: " + msg
	case strings.Contains(lower, "slippage") || strings.Contains(lower, "0x1771"):
		return "slippage tolerance exceeded: " + msg
	case strings.Contains(lower, "blockhash not found"):
		return "quote expired before submission: " + msg
	}
	return msg
}
