package swap

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jupiter-mcp/pkg/logger"
	"jupiter-mcp/pkg/signer"
	"jupiter-mcp/pkg/toolerr"
	"jupiter-mcp/pkg/types"
)

// QuoteClient fetches a fresh, perishable quote per call
type QuoteClient interface {
	Quote(ctx context.Context, req types.QuoteRequest) (*types.SwapQuote, error)
}

// Signer signs transactions with the process wallet
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(tx *solana.Transaction) (*types.SignedTransaction, error)
}

// ChainClient is the write and status side of the chain adapter
type ChainClient interface {
	SendTransaction(ctx context.Context, payload []byte) (solana.Signature, error)
	SignatureStatus(ctx context.Context, sig solana.Signature) (types.TxStatus, error)
	SwapOutput(ctx context.Context, sig solana.Signature, owner, mint solana.PublicKey) (uint64, error)
}

// Request is one execute_swap invocation. Amount is in input base units.
type Request struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps uint16
}

// Result is the terminal outcome of a swap. On failure it is returned
// alongside the classified error and carries the signature when one exists.
type Result struct {
	State           State
	Signature       string
	OutputAmount    uint64
	OutputEstimated bool
	QuoteAttempts   int
	SubmitAttempts  int
	Quote           *types.SwapQuote
}

// Pipeline drives quote, build, sign, submit and confirm for each swap.
// It holds no per-invocation state and is safe for concurrent use.
type Pipeline struct {
	quotes QuoteClient
	signer Signer
	chain  ChainClient
	policy Policy
	log    zerolog.Logger
}

// NewPipeline wires the pipeline to its adapters
func NewPipeline(quotes QuoteClient, s Signer, chain ChainClient, policy Policy) *Pipeline {
	return &Pipeline{
		quotes: quotes,
		signer: s,
		chain:  chain,
		policy: policy,
		log:    logger.For("swap"),
	}
}

// invocation is the state owned by a single Execute call
type invocation struct {
	req    Request
	result *Result
	log    zerolog.Logger
	quote  *types.SwapQuote
	signed *types.SignedTransaction
}

func (inv *invocation) enter(state State) {
	inv.result.State = state
	ev := inv.log.Info().Str("state", string(state))
	if inv.result.Signature != "" {
		ev = ev.Str("signature", inv.result.Signature)
	}
	ev.Msg("swap transition")
}

// fail moves to a terminal failure state and returns the result with err
func (inv *invocation) fail(state State, err error) (*Result, error) {
	inv.result.State = state
	inv.log.Warn().
		Str("state", string(state)).
		Str("kind", string(toolerr.KindOf(err))).
		Str("signature", inv.result.Signature).
		Err(err).
		Msg("swap failed")
	return inv.result, err
}

// Execute runs one swap to a terminal state. At most one transaction is signed,
// and once a submission may have reached the network it is never re-signed or re-sent
// with different bytes.
func (p *Pipeline) Execute(ctx context.Context, req Request) (*Result, error) {
	inv := &invocation{
		req:    req,
		result: &Result{State: StateStart},
		log: p.log.With().
			Str("invocation", uuid.NewString()).
			Str("input_mint", req.InputMint).
			Str("output_mint", req.OutputMint).
			Uint64("amount", req.Amount).
			Logger(),
	}
	inv.enter(StateStart)

	if err := ctx.Err(); err != nil {
		return inv.fail(StateFailedQuote, toolerr.Wrap(toolerr.KindCancelled, err, "swap cancelled before start"))
	}

	if res, err := p.fetchQuote(ctx, inv); err != nil {
		return res, err
	}
	if res, err := p.buildAndSign(ctx, inv); err != nil {
		return res, err
	}
	if res, err := p.submit(ctx, inv); err != nil {
		return res, err
	}
	return p.confirm(ctx, inv)
}

func (p *Pipeline) fetchQuote(ctx context.Context, inv *invocation) (*Result, error) {
	inv.enter(StateFetchQuote)

	qreq := types.QuoteRequest{
		InputMint:   inv.req.InputMint,
		OutputMint:  inv.req.OutputMint,
		Amount:      inv.req.Amount,
		SlippageBps: inv.req.SlippageBps,
		Taker:       p.signer.PublicKey().String(),
	}

	for attempt := 0; ; attempt++ {
		inv.result.QuoteAttempts = attempt + 1

		quote, err := p.quoteOnce(ctx, qreq)
		if err == nil {
			inv.quote = quote
			inv.result.Quote = quote
			inv.log.Debug().Strs("route", quote.RouteLabels()).Uint64("out_amount", quote.OutAmount).Msg("quote received")
			return nil, nil
		}

		if ctx.Err() != nil {
			return inv.fail(StateFailedQuote, toolerr.Wrap(toolerr.KindCancelled, ctx.Err(), "swap cancelled while fetching quote"))
		}

		switch toolerr.KindOf(err) {
		case toolerr.KindNoRoute:
			return inv.fail(StateFailedNoRoute, err)
		case toolerr.KindBuild:
			return inv.fail(StateFailedBuild, err)
		case toolerr.KindTransient:
			if attempt >= p.policy.QuoteRetries {
				return inv.fail(StateFailedQuote, toolerr.Wrap(toolerr.KindTransient, err,
					"quote unavailable after retries", toolerr.WithExhausted()))
			}
		default:
			return inv.fail(StateFailedQuote, toolerr.Ensure(err, toolerr.KindInternal, "quote failed"))
		}

		delay := backoff(p.policy.QuoteBackoff, p.policy.MaxBackoff, attempt)
		inv.log.Debug().Err(err).Int("attempt", attempt+1).Dur("backoff", delay).Msg("quote failed, retrying with a fresh quote")
		if err := wait(ctx, delay); err != nil {
			return inv.fail(StateFailedQuote, toolerr.Wrap(toolerr.KindCancelled, err, "swap cancelled while fetching quote"))
		}
	}
}

func (p *Pipeline) quoteOnce(ctx context.Context, req types.QuoteRequest) (*types.SwapQuote, error) {
	qctx, cancel := withTimeout(ctx, p.policy.QuoteTimeout)
	defer cancel()
	return p.quotes.Quote(qctx, req)
}

func (p *Pipeline) buildAndSign(ctx context.Context, inv *invocation) (*Result, error) {
	inv.enter(StateBuildTx)

	if len(inv.quote.Transaction) == 0 {
		reason := inv.quote.TransactionError
		if reason == "" {
			reason = "aggregator returned no transaction"
		}
		return inv.fail(StateFailedBuild, toolerr.New(toolerr.KindBuild, reason))
	}

	// decode a private copy so the quote's bytes are never mutated
	raw := append([]byte(nil), inv.quote.Transaction...)
	tx, err := signer.DecodeTransaction(raw)
	if err != nil {
		return inv.fail(StateFailedBuild, err)
	}

	if err := ctx.Err(); err != nil {
		return inv.fail(StateFailedBuild, toolerr.Wrap(toolerr.KindCancelled, err, "swap cancelled before signing"))
	}

	inv.enter(StateSign)
	signed, err := p.signer.Sign(tx)
	if err != nil {
		return inv.fail(StateFailedSign, toolerr.Ensure(err, toolerr.KindConfiguration, "failed to sign transaction"))
	}
	inv.signed = signed
	inv.result.Signature = signed.Signature.String()
	return nil, nil
}

func (p *Pipeline) submit(ctx context.Context, inv *invocation) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return inv.fail(StateFailedSubmit, toolerr.Wrap(toolerr.KindCancelled, err, "swap cancelled before submission"))
	}

	inv.enter(StateSubmit)
	sig := inv.signed.Signature.String()

	for attempt := 0; ; attempt++ {
		inv.result.SubmitAttempts = attempt + 1

		sent, err := p.sendOnce(ctx, inv.signed.Payload)
		if err == nil {
			if !sent.Equals(inv.signed.Signature) {
				inv.log.Warn().Str("returned", sent.String()).Msg("node returned an unexpected signature")
			}
			return nil, nil
		}

		switch {
		case toolerr.NotDelivered(err):
			if attempt >= p.policy.SubmitRetries {
				return inv.fail(StateFailedSubmit, toolerr.Wrap(toolerr.KindTransient, err,
					"transaction could not be delivered to the network", toolerr.WithExhausted(), toolerr.WithSignature(sig)))
			}
			delay := backoff(p.policy.SubmitBackoff, p.policy.MaxBackoff, attempt)
			inv.log.Debug().Err(err).Int("attempt", attempt+1).Dur("backoff", delay).Msg("submission not delivered, resending same transaction")
			if err := wait(ctx, delay); err != nil {
				return inv.fail(StateFailedSubmit, toolerr.Wrap(toolerr.KindCancelled, err, "swap cancelled before the transaction was delivered"))
			}

		case toolerr.IsKind(err, toolerr.KindRejected):
			return inv.fail(StateFailedRejected, toolerr.Wrap(toolerr.KindRejected, err,
				toolerr.AttributesOf(toolerr.KindRejected).Message, toolerr.WithSignature(sig)))

		case ctx.Err() != nil:
			// the caller went away mid-send; the transaction may still land
			return inv.fail(StateFailedUnknown, toolerr.Wrap(toolerr.KindIndeterminate, err,
				"swap cancelled after submission; check the signature before retrying", toolerr.WithSignature(sig)))

		case toolerr.IsKind(err, toolerr.KindTransient), toolerr.IsKind(err, toolerr.KindCancelled):
			// ambiguous: the node may have received it, so only confirmation can tell
			inv.log.Warn().Err(err).Msg("submission outcome ambiguous, confirming without resend")
			return nil, nil

		default:
			return inv.fail(StateFailedSubmit, toolerr.Ensure(err, toolerr.KindInternal, "transaction submission failed"))
		}
	}
}

func (p *Pipeline) sendOnce(ctx context.Context, payload []byte) (solana.Signature, error) {
	sctx, cancel := withTimeout(ctx, p.policy.SubmitTimeout)
	defer cancel()
	return p.chain.SendTransaction(sctx, payload)
}

func (p *Pipeline) confirm(ctx context.Context, inv *invocation) (*Result, error) {
	inv.enter(StateConfirming)
	sig := inv.signed.Signature

	cctx, cancel := withTimeout(ctx, p.policy.ConfirmTimeout)
	defer cancel()

	interval := p.policy.ConfirmInterval
	if interval <= 0 {
		interval = DefaultPolicy().ConfirmInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := p.chain.SignatureStatus(cctx, sig)
		if err != nil {
			inv.log.Debug().Err(err).Msg("status poll failed")
		} else {
			switch status.State {
			case types.TxFailed:
				return inv.fail(StateFailedOnChain, toolerr.New(toolerr.KindOnChain,
					"transaction failed on chain: "+status.Err, toolerr.WithSignature(sig.String()), toolerr.WithFeesConsumed()))
			case types.TxConfirmed:
				return p.succeed(ctx, inv), nil
			}
		}

		select {
		case <-cctx.Done():
			message := "transaction not confirmed within " + p.policy.ConfirmTimeout.String() + "; check the signature before retrying"
			if ctx.Err() != nil {
				message = "swap cancelled while awaiting confirmation; check the signature before retrying"
			}
			return inv.fail(StateFailedUnknown, toolerr.Wrap(toolerr.KindIndeterminate, cctx.Err(),
				message, toolerr.WithSignature(sig.String())))
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) succeed(ctx context.Context, inv *invocation) *Result {
	res := inv.result
	res.OutputAmount = inv.quote.OutAmount
	res.OutputEstimated = true

	octx, cancel := withTimeout(ctx, p.policy.QuoteTimeout)
	defer cancel()

	mint, err := solana.PublicKeyFromBase58(inv.quote.OutputMint)
	if err == nil {
		var out uint64
		out, err = p.chain.SwapOutput(octx, inv.signed.Signature, p.signer.PublicKey(), mint)
		if err == nil {
			res.OutputAmount = out
			res.OutputEstimated = false
		}
	}
	if err != nil {
		inv.log.Warn().Err(err).Msg("could not read actual output, reporting quoted amount")
	}

	inv.enter(StateSucceeded)
	inv.log.Info().
		Uint64("output_amount", res.OutputAmount).
		Bool("output_estimated", res.OutputEstimated).
		Msg("swap confirmed")
	return res
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// wait sleeps for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
