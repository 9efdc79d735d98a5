package signer

import (
	"crypto/ed25519"
	"encoding/json"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"jupiter-mcp/pkg/toolerr"
	"jupiter-mcp/pkg/types"
)

// Signer holds the process wallet. It is immutable after Load and safe for
// concurrent use.
type Signer struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

// Load parses a base58 secret key, or the JSON byte array written by solana-keygen
func Load(secret string) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, toolerr.New(toolerr.KindConfiguration, "private key not configured for Solana")
	}

	var key solana.PrivateKey
	if strings.HasPrefix(secret, "[") {
		var raw []byte
		if err := json.Unmarshal([]byte(secret), &raw); err != nil {
			return nil, toolerr.Wrap(toolerr.KindConfiguration, err, "invalid private key")
		}
		key = solana.PrivateKey(raw)
	} else {
		parsed, err := solana.PrivateKeyFromBase58(secret)
		if err != nil {
			return nil, toolerr.Wrap(toolerr.KindConfiguration, err, "invalid private key")
		}
		key = parsed
	}

	// PublicKey panics on short keys
	if len(key) != ed25519.PrivateKeySize {
		return nil, toolerr.Newf(toolerr.KindConfiguration, "invalid private key: expected %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}

	return &Signer{privateKey: key, publicKey: key.PublicKey()}, nil
}

// PublicKey returns the wallet address
func (s *Signer) PublicKey() solana.PublicKey {
	return s.publicKey
}

// Sign adds the wallet signature to tx. tx must be owned by the caller.
func (s *Signer) Sign(tx *solana.Transaction) (*types.SignedTransaction, error) {
	if tx == nil {
		return nil, toolerr.New(toolerr.KindBuild, "no transaction to sign")
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 || len(tx.Message.AccountKeys) < required {
		return nil, toolerr.New(toolerr.KindBuild, "transaction declares no signers")
	}

	index := -1
	for i, key := range tx.Message.AccountKeys[:required] {
		if key.Equals(s.publicKey) {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, toolerr.Newf(toolerr.KindConfiguration, "transaction does not require a signature from %s", s.publicKey)
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, toolerr.Wrap(toolerr.KindBuild, err, "failed to serialize transaction message")
	}

	signature, err := s.privateKey.Sign(message)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.KindInternal, err, "failed to sign transaction")
	}

	signatures := make([]solana.Signature, required)
	copy(signatures, tx.Signatures)
	signatures[index] = signature
	for i, sig := range signatures {
		if i != index && sig.IsZero() {
			return nil, toolerr.Newf(toolerr.KindConfiguration, "transaction needs an additional signature from %s", tx.Message.AccountKeys[i])
		}
	}
	tx.Signatures = signatures

	payload, err := tx.MarshalBinary()
	if err != nil {
		return nil, toolerr.Wrap(toolerr.KindBuild, err, "failed to serialize signed transaction")
	}

	return &types.SignedTransaction{
		// The first signature is the transaction id
		Signature: signatures[0],
		Payload:   payload,
	}, nil
}

// DecodeTransaction parses the aggregator's unsigned transaction
func DecodeTransaction(raw []byte) (*solana.Transaction, error) {
	if len(raw) == 0 {
		return nil, toolerr.New(toolerr.KindBuild, "aggregator returned an empty transaction")
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, toolerr.Wrap(toolerr.KindBuild, err, "failed to decode aggregator transaction")
	}
	return tx, nil
}
