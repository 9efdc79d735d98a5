package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSwapCommand(t *testing.T) {
	tests := []struct {
		input string
		want  SwapCommand
	}{
		{"swap 1 SOL to USDC", SwapCommand{Amount: "1", InputToken: "SOL", OutputToken: "USDC"}},
		{"1.5 sol to usdc", SwapCommand{Amount: "1.5", InputToken: "sol", OutputToken: "usdc"}},
		{"  100   USDC for JUP ", SwapCommand{Amount: "100", InputToken: "USDC", OutputToken: "JUP"}},
		{"2 SOL to EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", SwapCommand{Amount: "2", InputToken: "SOL", OutputToken: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := ParseSwapCommand(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *cmd)
		})
	}
}

func TestParseSwapCommandInvalid(t *testing.T) {
	for _, input := range []string{"", "swap SOL to USDC", "1 SOL USDC", "-1 SOL to USDC"} {
		_, err := ParseSwapCommand(input)
		assert.Error(t, err, input)
	}
}

func TestValidateSwapCommand(t *testing.T) {
	assert.NoError(t, ValidateSwapCommand(&SwapCommand{Amount: "1", InputToken: "SOL", OutputToken: "USDC"}))
	assert.Error(t, ValidateSwapCommand(&SwapCommand{Amount: "1", InputToken: "SOL", OutputToken: "wsol"}))
	assert.Error(t, ValidateSwapCommand(&SwapCommand{InputToken: "SOL", OutputToken: "USDC"}))
}

func TestToRawAmount(t *testing.T) {
	raw, err := ToRawAmount("1.5", 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), raw)

	raw, err = ToRawAmount("0.000001", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), raw)

	_, err = ToRawAmount("0.0000001", 6)
	assert.Error(t, err, "too many decimal places")

	_, err = ToRawAmount("0", 6)
	assert.Error(t, err)

	_, err = ToRawAmount("99999999999999999999", 9)
	assert.Error(t, err, "overflows uint64")

	_, err = ToRawAmount("abc", 6)
	assert.Error(t, err)
}

func TestResolveMint(t *testing.T) {
	tests := map[string]string{
		"SOL":  "So11111111111111111111111111111111111111112",
		"wsol": "So11111111111111111111111111111111111111112",
		"usdc": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		"BONK": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
	}
	for input, want := range tests {
		got, err := ResolveMint(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	// unlisted mints pass through unchanged
	jup := "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
	got, err := ResolveMint(jup)
	require.NoError(t, err)
	assert.Equal(t, jup, got)

	_, err = ResolveMint("")
	assert.Error(t, err)
	_, err = ResolveMint("DOGE")
	assert.Error(t, err)
}

func TestLookupTokenByMint(t *testing.T) {
	tok, ok := LookupToken("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	require.True(t, ok)
	assert.Equal(t, "USDC", tok.Symbol)
	assert.Equal(t, uint8(6), tok.Decimals)
}

func TestKnownTokensSorted(t *testing.T) {
	tokens := KnownTokens()
	require.Len(t, tokens, 5)
	assert.Equal(t, "BONK", tokens[0].Symbol)
	assert.Equal(t, "USDT", tokens[len(tokens)-1].Symbol)
}
