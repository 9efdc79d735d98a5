package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// SwapCommand is a swap typed by a human: a UI amount and two token identifiers
type SwapCommand struct {
	Amount      string
	InputToken  string
	OutputToken string
}

// Pattern: <amount> <input_token> TO <output_token>, case-insensitive so mint addresses survive
var swapPattern = regexp.MustCompile(`(?i)^(?:swap\s+)?(\d+\.?\d*)\s+([A-Za-z0-9]+)\s+(?:to|for)\s+([A-Za-z0-9]+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 SOL to USDC"
//   - "1.5 SOL to USDC"
//   - "100 USDC for JUP"
func ParseSwapCommand(command string) (*SwapCommand, error) {
	command = strings.Join(strings.Fields(command), " ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 1 SOL to USDC')")
	}

	return &SwapCommand{
		Amount:      matches[1],
		InputToken:  matches[2],
		OutputToken: matches[3],
	}, nil
}

// ValidateSwapCommand validates that a swap command has all required fields
func ValidateSwapCommand(cmd *SwapCommand) error {
	if cmd.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if cmd.InputToken == "" {
		return fmt.Errorf("input token is required")
	}
	if cmd.OutputToken == "" {
		return fmt.Errorf("output token is required")
	}
	if strings.EqualFold(NormalizeTokenSymbol(cmd.InputToken), NormalizeTokenSymbol(cmd.OutputToken)) {
		return fmt.Errorf("input and output token must differ")
	}
	return nil
}

// ToRawAmount converts a UI amount such as "1.5" into base units
func ToRawAmount(ui string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(ui))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", ui, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be greater than zero")
	}

	raw := d.Shift(int32(decimals))
	if !raw.Equal(raw.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", ui, decimals)
	}
	if !raw.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %s is too large", ui)
	}
	return raw.BigInt().Uint64(), nil
}
