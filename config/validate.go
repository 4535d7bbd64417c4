package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"subledger/core/types"
)

// Validate checks the values a running ledger depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if c.Rent.LamportsPerByteYear == 0 || c.Rent.ExemptionYears == 0 {
		return fmt.Errorf("rent: LamportsPerByteYear and ExemptionYears must be positive")
	}
	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		return fmt.Errorf("telemetry: ServiceName required when enabled")
	}
	if c.Gateway.RequestsPerSecond < 0 || c.Gateway.Burst < 0 {
		return fmt.Errorf("gateway: rate limit must not be negative")
	}
	if c.Gateway.RequestsPerSecond > 0 && c.Gateway.Burst == 0 {
		return fmt.Errorf("gateway: Burst must be positive when RequestsPerSecond is set")
	}
	if _, err := c.Gateway.MinPlanPrice(); err != nil {
		return err
	}
	for token, keys := range c.Gateway.Tokens {
		if strings.TrimSpace(token) == "" {
			return fmt.Errorf("gateway: empty token")
		}
		if _, err := types.ParsePubkey(keys.Owner); err != nil {
			return fmt.Errorf("gateway: token %s owner: %w", token, err)
		}
		if _, err := types.ParsePubkey(keys.Payto); err != nil {
			return fmt.Errorf("gateway: token %s payto: %w", token, err)
		}
	}
	return nil
}

// MinPlanPrice parses MinPlanPriceSOL. Empty means no facade minimum.
func (g Gateway) MinPlanPrice() (decimal.Decimal, error) {
	raw := strings.TrimSpace(g.MinPlanPriceSOL)
	if raw == "" {
		return decimal.Zero, nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("gateway: MinPlanPriceSOL: %w", err)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("gateway: MinPlanPriceSOL must not be negative")
	}
	return price, nil
}
