// Package pricing supplies the USD prices used to put a secondary reward
// asset on the same footing as the primary token.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when a source has no price for an asset pair.
var ErrUnavailable = errors.New("pricing: prices unavailable")

// Prices is a USD price pair as decimal strings. Either may be empty.
type Prices struct {
	SecondaryUSD string `json:"secondaryAssetUsd"`
	PrimaryUSD   string `json:"primaryAssetUsd"`
}

// Ratio returns how many primary base units one secondary base unit is
// worth, adjusting for the two assets' decimals. It reports false when a
// price is missing, unparseable or not positive.
func (p Prices) Ratio(secondaryDecimals, primaryDecimals uint8) (decimal.Decimal, bool) {
	sec, ok := parsePositive(p.SecondaryUSD)
	if !ok {
		return decimal.Zero, false
	}
	pri, ok := parsePositive(p.PrimaryUSD)
	if !ok {
		return decimal.Zero, false
	}
	ratio := sec.DivRound(pri, 36)
	return ratio.Shift(int32(primaryDecimals) - int32(secondaryDecimals)), true
}

func parsePositive(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// Source provides prices for a project token.
type Source interface {
	Prices(ctx context.Context, token string) (Prices, error)
}

// StaticSource returns the same configured prices for every token.
type StaticSource struct {
	prices Prices
}

// Compile-time interface check.
var _ Source = (*StaticSource)(nil)

// NewStaticSource validates and wraps a fixed price pair.
func NewStaticSource(p Prices) (*StaticSource, error) {
	for _, v := range []string{p.SecondaryUSD, p.PrimaryUSD} {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, err := decimal.NewFromString(strings.TrimSpace(v)); err != nil {
			return nil, fmt.Errorf("pricing: invalid price %q: %w", v, err)
		}
	}
	return &StaticSource{prices: p}, nil
}

// Prices returns the configured pair, or ErrUnavailable when either side is
// unset.
func (s *StaticSource) Prices(_ context.Context, _ string) (Prices, error) {
	if strings.TrimSpace(s.prices.SecondaryUSD) == "" || strings.TrimSpace(s.prices.PrimaryUSD) == "" {
		return Prices{}, ErrUnavailable
	}
	return s.prices, nil
}
