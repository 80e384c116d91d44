// Package allocation resolves which of several historically configured
// allocation amounts currently applies to a claimant.
package allocation

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTable is returned for malformed amount tables.
var ErrInvalidTable = errors.New("allocation: invalid amount table")

// tableFile is the on-disk YAML layout.
type tableFile struct {
	Version  string   `yaml:"version"`
	Decimals uint8    `yaml:"decimals"`
	Amounts  []string `yaml:"amounts"`
}

// Table is a versioned, immutable list of candidate allocation amounts in
// base units. Enumeration order is significant: it breaks ranking ties.
type Table struct {
	version string
	amounts []*big.Int
}

// NewTable builds a table from base-unit amounts.
func NewTable(version string, amounts []*big.Int) (*Table, error) {
	if strings.TrimSpace(version) == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidTable)
	}
	if len(amounts) == 0 {
		return nil, fmt.Errorf("%w: no amounts", ErrInvalidTable)
	}
	t := &Table{version: version, amounts: make([]*big.Int, len(amounts))}
	for i, a := range amounts {
		if a == nil || a.Sign() <= 0 {
			return nil, fmt.Errorf("%w: amount %d is not positive", ErrInvalidTable, i)
		}
		t.amounts[i] = new(big.Int).Set(a)
	}
	return t, nil
}

// ParseTable parses a YAML table. Amounts are written in whole tokens and
// scaled by 10^decimals; decimals defaults to 18 when omitted.
//
//	version: "2024-06"
//	decimals: 18
//	amounts: ["1000", "2500", "0.5"]
func ParseTable(data []byte) (*Table, error) {
	raw := tableFile{Decimals: 18}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	amounts := make([]*big.Int, 0, len(raw.Amounts))
	for _, s := range raw.Amounts {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: amount %q: %v", ErrInvalidTable, s, err)
		}
		scaled := d.Shift(int32(raw.Decimals))
		if !scaled.Equal(scaled.Truncate(0)) {
			return nil, fmt.Errorf("%w: amount %q has more than %d decimals", ErrInvalidTable, s, raw.Decimals)
		}
		amounts = append(amounts, scaled.BigInt())
	}
	return NewTable(raw.Version, amounts)
}

// LoadTable reads and parses a YAML table file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read amount table: %w", err)
	}
	return ParseTable(data)
}

// Version returns the table version.
func (t *Table) Version() string { return t.version }

// Amounts returns copies of the amounts in enumeration order.
func (t *Table) Amounts() []*big.Int {
	out := make([]*big.Int, len(t.amounts))
	for i, a := range t.amounts {
		out[i] = new(big.Int).Set(a)
	}
	return out
}

// Len returns the number of amounts.
func (t *Table) Len() int { return len(t.amounts) }
