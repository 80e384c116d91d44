package domain

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Metadata is the free-form JSON object a token admin attaches to a token.
type Metadata map[string]interface{}

// ParseMetadata parses raw as a JSON object. Empty or invalid input yields
// (nil, false).
func ParseMetadata(raw string) (Metadata, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	var m Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// TokenRecord is the on-chain description of a project token. Admin and
// metadata can change between reads.
type TokenRecord struct {
	Address       common.Address `json:"address"`
	Decimals      uint8          `json:"decimals"`
	Name          string         `json:"name"`
	Symbol        string         `json:"symbol"`
	TotalSupply   *big.Int       `json:"totalSupply"`
	Admin         common.Address `json:"admin"`
	OriginalAdmin common.Address `json:"originalAdmin"`
	MetadataRaw   string         `json:"metadataRaw,omitempty"`
	Metadata      Metadata       `json:"metadata"`
}
