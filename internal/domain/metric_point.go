package domain

import (
	"math"
	"math/big"
	"strings"
)

// MetricPoint is the time-series projection of a snapshot.
type MetricPoint struct {
	ChainID         uint64   `json:"chainId"`
	Token           string   `json:"token"` // lowercase hex
	BlockNumber     uint64   `json:"blockNumber"`
	BlockTime       uint64   `json:"blockTime"`
	TotalSupply     *big.Int `json:"totalSupply"`
	TotalAllocated  *big.Int `json:"totalAllocated"`
	TotalStaked     *big.Int `json:"totalStaked"`
	UtilizationBps  uint64   `json:"utilizationBps"`
	PrimaryAPRBps   *uint64  `json:"primaryAprBps"` // nil when unknown
	SecondaryAPRBps *uint64  `json:"secondaryAprBps"`
	StreamActive    bool     `json:"streamActive"`
	CurrentCycle    uint64   `json:"currentCycle"`
}

// MetricPoint projects the snapshot onto its time-series row.
func (s *ProjectSnapshot) MetricPoint() MetricPoint {
	p := MetricPoint{
		ChainID:        s.Key.ChainID,
		Token:          strings.ToLower(s.Key.Token.Hex()),
		BlockNumber:    s.BlockNumber,
		BlockTime:      s.ReferenceTimestamp,
		TotalSupply:    s.Token.TotalSupply,
		TotalAllocated: s.Treasury.TotalAllocated,
		TotalStaked:    s.Staking.TotalStaked,
		UtilizationBps: s.Treasury.UtilizationBps,
		PrimaryAPRBps:  saturatingUint64(s.Staking.Primary.APRBps),
		StreamActive:   s.Staking.Primary.Stream.IsActive,
		CurrentCycle:   s.Governance.CurrentCycle,
	}
	if s.Staking.Secondary != nil {
		p.SecondaryAPRBps = saturatingUint64(s.Staking.Secondary.APRBps)
	}
	return p
}

func saturatingUint64(v *big.Int) *uint64 {
	if v == nil {
		return nil
	}
	var out uint64
	switch {
	case v.Sign() < 0:
		out = 0
	case v.IsUint64():
		out = v.Uint64()
	default:
		out = math.MaxUint64
	}
	return &out
}
