package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// EntityAddressSet is the set of contracts that make up one project.
// Either all five are set or the project is not registered.
type EntityAddressSet struct {
	Treasury    common.Address `json:"treasury"`
	Governor    common.Address `json:"governor"`
	StakingPool common.Address `json:"stakingPool"`
	StakedToken common.Address `json:"stakedToken"`
	Factory     common.Address `json:"factory"`
}

// Registered reports whether every address is non-zero.
func (s EntityAddressSet) Registered() bool {
	zero := common.Address{}
	return s.Treasury != zero &&
		s.Governor != zero &&
		s.StakingPool != zero &&
		s.StakedToken != zero &&
		s.Factory != zero
}

// SnapshotKey identifies a project snapshot for caching and storage.
type SnapshotKey struct {
	ChainID uint64         `json:"chainId"`
	Token   common.Address `json:"token"`
}

// String returns "<chainId>:<lowercase token hex>".
func (k SnapshotKey) String() string {
	return fmt.Sprintf("%d:%s", k.ChainID, strings.ToLower(k.Token.Hex()))
}

// ProjectSnapshot is the composed aggregate for one project at one block.
// Snapshots are values: nothing mutates them after they are returned.
type ProjectSnapshot struct {
	ID                 string            `json:"id"`
	Key                SnapshotKey       `json:"key"`
	BlockNumber        uint64            `json:"blockNumber"`
	ReferenceTimestamp uint64            `json:"referenceTimestamp"`
	Token              TokenRecord       `json:"token"`
	Addresses          EntityAddressSet  `json:"addresses"`
	Treasury           TreasuryStats     `json:"treasury"`
	Staking            StakingStats      `json:"staking"`
	Governance         GovernanceStats   `json:"governance"`
	FeeSplitter        *FeeSplitterState `json:"feeSplitter,omitempty"`
	User               *UserPosition     `json:"user,omitempty"`

	// Defaulted lists the fields whose read failed and were replaced by
	// their documented default, as "group.field".
	Defaulted []string `json:"defaulted,omitempty"`
}

// IsDefaulted reports whether field was filled with its default.
func (s *ProjectSnapshot) IsDefaulted(field string) bool {
	for _, f := range s.Defaulted {
		if f == field {
			return true
		}
	}
	return false
}
