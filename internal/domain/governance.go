package domain

// ProposalType is the governor's proposal kind.
type ProposalType uint8

const (
	ProposalTreasuryTransfer ProposalType = iota
	ProposalParameterChange
	ProposalMetadataUpdate
)

// AllProposalTypes lists every proposal type in on-chain enum order.
var AllProposalTypes = []ProposalType{
	ProposalTreasuryTransfer,
	ProposalParameterChange,
	ProposalMetadataUpdate,
}

func (t ProposalType) String() string {
	switch t {
	case ProposalTreasuryTransfer:
		return "treasury_transfer"
	case ProposalParameterChange:
		return "parameter_change"
	case ProposalMetadataUpdate:
		return "metadata_update"
	default:
		return "unknown"
	}
}

// ProposalCount is the number of active proposals of one type.
type ProposalCount struct {
	Type  ProposalType `json:"type"`
	Name  string       `json:"name"`
	Count uint64       `json:"count"`
}

// GovernanceStats describes the governor. CurrentCycle is the on-chain
// cycle id plus one.
type GovernanceStats struct {
	CurrentCycle    uint64          `json:"currentCycle"`
	ActiveProposals []ProposalCount `json:"activeProposals"`
	TotalActive     uint64          `json:"totalActive"`
}
