// Package contracts holds the ABI metadata of the contracts read by the
// aggregator and builds typed read descriptors against them.
package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"stakelens/internal/chain"
)

const tokenABI = `[
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"admin","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"originalAdmin","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"metadata","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const factoryABI = `[
{"type":"function","name":"getProjectContracts","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"treasury","type":"address"},{"name":"governor","type":"address"},{"name":"stakingPool","type":"address"},{"name":"stakedToken","type":"address"}]}
]`

const treasuryABI = `[
{"type":"function","name":"amountAvailableToClaim","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"claimant","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"error","name":"AllocationNotConfigured","inputs":[]},
{"type":"error","name":"AllocationLocked","inputs":[{"name":"unlockTime","type":"uint256"}]},
{"type":"error","name":"UserMaxReached","inputs":[]},
{"type":"error","name":"TotalMaxReached","inputs":[]}
]`

const governorABI = `[
{"type":"function","name":"currentCycleId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"activeProposalCount","stateMutability":"view","inputs":[{"name":"proposalType","type":"uint8"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const stakingPoolABI = `[
{"type":"function","name":"totalStaked","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"streamWindow","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"rewardRate","stateMutability":"view","inputs":[{"name":"rewardToken","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"streamInfo","stateMutability":"view","inputs":[{"name":"rewardToken","type":"address"}],"outputs":[{"name":"start","type":"uint64"},{"name":"end","type":"uint64"}]},
{"type":"function","name":"availableRewards","stateMutability":"view","inputs":[{"name":"rewardToken","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"pendingRewards","stateMutability":"view","inputs":[{"name":"rewardToken","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"stakedBalance","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"earned","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"rewardToken","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const feeSplitterABI = `[
{"type":"function","name":"pendingFees","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Contract pairs a parsed ABI with the label used in diagnostics.
type Contract struct {
	Label string
	ABI   abi.ABI
}

// Call builds a read descriptor. Unknown method names are programming errors
// and panic.
func (c Contract) Call(target common.Address, method string, args ...interface{}) chain.ReadDescriptor {
	m, ok := c.ABI.Methods[method]
	if !ok {
		panic(fmt.Sprintf("contracts: %s has no method %q", c.Label, method))
	}
	return chain.ReadDescriptor{
		Target:   target,
		Contract: c.Label,
		Method:   m,
		Args:     args,
	}
}

// Parsed contract surfaces.
var (
	Token       = mustContract("token", tokenABI)
	Factory     = mustContract("factory", factoryABI)
	Treasury    = mustContract("treasury", treasuryABI)
	Governor    = mustContract("governor", governorABI)
	StakingPool = mustContract("staking", stakingPoolABI)
	FeeSplitter = mustContract("feeSplitter", feeSplitterABI)
)

func mustContract(label, raw string) Contract {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("contracts: parse %s abi: %v", label, err))
	}
	return Contract{Label: label, ABI: parsed}
}
