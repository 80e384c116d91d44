package parse

import (
	"github.com/ethereum/go-ethereum/common"

	"stakelens/internal/contracts"
	"stakelens/internal/domain"
	"stakelens/internal/plan"
)

// Registry parses the factory group into the project's address set. A
// failed lookup yields the zero set, which reads as "not registered".
func Registry(factory common.Address, r *Reader) domain.EntityAddressSet {
	set := domain.EntityAddressSet{}
	if !r.Require(plan.FactoryGroupSize) {
		return set
	}

	vals := r.Tuple(0, contracts.MethodGetProjectContracts, "contracts", 4)
	if vals == nil {
		return set
	}
	addrs := make([]common.Address, len(vals))
	for i, v := range vals {
		a, ok := v.(common.Address)
		if !ok {
			r.wrongType(0, contracts.MethodGetProjectContracts, v)
			return set
		}
		addrs[i] = a
	}

	set.Treasury = addrs[0]
	set.Governor = addrs[1]
	set.StakingPool = addrs[2]
	set.StakedToken = addrs[3]
	set.Factory = factory
	return set
}
