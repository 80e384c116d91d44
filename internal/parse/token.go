package parse

import (
	"github.com/ethereum/go-ethereum/common"

	"stakelens/internal/contracts"
	"stakelens/internal/domain"
	"stakelens/internal/plan"
)

// DefaultDecimals is used when the decimals read fails.
const DefaultDecimals uint8 = 18

// Token parses the token group. Metadata that is missing or not a JSON
// object yields a nil Metadata; it is not counted as defaulted unless the
// read itself failed.
func Token(token common.Address, r *Reader) domain.TokenRecord {
	rec := domain.TokenRecord{Address: token}
	if !r.Require(plan.TokenGroupSize) {
		return rec
	}

	rec.Decimals = r.Uint8(0, contracts.MethodDecimals, "decimals", DefaultDecimals)
	rec.Name = r.String(1, contracts.MethodName, "name")
	rec.Symbol = r.String(2, contracts.MethodSymbol, "symbol")
	rec.TotalSupply = r.BigInt(3, contracts.MethodTotalSupply, "totalSupply")
	rec.Admin = r.Address(4, contracts.MethodAdmin, "admin")
	rec.OriginalAdmin = r.Address(5, contracts.MethodOriginalAdmin, "originalAdmin")
	rec.MetadataRaw = r.String(6, contracts.MethodMetadata, "metadata")
	rec.Metadata, _ = domain.ParseMetadata(rec.MetadataRaw)
	return rec
}
