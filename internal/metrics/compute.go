// Package metrics derives finance figures from parsed records. Every
// function is pure and works in integer or fixed-point arithmetic.
package metrics

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// SecondsPerYear annualizes per-second reward rates (365 days).
	SecondsPerYear = 365 * 24 * 60 * 60
	// BpsDenominator is 100% in basis points.
	BpsDenominator = 10_000
	// RatioScale is the fixed-point exponent applied to price ratios.
	RatioScale = 18
)

var (
	bigSecondsPerYear = big.NewInt(SecondsPerYear)
	bigBps            = big.NewInt(BpsDenominator)
	bigRatioOne       = new(big.Int).Exp(big.NewInt(10), big.NewInt(RatioScale), nil)
)

// Utilization returns allocated / totalSupply in basis points and as a
// percentage. A zero (or nil) supply yields 0.
func Utilization(allocated, totalSupply *big.Int) (uint64, decimal.Decimal) {
	if totalSupply == nil || totalSupply.Sign() <= 0 || allocated == nil || allocated.Sign() <= 0 {
		return 0, decimal.Zero
	}

	// allocated * 10000 / totalSupply
	bps := new(big.Int).Mul(allocated, bigBps)
	bps.Quo(bps, totalSupply)
	if !bps.IsUint64() {
		bps.SetUint64(^uint64(0))
	}
	n := bps.Uint64()
	return n, BpsToPercent(n)
}

// BpsToPercent converts basis points to a percentage.
func BpsToPercent(bps uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(bps), -2)
}

// PrimaryAPR is the APR in basis points of a reward asset denominated in
// the staked token: rate * year * 10000 / totalStaked. Nil when nothing is
// staked.
func PrimaryAPR(rate, totalStaked *big.Int) *big.Int {
	if totalStaked == nil || totalStaked.Sign() <= 0 || rate == nil {
		return nil
	}
	annual := new(big.Int).Mul(rate, bigSecondsPerYear)
	annual.Mul(annual, bigBps)
	return annual.Quo(annual, totalStaked)
}

// SecondaryAPR is the APR in basis points of a reward asset that is not the
// staked token. ratio converts one secondary base unit into primary base
// units (see pricing.Prices.Ratio); it is applied as a 1e18 fixed-point
// integer before the final division. Nil when nothing is staked or the
// ratio is unavailable.
func SecondaryAPR(rate, totalStaked *big.Int, ratio decimal.Decimal, ratioOK bool) *big.Int {
	if !ratioOK || !ratio.IsPositive() || totalStaked == nil || totalStaked.Sign() <= 0 || rate == nil {
		return nil
	}
	scaled := ratio.Shift(RatioScale).BigInt()

	// rate * year * scaledRatio * 10000 / (1e18 * totalStaked)
	num := new(big.Int).Mul(rate, bigSecondsPerYear)
	num.Mul(num, scaled)
	num.Mul(num, bigBps)
	den := new(big.Int).Mul(bigRatioOne, totalStaked)
	return num.Quo(num, den)
}

// StreamActive reports whether ref lies in [start, end], inclusive at both
// ends. ref must be a chain timestamp.
func StreamActive(start, end, ref uint64) bool {
	return start <= ref && ref <= end
}

// MergePending returns the externally reported pending amount of a reward
// asset. With the fee splitter active both paths can hold an unforwarded
// share of the same fee stream, so they are summed; otherwise only the
// staking pool's own figure counts.
func MergePending(stakingPending, splitterPending *big.Int, splitterActive bool) *big.Int {
	out := new(big.Int)
	if stakingPending != nil {
		out.Set(stakingPending)
	}
	if splitterActive && splitterPending != nil {
		out.Add(out, splitterPending)
	}
	return out
}
