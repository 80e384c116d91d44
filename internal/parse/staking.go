package parse

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakelens/internal/contracts"
	"stakelens/internal/domain"
	"stakelens/internal/plan"
)

// Staking parses the staking group into pool stats and, when user reads
// were planned, the user's position. Stream activity, APR and the pending
// merge are left to the metrics package.
func Staking(token common.Address, r *Reader, f plan.Flags) (domain.StakingStats, *domain.UserPosition) {
	stats := domain.StakingStats{}

	assets := []common.Address{token}
	if f.HasSecondary() {
		assets = append(assets, f.SecondaryAsset)
	}
	need := plan.StakingBaseSize + plan.StakingPerAsset*len(assets)
	if f.HasUser() {
		need += 1 + len(assets)
	}
	if !r.Require(need) {
		return stats, nil
	}

	stats.TotalStaked = r.BigInt(0, contracts.MethodTotalStaked, "totalStaked")
	stats.StreamWindowSeconds = uint64Of(r.BigInt(1, contracts.MethodStreamWindow, "streamWindow"))

	rewards := make([]domain.RewardAsset, len(assets))
	for i, asset := range assets {
		prefix := "primary."
		if i > 0 {
			prefix = "secondary."
		}
		rewards[i] = rewardAsset(r, plan.StakingBaseSize+plan.StakingPerAsset*i, asset, prefix)
		rewards[i].Stream.WindowSeconds = stats.StreamWindowSeconds
	}
	stats.Primary = rewards[0]
	if len(rewards) > 1 {
		stats.Secondary = &rewards[1]
	}

	if !f.HasUser() {
		return stats, nil
	}
	off := plan.StakingBaseSize + plan.StakingPerAsset*len(assets)
	pos := &domain.UserPosition{
		User:          f.User,
		Staked:        r.BigInt(off, contracts.MethodStakedBalance, "user.staked"),
		EarnedPrimary: r.BigInt(off+1, contracts.MethodEarned, "user.earnedPrimary"),
	}
	if len(assets) > 1 {
		pos.EarnedSecondary = r.BigInt(off+2, contracts.MethodEarned, "user.earnedSecondary")
	}
	return stats, pos
}

func rewardAsset(r *Reader, off int, asset common.Address, prefix string) domain.RewardAsset {
	ra := domain.RewardAsset{
		Token:          asset,
		RewardRate:     r.BigInt(off, contracts.MethodRewardRate, prefix+"rewardRate"),
		Available:      r.BigInt(off+2, contracts.MethodAvailableRewards, prefix+"available"),
		StakingPending: r.BigInt(off+3, contracts.MethodPendingRewards, prefix+"pending"),
	}
	if vals := r.Tuple(off+1, contracts.MethodStreamInfo, prefix+"stream", 2); vals != nil {
		start, ok1 := vals[0].(uint64)
		end, ok2 := vals[1].(uint64)
		if !ok1 || !ok2 {
			r.wrongType(off+1, contracts.MethodStreamInfo, vals)
		} else {
			ra.Stream.Start = start
			ra.Stream.End = end
		}
	}
	ra.Pending = new(big.Int).Set(ra.StakingPending)
	return ra
}
