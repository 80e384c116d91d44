package contracts

// Method names, shared by plan builders and parsers.
const (
	MethodDecimals      = "decimals"
	MethodName          = "name"
	MethodSymbol        = "symbol"
	MethodTotalSupply   = "totalSupply"
	MethodAdmin         = "admin"
	MethodOriginalAdmin = "originalAdmin"
	MethodMetadata      = "metadata"
	MethodBalanceOf     = "balanceOf"

	MethodGetProjectContracts = "getProjectContracts"

	MethodAmountAvailableToClaim = "amountAvailableToClaim"

	MethodCurrentCycleID      = "currentCycleId"
	MethodActiveProposalCount = "activeProposalCount"

	MethodTotalStaked      = "totalStaked"
	MethodStreamWindow     = "streamWindow"
	MethodRewardRate       = "rewardRate"
	MethodStreamInfo       = "streamInfo"
	MethodAvailableRewards = "availableRewards"
	MethodPendingRewards   = "pendingRewards"
	MethodStakedBalance    = "stakedBalance"
	MethodEarned           = "earned"

	MethodPendingFees = "pendingFees"
)

// Treasury custom error names.
const (
	ErrAllocationNotConfigured = "AllocationNotConfigured"
	ErrAllocationLocked        = "AllocationLocked"
	ErrUserMaxReached          = "UserMaxReached"
	ErrTotalMaxReached         = "TotalMaxReached"
)
