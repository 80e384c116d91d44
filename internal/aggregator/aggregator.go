// Package aggregator assembles project snapshots.
// It coordinates: lookup → plan → batch → slice → parse → metrics
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"stakelens/internal/chain"
	"stakelens/internal/domain"
	"stakelens/internal/idhash"
	"stakelens/internal/metrics"
	"stakelens/internal/observability"
	"stakelens/internal/parse"
	"stakelens/internal/plan"
	"stakelens/internal/pricing"
)

// ErrNotRegistered is returned when the factory knows no complete contract
// set for a token.
var ErrNotRegistered = errors.New("aggregator: project not registered")

// Aggregator reads a project's contracts in two round trips and returns a
// composed snapshot. It holds no mutable state; concurrent calls for
// different tokens need no coordination.
type Aggregator struct {
	executor chain.BatchExecutor
	heads    chain.HeadReader
	prices   pricing.Source
	log      logrus.FieldLogger

	chainID           uint64
	factory           common.Address
	secondary         common.Address
	secondaryDecimals uint8
	feeSplitter       common.Address
	proposalTypes     []domain.ProposalType
}

// Options for creating Aggregator.
type Options struct {
	// Required
	Executor chain.BatchExecutor
	Factory  common.Address
	ChainID  uint64

	// Heads supplies the reference timestamp. Required unless every
	// request carries its own head.
	Heads chain.HeadReader

	// Feature flags
	SecondaryAsset    common.Address // zero: no secondary reward asset
	SecondaryDecimals uint8          // 0 means 18
	FeeSplitter       common.Address // zero: splitter inactive
	ProposalTypes     []domain.ProposalType

	// Optional
	Prices pricing.Source // nil: secondary APR unknown
	Logger logrus.FieldLogger
}

// New creates a new Aggregator.
func New(opts Options) (*Aggregator, error) {
	if opts.Executor == nil {
		return nil, errors.New("aggregator: executor is required")
	}
	if opts.Factory == (common.Address{}) {
		return nil, errors.New("aggregator: factory address is required")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	decimals := opts.SecondaryDecimals
	if decimals == 0 {
		decimals = 18
	}
	types := opts.ProposalTypes
	if types == nil {
		types = domain.AllProposalTypes
	}
	return &Aggregator{
		executor:          opts.Executor,
		heads:             opts.Heads,
		prices:            opts.Prices,
		log:               log.WithField("component", "aggregator"),
		chainID:           opts.ChainID,
		factory:           opts.Factory,
		secondary:         opts.SecondaryAsset,
		secondaryDecimals: decimals,
		feeSplitter:       opts.FeeSplitter,
		proposalTypes:     types,
	}, nil
}

// ChainID returns the chain the aggregator reads.
func (a *Aggregator) ChainID() uint64 { return a.chainID }

// Request selects what to aggregate.
type Request struct {
	Token common.Address
	// User adds the user's staking position; zero for none.
	User common.Address
	// Head pins the reference block. Nil reads the latest head.
	Head *chain.Head
}

// Flags returns the plan flags for a request.
func (a *Aggregator) Flags(req Request) plan.Flags {
	return plan.Flags{
		SecondaryAsset: a.secondary,
		FeeSplitter:    a.feeSplitter,
		ProposalTypes:  a.proposalTypes,
		User:           req.User,
	}
}

// Lookup resolves the project's contract set from the factory. Any zero
// address yields ErrNotRegistered.
func (a *Aggregator) Lookup(ctx context.Context, token common.Address) (domain.EntityAddressSet, error) {
	p := plan.LookupPlan(a.factory, token)
	results, err := a.executor.Execute(ctx, p.Descriptors())
	if err != nil {
		return domain.EntityAddressSet{}, fmt.Errorf("lookup %s: %w", token.Hex(), err)
	}
	parts, err := p.Split(results)
	if err != nil {
		return domain.EntityAddressSet{}, err
	}

	r := parse.NewReader(plan.GroupFactory, parts[plan.GroupFactory], a.log)
	addrs := parse.Registry(a.factory, r)
	if err := r.Err(); err != nil {
		return domain.EntityAddressSet{}, err
	}
	if !addrs.Registered() {
		return domain.EntityAddressSet{}, fmt.Errorf("%w: %s", ErrNotRegistered, token.Hex())
	}
	return addrs, nil
}

// Aggregate builds the snapshot for req. It returns either a complete
// snapshot, with failed peripheral reads defaulted and listed in
// Defaulted, or a single error.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (*domain.ProjectSnapshot, error) {
	start := time.Now()
	snap, err := a.aggregate(ctx, req)

	outcome := "success"
	var defaulted []string
	switch {
	case errors.Is(err, ErrNotRegistered):
		outcome = "not_registered"
	case err != nil:
		outcome = "error"
	default:
		defaulted = snap.Defaulted
	}
	observability.RecordAggregation(outcome, time.Since(start).Seconds(), defaulted)
	return snap, err
}

func (a *Aggregator) aggregate(ctx context.Context, req Request) (*domain.ProjectSnapshot, error) {
	log := a.log.WithField("token", req.Token.Hex())

	// Round trip 1: registry lookup
	addrs, err := a.Lookup(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	// Reference head: chain time, never wall-clock
	head := req.Head
	if head == nil {
		if a.heads == nil {
			return nil, errors.New("aggregator: no head supplied and no head reader configured")
		}
		head, err = a.heads.LatestHead(ctx)
		if err != nil {
			return nil, fmt.Errorf("read head: %w", err)
		}
	}

	// Round trip 2: every group in fixed order
	flags := a.Flags(req)
	p := plan.ProjectPlan(req.Token, addrs, flags)
	results, err := a.executor.Execute(ctx, p.Descriptors())
	if err != nil {
		log.WithError(err).Warn("Project batch failed")
		return nil, fmt.Errorf("aggregate %s: %w", req.Token.Hex(), err)
	}
	parts, err := p.Split(results)
	if err != nil {
		log.WithError(err).Error("Project results misaligned")
		return nil, err
	}

	snap, err := a.assemble(req.Token, addrs, flags, parts)
	if err != nil {
		log.WithError(err).Error("Project results malformed")
		return nil, err
	}
	snap.BlockNumber = head.Number
	snap.ReferenceTimestamp = head.Timestamp
	snap.ID = idhash.ComputeSnapshotID(snap.Key, head.Number)

	// Derived metrics
	in := metrics.Inputs{ReferenceTimestamp: head.Timestamp}
	if snap.Staking.Secondary != nil {
		in.Ratio, in.RatioOK = a.ratio(ctx, req.Token, snap.Token.Decimals, log)
	}
	metrics.Apply(snap, in)

	if len(snap.Defaulted) > 0 {
		log.WithField("defaulted", snap.Defaulted).Debug("Snapshot has defaulted fields")
	}
	return snap, nil
}

// assemble runs the group parsers.
func (a *Aggregator) assemble(token common.Address, lookup domain.EntityAddressSet, f plan.Flags, parts map[plan.GroupName][]chain.Result) (*domain.ProjectSnapshot, error) {
	reader := func(g plan.GroupName) *parse.Reader {
		return parse.NewReader(g, parts[g], a.log)
	}
	tokenR := reader(plan.GroupToken)
	factoryR := reader(plan.GroupFactory)
	treasuryR := reader(plan.GroupTreasury)
	governanceR := reader(plan.GroupGovernance)
	stakingR := reader(plan.GroupStaking)
	splitterR := reader(plan.GroupFeeSplitter)

	snap := &domain.ProjectSnapshot{
		Key:   domain.SnapshotKey{ChainID: a.chainID, Token: token},
		Token: parse.Token(token, tokenR),
	}

	// Every read of this batch targeted the lookup addresses, so they are
	// the ones reported even if the registry moved in between.
	snap.Addresses = lookup
	if reread := parse.Registry(a.factory, factoryR); reread.Registered() && reread != lookup {
		a.log.WithFields(logrus.Fields{
			"token":       token.Hex(),
			"treasury":    reread.Treasury.Hex(),
			"stakingPool": reread.StakingPool.Hex(),
		}).Warn("Registry changed during aggregation, keeping looked-up addresses")
	}

	snap.Treasury = parse.Treasury(treasuryR, f)
	snap.Governance = parse.Governance(governanceR, f)
	snap.Staking, snap.User = parse.Staking(token, stakingR, f)
	snap.FeeSplitter = parse.FeeSplitter(splitterR, f)

	defaulted, err := parse.Collect(tokenR, factoryR, treasuryR, governanceR, stakingR, splitterR)
	if err != nil {
		return nil, err
	}
	sort.Strings(defaulted)
	snap.Defaulted = defaulted
	return snap, nil
}

// ratio prices the secondary asset in primary units. Missing pricing is
// not an error; the secondary APR is simply unknown.
func (a *Aggregator) ratio(ctx context.Context, token common.Address, primaryDecimals uint8, log logrus.FieldLogger) (decimal.Decimal, bool) {
	if a.prices == nil {
		return decimal.Zero, false
	}
	p, err := a.prices.Prices(ctx, token.Hex())
	if err != nil {
		log.WithError(err).Debug("Prices unavailable, secondary APR unknown")
		return decimal.Zero, false
	}
	return p.Ratio(a.secondaryDecimals, primaryDecimals)
}
