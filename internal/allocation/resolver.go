package allocation

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"stakelens/internal/chain"
	"stakelens/internal/contracts"
	"stakelens/internal/domain"
	"stakelens/internal/idhash"
	"stakelens/internal/observability"
	"stakelens/internal/plan"
)

// ErrMissingTable is returned by New without an amount table.
var ErrMissingTable = errors.New("allocation: amount table is required")

// Resolver runs the probe-and-classify algorithm against a treasury.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	executor chain.BatchExecutor
	heads    chain.HeadReader
	table    *Table
	chainID  uint64
	log      logrus.FieldLogger
}

// Options for creating a Resolver.
type Options struct {
	// Required
	Executor chain.BatchExecutor
	Table    *Table

	// Optional
	Heads   chain.HeadReader // stamps resolutions with a block number
	ChainID uint64
	Logger  logrus.FieldLogger
}

// New creates a Resolver.
func New(opts Options) (*Resolver, error) {
	if opts.Executor == nil {
		return nil, errors.New("allocation: executor is required")
	}
	if opts.Table == nil {
		return nil, ErrMissingTable
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{
		executor: opts.Executor,
		heads:    opts.Heads,
		table:    opts.Table,
		chainID:  opts.ChainID,
		log:      log.WithField("component", "allocation"),
	}, nil
}

// Resolve probes every table amount for (token, claimant) in one batch and
// selects the best candidate. A nil Selected means no amount matched. Only
// a whole-batch failure is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, treasury, token, claimant common.Address) (*domain.AllocationResolution, error) {
	amounts := r.table.Amounts()
	p := plan.AllocationPlan(treasury, token, claimant, amounts)

	log := r.log.WithFields(logrus.Fields{
		"token":    token.Hex(),
		"claimant": claimant.Hex(),
		"version":  r.table.Version(),
	})

	// The head is read first so the stamp never postdates the probe results.
	var block uint64
	if r.heads != nil {
		if head, err := r.heads.LatestHead(ctx); err == nil {
			block = head.Number
		} else {
			log.WithError(err).Debug("Head unavailable, resolution not block stamped")
		}
	}

	results, err := r.executor.Execute(ctx, p.Descriptors())
	if err != nil {
		log.WithError(err).Warn("Allocation probe batch failed")
		return nil, fmt.Errorf("probe allocations: %w", err)
	}
	parts, err := p.Split(results)
	if err != nil {
		log.WithError(err).Error("Allocation probe results misaligned")
		return nil, err
	}

	balance := claimantBalance(parts[plan.GroupClaimant], log)

	probes := parts[plan.GroupAllocation]
	cands := make([]domain.AllocationCandidate, len(amounts))
	for i, amount := range amounts {
		res := probes[i]
		if res.Method != contracts.MethodAmountAvailableToClaim {
			return nil, fmt.Errorf("%w: probe %d is %s", plan.ErrSliceMismatch, i, res.Method)
		}
		cands[i], _ = Classify(amount, res, balance)
	}

	out := &domain.AllocationResolution{
		ChainID:      r.chainID,
		Treasury:     treasury,
		Token:        token,
		Claimant:     claimant,
		TableVersion: r.table.Version(),
		Selected:     Rank(cands),
		Candidates:   cands,
		BlockNumber:  block,
	}
	out.ID = idhash.ComputeResolutionID(r.chainID, token, claimant, r.table.Version(), out.BlockNumber)

	status := string(domain.AllocationNotFound)
	if out.Selected != nil {
		status = string(out.Selected.Status)
	}
	observability.RecordAllocation(status)
	log.WithField("status", status).Debug("Allocation resolved")
	return out, nil
}

// claimantBalance reads the balance probe. A failed read counts as zero,
// which classifies zero-available probes as locked.
func claimantBalance(results []chain.Result, log logrus.FieldLogger) *big.Int {
	if len(results) == 0 || !results[0].OK() {
		if len(results) > 0 {
			log.WithError(results[0].Err).Debug("Claimant balance read failed, using zero")
		}
		return new(big.Int)
	}
	b, ok := results[0].Value.(*big.Int)
	if !ok || b == nil {
		return new(big.Int)
	}
	return b
}
