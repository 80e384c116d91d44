// Package watcher refreshes project snapshots as new chain heads arrive.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"stakelens/internal/aggregator"
	"stakelens/internal/chain"
	"stakelens/internal/domain"
	"stakelens/internal/observability"
	"stakelens/internal/storage"
)

// Aggregator produces a snapshot for one request.
type Aggregator interface {
	Aggregate(ctx context.Context, req aggregator.Request) (*domain.ProjectSnapshot, error)
	ChainID() uint64
}

// Watcher subscribes to newHeads and refreshes every configured token each
// Every blocks. Tokens refresh concurrently; one token's failure does not
// stop the others.
type Watcher struct {
	heads       chain.WSClient
	aggregator  Aggregator
	tokens      []common.Address
	every       uint64
	concurrency int

	snapshots storage.SnapshotStore
	points    storage.MetricPointStore
	progress  storage.RefreshProgressStore

	log logrus.FieldLogger

	lastRun uint64
}

// Options for creating Watcher.
type Options struct {
	// Required
	Heads      chain.WSClient
	Aggregator Aggregator
	Tokens     []common.Address

	// Every is the refresh interval in blocks. Default: 1.
	Every uint64
	// Concurrency bounds parallel token refreshes. Default: 4.
	Concurrency int

	// Optional stores; nil skips persistence of that kind.
	Snapshots storage.SnapshotStore
	Points    storage.MetricPointStore
	Progress  storage.RefreshProgressStore

	Logger logrus.FieldLogger
}

// New creates a new Watcher.
func New(opts Options) (*Watcher, error) {
	if opts.Heads == nil {
		return nil, errors.New("watcher: head subscription is required")
	}
	if opts.Aggregator == nil {
		return nil, errors.New("watcher: aggregator is required")
	}
	if len(opts.Tokens) == 0 {
		return nil, errors.New("watcher: at least one token is required")
	}
	every := opts.Every
	if every == 0 {
		every = 1
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	tokens := make([]common.Address, len(opts.Tokens))
	copy(tokens, opts.Tokens)

	return &Watcher{
		heads:       opts.Heads,
		aggregator:  opts.Aggregator,
		tokens:      tokens,
		every:       every,
		concurrency: concurrency,
		snapshots:   opts.Snapshots,
		points:      opts.Points,
		progress:    opts.Progress,
		log:         log.WithField("component", "watcher"),
	}, nil
}

// Run consumes heads until ctx is cancelled or the subscription closes.
func (w *Watcher) Run(ctx context.Context) error {
	ch, err := w.heads.SubscribeHeads(ctx)
	if err != nil {
		return fmt.Errorf("subscribe heads: %w", err)
	}

	w.log.WithFields(logrus.Fields{
		"tokens": len(w.tokens),
		"every":  w.every,
	}).Info("watcher started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher stopping")
			return ctx.Err()

		case head, ok := <-ch:
			if !ok {
				return errors.New("watcher: head subscription closed")
			}
			observability.RecordHead(head.Number)
			if !w.due(head.Number) {
				continue
			}
			if err := w.RefreshAll(ctx, head); err != nil {
				w.log.WithError(err).WithField("block", head.Number).Warn("refresh incomplete")
			}
		}
	}
}

// due reports whether block is at least Every blocks past the last run.
func (w *Watcher) due(block uint64) bool {
	if w.lastRun != 0 && block < w.lastRun+w.every {
		return false
	}
	w.lastRun = block
	return true
}

// RefreshAll refreshes every token at head. The returned error joins the
// per-token failures.
func (w *Watcher) RefreshAll(ctx context.Context, head chain.Head) error {
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, token := range w.tokens {
		g.Go(func() error {
			if err := w.Refresh(gctx, token, head); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", token.Hex(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) == 0 {
		observability.RecordRefresh(time.Now().Unix())
	}
	return errors.Join(errs...)
}

// Refresh aggregates one token at head and persists the result. Heads at or
// below the recorded progress are skipped.
func (w *Watcher) Refresh(ctx context.Context, token common.Address, head chain.Head) error {
	key := domain.SnapshotKey{ChainID: w.aggregator.ChainID(), Token: token}
	log := w.log.WithFields(logrus.Fields{"token": token.Hex(), "block": head.Number})

	if w.progress != nil {
		last, err := w.progress.GetLastRefreshed(ctx, key)
		switch {
		case err == nil && last.BlockNumber >= head.Number:
			log.Debug("already refreshed")
			return nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("read progress: %w", err)
		}
	}

	h := head
	snap, err := w.aggregator.Aggregate(ctx, aggregator.Request{Token: token, Head: &h})
	if err != nil {
		if errors.Is(err, aggregator.ErrNotRegistered) {
			log.Warn("token not registered")
			return nil
		}
		return err
	}

	if w.snapshots != nil {
		switch err := w.snapshots.Insert(ctx, snap); {
		case err == nil:
			observability.RecordSnapshotStored()
		case !errors.Is(err, storage.ErrDuplicateKey):
			return fmt.Errorf("store snapshot: %w", err)
		}
	}

	if w.points != nil {
		p := snap.MetricPoint()
		switch err := w.points.InsertBulk(ctx, []*domain.MetricPoint{&p}); {
		case err == nil:
			observability.RecordMetricPointsStored(1)
		case !errors.Is(err, storage.ErrDuplicateKey):
			return fmt.Errorf("store metric point: %w", err)
		}
	}

	if w.progress != nil {
		if err := w.progress.SetLastRefreshed(ctx, &storage.RefreshProgress{Key: key, BlockNumber: head.Number}); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
	}

	log.WithField("defaulted", len(snap.Defaulted)).Debug("snapshot refreshed")
	return nil
}
