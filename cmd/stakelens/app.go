package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"stakelens/internal/aggregator"
	"stakelens/internal/allocation"
	"stakelens/internal/chain"
	"stakelens/internal/observability"
	"stakelens/internal/storage"
	chstore "stakelens/internal/storage/clickhouse"
	"stakelens/internal/storage/memory"
	"stakelens/internal/storage/migrations"
	pgstore "stakelens/internal/storage/postgres"
)

// app holds the wired chain access shared by every command.
type app struct {
	rpc        *chain.HTTPClient
	executor   chain.BatchExecutor
	aggregator *aggregator.Aggregator
}

func newApp(ctx context.Context, g *globals) (*app, error) {
	cfg := g.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rpc := chain.NewHTTPClient(cfg.RPCURL,
		chain.WithTimeout(cfg.Timeout),
		chain.WithMaxRetries(cfg.MaxRetries),
		chain.WithRetryDelay(cfg.RetryDelay),
		chain.WithMaxBatchSize(cfg.BatchSize),
	)

	var exec chain.BatchExecutor = rpc
	if cfg.Multicall != (common.Address{}) {
		exec = chain.NewMulticallExecutor(rpc, cfg.Multicall, cfg.BatchSize)
		g.log.WithField("multicall", cfg.Multicall.Hex()).Info("using multicall executor")
	}
	exec = observability.Instrument(exec)

	chainID := cfg.ChainID
	if chainID == 0 {
		id, err := rpc.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("read chain id: %w", err)
		}
		chainID = id
	}

	prices, err := cfg.PriceSource()
	if err != nil {
		return nil, err
	}

	agg, err := aggregator.New(aggregator.Options{
		Executor:          exec,
		Factory:           cfg.Factory,
		ChainID:           chainID,
		Heads:             rpc,
		SecondaryAsset:    cfg.SecondaryAsset,
		SecondaryDecimals: cfg.SecondaryDecimals,
		FeeSplitter:       cfg.FeeSplitter,
		Prices:            prices,
		Logger:            g.log,
	})
	if err != nil {
		return nil, err
	}

	return &app{rpc: rpc, executor: exec, aggregator: agg}, nil
}

// resolver builds the allocation resolver from the table at path. An empty
// path yields nil.
func (a *app) resolver(g *globals, path string) (*allocation.Resolver, error) {
	if path == "" {
		return nil, nil
	}
	table, err := allocation.LoadTable(path)
	if err != nil {
		return nil, err
	}
	g.log.WithFields(logrus.Fields{
		"version": table.Version(),
		"amounts": table.Len(),
	}).Info("allocation table loaded")

	return allocation.New(allocation.Options{
		Executor: a.executor,
		Table:    table,
		Heads:    a.rpc,
		ChainID:  a.aggregator.ChainID(),
		Logger:   g.log,
	})
}

// stores bundles the persistence backends.
type stores struct {
	snapshots   storage.SnapshotStore
	points      storage.MetricPointStore
	allocations storage.AllocationStore
	progress    storage.RefreshProgressStore
}

// openStores connects Postgres and ClickHouse when their DSNs are set and
// falls back to memory otherwise. Migrations run on connect.
func openStores(ctx context.Context, g *globals) (*stores, func(), error) {
	cfg := g.cfg
	s := &stores{
		snapshots:   memory.NewSnapshotStore(),
		points:      memory.NewMetricPointStore(),
		allocations: memory.NewAllocationStore(),
		progress:    memory.NewRefreshProgressStore(),
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		applied, err := migrations.ApplyPostgres(ctx, pool, g.log)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		s.snapshots = pgstore.NewSnapshotStore(pool)
		s.allocations = pgstore.NewAllocationStore(pool)
		s.progress = pgstore.NewRefreshProgressStore(pool)
		g.log.WithField("migrations", len(applied)).Info("postgres storage ready")
	} else {
		g.log.Warn("STAKELENS_POSTGRES_DSN not set, snapshots kept in memory")
	}

	if cfg.ClickhouseDSN != "" {
		conn, applied, err := migrations.ApplyClickhouse(ctx, cfg.ClickhouseDSN, g.log)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = conn.Close() })
		s.points = chstore.NewMetricPointStore(conn)
		g.log.WithField("migrations", len(applied)).Info("clickhouse storage ready")
	} else {
		g.log.Warn("STAKELENS_CLICKHOUSE_DSN not set, metric points kept in memory")
	}

	return s, cleanup, nil
}
