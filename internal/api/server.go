// Package api serves snapshots, history and allocation resolutions over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"stakelens/internal/aggregator"
	"stakelens/internal/domain"
	"stakelens/internal/observability"
	"stakelens/internal/storage"
)

// ProjectAggregator reads live project state.
type ProjectAggregator interface {
	Aggregate(ctx context.Context, req aggregator.Request) (*domain.ProjectSnapshot, error)
	Lookup(ctx context.Context, token common.Address) (domain.EntityAddressSet, error)
	ChainID() uint64
}

// AllocationResolver resolves a claimant's allocation against a treasury.
type AllocationResolver interface {
	Resolve(ctx context.Context, treasury, token, claimant common.Address) (*domain.AllocationResolution, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	aggregator  ProjectAggregator
	resolver    AllocationResolver
	snapshots   storage.SnapshotStore
	points      storage.MetricPointStore
	allocations storage.AllocationStore
	log         logrus.FieldLogger
}

// Options for creating Server.
type Options struct {
	// Required
	Aggregator ProjectAggregator

	// Optional; routes backed by a nil dependency answer 501.
	Resolver    AllocationResolver
	Snapshots   storage.SnapshotStore
	Points      storage.MetricPointStore
	Allocations storage.AllocationStore

	Logger logrus.FieldLogger
}

// New creates a new Server.
func New(opts Options) (*Server, error) {
	if opts.Aggregator == nil {
		return nil, errors.New("api: aggregator is required")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		aggregator:  opts.Aggregator,
		resolver:    opts.Resolver,
		snapshots:   opts.Snapshots,
		points:      opts.Points,
		allocations: opts.Allocations,
		log:         log.WithField("component", "api"),
	}, nil
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "chainId": s.aggregator.ChainID()})
	})
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	v1 := r.Group("/v1")
	{
		projects := v1.Group("/projects/:token")
		projects.GET("", s.getProject)
		projects.GET("/latest", s.getLatestSnapshot)
		projects.GET("/history", s.getHistory)

		v1.GET("/allocations/:token/:claimant", s.getAllocation)
	}
	return r
}

// requestLogger logs one line per request with logrus.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}
